// SPDX-License-Identifier: MIT
package analysis

import "gonum.org/v1/gonum/dsp/window"

// newHannWindow returns precomputed Hann coefficients for an n-point frame.
// gonum's window functions scale in place, so start from ones.
func newHannWindow(n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)
	return coeffs
}

// removeDC subtracts the arithmetic mean from the frame in place. Cheap
// running-mean DC removal; without it the DC bin leaks into the lowest bands
// through the window's main lobe.
func removeDC(frame []float64) {
	if len(frame) == 0 {
		return
	}
	var sum float64
	for _, s := range frame {
		sum += s
	}
	mean := sum / float64(len(frame))
	for i := range frame {
		frame[i] -= mean
	}
}
