// SPDX-License-Identifier: MIT
package analysis

import "math/cmplx"

// onsetState is the spectral-flux onset detector. It works exclusively on
// the percussive bank, which runs every hop, so the flux difference is
// always a clean one-step comparison.
type onsetState struct {
	prevMags []float64  // previous |L|+|R| per percussive bin
	strength [4]float64 // total, high, low, reserved
	isOnset  bool
	timer    int // refractory countdown, in hops
}

func newOnsetState(p Params) onsetState {
	return onsetState{
		prevMags: make([]float64, PercussiveFFTSize/2+1),
	}
}

// detect computes two-band positive spectral flux against the previous hop's
// magnitudes, then applies a debounce: the onset flag is raised only when the
// cooldown has expired and total flux exceeds the threshold, and raising it
// rearms the cooldown. The previous-magnitude buffer is replaced wholesale
// afterwards.
func (o *onsetState) detect(perc *bank, p Params) {
	if o.timer > 0 {
		o.timer--
	}

	n := perc.fftSize
	specL, specR := perc.specL, perc.specR

	// High-band flux, bins [N/4, N/2): bright transients (hats, cymbals).
	var hfFlux float64
	for k := n / 4; k < n/2; k++ {
		cur := cmplx.Abs(specL[k]) + cmplx.Abs(specR[k])
		if diff := cur - o.prevMags[k]; diff > 0 {
			hfFlux += diff
		}
	}

	// Low-band flux, bins [1, N/8): kicks and bass transients.
	var lfFlux float64
	for k := 1; k < n/8; k++ {
		cur := cmplx.Abs(specL[k]) + cmplx.Abs(specR[k])
		if diff := cur - o.prevMags[k]; diff > 0 {
			lfFlux += diff
		}
	}

	totalFlux := hfFlux + lfFlux

	for k := range o.prevMags {
		o.prevMags[k] = cmplx.Abs(specL[k]) + cmplx.Abs(specR[k])
	}

	o.strength[0] = totalFlux
	o.strength[1] = hfFlux
	o.strength[2] = lfFlux
	o.strength[3] = 0 // reserved

	o.isOnset = false
	if o.timer == 0 && totalFlux > p.FluxThreshold {
		o.isOnset = true
		o.timer = p.OnsetCooldown
	}
}
