// SPDX-License-Identifier: MIT
package analysis

import "math/cmplx"

// extractFeatures derives the chromagram, the spectral descriptors and the
// harmonic/percussive ratio for the current hop. All of them read the
// harmonic and percussive banks' latest state; on hops where the harmonic
// bank was not due they reflect its previous frame, same staleness contract
// as the band energies themselves.
func (a *Analyzer) extractFeatures() {
	a.computeChromagram()
	a.computeSpectralFeatures()

	// Harmonic vs percussive energy. 1.0 on zero percussive energy: silence
	// reads as "balanced", not as an infinite ratio.
	var harmonicEnergy, percussiveEnergy float64
	for _, e := range a.harmonic.energies {
		harmonicEnergy += e
	}
	for _, e := range a.percussive.energies {
		percussiveEnergy += e
	}
	if percussiveEnergy > 0 {
		a.hpRatio = harmonicEnergy / percussiveEnergy
	} else {
		a.hpRatio = 1.0
	}
}

// computeChromagram folds every octave of each pitch class in the harmonic
// spectrum into one of 12 magnitude sums, averaged L/R. Classes whose ranges
// kept the degenerate sentinel (no octave below Nyquist) contribute nothing.
func (a *Analyzer) computeChromagram() {
	specL, specR := a.harmonic.specL, a.harmonic.specR
	for c, r := range a.chromaRanges {
		var sum float64
		for k := r.Lo; k < r.Hi && k < len(specL); k++ {
			sum += cmplx.Abs(specL[k])
			sum += cmplx.Abs(specR[k])
		}
		a.chromagram[c] = sum * 0.5
	}
}

// computeSpectralFeatures fills the centroid, rolloff and zero-crossing rate
// from the harmonic bank's spectrum and time frame.
func (a *Analyzer) computeSpectralFeatures() {
	specL, specR := a.harmonic.specL, a.harmonic.specR
	n := a.harmonic.fftSize

	// Centroid: magnitude-weighted mean frequency over bins 1..N/2-1.
	// 0 for a silent spectrum.
	var weightedSum, magnitudeSum float64
	for k := 1; k < n/2; k++ {
		freq := float64(k) * a.sampleRate / float64(n)
		mag := (cmplx.Abs(specL[k]) + cmplx.Abs(specR[k])) * 0.5
		weightedSum += freq * mag
		magnitudeSum += mag
	}
	if magnitudeSum > 0 {
		a.centroid = weightedSum / magnitudeSum
	} else {
		a.centroid = 0
	}

	// Rolloff: lowest bin where cumulative magnitude reaches the configured
	// fraction (default 90%) of the total. 0 if never reached.
	target := magnitudeSum * a.params.RolloffFrac
	var running float64
	a.rolloff = 0
	for k := 1; k < n/2; k++ {
		running += (cmplx.Abs(specL[k]) + cmplx.Abs(specR[k])) * 0.5
		if running >= target && magnitudeSum > 0 {
			a.rolloff = float64(k) * a.sampleRate / float64(n)
			break
		}
	}

	// Zero-crossing rate over the windowed, DC-removed harmonic frame. A
	// crossing counts when either channel changes sign at that index.
	crossings := 0
	frameL, frameR := a.harmonic.frameL, a.harmonic.frameR
	for i := 1; i < n; i++ {
		if (frameL[i-1] >= 0) != (frameL[i] >= 0) ||
			(frameR[i-1] >= 0) != (frameR[i] >= 0) {
			crossings++
		}
	}
	a.zcr = float64(crossings) / float64(n)
}
