// SPDX-License-Identifier: MIT
package analysis

// Params collects the tunable constants of the onset detector and rhythm
// tracker. The defaults are carried over from the visualizer this engine was
// built for; none of them have a principled derivation, so they are exposed
// as configuration rather than baked in.
type Params struct {
	FluxThreshold  float64 // total flux above this (cooldown permitting) flags an onset
	OnsetCooldown  int     // minimum hops between onset flags
	BeatHistoryLen int     // beat-strength ring length, in hops
	LagMin         int     // shortest candidate beat period, in hops
	LagMax         int     // longest candidate beat period, exclusive
	ConfidenceNorm float64 // confidence = maxCorr / (historyLen * ConfidenceNorm)
	RolloffFrac    float64 // cumulative-magnitude fraction for spectral rolloff
}

// DefaultParams returns the tuning used by the original visualizer: a 0.1
// flux threshold with a 10-hop refractory, a 64-hop beat history searched
// over 20..59-hop periods (roughly 60-200 BPM at the ~187 Hz hop rate of
// 48 kHz input).
func DefaultParams() Params {
	return Params{
		FluxThreshold:  0.1,
		OnsetCooldown:  10,
		BeatHistoryLen: 64,
		LagMin:         20,
		LagMax:         60,
		ConfidenceNorm: 0.1,
		RolloffFrac:    0.9,
	}
}

// sane clamps nonsense values back to the defaults so a partially filled
// config cannot produce a division by zero or an empty lag search.
func (p Params) sane() Params {
	d := DefaultParams()
	if p.FluxThreshold <= 0 {
		p.FluxThreshold = d.FluxThreshold
	}
	if p.OnsetCooldown <= 0 {
		p.OnsetCooldown = d.OnsetCooldown
	}
	if p.BeatHistoryLen <= 0 {
		p.BeatHistoryLen = d.BeatHistoryLen
	}
	if p.LagMin <= 0 {
		p.LagMin = d.LagMin
	}
	if p.LagMax <= p.LagMin {
		p.LagMax = p.LagMin + 1
	}
	if p.ConfidenceNorm <= 0 {
		p.ConfidenceNorm = d.ConfidenceNorm
	}
	if p.RolloffFrac <= 0 || p.RolloffFrac > 1 {
		p.RolloffFrac = d.RolloffFrac
	}
	return p
}
