// SPDX-License-Identifier: MIT
package analysis

import "math"

// rhythmState tracks tempo with a brute-force autocorrelation over a rolling
// beat-strength history. The write index is a field here, scoped to the
// analyzer's lifecycle, never shared.
type rhythmState struct {
	history    []float64 // circular beat-strength buffer, one sample per hop
	index      int
	phase      float64 // hops, wraps at period
	period     float64 // hops
	confidence float64 // [0,1]
}

func newRhythmState(p Params) rhythmState {
	return rhythmState{
		history: make([]float64, p.BeatHistoryLen),
		period:  120, // placeholder until the first track() overwrites it
	}
}

// track appends this hop's beat strength (total flux plus low flux again,
// weighting bass-heavy onsets double) and re-estimates the beat period as
// the lag with maximum autocorrelation over the configured search range.
//
// The correlation is taken over the raw ring storage without unrolling it at
// the write index, and lags near the history length sum fewer terms; both
// shortcuts bias the estimate slightly and are kept as-is from the original
// tuning. Confidence is maxCorr over a fixed normalization, clamped to
// [0,1] — a rough heuristic, not a calibrated probability.
func (r *rhythmState) track(totalFlux, lowFlux float64, p Params) {
	r.history[r.index] = totalFlux + lowFlux
	r.index = (r.index + 1) % len(r.history)

	maxCorr := 0.0
	bestPeriod := (p.LagMin + p.LagMax) / 2
	for period := p.LagMin; period < p.LagMax; period++ {
		var corr float64
		for i := 0; i < len(r.history)-period; i++ {
			corr += r.history[i] * r.history[i+period]
		}
		if corr > maxCorr {
			maxCorr = corr
			bestPeriod = period
		}
	}

	r.period = float64(bestPeriod)
	r.phase = math.Mod(r.phase+1, r.period)
	r.confidence = maxCorr / (float64(len(r.history)) * p.ConfidenceNorm)
	r.confidence = min(max(r.confidence, 0), 1)
}
