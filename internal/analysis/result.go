// SPDX-License-Identifier: MIT
package analysis

// Result is the consolidated output of one analysis hop. Every field is
// refreshed (or deliberately carried over, for banks not due to run this
// hop) before the result is handed to the consumer.
//
// Band energies and the chromagram are linear magnitude sums averaged across
// channels; they are non-negative and unbounded, so consumers scale for
// themselves. The slices alias the analyzer's working state and are only
// valid until the next hop — consumers that retain results must copy
// (see Result.Clone).
type Result struct {
	Bass       []float64 // 16 linear bands, 20-400 Hz
	Harmonic   []float64 // 32 log bands, 80 Hz-18 kHz
	Percussive []float64 // 8 fixed-edge bands
	Macro      []float64 // 12 log bands, 50 Hz-16 kHz
	Chroma     []float64 // 12 pitch classes, C first

	// Onset strength: total flux, high-band flux, low-band flux, reserved.
	OnsetStrength [4]float64
	Onset         bool

	SpectralCentroid float64 // magnitude-weighted mean frequency (Hz)
	SpectralRolloff  float64 // 90% cumulative-magnitude cutoff (Hz)
	ZeroCrossingRate float64 // crossings per sample, [0,1]
	HPRatio          float64 // harmonic/percussive energy, 1.0 on silence

	BeatPhase      float64 // hops, wraps at BeatPeriod
	BeatPeriod     float64 // hops
	BeatConfidence float64 // [0,1], rough autocorrelation heuristic

	Hop uint64 // monotonically increasing hop counter
}

// Clone returns a deep copy safe to retain across hops.
func (r *Result) Clone() Result {
	c := *r
	c.Bass = append([]float64(nil), r.Bass...)
	c.Harmonic = append([]float64(nil), r.Harmonic...)
	c.Percussive = append([]float64(nil), r.Percussive...)
	c.Macro = append([]float64(nil), r.Macro...)
	c.Chroma = append([]float64(nil), r.Chroma...)
	return c
}

// ResultFunc receives one Result per completed hop, synchronously on the
// analyzing goroutine. Implementations must not block.
type ResultFunc func(*Result)
