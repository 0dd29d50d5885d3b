// SPDX-License-Identifier: MIT
package analysis

import "math"

// Band counts and frequency spans for the four analysis banks. The bass bank
// trades time resolution for very fine frequency resolution in the low end,
// the percussive bank does the opposite, and harmonic/macro sit in between.
const (
	bassBandCount       = 16
	harmonicBandCount   = 32
	percussiveBandCount = 8
	macroBandCount      = 12
	chromaClassCount    = 12

	bassFreqMin = 20.0
	bassFreqMax = 400.0

	harmonicFreqMin = 80.0
	harmonicFreqMax = 18000.0

	macroFreqMin = 50.0
	macroFreqMax = 16000.0

	// A4 reference for the 12-tone equal tempered chroma mapping.
	chromaA4 = 440.0
)

// percussiveEdges are fixed band boundaries chosen around typical drum-kit
// content (kick, snare body, snare crack, toms, hats, cymbals, air).
var percussiveEdges = [percussiveBandCount + 1]float64{
	0, 200, 500, 1000, 2000, 4000, 8000, 12000, 20000,
}

// bandRange is a half-open [Lo, Hi) range of FFT bin indices that one band
// aggregates. Lo >= 1 (DC excluded) and Hi <= N/2 always hold after
// construction.
type bandRange struct {
	Lo, Hi int
}

// binForFreq maps a frequency in Hz to an FFT bin index for an N-point
// transform, clamped into the usable range [1, max(2, N/2)].
func binForFreq(freq float64, fftSize int, sampleRate float64) int {
	bin := int(freq * float64(fftSize) / sampleRate)
	if bin < 1 {
		bin = 1
	}
	hi := fftSize / 2
	if hi < 2 {
		hi = 2
	}
	if bin > hi {
		bin = hi
	}
	return bin
}

// clampRange guarantees a band covers at least one bin: a degenerate range is
// widened by one bin, capped at N/2.
func clampRange(lo, hi, fftSize int) bandRange {
	if hi <= lo {
		hi = lo + 1
		if hi > fftSize/2 {
			hi = fftSize / 2
		}
	}
	return bandRange{Lo: lo, Hi: hi}
}

// linearBands splits [fMin, fMax) into count equal-width frequency bands and
// maps the edges to FFT bins. Used by the bass bank.
func linearBands(count, fftSize int, sampleRate, fMin, fMax float64) []bandRange {
	ranges := make([]bandRange, count)
	step := (fMax - fMin) / float64(count)
	for i := 0; i < count; i++ {
		f0 := fMin + float64(i)*step
		f1 := fMin + float64(i+1)*step
		lo := binForFreq(f0, fftSize, sampleRate)
		hi := binForFreq(f1, fftSize, sampleRate)
		ranges[i] = clampRange(lo, hi, fftSize)
	}
	return ranges
}

// logBands splits [fMin, fMax) into count geometrically spaced bands:
// edge(i) = fMin * (fMax/fMin)^(i/count). Used by the harmonic and macro
// banks, matching the roughly logarithmic pitch perception of hearing.
func logBands(count, fftSize int, sampleRate, fMin, fMax float64) []bandRange {
	ranges := make([]bandRange, count)
	ratio := fMax / fMin
	for i := 0; i < count; i++ {
		f0 := fMin * math.Pow(ratio, float64(i)/float64(count))
		f1 := fMin * math.Pow(ratio, float64(i+1)/float64(count))
		lo := binForFreq(f0, fftSize, sampleRate)
		hi := binForFreq(f1, fftSize, sampleRate)
		ranges[i] = clampRange(lo, hi, fftSize)
	}
	return ranges
}

// edgeBands maps explicit Hz edges to bin ranges. Used by the percussive bank.
func edgeBands(edges []float64, fftSize int, sampleRate float64) []bandRange {
	ranges := make([]bandRange, len(edges)-1)
	for i := range ranges {
		lo := binForFreq(edges[i], fftSize, sampleRate)
		hi := binForFreq(edges[i+1], fftSize, sampleRate)
		ranges[i] = clampRange(lo, hi, fftSize)
	}
	return ranges
}

// chromaBands maps each of the 12 pitch classes onto the harmonic bank's
// spectrum. For every class the bin range is widened to cover each octave
// (1..7) of that class that falls below Nyquist, with two bins of headroom
// above dead center per octave hit. A class with no octave in range keeps the
// degenerate sentinel {N/2, 1} and contributes nothing.
//
// Pitch class 0 is C; A (class 9) anchors to A4 = 440 Hz.
func chromaBands(fftSize int, sampleRate float64) []bandRange {
	ranges := make([]bandRange, chromaClassCount)
	for class := 0; class < chromaClassCount; class++ {
		lo := fftSize / 2
		hi := 1
		semitone := float64(class - 9) // A = 0, so C = -9
		for octave := 1; octave <= 7; octave++ {
			freq := chromaA4 * math.Pow(2, float64(octave)+semitone/12)
			if freq > sampleRate/2 {
				break
			}
			k := int(freq * float64(fftSize) / sampleRate)
			if k >= 1 && k < fftSize/2 {
				lo = min(lo, k)
				hi = max(hi, k+2)
			}
		}
		ranges[class] = bandRange{Lo: lo, Hi: hi}
	}
	return ranges
}
