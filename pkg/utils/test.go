// SPDX-License-Identifier: MIT
// Package utils holds deterministic signal generators shared by tests.
package utils

import "math"

// SineWave generates size samples of a pure sine at the given frequency,
// amplitude 0.9 of full scale.
func SineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// ComplexWave generates a 440 Hz fundamental with two harmonics, useful for
// exercising chroma and centroid paths with something non-trivial.
func ComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
	}
	return buffer
}

// Impulses generates a silent buffer with a unit spike every period samples,
// a crude click track for onset and rhythm tests.
func Impulses(size, period int) []float64 {
	buffer := make([]float64, size)
	for i := 0; i < size; i += period {
		buffer[i] = 1.0
	}
	return buffer
}

// MaxIndex returns the index of the largest value, or -1 for an empty slice.
func MaxIndex(values []float64) int {
	best := -1
	bestVal := math.Inf(-1)
	for i, v := range values {
		if v > bestVal {
			bestVal = v
			best = i
		}
	}
	return best
}
