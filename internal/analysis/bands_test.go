// SPDX-License-Identifier: MIT
package analysis

import "testing"

func TestBinForFreqClamping(t *testing.T) {
	cases := []struct {
		freq       float64
		fftSize    int
		sampleRate float64
		want       int
	}{
		{0, 1024, 48000, 1},       // DC clamps up to bin 1
		{5, 1024, 48000, 1},       // below bin 1
		{1000, 1024, 48000, 21},   // 1000*1024/48000 = 21.33
		{24000, 1024, 48000, 512}, // Nyquist
		{90000, 1024, 48000, 512}, // above Nyquist clamps to N/2
		{20000, 256, 48000, 106},
	}
	for _, c := range cases {
		if got := binForFreq(c.freq, c.fftSize, c.sampleRate); got != c.want {
			t.Errorf("binForFreq(%g, %d, %g) = %d, want %d",
				c.freq, c.fftSize, c.sampleRate, got, c.want)
		}
	}
}

func TestClampRangeWidensDegenerate(t *testing.T) {
	r := clampRange(5, 5, 1024)
	if r.Lo != 5 || r.Hi != 6 {
		t.Errorf("clampRange(5, 5) = %+v, want {5 6}", r)
	}
	r = clampRange(10, 3, 1024)
	if r.Lo != 10 || r.Hi != 11 {
		t.Errorf("clampRange(10, 3) = %+v, want {10 11}", r)
	}
}

// Every bank layout must produce usable bin ranges at common sample rates:
// DC excluded, at least one bin wide, bounded by Nyquist.
func TestBandLayoutInvariants(t *testing.T) {
	rates := []float64{44100, 48000, 96000}

	check := func(t *testing.T, name string, ranges []bandRange, fftSize int) {
		t.Helper()
		for i, r := range ranges {
			if r.Lo < 1 {
				t.Errorf("%s band %d: Lo = %d, want >= 1", name, i, r.Lo)
			}
			if r.Hi <= r.Lo {
				t.Errorf("%s band %d: empty range %+v", name, i, r)
			}
			if r.Hi > fftSize/2 {
				t.Errorf("%s band %d: Hi = %d exceeds N/2 = %d", name, i, r.Hi, fftSize/2)
			}
		}
	}

	for _, sr := range rates {
		check(t, "bass", linearBands(bassBandCount, BassFFTSize, sr, bassFreqMin, bassFreqMax), BassFFTSize)
		check(t, "harmonic", logBands(harmonicBandCount, HarmonicFFTSize, sr, harmonicFreqMin, harmonicFreqMax), HarmonicFFTSize)
		check(t, "percussive", edgeBands(percussiveEdges[:], PercussiveFFTSize, sr), PercussiveFFTSize)
		check(t, "macro", logBands(macroBandCount, MacroFFTSize, sr, macroFreqMin, macroFreqMax), MacroFFTSize)
	}
}

func TestBandLayoutCounts(t *testing.T) {
	sr := 48000.0
	if got := len(linearBands(bassBandCount, BassFFTSize, sr, bassFreqMin, bassFreqMax)); got != 16 {
		t.Errorf("bass band count = %d, want 16", got)
	}
	if got := len(logBands(harmonicBandCount, HarmonicFFTSize, sr, harmonicFreqMin, harmonicFreqMax)); got != 32 {
		t.Errorf("harmonic band count = %d, want 32", got)
	}
	if got := len(edgeBands(percussiveEdges[:], PercussiveFFTSize, sr)); got != 8 {
		t.Errorf("percussive band count = %d, want 8", got)
	}
	if got := len(logBands(macroBandCount, MacroFFTSize, sr, macroFreqMin, macroFreqMax)); got != 12 {
		t.Errorf("macro band count = %d, want 12", got)
	}
}

// Log band edges must be monotonically non-decreasing across bands.
func TestLogBandsMonotonic(t *testing.T) {
	ranges := logBands(harmonicBandCount, HarmonicFFTSize, 48000, harmonicFreqMin, harmonicFreqMax)
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Lo < ranges[i-1].Lo {
			t.Errorf("band %d starts at bin %d, before band %d at %d",
				i, ranges[i].Lo, i-1, ranges[i-1].Lo)
		}
	}
}

func TestChromaBandsAt48k(t *testing.T) {
	ranges := chromaBands(HarmonicFFTSize, 48000)
	if len(ranges) != chromaClassCount {
		t.Fatalf("chroma class count = %d, want %d", len(ranges), chromaClassCount)
	}
	// At 48 kHz every pitch class has at least one octave below Nyquist, so
	// no class keeps the degenerate sentinel. Hi may run two bins past a
	// top-of-spectrum hit; the reduction loop bounds it at the spectrum
	// length.
	for class, r := range ranges {
		if r.Lo < 1 || r.Hi <= r.Lo {
			t.Errorf("class %d: unusable range %+v", class, r)
		}
		if r.Hi > HarmonicFFTSize/2+2 {
			t.Errorf("class %d: Hi = %d beyond headroom bound", class, r.Hi)
		}
	}

	// A (class 9) anchors to 440 Hz: its first covered octave is 880 Hz,
	// bin 18 at 48 kHz.
	a := ranges[9]
	wantLo := 880 * HarmonicFFTSize / 48000
	if a.Lo != wantLo {
		t.Errorf("class A: Lo = %d, want %d", a.Lo, wantLo)
	}
}

func TestChromaBandsLowRateSentinel(t *testing.T) {
	// At 1 kHz the Nyquist is 500 Hz, below the lowest covered octave of
	// every pitch class (C at ~523 Hz), so all classes must keep the inert
	// sentinel range.
	ranges := chromaBands(HarmonicFFTSize, 1000)
	for class, r := range ranges {
		if r.Hi > r.Lo {
			t.Errorf("class %d: got live range %+v, want sentinel", class, r)
		}
	}
}
