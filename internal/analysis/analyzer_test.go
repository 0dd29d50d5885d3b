// SPDX-License-Identifier: MIT
package analysis

import (
	"math/rand"
	"reflect"
	"testing"

	"mira/pkg/utils"
)

const testRate = 48000

// newCollector returns a result slice and a callback that deep-copies every
// emitted result into it.
func newCollector() (*[]Result, ResultFunc) {
	results := &[]Result{}
	return results, func(r *Result) {
		*results = append(*results, r.Clone())
	}
}

func randomSignal(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

func TestNewAnalyzerRejectsBadSampleRate(t *testing.T) {
	for _, rate := range []int{0, -48000} {
		if _, err := NewAnalyzer(rate, DefaultParams(), nil); err == nil {
			t.Errorf("NewAnalyzer(%d) succeeded, want error", rate)
		}
	}
}

// Silence must read as neutral: zero energies, zero descriptors with their
// sentinels, no onset, and a harmonic/percussive ratio of exactly 1.
func TestSilenceProducesNeutralResult(t *testing.T) {
	results, onResult := newCollector()
	a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
	if err != nil {
		t.Fatal(err)
	}

	silence := make([]float64, MacroFFTSize)
	a.Push(silence, silence)
	for a.Step() {
	}

	// One macro window buffers exactly one hop.
	if len(*results) != 1 {
		t.Fatalf("got %d results from one macro window, want 1", len(*results))
	}
	r := (*results)[0]

	for name, bands := range map[string][]float64{
		"bass": r.Bass, "harmonic": r.Harmonic, "percussive": r.Percussive,
		"macro": r.Macro, "chroma": r.Chroma,
	} {
		for i, e := range bands {
			if e != 0 {
				t.Errorf("%s[%d] = %g on silence, want 0", name, i, e)
			}
		}
	}
	if r.SpectralCentroid != 0 {
		t.Errorf("centroid = %g on silence, want 0", r.SpectralCentroid)
	}
	if r.SpectralRolloff != 0 {
		t.Errorf("rolloff = %g on silence, want 0", r.SpectralRolloff)
	}
	if r.ZeroCrossingRate != 0 {
		t.Errorf("zcr = %g on silence, want 0", r.ZeroCrossingRate)
	}
	if r.HPRatio != 1.0 {
		t.Errorf("HP ratio = %g on silence, want exactly 1.0", r.HPRatio)
	}
	if r.Onset {
		t.Error("onset flagged on silence")
	}
	if r.Hop != 0 {
		t.Errorf("first hop counter = %d, want 0", r.Hop)
	}
}

// The hop count must track the input exactly: with T samples buffered, the
// analyzer produces one hop per HopSize advance once the macro window fills.
func TestHopCountMatchesInput(t *testing.T) {
	results, onResult := newCollector()
	a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
	if err != nil {
		t.Fatal(err)
	}

	const chunk = 512
	const total = 2 * MacroFFTSize
	signal := randomSignal(total, 7)
	for off := 0; off < total; off += chunk {
		a.Push(signal[off:off+chunk], signal[off:off+chunk])
		for a.Step() {
		}
	}

	wantHops := (total-MacroFFTSize)/HopSize + 1
	if len(*results) != wantHops {
		t.Fatalf("got %d hops from %d samples, want %d", len(*results), total, wantHops)
	}
	for i, r := range *results {
		if r.Hop != uint64(i) {
			t.Fatalf("result %d carries hop counter %d", i, r.Hop)
		}
	}
	if a.HopCount() != uint64(wantHops) {
		t.Errorf("HopCount = %d, want %d", a.HopCount(), wantHops)
	}
}

// A pure tone centered on a harmonic band's bins must dominate that band.
// 1265.625 Hz sits exactly on bin 27 of the 1024-point transform at 48 kHz,
// inside the band covering bins [25, 30).
func TestSineConcentratesInHarmonicBand(t *testing.T) {
	results, onResult := newCollector()
	a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
	if err != nil {
		t.Fatal(err)
	}

	tone := utils.SineWave(MacroFFTSize, testRate, 1265.625)
	a.Push(tone, tone)
	for a.Step() {
	}
	if len(*results) == 0 {
		t.Fatal("no results")
	}
	r := (*results)[0]

	if got := utils.MaxIndex(r.Harmonic); got != 16 {
		t.Errorf("harmonic peak band = %d, want 16", got)
	}
	if r.SpectralCentroid < 1100 || r.SpectralCentroid > 1450 {
		t.Errorf("centroid = %g Hz, want near 1265", r.SpectralCentroid)
	}
	if r.SpectralRolloff < 1100 || r.SpectralRolloff > 1500 {
		t.Errorf("rolloff = %g Hz, want near 1300", r.SpectralRolloff)
	}
	// ~2 crossings per cycle at 1265 Hz: 2*1265/48000 per sample.
	if r.ZeroCrossingRate < 0.04 || r.ZeroCrossingRate > 0.07 {
		t.Errorf("zcr = %g, want ~0.053", r.ZeroCrossingRate)
	}
	if r.HPRatio <= 0 {
		t.Errorf("HP ratio = %g for a tonal signal, want > 0", r.HPRatio)
	}
}

// A 100 Hz tone lands around bin 8.5 of the bass bank, straddling the two
// bands either side of ~100 Hz; the low half of the layout must dominate.
func TestBassBankResolvesLowEnd(t *testing.T) {
	results, onResult := newCollector()
	a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
	if err != nil {
		t.Fatal(err)
	}

	tone := utils.SineWave(MacroFFTSize, testRate, 100)
	a.Push(tone, tone)
	for a.Step() {
	}
	r := (*results)[0]

	peak := utils.MaxIndex(r.Bass)
	if peak != 3 && peak != 4 {
		t.Errorf("bass peak band = %d, want 3 or 4", peak)
	}
	var low, high float64
	for i, e := range r.Bass {
		if i < 8 {
			low += e
		} else {
			high += e
		}
	}
	if low <= high {
		t.Errorf("low-half energy %g not above high-half %g for a 100 Hz tone", low, high)
	}
}

func bandsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Banks not due at a hop must carry their previous energies bit-for-bit;
// each bank refreshes exactly on its cadence boundary.
func TestBankCadenceStaleness(t *testing.T) {
	results, onResult := newCollector()
	a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
	if err != nil {
		t.Fatal(err)
	}

	const total = MacroFFTSize + 8*HopSize
	signal := randomSignal(total, 99)
	a.Push(signal, signal)
	for a.Step() {
	}
	if len(*results) != 9 {
		t.Fatalf("got %d results, want 9", len(*results))
	}
	rs := *results

	for hop := 1; hop <= 3; hop++ {
		if !bandsEqual(rs[hop].Bass, rs[0].Bass) {
			t.Errorf("bass refreshed at hop %d, cadence is 4", hop)
		}
	}
	if bandsEqual(rs[4].Bass, rs[0].Bass) {
		t.Error("bass did not refresh at hop 4")
	}

	if !bandsEqual(rs[1].Harmonic, rs[0].Harmonic) {
		t.Error("harmonic refreshed at hop 1, cadence is 2")
	}
	if bandsEqual(rs[2].Harmonic, rs[0].Harmonic) {
		t.Error("harmonic did not refresh at hop 2")
	}

	for hop := 1; hop <= 7; hop++ {
		if !bandsEqual(rs[hop].Macro, rs[0].Macro) {
			t.Errorf("macro refreshed at hop %d, cadence is 8", hop)
		}
	}
	if bandsEqual(rs[8].Macro, rs[0].Macro) {
		t.Error("macro did not refresh at hop 8")
	}

	if bandsEqual(rs[1].Percussive, rs[0].Percussive) {
		t.Error("percussive failed to refresh on consecutive hops")
	}
}

// Identical input must reproduce identical output, bit for bit.
func TestDeterministicReplay(t *testing.T) {
	signal := randomSignal(MacroFFTSize+16*HopSize, 1234)

	run := func() []Result {
		results, onResult := newCollector()
		a, err := NewAnalyzer(testRate, DefaultParams(), onResult)
		if err != nil {
			t.Fatal(err)
		}
		a.Push(signal, signal)
		for a.Step() {
		}
		return *results
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Error("replaying identical input produced different results")
	}
}

func TestAnalyzerReset(t *testing.T) {
	a, err := NewAnalyzer(testRate, DefaultParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	signal := randomSignal(MacroFFTSize+4*HopSize, 5)
	a.Push(signal, signal)
	for a.Step() {
	}
	if a.HopCount() == 0 {
		t.Fatal("no hops processed before reset")
	}

	a.Reset()
	if a.HopCount() != 0 {
		t.Errorf("HopCount after Reset = %d, want 0", a.HopCount())
	}
	if a.Ready() {
		t.Error("analyzer still ready after Reset")
	}
	for _, bk := range a.banks {
		for i, e := range bk.energies {
			if e != 0 {
				t.Errorf("%s energy[%d] = %g after Reset, want 0", bk.name, i, e)
			}
		}
	}
}

// Steady-state hops must not allocate: every buffer is preallocated at
// construction and the result aliases internal state.
func TestStepDoesNotAllocate(t *testing.T) {
	a, err := NewAnalyzer(testRate, DefaultParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	signal := randomSignal(MacroFFTSize+80*HopSize, 11)
	a.Push(signal, signal)
	a.Step() // warm up whatever lazily settles

	if allocs := testing.AllocsPerRun(50, func() {
		a.Step()
	}); allocs > 0 {
		t.Errorf("Step allocates %.1f times per hop, want 0", allocs)
	}
}

func BenchmarkAnalyzerStep(b *testing.B) {
	a, err := NewAnalyzer(testRate, DefaultParams(), nil)
	if err != nil {
		b.Fatal(err)
	}
	signal := randomSignal(2*MacroFFTSize, 21)
	a.Push(signal, signal)

	hop := signal[:HopSize]
	for i := 0; i < b.N; i++ {
		a.Push(hop, hop)
		a.Step()
	}
}
