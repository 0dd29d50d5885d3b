// SPDX-License-Identifier: MIT
/*
Package analysis implements a streaming multi-resolution music analysis
engine. A stereo sample stream is drained in fixed 256-sample hops through
four independently sized FFT banks:

	bank        N     cadence  role
	percussive  256   every hop    transient detection (~5 ms)
	harmonic    1024  every 2nd    musical content (~21 ms)
	bass        4096  every 4th    fine low-end resolution (~85 ms)
	macro       8192  every 8th    long-term spectral evolution (~170 ms)

Each hop produces one Result: per-bank band energies, a chromagram, spectral
descriptors, onset flux, and a tracked beat period/phase. Banks not due on a
given hop keep their previous energies — slower banks emit stale-but-valid
data between their own cadence boundaries instead of blocking the fast path.
That staleness is the point of the multi-resolution split: the two largest
FFTs run at 1/4 and 1/8 of the hop rate, bounding CPU cost while the cheap
percussive FFT keeps full time resolution for onsets.
*/
package analysis

import (
	"fmt"
	"math/cmplx"

	"mira/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT sizes for the four banks. HopSize is a quarter of the harmonic window,
// so consecutive harmonic frames overlap by 75% and every other bank is
// oversampled in time relative to its own window length.
const (
	BassFFTSize       = 4096
	HarmonicFFTSize   = 1024
	PercussiveFFTSize = 256
	MacroFFTSize      = 8192

	HopSize = HarmonicFFTSize / 4
)

// bank bundles one FFT configuration: plan, window, per-channel working
// frames and spectra, and the band layout that reduces the spectrum to a
// handful of energies. Immutable after construction except for the frame,
// spectrum and energy contents.
type bank struct {
	name    string
	fftSize int
	cadence int // run when hop counter is a multiple of this

	fft    *fourier.FFT
	window []float64

	frameL, frameR []float64
	specL, specR   []complex128

	ranges   []bandRange
	energies []float64
}

func newBank(name string, fftSize, cadence int, ranges []bandRange) (*bank, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%s bank: FFT size must be a power of 2, got %d", name, fftSize)
	}
	specLen := fftSize/2 + 1
	return &bank{
		name:     name,
		fftSize:  fftSize,
		cadence:  cadence,
		fft:      fourier.NewFFT(fftSize),
		window:   newHannWindow(fftSize),
		frameL:   make([]float64, fftSize),
		frameR:   make([]float64, fftSize),
		specL:    make([]complex128, specLen),
		specR:    make([]complex128, specLen),
		ranges:   ranges,
		energies: make([]float64, len(ranges)),
	}, nil
}

// analyze runs one pass of this bank: copy the front fftSize samples of each
// channel (the ones the hop is about to consume), remove DC, window,
// transform, and reduce each band's bin range to a single L/R-averaged
// magnitude sum. No allocations.
func (bk *bank) analyze(left, right []float64) {
	copy(bk.frameL, left[:bk.fftSize])
	copy(bk.frameR, right[:bk.fftSize])

	removeDC(bk.frameL)
	removeDC(bk.frameR)

	for i := 0; i < bk.fftSize; i++ {
		bk.frameL[i] *= bk.window[i]
		bk.frameR[i] *= bk.window[i]
	}

	bk.fft.Coefficients(bk.specL, bk.frameL)
	bk.fft.Coefficients(bk.specR, bk.frameR)

	for b, r := range bk.ranges {
		var sum float64
		for k := r.Lo; k < r.Hi; k++ {
			sum += cmplx.Abs(bk.specL[k])
			sum += cmplx.Abs(bk.specR[k])
		}
		bk.energies[b] = sum * 0.5
	}
}

// Analyzer is the synchronous core of the engine: it owns the stream buffer,
// the four banks and all derived feature state, and emits one Result per
// completed hop through the consumer callback. It is not safe for concurrent
// use — Engine serializes access behind a channel.
type Analyzer struct {
	sampleRate float64
	params     Params

	fifo  *StreamBuffer
	banks [4]*bank // cadence order: percussive, harmonic, bass, macro

	percussive *bank
	harmonic   *bank
	bass       *bank
	macro      *bank

	chromaRanges []bandRange
	chromagram   []float64

	centroid float64
	rolloff  float64
	zcr      float64
	hpRatio  float64

	onset  onsetState
	rhythm rhythmState

	hopCount uint64
	result   Result
	onResult ResultFunc
}

// NewAnalyzer builds all four FFT banks for the given sample rate. The
// construction is all-or-nothing: if any bank cannot be built, no analyzer is
// returned and no partial state exists. Band layouts depend on the sample
// rate, so a rate change requires a fresh analyzer.
func NewAnalyzer(sampleRate int, params Params, onResult ResultFunc) (*Analyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	sr := float64(sampleRate)
	p := params.sane()

	percussive, err := newBank("percussive", PercussiveFFTSize, 1,
		edgeBands(percussiveEdges[:], PercussiveFFTSize, sr))
	if err != nil {
		return nil, err
	}
	harmonic, err := newBank("harmonic", HarmonicFFTSize, 2,
		logBands(harmonicBandCount, HarmonicFFTSize, sr, harmonicFreqMin, harmonicFreqMax))
	if err != nil {
		return nil, err
	}
	bass, err := newBank("bass", BassFFTSize, 4,
		linearBands(bassBandCount, BassFFTSize, sr, bassFreqMin, bassFreqMax))
	if err != nil {
		return nil, err
	}
	macro, err := newBank("macro", MacroFFTSize, 8,
		logBands(macroBandCount, MacroFFTSize, sr, macroFreqMin, macroFreqMax))
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		sampleRate:   sr,
		params:       p,
		fifo:         NewStreamBuffer(2 * MacroFFTSize),
		banks:        [4]*bank{percussive, harmonic, bass, macro},
		percussive:   percussive,
		harmonic:     harmonic,
		bass:         bass,
		macro:        macro,
		chromaRanges: chromaBands(HarmonicFFTSize, sr),
		chromagram:   make([]float64, chromaClassCount),
		onset:        newOnsetState(p),
		rhythm:       newRhythmState(p),
		onResult:     onResult,
	}
	return a, nil
}

// SampleRate returns the rate the band layouts were computed for.
func (a *Analyzer) SampleRate() int { return int(a.sampleRate) }

// HopCount returns the number of hops emitted so far.
func (a *Analyzer) HopCount() uint64 { return a.hopCount }

// Push appends a chunk pair to the stream buffer and returns the per-channel
// sample count taken (the common prefix of the two chunks).
func (a *Analyzer) Push(left, right []float64) int {
	return a.fifo.Append(left, right)
}

// Ready reports whether enough samples are buffered for one more hop. The
// gate is the largest bank's window: every bank reads from the front of the
// same buffer, so the macro window bounds them all.
func (a *Analyzer) Ready() bool {
	return a.fifo.Len() >= MacroFFTSize
}

// Step runs one analysis hop if enough samples are buffered and reports
// whether it did. One hop: run each bank due at this hop count, derive
// features, detect onsets, track rhythm, emit the Result, then advance both
// channels by HopSize.
func (a *Analyzer) Step() bool {
	if !a.Ready() {
		return false
	}

	left, right := a.fifo.Left(), a.fifo.Right()
	for _, bk := range a.banks {
		if a.hopCount%uint64(bk.cadence) == 0 {
			bk.analyze(left, right)
		}
	}

	a.extractFeatures()
	a.onset.detect(a.percussive, a.params)
	a.rhythm.track(a.onset.strength[0], a.onset.strength[2], a.params)

	a.emit()

	a.fifo.Advance(HopSize)
	a.hopCount++
	return true
}

// emit assembles the per-hop Result and hands it to the consumer. The slices
// alias bank state and stay valid until the next Step.
func (a *Analyzer) emit() {
	a.result = Result{
		Bass:             a.bass.energies,
		Harmonic:         a.harmonic.energies,
		Percussive:       a.percussive.energies,
		Macro:            a.macro.energies,
		Chroma:           a.chromagram,
		OnsetStrength:    a.onset.strength,
		Onset:            a.onset.isOnset,
		SpectralCentroid: a.centroid,
		SpectralRolloff:  a.rolloff,
		ZeroCrossingRate: a.zcr,
		HPRatio:          a.hpRatio,
		BeatPhase:        a.rhythm.phase,
		BeatPeriod:       a.rhythm.period,
		BeatConfidence:   a.rhythm.confidence,
		Hop:              a.hopCount,
	}
	if a.onResult != nil {
		a.onResult(&a.result)
	}
}

// Reset clears the stream buffer and all derived state without rebuilding
// the FFT plans.
func (a *Analyzer) Reset() {
	a.fifo.Reset()
	a.hopCount = 0
	for _, bk := range a.banks {
		for i := range bk.energies {
			bk.energies[i] = 0
		}
	}
	for i := range a.chromagram {
		a.chromagram[i] = 0
	}
	a.centroid, a.rolloff, a.zcr, a.hpRatio = 0, 0, 0, 0
	a.onset = newOnsetState(a.params)
	a.rhythm = newRhythmState(a.params)
}
