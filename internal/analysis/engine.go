// SPDX-License-Identifier: MIT
package analysis

import (
	"sync"
	"sync/atomic"

	applog "mira/internal/log"
)

type chunkMsg struct {
	left, right []float64
}

type rateMsg struct {
	sampleRate int
}

// Engine wraps an Analyzer behind an ordered message channel so that capture
// callbacks can hand off chunks without touching analyzer state. A single
// consuming goroutine owns the analyzer, its FFT plans and every derived
// buffer; the atomic stop flag is the only state touched from outside it.
//
// OnFrames never blocks: when the queue is full the chunk is dropped with a
// diagnostic rather than stalling the capture thread.
type Engine struct {
	params   Params
	onResult ResultFunc

	sampleRate int // rate for the next (re)initialization

	mu      sync.Mutex // guards in/running across Start/RequestStop
	in      chan any
	running bool

	stop atomic.Bool
	wg   sync.WaitGroup
}

// NewEngine creates an engine that will analyze at the given sample rate
// once started. The analyzer itself is built lazily on the first chunk, so a
// SetSampleRate between Start and the first frames is cheap.
func NewEngine(sampleRate int, params Params, onResult ResultFunc) *Engine {
	return &Engine{
		params:     params,
		onResult:   onResult,
		sampleRate: sampleRate,
	}
}

// Start resets the stop flag and launches the consuming goroutine. Calling
// Start on a running engine is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		applog.Warnf("Engine: Start called but already running")
		return
	}
	e.stop.Store(false)
	e.in = make(chan any, 64)
	e.running = true
	e.wg.Add(1)
	go e.run(e.in, e.sampleRate)
	applog.Infof("Engine: started (sample rate %d Hz, hop %d samples)", e.sampleRate, HopSize)
}

// RequestStop cooperatively stops the engine and waits for teardown: the
// consuming goroutine finishes its in-flight hop, releases all FFT state and
// exits. This is a full reset — a later Start reinitializes from scratch.
func (e *Engine) RequestStop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.stop.Store(true)
	close(e.in)
	e.in = nil
	e.running = false
	e.mu.Unlock()

	e.wg.Wait()
	applog.Infof("Engine: stopped")
}

// OnFrames delivers one captured chunk pair. The samples are copied before
// crossing the goroutine boundary, so the caller may reuse its buffers
// immediately. Must not be called concurrently with itself.
func (e *Engine) OnFrames(left, right []float64) {
	if len(left) == 0 || len(right) == 0 {
		applog.Debugf("Engine: dropping empty chunk (%d/%d samples)", len(left), len(right))
		return
	}
	msg := chunkMsg{
		left:  append([]float64(nil), left...),
		right: append([]float64(nil), right...),
	}

	// The send happens under the same lock that closes the channel in
	// RequestStop; it cannot block, so the hold is brief.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.in == nil || e.stop.Load() {
		return
	}
	select {
	case e.in <- msg:
	default:
		applog.Warnf("Engine: input queue full, dropping %d-sample chunk", len(left))
	}
}

// SetSampleRate updates the stream's sample rate. A change forces a full
// reinitialization (band layouts, windows, FFT plans) before the next chunk
// is processed; delivering the same rate again is a no-op.
func (e *Engine) SetSampleRate(sampleRate int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleRate = sampleRate
	if e.in == nil {
		return
	}
	select {
	case e.in <- rateMsg{sampleRate: sampleRate}:
	default:
		applog.Warnf("Engine: input queue full, dropping sample rate update")
	}
}

// run is the consuming goroutine: it owns the analyzer exclusively and
// processes messages strictly in order. A failed analyzer initialization is
// fatal for the stream — the engine stays inert, logging once, until a
// sample rate change or a restart gives it a reason to retry.
func (e *Engine) run(in chan any, sampleRate int) {
	defer e.wg.Done()

	var analyzer *Analyzer
	initFailed := false

	for msg := range in {
		switch m := msg.(type) {
		case rateMsg:
			if analyzer != nil && analyzer.SampleRate() == m.sampleRate {
				continue
			}
			applog.Infof("Engine: sample rate now %d Hz, reinitializing", m.sampleRate)
			sampleRate = m.sampleRate
			analyzer = nil
			initFailed = false

		case chunkMsg:
			if e.stop.Load() {
				continue
			}
			if analyzer == nil {
				if initFailed {
					continue
				}
				var err error
				analyzer, err = NewAnalyzer(sampleRate, e.params, e.onResult)
				if err != nil {
					applog.Errorf("Engine: analyzer initialization failed: %v", err)
					initFailed = true
					continue
				}
				applog.Infof("Engine: analyzer ready (banks %d/%d/%d/%d)",
					PercussiveFFTSize, HarmonicFFTSize, BassFFTSize, MacroFFTSize)
			}
			if taken := analyzer.Push(m.left, m.right); taken < len(m.left) || taken < len(m.right) {
				applog.Debugf("Engine: unequal chunk lengths (%d/%d), took %d",
					len(m.left), len(m.right), taken)
			}
			for !e.stop.Load() && analyzer.Step() {
			}
		}
	}

	// Teardown: drop the analyzer so FFT plans and FIFOs are collected.
	if analyzer != nil {
		analyzer.Reset()
	}
}
