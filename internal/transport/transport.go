// SPDX-License-Identifier: MIT
// Package transport fans completed analysis results out to downstream
// consumers (visualizers, network emitters).
package transport

import "mira/internal/analysis"

// Transport receives one Result per analysis hop. Send is called
// synchronously from the engine's consuming goroutine and must not block;
// the result's slices are only valid for the duration of the call, so
// implementations that retain data must Clone it. Implementations should be
// safe for a single sequential caller plus Close from another goroutine.
type Transport interface {
	Send(result *analysis.Result) error
	Close() error
}

// Fanout distributes each result to every transport in order. A transport
// error is returned but does not stop delivery to the rest.
type Fanout []Transport

func (f Fanout) Send(result *analysis.Result) error {
	var firstErr error
	for _, t := range f {
		if err := t.Send(result); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f Fanout) Close() error {
	var firstErr error
	for _, t := range f {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Transport = (Fanout)(nil)
