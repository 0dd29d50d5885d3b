// SPDX-License-Identifier: MIT
package analysis

// StreamBuffer absorbs irregular capture-driven chunk sizes and hands out
// fixed-size analysis windows. Left and right stay in lock step: Append only
// takes the common prefix of a chunk pair, and Advance drops the same number
// of samples from the front of both channels.
//
// Not safe for concurrent use; the engine's consuming goroutine owns it.
type StreamBuffer struct {
	left  []float64
	right []float64
}

// NewStreamBuffer returns an empty buffer with capacity hints sized for the
// largest analysis window to keep early appends from reallocating.
func NewStreamBuffer(capacityHint int) *StreamBuffer {
	return &StreamBuffer{
		left:  make([]float64, 0, capacityHint),
		right: make([]float64, 0, capacityHint),
	}
}

// Append adds the common prefix of the two chunks to the buffer and returns
// the number of samples taken per channel. Unequal lengths are tolerated; the
// excess of the longer chunk is dropped.
func (b *StreamBuffer) Append(left, right []float64) int {
	n := min(len(left), len(right))
	if n <= 0 {
		return 0
	}
	b.left = append(b.left, left[:n]...)
	b.right = append(b.right, right[:n]...)
	return n
}

// Len returns the per-channel sample count currently buffered.
func (b *StreamBuffer) Len() int {
	return len(b.left)
}

// Left returns the buffered left-channel samples. The slice aliases internal
// storage and is only valid until the next Append or Advance.
func (b *StreamBuffer) Left() []float64 { return b.left }

// Right returns the buffered right-channel samples, with the same aliasing
// caveat as Left.
func (b *StreamBuffer) Right() []float64 { return b.right }

// Advance drops n samples from the front of both channels.
func (b *StreamBuffer) Advance(n int) {
	if n <= 0 {
		return
	}
	if n > len(b.left) {
		n = len(b.left)
	}
	b.left = b.left[:copy(b.left, b.left[n:])]
	b.right = b.right[:copy(b.right, b.right[n:])]
}

// Reset discards all buffered samples but keeps the allocated storage.
func (b *StreamBuffer) Reset() {
	b.left = b.left[:0]
	b.right = b.right[:0]
}
