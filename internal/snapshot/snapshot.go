// SPDX-License-Identifier: MIT
// Package snapshot keeps a bounded rolling history of analysis results so a
// UI can scrub back through recent frames.
package snapshot

import (
	"sync"
	"time"

	"mira/internal/analysis"
)

// Snapshot is one retained analysis frame plus its capture time.
type Snapshot struct {
	Result    analysis.Result
	Timestamp time.Time
}

// hopsPerSecond estimates how many results arrive per second; used only to
// size the ring from a duration. 48 kHz / 256-sample hop ~ 187, rounded down
// so short configs still keep a little slack.
const hopsPerSecond = 180

// Manager is a fixed-capacity ring of recent snapshots. Add is called from
// the engine's consuming goroutine and readers come from the UI, so access
// is mutex-guarded.
type Manager struct {
	mu        sync.Mutex
	snapshots []Snapshot
	start     int // ring read position
	count     int
	capacity  int
}

// NewManager keeps roughly seconds worth of history. Non-positive durations
// default to 30 seconds.
func NewManager(seconds int) *Manager {
	if seconds <= 0 {
		seconds = 30
	}
	return &Manager{
		capacity:  seconds * hopsPerSecond,
		snapshots: make([]Snapshot, 0, seconds*hopsPerSecond),
	}
}

// Add retains a deep copy of the result, evicting the oldest snapshot once
// the ring is full.
func (m *Manager) Add(result *analysis.Result) error {
	snap := Snapshot{
		Result:    result.Clone(),
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count < m.capacity {
		m.snapshots = append(m.snapshots, snap)
		m.count++
		return nil
	}
	m.snapshots[m.start] = snap
	m.start = (m.start + 1) % m.capacity
	return nil
}

// Len returns the number of retained snapshots.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// At returns the snapshot at index i, oldest first, and whether it exists.
func (m *Manager) At(i int) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= m.count {
		return Snapshot{}, false
	}
	return m.snapshots[(m.start+i)%len(m.snapshots)], true
}

// Latest returns the most recent snapshot and whether one exists.
func (m *Manager) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == 0 {
		return Snapshot{}, false
	}
	return m.snapshots[(m.start+m.count-1)%len(m.snapshots)], true
}

// Clear drops all history but keeps the allocated ring.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = m.snapshots[:0]
	m.start = 0
	m.count = 0
}

// Close implements transport.Transport teardown; there is nothing to
// release beyond the history itself.
func (m *Manager) Close() error {
	m.Clear()
	return nil
}

// Send implements transport.Transport so the manager can sit directly in the
// engine's fanout.
func (m *Manager) Send(result *analysis.Result) error {
	return m.Add(result)
}
