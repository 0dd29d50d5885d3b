// SPDX-License-Identifier: MIT
package snapshot

import (
	"testing"

	"mira/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultWithHop(hop uint64) *analysis.Result {
	return &analysis.Result{
		Bass:    []float64{float64(hop)},
		Chroma:  make([]float64, 12),
		HPRatio: 1,
		Hop:     hop,
	}
}

func TestManagerRetainsInOrder(t *testing.T) {
	m := NewManager(1)

	for hop := uint64(0); hop < 10; hop++ {
		require.NoError(t, m.Add(resultWithHop(hop)))
	}

	assert.Equal(t, 10, m.Len())
	for i := 0; i < 10; i++ {
		snap, ok := m.At(i)
		require.True(t, ok)
		assert.Equal(t, uint64(i), snap.Result.Hop)
		assert.False(t, snap.Timestamp.IsZero())
	}

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(9), latest.Result.Hop)
}

func TestManagerEvictsOldest(t *testing.T) {
	m := NewManager(1) // capacity 180

	const total = 200
	for hop := uint64(0); hop < total; hop++ {
		require.NoError(t, m.Add(resultWithHop(hop)))
	}

	assert.Equal(t, 180, m.Len())

	// The first 20 snapshots were evicted; index 0 is now hop 20.
	first, ok := m.At(0)
	require.True(t, ok)
	assert.Equal(t, uint64(20), first.Result.Hop)

	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(total-1), latest.Result.Hop)
}

// Add must deep-copy: the engine reuses its result buffers every hop.
func TestManagerClonesResults(t *testing.T) {
	m := NewManager(1)

	src := resultWithHop(1)
	require.NoError(t, m.Add(src))
	src.Bass[0] = 999

	snap, ok := m.At(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, snap.Result.Bass[0])
}

func TestManagerEmptyAndCleared(t *testing.T) {
	m := NewManager(0) // defaults to 30 seconds

	_, ok := m.Latest()
	assert.False(t, ok)
	_, ok = m.At(0)
	assert.False(t, ok)

	require.NoError(t, m.Add(resultWithHop(0)))
	assert.Equal(t, 1, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
	_, ok = m.Latest()
	assert.False(t, ok)

	// Usable again after Clear.
	require.NoError(t, m.Add(resultWithHop(5)))
	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Result.Hop)
}

func TestManagerOutOfRangeIndex(t *testing.T) {
	m := NewManager(1)
	require.NoError(t, m.Add(resultWithHop(0)))

	_, ok := m.At(-1)
	assert.False(t, ok)
	_, ok = m.At(1)
	assert.False(t, ok)
}
