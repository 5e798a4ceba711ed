// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_ports

import (
	"sync"
	"testing"

	"github.com/crosstalkai/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(lo, hi int) *Allocator {
	return NewAllocator(commons.NewNopLogger(), lo, hi)
}

func TestAllocate_Sequential(t *testing.T) {
	a := newTestAllocator(36000, 36010)

	p1 := a.Allocate(0)
	require.NotZero(t, p1)
	p2 := a.Allocate(0)
	require.NotZero(t, p2)

	assert.NotEqual(t, p1, p2, "two holders must never share a port")
	assert.Equal(t, 2, a.UsedCount())
}

func TestAllocate_Requested(t *testing.T) {
	a := newTestAllocator(36020, 36030)

	p := a.Allocate(36025)
	assert.Equal(t, 36025, p)

	// Same requested port again falls back to scanning.
	p2 := a.Allocate(36025)
	assert.NotZero(t, p2)
	assert.NotEqual(t, 36025, p2)
}

func TestAllocate_Exhaustion(t *testing.T) {
	a := newTestAllocator(36040, 36041)

	p1 := a.Allocate(0)
	p2 := a.Allocate(0)
	require.NotZero(t, p1)
	require.NotZero(t, p2)

	// Range exhausted: 0 means OS-assigned and untracked.
	p3 := a.Allocate(0)
	assert.Zero(t, p3)
	assert.Equal(t, 2, a.UsedCount())
}

func TestAllocate_FallbackRangeAfterPrimaryExhausted(t *testing.T) {
	a := newTestAllocator(36080, 36080)
	a.AddFallbackRange(36082, 36083)

	require.Equal(t, 36080, a.Allocate(0))
	p2 := a.Allocate(0)
	assert.GreaterOrEqual(t, p2, 36082)
	assert.LessOrEqual(t, p2, 36083)

	p3 := a.Allocate(0)
	require.NotZero(t, p3)
	assert.NotEqual(t, p2, p3)

	// Primary and fallback both exhausted: OS-assigned.
	assert.Zero(t, a.Allocate(0))
	assert.Equal(t, 3, a.UsedCount())
}

func TestRelease_ReturnsPortToPool(t *testing.T) {
	a := newTestAllocator(36050, 36050)

	p := a.Allocate(0)
	require.Equal(t, 36050, p)
	require.Zero(t, a.Allocate(0))

	a.Release(p)
	assert.Equal(t, 0, a.UsedCount())
	assert.Equal(t, 36050, a.Allocate(0))
}

func TestRelease_ZeroAndUnknownAreNoops(t *testing.T) {
	a := newTestAllocator(36060, 36070)
	a.Release(0)
	a.Release(36065)
	assert.Equal(t, 0, a.UsedCount())
}

func TestAllocate_ConcurrentNoDuplicates(t *testing.T) {
	a := newTestAllocator(36100, 36160)

	var mu sync.Mutex
	seen := make(map[int]int)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := a.Allocate(0)
			if p == 0 {
				return
			}
			mu.Lock()
			seen[p]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for port, n := range seen {
		assert.Equalf(t, 1, n, "port %d allocated %d times", port, n)
	}
}

func TestCleanupAll(t *testing.T) {
	a := newTestAllocator(36200, 36210)
	a.Allocate(0)
	a.Allocate(0)
	a.CleanupAll()
	assert.Equal(t, 0, a.UsedCount())
}
