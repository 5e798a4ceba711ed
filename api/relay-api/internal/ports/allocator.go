// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_ports

import (
	"fmt"
	"net"
	"sync"

	"github.com/crosstalkai/pkg/commons"
)

// Allocator hands out UDP ports from an inclusive range [lo, hi]. Ports are
// bookkeeping for the SFU handshake — all cabins share one real socket pair —
// but each allocation is still verified by a trial bind so the range never
// collides with another process on the host.
//
// Allocate returns 0 when the range is exhausted, meaning "let the OS
// assign"; callers must treat 0 as untracked and never Release it.
type portRange struct {
	lo, hi int
}

type Allocator struct {
	mu     sync.Mutex
	lo, hi int
	extra  []portRange
	used   map[int]bool
	logger commons.Logger
}

// NewAllocator creates an allocator over [lo, hi] inclusive.
func NewAllocator(logger commons.Logger, lo, hi int) *Allocator {
	return &Allocator{
		lo:     lo,
		hi:     hi,
		used:   make(map[int]bool),
		logger: logger,
	}
}

// AddFallbackRange appends a secondary pool scanned only after the primary
// range is exhausted.
func (a *Allocator) AddFallbackRange(lo, hi int) {
	a.mu.Lock()
	a.extra = append(a.extra, portRange{lo: lo, hi: hi})
	a.mu.Unlock()
}

// Allocate reserves a port. When requested is non-zero that exact port is
// trial-bound and reserved; otherwise the range is scanned for the first
// free bindable port. Returns 0 if nothing in the range can be bound.
func (a *Allocator) Allocate(requested int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if requested != 0 {
		if !a.used[requested] && trialBind(requested) {
			a.used[requested] = true
			return requested
		}
		a.logger.Warnw("Requested port unavailable, scanning range",
			"requested", requested, "lo", a.lo, "hi", a.hi)
	}

	for _, r := range append([]portRange{{lo: a.lo, hi: a.hi}}, a.extra...) {
		for port := r.lo; port <= r.hi; port++ {
			if a.used[port] {
				continue
			}
			if trialBind(port) {
				a.used[port] = true
				return port
			}
		}
	}

	a.logger.Warnw("Port ranges exhausted, falling back to OS-assigned",
		"lo", a.lo, "hi", a.hi, "fallbacks", len(a.extra), "used", len(a.used))
	return 0
}

// Release returns a port to the pool. Releasing an unknown or zero port is
// a no-op.
func (a *Allocator) Release(port int) {
	if port == 0 {
		return
	}
	a.mu.Lock()
	delete(a.used, port)
	a.mu.Unlock()
}

// UsedCount returns the number of currently reserved ports.
func (a *Allocator) UsedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

// Range returns the configured inclusive range.
func (a *Allocator) Range() (int, int) {
	return a.lo, a.hi
}

// CleanupAll drops every reservation. Emergency use only: live cabins still
// reference their ports after this.
func (a *Allocator) CleanupAll() {
	a.mu.Lock()
	n := len(a.used)
	a.used = make(map[int]bool)
	a.mu.Unlock()
	a.logger.Warnw("Cleared all port reservations", "released", n)
}

// trialBind verifies the port is actually bindable on this host.
func trialBind(port int) bool {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
