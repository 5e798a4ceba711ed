// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_buffer

import (
	"sync"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
)

const (
	// InitBufferSeconds must be buffered before the first window is
	// released. The recognizer front-loads context, so the stream holds
	// back until it has a full two seconds behind the first window.
	InitBufferSeconds = 2.0

	// WindowSeconds is the fixed analysis window.
	WindowSeconds = 1.0

	// StepSeconds is how far the window advances per chunk. Successive
	// windows overlap by WindowSeconds - StepSeconds.
	StepSeconds = 0.7
)

// HybridChunkBuffer accumulates 16 kHz mono PCM and hands out overlapping
// fixed-size analysis windows, gated by an initial warm-up. Consumed audio
// older than the read position is compacted away once it grows past a few
// steps.
type HybridChunkBuffer struct {
	mu   sync.Mutex
	data []byte
	pos  int // read position into data, in bytes

	started bool

	initBytes   int
	windowBytes int
	stepBytes   int
}

// NewHybridChunkBuffer builds a buffer for the given audio format.
func NewHybridChunkBuffer(cfg internal_audio.AudioConfig) *HybridChunkBuffer {
	bps := cfg.BytesPerSecond()
	return &HybridChunkBuffer{
		initBytes:   int(InitBufferSeconds * float64(bps)),
		windowBytes: int(WindowSeconds * float64(bps)),
		stepBytes:   int(StepSeconds * float64(bps)),
	}
}

// Write appends PCM to the buffer.
func (b *HybridChunkBuffer) Write(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, pcm...)
	b.mu.Unlock()
}

// NextChunk returns the next analysis window, or nil when not enough audio
// has accumulated. The returned slice is a copy and safe to hold across
// further writes.
func (b *HybridChunkBuffer) NextChunk() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		if len(b.data) < b.initBytes {
			return nil
		}
		b.started = true
	}

	if len(b.data)-b.pos < b.windowBytes {
		return nil
	}
	chunk := make([]byte, b.windowBytes)
	copy(chunk, b.data[b.pos:b.pos+b.windowBytes])
	b.pos += b.stepBytes
	b.compact()
	return chunk
}

// compact drops the consumed prefix once it exceeds a few steps. Called
// with b.mu held.
func (b *HybridChunkBuffer) compact() {
	if b.pos <= 4*b.stepBytes {
		return
	}
	remaining := len(b.data) - b.pos
	fresh := make([]byte, remaining)
	copy(fresh, b.data[b.pos:])
	b.data = fresh
	b.pos = 0
}

// Pending reports the unread byte count.
func (b *HybridChunkBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) - b.pos
}

// Reset drops all buffered audio and restores the warm-up gate.
func (b *HybridChunkBuffer) Reset() {
	b.mu.Lock()
	b.data = nil
	b.pos = 0
	b.started = false
	b.mu.Unlock()
}
