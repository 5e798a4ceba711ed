// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio_opuscodec

import (
	"fmt"
	"sync"

	"gopkg.in/hraban/opus.v2"

	"github.com/crosstalkai/pkg/commons"
)

const (
	SampleRate = 48000
	Channels   = 2

	// FrameSamples is samples per channel for a 20 ms frame at 48 kHz.
	FrameSamples = 960

	// FrameBytes is one 20 ms stereo frame: 960 samples * 2 ch * 2 bytes.
	FrameBytes = FrameSamples * Channels * 2

	encoderBitrate = 128000
)

// decodeFrameSizes is the fallback order in samples per channel:
// 20 ms first, then 10 ms, 40 ms, 60 ms.
var decodeFrameSizes = []int{960, 480, 1920, 2880}

type entry struct {
	mu      sync.Mutex
	decoder *opus.Decoder
	encoder *opus.Encoder
}

// Cache owns one lazily-built Opus decoder/encoder pair per cabin.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	logger  commons.Logger
}

// NewCache creates an empty codec cache.
func NewCache(logger commons.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

func (c *Cache) entryFor(cabinKey string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cabinKey]
	if !ok {
		e = &entry{}
		c.entries[cabinKey] = e
	}
	return e
}

// Decode decodes an Opus payload to 48 kHz stereo PCM bytes. Frame sizes are
// tried in fallback order; if every size fails the payload is dropped and an
// empty slice returned.
func (c *Cache) Decode(cabinKey string, payload []byte) []byte {
	if len(payload) < 3 {
		return nil
	}

	e := c.entryFor(cabinKey)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.decoder == nil {
		dec, err := opus.NewDecoder(SampleRate, Channels)
		if err != nil {
			c.logger.Errorw("Failed to create Opus decoder", "cabin", cabinKey, "error", err)
			return nil
		}
		e.decoder = dec
	}

	for _, frameSize := range decodeFrameSizes {
		pcm := make([]int16, frameSize*Channels)
		n, err := e.decoder.Decode(payload, pcm)
		if err != nil {
			continue
		}
		out := make([]byte, n*Channels*2)
		for i := 0; i < n*Channels; i++ {
			out[i*2] = byte(pcm[i])
			out[i*2+1] = byte(pcm[i] >> 8)
		}
		return out
	}

	c.logger.Debugw("Opus decode failed for all frame sizes",
		"cabin", cabinKey, "payloadSize", len(payload))
	return nil
}

// Encode encodes one 20 ms 48 kHz stereo PCM frame. Short input is
// zero-padded to the frame boundary; surplus beyond one frame is ignored.
func (c *Cache) Encode(cabinKey string, frame []byte) ([]byte, error) {
	e := c.entryFor(cabinKey)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.encoder == nil {
		enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppAudio)
		if err != nil {
			return nil, fmt.Errorf("create opus encoder: %w", err)
		}
		if err := enc.SetBitrate(encoderBitrate); err != nil {
			return nil, fmt.Errorf("set opus bitrate: %w", err)
		}
		e.encoder = enc
	}

	pcm := PadFrame(frame)

	samples := make([]int16, FrameSamples*Channels)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}

	buf := make([]byte, 1500)
	n, err := e.encoder.Encode(samples, buf)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return buf[:n], nil
}

// Remove drops a cabin's codec entry.
func (c *Cache) Remove(cabinKey string) {
	c.mu.Lock()
	delete(c.entries, cabinKey)
	c.mu.Unlock()
}

// Len returns the number of cached codec pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// PadFrame normalizes PCM to exactly one 20 ms stereo frame: zero-padded
// when short, truncated to the first frame when long.
func PadFrame(frame []byte) []byte {
	if len(frame) == FrameBytes {
		return frame
	}
	if len(frame) > FrameBytes {
		return frame[:FrameBytes]
	}
	padded := make([]byte, FrameBytes)
	copy(padded, frame)
	return padded
}
