// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_cabin

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_audio_opuscodec "github.com/crosstalkai/api/relay-api/internal/audio/opuscodec"
	internal_audio_vad "github.com/crosstalkai/api/relay-api/internal/audio/vad"
	internal_buffer "github.com/crosstalkai/api/relay-api/internal/buffer"
	internal_pipeline "github.com/crosstalkai/api/relay-api/internal/pipeline"
	internal_rtpcodec "github.com/crosstalkai/api/relay-api/internal/rtpcodec"
	"github.com/crosstalkai/pkg/commons"
	"github.com/crosstalkai/pkg/utils"
)

// Cabin lifecycle statuses. The worker is the sole writer after startup.
const (
	StatusIdle        = "IDLE"
	StatusListening   = "LISTENING"
	StatusTranslating = "TRANSLATING"
	StatusError       = "ERROR"
)

const (
	queueCapacity   = 64
	dequeuePoll     = 100 * time.Millisecond
	frameInterval   = 20 * time.Millisecond
	streamSplitMin  = 8 // words before clause-wise re-synthesis kicks in
	minChunkSuccess = 0.8
)

// SocketHub is the slice of the shared hub a cabin needs.
type SocketHub interface {
	Send(packet []byte, addr *net.UDPAddr)
}

// Settings are the tunables shared by every cabin.
type Settings struct {
	SFUHost            string
	OutboundPT         uint8
	AcceptedPTs        []uint8
	NoiseGateThreshold int
	NoiseGateDilation  int
}

func (s Settings) withDefaults() Settings {
	if s.OutboundPT == 0 {
		s.OutboundPT = 100
	}
	if len(s.AcceptedPTs) == 0 {
		s.AcceptedPTs = []uint8{100, 111}
	}
	if s.NoiseGateThreshold == 0 {
		s.NoiseGateThreshold = 500
	}
	if s.NoiseGateDilation == 0 {
		s.NoiseGateDilation = 480
	}
	return s
}

// Cabin is one speaker's translation context: inbound RTP in one language,
// outbound RTP in another.
type Cabin struct {
	RoomID    string
	SpeakerID string

	// hubKey is the creation-time key. Socket hub registration and codec
	// state stay under it across language renames so nothing leaks.
	hubKey string

	mu         sync.Mutex
	key        string // renamed on language change, guarded by mu
	sourceLang string
	targetLang string
	status     string

	ssrc    uint32
	rxPort  int
	txPort  int
	sfuAddr *net.UDPAddr

	running    atomic.Bool
	queue      chan []byte
	workerDone chan struct{}

	buffer    *internal_buffer.HybridChunkBuffer
	vad       *internal_audio_vad.Detector
	codecs    *internal_audio_opuscodec.Cache
	resampler internal_audio.Resampler
	outbound  internal_rtpcodec.OutboundState
	pipelines *internal_pipeline.Cache

	settings Settings
	logger   commons.Logger

	droppedPackets atomic.Uint64
	droppedWindows atomic.Uint64
}

func newCabin(logger commons.Logger, key, roomID, speakerID, src, tgt string,
	ssrc uint32, sfuAddr *net.UDPAddr, settings Settings,
	codecs *internal_audio_opuscodec.Cache, resampler internal_audio.Resampler,
	pipelines *internal_pipeline.Cache, vad *internal_audio_vad.Detector) *Cabin {
	return &Cabin{
		hubKey:     key,
		key:        key,
		RoomID:     roomID,
		SpeakerID:  speakerID,
		sourceLang: src,
		targetLang: tgt,
		status:     StatusIdle,
		ssrc:       ssrc,
		sfuAddr:    sfuAddr,
		queue:      make(chan []byte, queueCapacity),
		workerDone: make(chan struct{}),
		buffer:     internal_buffer.NewHybridChunkBuffer(internal_audio.RELAY_INTERNAL_AUDIO_CONFIG),
		vad:        vad,
		codecs:     codecs,
		resampler:  resampler,
		pipelines:  pipelines,
		settings:   settings,
		logger:     logger,
	}
}

// CabinKey returns the current registry key. It changes when the language
// pair changes.
func (c *Cabin) CabinKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Status returns the cabin's lifecycle status.
func (c *Cabin) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Cabin) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Languages returns the cabin's current (source, target) pair.
func (c *Cabin) Languages() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceLang, c.targetLang
}

// SSRC returns the cabin's registered outbound SSRC.
func (c *Cabin) SSRC() uint32 { return c.ssrc }

// Ports returns the cabin's bookkeeping (rx, tx) ports.
func (c *Cabin) Ports() (int, int) { return c.rxPort, c.txPort }

// Running reports whether the worker should keep going.
func (c *Cabin) Running() bool { return c.running.Load() }

// HandleRTP is the hub callback. Runs on the router goroutine: decode and
// buffer only, never block on I/O.
func (c *Cabin) HandleRTP(datagram []byte, _ *net.UDPAddr) {
	if !c.running.Load() {
		return
	}

	pkt, err := internal_rtpcodec.Parse(datagram)
	if err != nil {
		c.droppedPackets.Add(1)
		return
	}
	if !c.payloadTypeAccepted(pkt.PayloadType) {
		c.droppedPackets.Add(1)
		return
	}

	stereo48k := c.codecs.Decode(c.hubKey, pkt.Payload)
	if len(stereo48k) == 0 {
		c.droppedPackets.Add(1)
		return
	}

	mono16k, err := c.resampler.Resample(stereo48k,
		internal_audio.SFU_AUDIO_CONFIG, internal_audio.RELAY_INTERNAL_AUDIO_CONFIG)
	if err != nil {
		c.logger.Warnw("Inbound resample failed", "cabin", c.hubKey, "error", err)
		return
	}

	c.buffer.Write(mono16k)
	for {
		window := c.buffer.NextChunk()
		if window == nil {
			return
		}
		c.enqueue(window)
	}
}

func (c *Cabin) payloadTypeAccepted(pt uint8) bool {
	for _, accepted := range c.settings.AcceptedPTs {
		if pt == accepted {
			return true
		}
	}
	return false
}

// enqueue adds a window, dropping the oldest when full. Latency stays
// bounded even when the pipeline runs slower than real time.
func (c *Cabin) enqueue(window []byte) {
	select {
	case c.queue <- window:
		return
	default:
	}
	select {
	case <-c.queue:
		c.droppedWindows.Add(1)
	default:
	}
	select {
	case c.queue <- window:
	default:
		c.droppedWindows.Add(1)
	}
}

// start flips the cabin to running and launches the worker. Idempotent.
func (c *Cabin) start(hub SocketHub) {
	if c.running.Swap(true) {
		return
	}
	c.setStatus(StatusListening)
	go c.work(hub)
}

// stop clears running and joins the worker within timeout. Returns false
// when the worker did not exit in time.
func (c *Cabin) stop(timeout time.Duration) bool {
	if !c.running.Swap(false) {
		return true
	}
	select {
	case <-c.workerDone:
		return true
	case <-time.After(timeout):
		c.logger.Errorw("Cabin worker did not stop in time", "cabin", c.CabinKey())
		return false
	}
}

// drain empties the window queue.
func (c *Cabin) drain() {
	for {
		select {
		case <-c.queue:
		default:
			return
		}
	}
}

func (c *Cabin) work(hub SocketHub) {
	defer close(c.workerDone)
	ctx := context.Background()

	for c.running.Load() {
		var window []byte
		select {
		case window = <-c.queue:
		case <-time.After(dequeuePoll):
			continue
		}
		c.safeHandleWindow(ctx, hub, window)
	}
}

// safeHandleWindow keeps the worker alive across a panic in the decode or
// pipeline path; the cabin flips to ERROR but can still be destroyed cleanly.
func (c *Cabin) safeHandleWindow(ctx context.Context, hub SocketHub, window []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("Cabin worker panic", "cabin", c.CabinKey(), "panic", r)
			c.setStatus(StatusError)
		}
	}()
	c.handleWindow(ctx, hub, window)
}

func (c *Cabin) handleWindow(ctx context.Context, hub SocketHub, window []byte) {
	if !c.vad.IsSpeech(window) {
		// Passthrough keeps the outbound stream smooth and the
		// sequence/timestamp progression monotonic during silence.
		c.emit(hub, window, internal_audio.RELAY_INTERNAL_AUDIO_CONFIG)
		return
	}

	c.setStatus(StatusTranslating)
	defer c.setStatus(StatusListening)

	src, tgt := c.Languages()
	p := c.pipelines.Get(c.CabinKey(), c.RoomID, c.SpeakerID, src, tgt)
	result := p.Process(ctx, window)
	if result.Err != nil {
		// Transient gateway failure: the utterance is dropped, nothing is
		// emitted for it, and the cabin keeps listening.
		c.logger.Warnw("Pipeline failed, dropping utterance",
			"cabin", c.CabinKey(), "error", result.Err)
		return
	}
	if !result.Success {
		return
	}

	c.emitTranslated(ctx, hub, p, result)
}

// emitTranslated sends the synthesized audio. Long multi-clause sentences
// are re-synthesized per clause so playback starts before the whole
// sentence is rendered.
func (c *Cabin) emitTranslated(ctx context.Context, hub SocketHub, p *internal_pipeline.Pipeline, result internal_pipeline.Result) {
	text := result.TranslatedText
	if utils.WordCount(text) > streamSplitMin && utils.HasClauseBreaks(text) {
		for _, clause := range utils.SplitClauses(text) {
			audio, err := p.Synthesize(ctx, clause)
			if err != nil {
				c.logger.Warnw("Clause synthesis failed", "cabin", c.CabinKey(), "error", err)
				continue
			}
			c.emit(hub, audio, internal_audio.TTS_AUDIO_CONFIG)
		}
		return
	}
	c.emit(hub, result.TranslatedAudio, internal_audio.TTS_AUDIO_CONFIG)
}

// emit converts PCM to the SFU format and streams it out as paced 20 ms
// Opus RTP packets. Returns true when at least 80% of chunks went out.
func (c *Cabin) emit(hub SocketHub, pcm []byte, from internal_audio.AudioConfig) bool {
	if len(pcm) == 0 {
		return false
	}

	key := c.hubKey
	out, err := c.resampler.Resample(pcm, from, internal_audio.SFU_AUDIO_CONFIG)
	if err != nil {
		c.logger.Warnw("Outbound resample failed", "cabin", key, "error", err)
		return false
	}
	out = internal_audio.NoiseGate(out, c.settings.NoiseGateThreshold, c.settings.NoiseGateDilation)

	chunks := internal_audio.SplitFrames(out, internal_audio_opuscodec.FrameBytes)
	if len(chunks) == 0 {
		return false
	}

	start := time.Now()
	sent := 0
	for i, chunk := range chunks {
		// Sleep-until pacing; when behind schedule, skip the sleep and
		// let the far-side jitter buffer absorb the burst.
		target := start.Add(time.Duration(i) * frameInterval)
		if wait := time.Until(target); wait > 0 {
			time.Sleep(wait)
		}

		payload, err := c.codecs.Encode(key, chunk)
		if err != nil {
			c.logger.Warnw("Opus encode failed", "cabin", key, "chunk", i, "error", err)
			continue
		}

		seq, ts := c.outbound.Next()
		packet, err := internal_rtpcodec.Build(c.settings.OutboundPT, seq, ts, c.ssrc, payload)
		if err != nil {
			c.logger.Warnw("RTP build failed", "cabin", key, "chunk", i, "error", err)
			continue
		}
		hub.Send(packet, c.sfuAddr)
		sent++
	}

	ok := float64(sent) >= minChunkSuccess*float64(len(chunks))
	if !ok {
		c.logger.Warnw("Utterance emission degraded",
			"cabin", key, "sent", sent, "chunks", len(chunks))
	}
	return ok
}
