// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_pipeline

import (
	"context"
	"fmt"
	"sync"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_mlbridge "github.com/crosstalkai/api/relay-api/internal/mlbridge"
	internal_voiceclone "github.com/crosstalkai/api/relay-api/internal/voiceclone"
	"github.com/crosstalkai/pkg/commons"
)

// Result is the outcome of one window through STT, translation, and
// synthesis. Success=false with a nil Err means the window held no
// recognizable speech.
type Result struct {
	Success        bool
	TranslatedText string
	// TranslatedAudio is 24 kHz mono 16-bit PCM from the synthesizer.
	TranslatedAudio []byte
	Err             error
}

// Pipeline carries one cabin's windows through the model gateway. One
// instance per cabin; the manager disposes it when the language pair
// changes.
type Pipeline struct {
	logger commons.Logger
	bridge internal_mlbridge.Bridge
	clones *internal_voiceclone.Store

	roomID     string
	speakerID  string
	sourceLang string
	targetLang string
}

// New builds a pipeline bound to a cabin's identity and language pair.
func New(logger commons.Logger, bridge internal_mlbridge.Bridge, clones *internal_voiceclone.Store,
	roomID, speakerID, sourceLang, targetLang string) *Pipeline {
	return &Pipeline{
		logger:     logger,
		bridge:     bridge,
		clones:     clones,
		roomID:     roomID,
		speakerID:  speakerID,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// Process runs one 16 kHz mono PCM window through recognition, translation,
// and synthesis. The window also feeds the speaker's voice-clone reference
// pool so later utterances come out in the speaker's own timbre.
func (p *Pipeline) Process(ctx context.Context, pcm []byte) Result {
	if len(pcm) == 0 {
		return Result{Success: false}
	}

	if p.clones != nil {
		p.clones.Collect(p.speakerID, p.roomID, pcm)
	}

	wav := internal_audio.WrapPCMToWAV(pcm, internal_audio.RELAY_INTERNAL_AUDIO_CONFIG)
	text, err := p.bridge.Transcribe(ctx, wav, p.sourceLang)
	if err != nil {
		return Result{Err: fmt.Errorf("transcribe: %w", err)}
	}
	if text == "" {
		return Result{Success: false}
	}

	translated, err := p.bridge.Translate(ctx, text, p.sourceLang, p.targetLang)
	if err != nil {
		return Result{Err: fmt.Errorf("translate: %w", err)}
	}
	if translated == "" {
		return Result{Success: false}
	}

	audio, err := p.Synthesize(ctx, translated)
	if err != nil {
		return Result{Err: err}
	}

	p.logger.Debugw("Pipeline window processed",
		"room", p.roomID, "speaker", p.speakerID,
		"sourceText", text, "translatedText", translated,
		"audioBytes", len(audio))
	return Result{Success: true, TranslatedText: translated, TranslatedAudio: audio}
}

// Synthesize renders text in the target language, using the speaker's
// cloned voice when an embedding is available. Exposed separately so the
// cabin worker can re-synthesize per clause when stream-splitting.
func (p *Pipeline) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var embedding []float32
	if p.clones != nil {
		embedding = p.clones.Embedding(p.speakerID, p.roomID)
	}
	audio, err := p.bridge.Synthesize(ctx, text, p.targetLang, embedding)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return audio, nil
}

// Languages returns the bound (source, target) pair.
func (p *Pipeline) Languages() (string, string) {
	return p.sourceLang, p.targetLang
}

// Dispose releases pipeline-held resources. Best effort; currently only
// the log marker, the gateway is stateless per request.
func (p *Pipeline) Dispose() {
	p.logger.Debugw("Pipeline disposed",
		"room", p.roomID, "speaker", p.speakerID,
		"src", p.sourceLang, "tgt", p.targetLang)
}

// Cache hands each cabin its pipeline, constructing lazily and disposing
// on language change.
type Cache struct {
	logger commons.Logger
	bridge internal_mlbridge.Bridge
	clones *internal_voiceclone.Store

	mu        sync.Mutex
	pipelines map[string]*Pipeline
}

// NewCache creates an empty pipeline cache.
func NewCache(logger commons.Logger, bridge internal_mlbridge.Bridge, clones *internal_voiceclone.Store) *Cache {
	return &Cache{
		logger:    logger,
		bridge:    bridge,
		clones:    clones,
		pipelines: make(map[string]*Pipeline),
	}
}

// Get returns the cabin's pipeline, building one bound to the given
// languages on first use. A cached pipeline with a stale language pair is
// disposed and rebuilt.
func (c *Cache) Get(cabinKey, roomID, speakerID, sourceLang, targetLang string) *Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[cabinKey]; ok {
		src, tgt := p.Languages()
		if src == sourceLang && tgt == targetLang {
			return p
		}
		p.Dispose()
		delete(c.pipelines, cabinKey)
	}

	p := New(c.logger, c.bridge, c.clones, roomID, speakerID, sourceLang, targetLang)
	c.pipelines[cabinKey] = p
	return p
}

// Dispose drops the cabin's cached pipeline if present.
func (c *Cache) Dispose(cabinKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pipelines[cabinKey]; ok {
		p.Dispose()
		delete(c.pipelines, cabinKey)
	}
}

// Len reports the number of cached pipelines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}
