// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_voiceclone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_mlbridge "github.com/crosstalkai/api/relay-api/internal/mlbridge"
	"github.com/crosstalkai/pkg/commons"
)

const (
	// defaultMinReferenceSeconds is how much usable speech must accumulate
	// before an embedding is extracted. Under 10 s the cloned voice drifts.
	defaultMinReferenceSeconds = 10

	// extractConcurrency bounds parallel /clone_speaker uploads.
	extractConcurrency = 2

	// minSampleAmplitude gates which windows count as usable reference
	// audio. Quiet windows teach the model room tone, not the speaker.
	minSampleAmplitude = 500.0

	cacheCapacity = 64
	cacheTTL      = 30 * time.Minute
)

type cacheEntry struct {
	embedding []float32
	loadedAt  time.Time
}

type collection struct {
	pcm []byte
}

// Store collects reference speech per (speaker, room), extracts a speaker
// embedding through the model gateway once enough has accumulated, and
// caches embeddings in memory with disk persistence underneath.
type Store struct {
	logger   commons.Logger
	bridge   internal_mlbridge.Bridge
	dir      string
	minBytes int

	mu          sync.Mutex
	cache       map[string]*cacheEntry
	cacheOrder  []string // LRU, most recent last
	collections map[string]*collection
	cloning     map[string]bool

	// background runs embedding extraction so collection never stalls the
	// cabin worker on a gateway upload.
	background errgroup.Group

	now func() time.Time
}

// NewStore creates a Store rooted at dir (typically voice_clones/embeddings).
// minSeconds is the reference-audio minimum before extraction; zero or
// negative selects the default.
func NewStore(logger commons.Logger, bridge internal_mlbridge.Bridge, dir string, minSeconds int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create embedding dir %s: %w", dir, err)
	}
	if minSeconds <= 0 {
		minSeconds = defaultMinReferenceSeconds
	}
	s := &Store{
		logger:      logger,
		bridge:      bridge,
		dir:         dir,
		minBytes:    minSeconds * internal_audio.RELAY_INTERNAL_AUDIO_CONFIG.BytesPerSecond(),
		cache:       make(map[string]*cacheEntry),
		collections: make(map[string]*collection),
		cloning:     make(map[string]bool),
		now:         time.Now,
	}
	s.background.SetLimit(extractConcurrency)
	return s, nil
}

// Close waits for in-flight embedding extractions.
func (s *Store) Close() {
	s.background.Wait()
}

func key(speakerID, roomID string) string {
	return speakerID + "_" + roomID
}

func (s *Store) path(speakerID, roomID string) string {
	return filepath.Join(s.dir, key(speakerID, roomID)+".npy")
}

// Collect feeds a window of 16 kHz mono PCM into the speaker's reference
// pool. Quiet windows are discarded. Once the pool crosses the minimum
// duration and no embedding exists yet, extraction is scheduled on the
// background group; Collect itself never blocks on the gateway.
func (s *Store) Collect(speakerID, roomID string, pcm []byte) {
	if internal_audio.MeanAbsAmplitude(pcm) < minSampleAmplitude {
		return
	}

	k := key(speakerID, roomID)

	s.mu.Lock()
	if _, cached := s.cache[k]; cached {
		s.mu.Unlock()
		return
	}
	if s.cloning[k] {
		s.mu.Unlock()
		return
	}
	col, ok := s.collections[k]
	if !ok {
		col = &collection{}
		s.collections[k] = col
	}
	col.pcm = append(col.pcm, pcm...)
	if len(col.pcm) < s.minBytes {
		s.mu.Unlock()
		return
	}
	reference := col.pcm
	delete(s.collections, k)
	s.cloning[k] = true
	s.mu.Unlock()

	started := s.background.TryGo(func() error {
		s.extract(context.Background(), speakerID, roomID, reference)
		return nil
	})
	if !started {
		// All extraction slots busy; put the pool back and retry on the
		// next collected window.
		s.mu.Lock()
		delete(s.cloning, k)
		s.collections[k] = &collection{pcm: reference}
		s.mu.Unlock()
	}
}

func (s *Store) extract(ctx context.Context, speakerID, roomID string, reference []byte) {
	k := key(speakerID, roomID)
	defer func() {
		s.mu.Lock()
		delete(s.cloning, k)
		s.mu.Unlock()
	}()

	wav := internal_audio.WrapPCMToWAV(reference, internal_audio.RELAY_INTERNAL_AUDIO_CONFIG)
	embedding, err := s.bridge.CloneSpeaker(ctx, wav)
	if err != nil {
		s.logger.Warnw("Speaker embedding extraction failed",
			"speaker", speakerID, "room", roomID, "error", err)
		return
	}

	if err := writeNPY(s.path(speakerID, roomID), embedding); err != nil {
		s.logger.Errorw("Failed to persist speaker embedding",
			"speaker", speakerID, "room", roomID, "error", err)
	}

	s.mu.Lock()
	s.put(k, embedding)
	s.mu.Unlock()
	s.logger.Infow("Speaker embedding ready",
		"speaker", speakerID, "room", roomID, "dims", len(embedding))
}

// Embedding returns the speaker's embedding, or nil while reference audio
// is still being collected. Checks memory, then disk.
func (s *Store) Embedding(speakerID, roomID string) []float32 {
	k := key(speakerID, roomID)

	s.mu.Lock()
	if e, ok := s.cache[k]; ok {
		if s.now().Sub(e.loadedAt) < cacheTTL {
			s.touch(k)
			emb := e.embedding
			s.mu.Unlock()
			return emb
		}
		s.evict(k)
	}
	s.mu.Unlock()

	vec, err := readNPY(s.path(speakerID, roomID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnw("Failed to read persisted embedding",
				"speaker", speakerID, "room", roomID, "error", err)
		}
		return nil
	}

	s.mu.Lock()
	s.put(k, vec)
	s.mu.Unlock()
	return vec
}

// Forget drops the speaker's collection state and cached embedding. The
// persisted file is kept so a rejoining speaker skips re-collection.
func (s *Store) Forget(speakerID, roomID string) {
	k := key(speakerID, roomID)
	s.mu.Lock()
	delete(s.collections, k)
	s.evict(k)
	s.mu.Unlock()
}

// CollectedSeconds reports how much usable reference audio is pooled.
func (s *Store) CollectedSeconds(speakerID, roomID string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[key(speakerID, roomID)]
	if !ok {
		return 0
	}
	return float64(len(col.pcm)) / float64(internal_audio.RELAY_INTERNAL_AUDIO_CONFIG.BytesPerSecond())
}

// put inserts under the LRU policy. Caller holds s.mu.
func (s *Store) put(k string, embedding []float32) {
	if _, ok := s.cache[k]; !ok && len(s.cache) >= cacheCapacity {
		oldest := s.cacheOrder[0]
		s.evict(oldest)
		s.logger.Debugw("Evicted oldest speaker embedding", "key", oldest)
	}
	s.cache[k] = &cacheEntry{embedding: embedding, loadedAt: s.now()}
	s.touch(k)
}

// touch moves k to most-recent. Caller holds s.mu.
func (s *Store) touch(k string) {
	for i, existing := range s.cacheOrder {
		if existing == k {
			s.cacheOrder = append(s.cacheOrder[:i], s.cacheOrder[i+1:]...)
			break
		}
	}
	s.cacheOrder = append(s.cacheOrder, k)
}

// evict removes k from cache and order. Caller holds s.mu.
func (s *Store) evict(k string) {
	delete(s.cache, k)
	for i, existing := range s.cacheOrder {
		if existing == k {
			s.cacheOrder = append(s.cacheOrder[:i], s.cacheOrder[i+1:]...)
			return
		}
	}
}
