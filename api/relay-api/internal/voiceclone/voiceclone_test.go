// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_voiceclone

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_mlbridge "github.com/crosstalkai/api/relay-api/internal/mlbridge"
	"github.com/crosstalkai/pkg/commons"
)

// fakeBridge answers CloneSpeaker with a fixed embedding and records calls.
type fakeBridge struct {
	mu        sync.Mutex
	embedding []float32
	calls     int
}

func (f *fakeBridge) Transcribe(context.Context, []byte, string) (string, error) { return "", nil }
func (f *fakeBridge) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
func (f *fakeBridge) Synthesize(context.Context, string, string, []float32) ([]byte, error) {
	return nil, nil
}
func (f *fakeBridge) CloneSpeaker(context.Context, []byte) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.embedding, nil
}

func (f *fakeBridge) cloneCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingBridge parks CloneSpeaker on a gate so tests can observe what
// happens while an upload is in flight.
type blockingBridge struct {
	fakeBridge
	gate chan struct{}
}

func (b *blockingBridge) CloneSpeaker(ctx context.Context, wav []byte) ([]float32, error) {
	<-b.gate
	return b.fakeBridge.CloneSpeaker(ctx, wav)
}

// loudPCM builds seconds of 16 kHz mono PCM above the amplitude gate.
func loudPCM(seconds float64) []byte {
	n := int(seconds * 16000)
	s := make([]int16, n)
	for i := range s {
		s[i] = 3000
	}
	return internal_audio.Int16ToBytes(s)
}

func quietPCM(seconds float64) []byte {
	n := int(seconds * 16000)
	s := make([]int16, n)
	for i := range s {
		s[i] = 100
	}
	return internal_audio.Int16ToBytes(s)
}

func newTestStore(t *testing.T, bridge internal_mlbridge.Bridge) *Store {
	t.Helper()
	s, err := NewStore(commons.NewNopLogger(), bridge, filepath.Join(t.TempDir(), "embeddings"), 0)
	require.NoError(t, err)
	return s
}

func TestNPYRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.npy")
	vec := []float32{0.25, -1.5, 3.0, 0}
	require.NoError(t, writeNPY(path, vec))

	got, err := readNPY(path)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestCollect_QuietAudioIgnored(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{1}}
	s := newTestStore(t, bridge)

	s.Collect("U1", "R1", quietPCM(15))
	assert.Zero(t, s.CollectedSeconds("U1", "R1"))
	assert.Zero(t, bridge.cloneCalls())
}

func TestCollect_ExtractsAfterMinimumDuration(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{0.1, 0.2, 0.3}}
	s := newTestStore(t, bridge)

	for i := 0; i < 9; i++ {
		s.Collect("U1", "R1", loudPCM(1))
	}
	assert.Nil(t, s.Embedding("U1", "R1"), "under 10s, still collecting")
	assert.Zero(t, bridge.cloneCalls())

	s.Collect("U1", "R1", loudPCM(1.5))
	s.Close()
	require.Equal(t, 1, bridge.cloneCalls())
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, s.Embedding("U1", "R1"))

	// Further audio must not trigger another extraction.
	s.Collect("U1", "R1", loudPCM(11))
	s.Close()
	assert.Equal(t, 1, bridge.cloneCalls())
}

func TestCollect_MinimumDurationConfigurable(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{0.5}}
	s, err := NewStore(commons.NewNopLogger(), bridge, filepath.Join(t.TempDir(), "embeddings"), 2)
	require.NoError(t, err)

	s.Collect("U1", "R1", loudPCM(1))
	assert.Zero(t, bridge.cloneCalls())

	s.Collect("U1", "R1", loudPCM(1.5))
	s.Close()
	assert.Equal(t, 1, bridge.cloneCalls(), "2s minimum reached")
}

func TestCollect_ExtractionDoesNotBlockCaller(t *testing.T) {
	bridge := &blockingBridge{
		fakeBridge: fakeBridge{embedding: []float32{0.4}},
		gate:       make(chan struct{}),
	}
	s := newTestStore(t, bridge)

	// Collect returns while the upload is still parked on the gate.
	s.Collect("U1", "R1", loudPCM(11))
	assert.Nil(t, s.Embedding("U1", "R1"), "embedding not ready yet")

	close(bridge.gate)
	s.Close()
	assert.Equal(t, []float32{0.4}, s.Embedding("U1", "R1"))
}

func TestEmbedding_PersistsAcrossStoreRestart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "embeddings")
	bridge := &fakeBridge{embedding: []float32{0.7}}

	s1, err := NewStore(commons.NewNopLogger(), bridge, dir, 0)
	require.NoError(t, err)
	s1.Collect("U1", "R1", loudPCM(11))
	s1.Close()
	require.Equal(t, 1, bridge.cloneCalls())

	s2, err := NewStore(commons.NewNopLogger(), bridge, dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.7}, s2.Embedding("U1", "R1"), "loaded from disk")
	assert.Equal(t, 1, bridge.cloneCalls())
}

func TestEmbedding_TTLFallsBackToDisk(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{0.9}}
	s := newTestStore(t, bridge)

	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	s.Collect("U1", "R1", loudPCM(11))
	s.Close()
	require.NotNil(t, s.Embedding("U1", "R1"))

	now = now.Add(31 * time.Minute)
	assert.Equal(t, []float32{0.9}, s.Embedding("U1", "R1"),
		"expired cache entry reloads from the persisted file")
}

func TestCache_EvictsLRUAtCapacity(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{1}}
	s := newTestStore(t, bridge)

	s.mu.Lock()
	for i := 0; i < cacheCapacity; i++ {
		s.put(string(rune('a'+i%26))+string(rune('0'+i/26)), []float32{float32(i)})
	}
	first := s.cacheOrder[0]
	s.put("overflow", []float32{99})
	_, stillThere := s.cache[first]
	size := len(s.cache)
	s.mu.Unlock()

	assert.False(t, stillThere, "oldest entry evicted")
	assert.Equal(t, cacheCapacity, size)
}

func TestForget_DropsCollectionAndCache(t *testing.T) {
	bridge := &fakeBridge{embedding: []float32{1}}
	s := newTestStore(t, bridge)

	s.Collect("U1", "R1", loudPCM(5))
	require.Positive(t, s.CollectedSeconds("U1", "R1"))

	s.Forget("U1", "R1")
	assert.Zero(t, s.CollectedSeconds("U1", "R1"))
}
