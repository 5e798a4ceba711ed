// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_cabin

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_audio_opuscodec "github.com/crosstalkai/api/relay-api/internal/audio/opuscodec"
	internal_audio_vad "github.com/crosstalkai/api/relay-api/internal/audio/vad"
	internal_pipeline "github.com/crosstalkai/api/relay-api/internal/pipeline"
	internal_rtpcodec "github.com/crosstalkai/api/relay-api/internal/rtpcodec"
	internal_sockethub "github.com/crosstalkai/api/relay-api/internal/sockethub"
	"github.com/crosstalkai/pkg/commons"
)

// fakeHub records registrations and sent packets in place of the shared
// socket pair.
type fakeHub struct {
	mu          sync.Mutex
	registered  map[string]uint32
	unregisters int
	nextPort    int
	sent        [][]byte
}

func newFakeHub() *fakeHub {
	return &fakeHub{registered: map[string]uint32{}, nextPort: 35000}
}

func (f *fakeHub) Register(cabinKey string, ssrc uint32, _ internal_sockethub.Callback) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[cabinKey] = ssrc
	rx := f.nextPort
	tx := f.nextPort + 1
	f.nextPort += 2
	return rx, tx, nil
}

func (f *fakeHub) Unregister(cabinKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.registered, cabinKey)
	f.unregisters++
}

func (f *fakeHub) Send(packet []byte, _ *net.UDPAddr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(packet))
	copy(cp, packet)
	f.sent = append(f.sent, cp)
}

func (f *fakeHub) sentPackets() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeBridge scripts the model gateway for worker tests.
type fakeBridge struct {
	mu       sync.Mutex
	text     string
	audio    []byte
	sttErr   error
	sttCalls int
	ttsCalls int
}

func (f *fakeBridge) Transcribe(context.Context, []byte, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sttCalls++
	if f.sttErr != nil {
		return "", f.sttErr
	}
	return f.text, nil
}

func (f *fakeBridge) Translate(_ context.Context, text, _, _ string) (string, error) {
	return f.text, nil
}

func (f *fakeBridge) Synthesize(context.Context, string, string, []float32) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttsCalls++
	return f.audio, nil
}

func (f *fakeBridge) CloneSpeaker(context.Context, []byte) ([]float32, error) {
	return []float32{1}, nil
}

func (f *fakeBridge) transcribeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sttCalls
}

func newTestManager(t *testing.T, hub Hub, bridge *fakeBridge) *Manager {
	return newTestManagerWithSettings(t, hub, bridge, Settings{SFUHost: "127.0.0.1"})
}

func newTestManagerWithSettings(t *testing.T, hub Hub, bridge *fakeBridge, settings Settings) *Manager {
	t.Helper()
	logger := commons.NewNopLogger()
	resampler, err := internal_audio.GetResampler(logger)
	require.NoError(t, err)

	detectorFactory := func() *internal_audio_vad.Detector {
		return internal_audio_vad.NewDetector(logger, internal_audio_vad.EnergyClassifier{}, internal_audio_vad.Config{})
	}
	return NewManager(logger, hub,
		internal_audio_opuscodec.NewCache(logger),
		resampler,
		internal_pipeline.NewCache(logger, bridge, nil),
		detectorFactory,
		settings)
}

// monoWindow builds one second of 16 kHz mono PCM at the given amplitude.
func monoWindow(amplitude int16) []byte {
	s := make([]int16, 16000)
	for i := range s {
		s[i] = amplitude
	}
	return internal_audio.Int16ToBytes(s)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestDeriveSSRC_DeterministicPerKey(t *testing.T) {
	a := DeriveSSRC("R1_U1_vi_en")
	assert.Equal(t, a, DeriveSSRC("R1_U1_vi_en"))
	assert.NotEqual(t, a, DeriveSSRC("R1_U1_en_vi"))
}

func TestCreateCabin_RegistersAndListens(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})
	defer m.DestroyAll()

	info, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	assert.Equal(t, "R1_U1_vi_en", info.Key)
	assert.Equal(t, DeriveSSRC("R1_U1_vi_en"), info.SSRC)
	assert.Equal(t, StatusListening, info.Status)
	assert.NotZero(t, info.RTPPort)
	assert.Equal(t, info.SSRC, hub.registered["R1_U1_vi_en"])

	// Creating the same cabin again returns the existing one.
	again, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	assert.Equal(t, info.RTPPort, again.RTPPort)
	assert.Equal(t, 1, m.Count())
}

func TestHandleRTP_RejectsForeignPayloadTypes(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get("R1_U1_vi_en")
	require.NotNil(t, cab)

	pkt, err := internal_rtpcodec.Build(96, 1, 960, cab.SSRC(), []byte{1, 2, 3, 4})
	require.NoError(t, err)
	cab.HandleRTP(pkt, nil)

	assert.Equal(t, uint64(1), cab.droppedPackets.Load())
	assert.Equal(t, 0, len(cab.queue))
}

func TestHandleRTP_DecodesAndBuffersAcceptedOpus(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get("R1_U1_vi_en")

	// Encode real Opus frames with an independent encoder.
	enc := internal_audio_opuscodec.NewCache(commons.NewNopLogger())
	frame := make([]byte, internal_audio_opuscodec.FrameBytes)
	for i := 0; i < internal_audio_opuscodec.FrameSamples*2; i++ {
		frame[i*2] = 0xB8 // constant -18248: loud enough to survive decode
		frame[i*2+1] = 0xB8
	}

	var seq uint16 = 100
	payload, err := enc.Encode("sender", frame)
	require.NoError(t, err)
	pkt, err := internal_rtpcodec.Build(111, seq, 960, cab.SSRC(), payload)
	require.NoError(t, err)
	cab.HandleRTP(pkt, nil)

	assert.Positive(t, cab.buffer.Pending(), "decoded audio reached the sliding buffer")
}

func TestWorker_SilencePassesThroughWithoutPipeline(t *testing.T) {
	hub := newFakeHub()
	bridge := &fakeBridge{text: "should never be used"}
	m := newTestManager(t, hub, bridge)
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get("R1_U1_vi_en")

	cab.enqueue(monoWindow(0))

	// 1s of 48 kHz stereo is 50 paced 20 ms packets.
	require.True(t, waitFor(t, 4*time.Second, func() bool {
		return len(hub.sentPackets()) >= 50
	}), "passthrough must emit the speaker's own audio")
	assert.Zero(t, bridge.transcribeCalls(), "no pipeline call for silence")
	assert.Equal(t, StatusListening, cab.Status())
}

func TestWorker_PassthroughHonorsNoiseGateSettings(t *testing.T) {
	hub := newFakeHub()
	bridge := &fakeBridge{}
	m := newTestManagerWithSettings(t, hub, bridge, Settings{
		SFUHost:            "127.0.0.1",
		NoiseGateThreshold: 20000,
		NoiseGateDilation:  960,
	})
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)

	m.Get("R1_U1_vi_en").enqueue(monoWindow(100))

	// An aggressive gate silences the payload but must not change the
	// packet cadence: 1 s of passthrough is still 50 frames.
	require.True(t, waitFor(t, 4*time.Second, func() bool {
		return len(hub.sentPackets()) >= 50
	}))
	assert.Zero(t, bridge.transcribeCalls())
}

func TestWorker_PipelineFailureEmitsNothing(t *testing.T) {
	hub := newFakeHub()
	bridge := &fakeBridge{sttErr: errors.New("gateway unavailable")}
	m := newTestManager(t, hub, bridge)
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get("R1_U1_vi_en")

	cab.enqueue(monoWindow(3000))

	require.True(t, waitFor(t, 4*time.Second, func() bool {
		return bridge.transcribeCalls() >= 1
	}))
	time.Sleep(300 * time.Millisecond)

	// The utterance is dropped: no passthrough, no translated audio.
	assert.Empty(t, hub.sentPackets())
	assert.Equal(t, StatusListening, cab.Status())
}

func TestWorker_EmptyTranscriptEmitsNothing(t *testing.T) {
	hub := newFakeHub()
	bridge := &fakeBridge{text: ""}
	m := newTestManager(t, hub, bridge)
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)

	m.Get("R1_U1_vi_en").enqueue(monoWindow(3000))

	require.True(t, waitFor(t, 4*time.Second, func() bool {
		return bridge.transcribeCalls() >= 1
	}))
	time.Sleep(300 * time.Millisecond)

	assert.Empty(t, hub.sentPackets())
}

func TestWorker_SpeechRunsPipelineAndEmitsRTP(t *testing.T) {
	hub := newFakeHub()
	ttsPCM := monoWindow(3000)[:12000] // 0.375s of 24 kHz mono
	bridge := &fakeBridge{text: "hello there", audio: ttsPCM}
	m := newTestManager(t, hub, bridge)
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get("R1_U1_vi_en")

	cab.enqueue(monoWindow(3000))

	require.True(t, waitFor(t, 4*time.Second, func() bool {
		return bridge.transcribeCalls() >= 1 && len(hub.sentPackets()) > 0
	}))

	// Outbound packets carry PT 100, the cabin SSRC, and strictly
	// monotonic sequence numbers.
	var lastSeq uint16
	for i, raw := range hub.sentPackets() {
		pkt, err := internal_rtpcodec.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, uint8(100), pkt.PayloadType)
		assert.Equal(t, cab.SSRC(), pkt.SSRC)
		if i > 0 {
			assert.Equal(t, lastSeq+1, pkt.SequenceNumber)
		}
		lastSeq = pkt.SequenceNumber
	}
}

func TestEnqueue_DropsOldestWhenFull(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})

	info, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	cab := m.Get(info.Key)
	// Freeze the worker out of the picture.
	require.True(t, cab.stop(time.Second))

	for i := 0; i < queueCapacity+5; i++ {
		cab.enqueue(monoWindow(0)[:16])
	}
	assert.Equal(t, queueCapacity, len(cab.queue))
	assert.Equal(t, uint64(5), cab.droppedWindows.Load())

	m.DestroyAll()
}

func TestUpdateCabinLanguages_RenamePreservesIdentity(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})
	defer m.DestroyAll()

	info, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)

	// Warm a pipeline under the old key so disposal is observable.
	cab := m.Get("R1_U1_vi_en")
	m.pipelines.Get("R1_U1_vi_en", "R1", "U1", "vi", "en")
	require.Equal(t, 1, m.pipelines.Len())

	updated, err := m.UpdateCabinLanguages("R1_U1_vi_en", "en", "vi")
	require.NoError(t, err)
	assert.Same(t, cab, updated, "worker identity preserved")

	assert.Nil(t, m.Get("R1_U1_vi_en"))
	require.NotNil(t, m.Get("R1_U1_en_vi"))
	assert.Equal(t, info.SSRC, updated.SSRC(), "SSRC preserved across rename")
	rx, tx := updated.Ports()
	assert.Equal(t, info.RTPPort, rx)
	assert.Equal(t, info.SendPort, tx)
	assert.Equal(t, 0, m.pipelines.Len(), "stale pipeline disposed")

	// Same pair again: no rename, no error.
	again, err := m.UpdateCabinLanguages("R1_U1_en_vi", "en", "vi")
	require.NoError(t, err)
	assert.Same(t, cab, again)
}

func TestUpdateCabinLanguages_UnknownKeyFails(t *testing.T) {
	m := newTestManager(t, newFakeHub(), &fakeBridge{})
	_, err := m.UpdateCabinLanguages("R9_U9_vi_en", "en", "vi")
	assert.Error(t, err)
}

func TestDestroyCabin_IdempotentAndUnregisters(t *testing.T) {
	hub := newFakeHub()
	m := newTestManager(t, hub, &fakeBridge{})

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	m.DestroyCabin("R1", "U1", "vi", "en")
	assert.Equal(t, 0, m.Count())
	assert.Empty(t, hub.registered)
	assert.Equal(t, 1, hub.unregisters)

	m.DestroyCabin("R1", "U1", "vi", "en")
	assert.Equal(t, 1, hub.unregisters, "second destroy is a no-op")

	// Re-create with the same key works after destroy.
	_, err = m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)
	m.DestroyAll()
}

func TestFindCabinByUser_IgnoresLanguages(t *testing.T) {
	m := newTestManager(t, newFakeHub(), &fakeBridge{})
	defer m.DestroyAll()

	_, err := m.CreateCabin("R1", "U1", "vi", "en", 4000)
	require.NoError(t, err)

	found := m.FindCabinByUser("R1", "U1")
	require.NotNil(t, found)
	assert.Equal(t, "R1_U1_vi_en", found.CabinKey())
	assert.Nil(t, m.FindCabinByUser("R1", "U2"))
}
