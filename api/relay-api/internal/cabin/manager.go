// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_cabin

import (
	"fmt"
	"hash/fnv"
	"net"
	"sync"
	"time"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_audio_opuscodec "github.com/crosstalkai/api/relay-api/internal/audio/opuscodec"
	internal_audio_vad "github.com/crosstalkai/api/relay-api/internal/audio/vad"
	internal_pipeline "github.com/crosstalkai/api/relay-api/internal/pipeline"
	internal_sockethub "github.com/crosstalkai/api/relay-api/internal/sockethub"
	"github.com/crosstalkai/pkg/commons"
)

const workerJoinTimeout = 2 * time.Second

// CabinKey builds the registry key for a cabin.
func CabinKey(roomID, speakerID, src, tgt string) string {
	return fmt.Sprintf("%s_%s_%s_%s", roomID, speakerID, src, tgt)
}

// DeriveSSRC maps a cabin key onto a deterministic 32-bit SSRC, so the SFU
// side can precompute it from the same identity.
func DeriveSSRC(cabinKey string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(cabinKey))
	return h.Sum32() & 0xFFFFFFFF
}

// Info is the creation result reported back over gRPC.
type Info struct {
	Key      string
	RTPPort  int
	SendPort int
	SSRC     uint32
	Src      string
	Tgt      string
	Status   string
}

// Hub is the slice of the shared socket hub the manager needs.
type Hub interface {
	Register(cabinKey string, ssrc uint32, cb internal_sockethub.Callback) (int, int, error)
	Unregister(cabinKey string)
	Send(packet []byte, addr *net.UDPAddr)
}

// DetectorFactory builds a fresh VAD per cabin; detectors hold per-stream
// state and must not be shared.
type DetectorFactory func() *internal_audio_vad.Detector

// Manager owns the cabin registry.
type Manager struct {
	logger      commons.Logger
	hub         Hub
	codecs      *internal_audio_opuscodec.Cache
	resampler   internal_audio.Resampler
	pipelines   *internal_pipeline.Cache
	newDetector DetectorFactory
	settings    Settings

	mu     sync.Mutex
	cabins map[string]*Cabin
}

// NewManager wires the manager over its shared services.
func NewManager(logger commons.Logger, hub Hub, codecs *internal_audio_opuscodec.Cache,
	resampler internal_audio.Resampler, pipelines *internal_pipeline.Cache,
	newDetector DetectorFactory, settings Settings) *Manager {
	return &Manager{
		logger:      logger,
		hub:         hub,
		codecs:      codecs,
		resampler:   resampler,
		pipelines:   pipelines,
		newDetector: newDetector,
		settings:    settings.withDefaults(),
		cabins:      make(map[string]*Cabin),
	}
}

// CreateCabin builds, registers, and starts a cabin. Creating an existing
// key returns the existing cabin's info.
func (m *Manager) CreateCabin(roomID, speakerID, src, tgt string, sfuSendPort int) (*Info, error) {
	key := CabinKey(roomID, speakerID, src, tgt)

	m.mu.Lock()
	if existing, ok := m.cabins[key]; ok {
		m.mu.Unlock()
		return m.info(existing), nil
	}
	m.mu.Unlock()

	ssrc := DeriveSSRC(key)
	sfuAddr := &net.UDPAddr{
		IP:   net.ParseIP(m.settings.SFUHost),
		Port: sfuSendPort,
	}

	cab := newCabin(m.logger, key, roomID, speakerID, src, tgt,
		ssrc, sfuAddr, m.settings, m.codecs, m.resampler, m.pipelines, m.newDetector())

	rxPort, txPort, err := m.hub.Register(key, ssrc, cab.HandleRTP)
	if err != nil {
		return nil, fmt.Errorf("register cabin %s: %w", key, err)
	}
	cab.rxPort = rxPort
	cab.txPort = txPort
	if sfuSendPort == 0 {
		cab.sfuAddr.Port = txPort
	}

	m.mu.Lock()
	if raced, ok := m.cabins[key]; ok {
		m.mu.Unlock()
		m.hub.Unregister(key)
		return m.info(raced), nil
	}
	m.cabins[key] = cab
	m.mu.Unlock()

	cab.start(m.hub)
	m.logger.Infow("Cabin created",
		"cabin", key, "ssrc", ssrc, "rxPort", rxPort, "txPort", txPort,
		"src", src, "tgt", tgt)
	return m.info(cab), nil
}

// FindCabinByUser returns the first cabin for (room, speaker) regardless of
// languages. The two-step create flow sets languages in a later call.
func (m *Manager) FindCabinByUser(roomID, speakerID string) *Cabin {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cab := range m.cabins {
		if cab.RoomID == roomID && cab.SpeakerID == speakerID {
			return cab
		}
	}
	return nil
}

// Get returns the cabin under key, or nil.
func (m *Manager) Get(key string) *Cabin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cabins[key]
}

// UpdateCabinLanguages mutates a cabin's language pair, renaming it in the
// registry when the pair actually changed. SSRC, ports, worker, and socket
// registration are untouched; the stale pipeline is disposed so the next
// window builds one for the new pair.
func (m *Manager) UpdateCabinLanguages(oldKey, src, tgt string) (*Cabin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cab, ok := m.cabins[oldKey]
	if !ok {
		return nil, fmt.Errorf("cabin %s not found", oldKey)
	}

	newKey := CabinKey(cab.RoomID, cab.SpeakerID, src, tgt)

	cab.mu.Lock()
	changed := cab.sourceLang != src || cab.targetLang != tgt
	cab.sourceLang = src
	cab.targetLang = tgt
	if changed {
		cab.key = newKey
	}
	cab.mu.Unlock()

	if !changed {
		return cab, nil
	}

	delete(m.cabins, oldKey)
	m.cabins[newKey] = cab
	m.pipelines.Dispose(oldKey)

	m.logger.Infow("Cabin languages updated",
		"oldKey", oldKey, "newKey", newKey, "src", src, "tgt", tgt)
	return cab, nil
}

// StartCabin flips a stopped cabin back to running. Idempotent.
func (m *Manager) StartCabin(key string) error {
	m.mu.Lock()
	cab, ok := m.cabins[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("cabin %s not found", key)
	}
	cab.start(m.hub)
	return nil
}

// DestroyCabin tears a cabin down: worker joined, hub registration and
// ports released, pipeline and codec state dropped, queue drained.
// Destroying an absent cabin is a no-op.
func (m *Manager) DestroyCabin(roomID, speakerID, src, tgt string) {
	key := CabinKey(roomID, speakerID, src, tgt)

	m.mu.Lock()
	cab, ok := m.cabins[key]
	delete(m.cabins, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	cab.stop(workerJoinTimeout)
	m.hub.Unregister(cab.hubKey)
	m.pipelines.Dispose(key)
	m.codecs.Remove(cab.hubKey)
	cab.drain()

	m.logger.Infow("Cabin destroyed", "cabin", key,
		"droppedPackets", cab.droppedPackets.Load(),
		"droppedWindows", cab.droppedWindows.Load())
}

// DestroyAll tears down every cabin; used at shutdown.
func (m *Manager) DestroyAll() {
	m.mu.Lock()
	keys := make([]*Cabin, 0, len(m.cabins))
	for _, cab := range m.cabins {
		keys = append(keys, cab)
	}
	m.mu.Unlock()

	for _, cab := range keys {
		src, tgt := cab.Languages()
		m.DestroyCabin(cab.RoomID, cab.SpeakerID, src, tgt)
	}
}

// Count reports the number of registered cabins.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cabins)
}

func (m *Manager) info(cab *Cabin) *Info {
	src, tgt := cab.Languages()
	rx, tx := cab.Ports()
	return &Info{
		Key:      cab.CabinKey(),
		RTPPort:  rx,
		SendPort: tx,
		SSRC:     cab.SSRC(),
		Src:      src,
		Tgt:      tgt,
		Status:   cab.Status(),
	}
}
