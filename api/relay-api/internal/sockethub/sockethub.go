// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_sockethub

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	internal_ports "github.com/crosstalkai/api/relay-api/internal/ports"
	internal_rtpcodec "github.com/crosstalkai/api/relay-api/internal/rtpcodec"
	"github.com/crosstalkai/pkg/commons"
)

const (
	recvBufferSize  = 1 << 20
	maxDatagramSize = 4096
	readTimeout     = time.Second
)

// Callback receives one raw inbound datagram. Invoked synchronously from
// the router goroutine, so per-SSRC arrival order is preserved.
type Callback func(datagram []byte, addr *net.UDPAddr)

// Hub owns the process's two UDP sockets. All cabins share the pair; the
// ports handed out at registration are bookkeeping for the SFU, not bound
// sockets.
type Hub struct {
	logger    commons.Logger
	allocator *internal_ports.Allocator

	recvConn *net.UDPConn
	sendConn *net.UDPConn

	mu         sync.Mutex
	ssrcToKey  map[uint32]string
	keyToSSRC  map[string]uint32
	callbacks  map[string]Callback
	cabinPorts map[string][2]int

	running bool
	done    chan struct{}
}

// NewHub binds the shared receive socket on recvPort and opens the send
// socket. When comediaPort is non-zero the send socket binds that source
// port for SFUs that require symmetric flows.
func NewHub(logger commons.Logger, allocator *internal_ports.Allocator, recvPort, comediaPort int) (*Hub, error) {
	recvConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: recvPort})
	if err != nil {
		return nil, fmt.Errorf("bind receive socket on %d: %w", recvPort, err)
	}
	if err := recvConn.SetReadBuffer(recvBufferSize); err != nil {
		logger.Warnw("Failed to grow receive buffer", "error", err)
	}

	var sendConn *net.UDPConn
	if comediaPort > 0 {
		sendConn, err = net.ListenUDP("udp4", &net.UDPAddr{Port: comediaPort})
	} else {
		sendConn, err = net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	}
	if err != nil {
		recvConn.Close()
		return nil, fmt.Errorf("open send socket: %w", err)
	}

	return &Hub{
		logger:     logger,
		allocator:  allocator,
		recvConn:   recvConn,
		sendConn:   sendConn,
		ssrcToKey:  make(map[uint32]string),
		keyToSSRC:  make(map[string]uint32),
		callbacks:  make(map[string]Callback),
		cabinPorts: make(map[string][2]int),
		done:       make(chan struct{}),
	}, nil
}

// Start launches the router goroutine. Idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.route()
	h.logger.Infow("Socket hub router started",
		"recvAddr", h.recvConn.LocalAddr().String(),
		"sendAddr", h.sendConn.LocalAddr().String())
}

// Register books two virtual ports for the cabin and wires its SSRC into
// the routing maps. Returns (rxPort, txPort). A port of 0 means the range
// was exhausted and the SFU should treat it as OS-assigned.
func (h *Hub) Register(cabinKey string, ssrc uint32, cb Callback) (int, int, error) {
	rxPort := h.allocator.Allocate(0)
	txPort := h.allocator.Allocate(0)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.keyToSSRC[cabinKey]; exists {
		h.allocator.Release(rxPort)
		h.allocator.Release(txPort)
		return 0, 0, fmt.Errorf("cabin %s already registered", cabinKey)
	}
	h.ssrcToKey[ssrc] = cabinKey
	h.keyToSSRC[cabinKey] = ssrc
	h.callbacks[cabinKey] = cb
	h.cabinPorts[cabinKey] = [2]int{rxPort, txPort}

	h.logger.Infow("Cabin registered",
		"cabin", cabinKey, "ssrc", ssrc, "rxPort", rxPort, "txPort", txPort)
	return rxPort, txPort, nil
}

// Unregister drops the cabin from all maps and releases its ports.
// Unknown keys are a no-op.
func (h *Hub) Unregister(cabinKey string) {
	h.mu.Lock()
	ssrc, ok := h.keyToSSRC[cabinKey]
	if ok {
		delete(h.ssrcToKey, ssrc)
		delete(h.keyToSSRC, cabinKey)
		delete(h.callbacks, cabinKey)
	}
	ports, hadPorts := h.cabinPorts[cabinKey]
	delete(h.cabinPorts, cabinKey)
	h.mu.Unlock()

	if hadPorts {
		h.allocator.Release(ports[0])
		h.allocator.Release(ports[1])
	}
	if ok {
		h.logger.Infow("Cabin unregistered", "cabin", cabinKey, "ssrc", ssrc)
	}
}

// Send writes a packet to the SFU on the shared send socket. Send errors
// are logged and swallowed so a transient network fault never kills a
// cabin worker.
func (h *Hub) Send(packet []byte, sfuAddr *net.UDPAddr) {
	if _, err := h.sendConn.WriteToUDP(packet, sfuAddr); err != nil {
		h.logger.Warnw("RTP send failed", "addr", sfuAddr.String(), "error", err)
	}
}

// SSRCFor returns the SSRC currently routing to the cabin, which may differ
// from the registered one after auto-learn.
func (h *Hub) SSRCFor(cabinKey string) (uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ssrc, ok := h.keyToSSRC[cabinKey]
	return ssrc, ok
}

// RegisteredCount reports the number of registered cabins.
func (h *Hub) RegisteredCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.callbacks)
}

// route is the single-threaded demux loop. It must stay the only reader of
// recvConn: the per-SSRC ordering guarantee depends on it.
func (h *Hub) route() {
	defer close(h.done)
	buf := make([]byte, maxDatagramSize)

	for {
		h.mu.Lock()
		running := h.running
		h.mu.Unlock()
		if !running {
			return
		}

		h.recvConn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := h.recvConn.ReadFromUDP(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			h.mu.Lock()
			stillRunning := h.running
			h.mu.Unlock()
			if stillRunning {
				h.logger.Warnw("Receive socket read failed", "error", err)
			}
			continue
		}
		if n < internal_rtpcodec.HeaderSize {
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		h.dispatch(datagram, addr)
	}
}

func (h *Hub) dispatch(datagram []byte, addr *net.UDPAddr) {
	ssrc, ok := internal_rtpcodec.ExtractSSRC(datagram)
	if !ok {
		return
	}

	h.mu.Lock()
	cabinKey, known := h.ssrcToKey[ssrc]
	if !known && len(h.callbacks) == 1 {
		// Auto-learn: with exactly one cabin, adopt whatever SSRC the SFU
		// chose and rekey the maps.
		for key := range h.callbacks {
			cabinKey = key
		}
		old := h.keyToSSRC[cabinKey]
		delete(h.ssrcToKey, old)
		h.ssrcToKey[ssrc] = cabinKey
		h.keyToSSRC[cabinKey] = ssrc
		known = true
		h.logger.Infow("Auto-learned SSRC for sole cabin",
			"cabin", cabinKey, "oldSsrc", old, "newSsrc", ssrc)
	}
	cb := h.callbacks[cabinKey]
	h.mu.Unlock()

	if !known || cb == nil {
		return
	}
	cb(datagram, addr)
}

// Close stops the router, closes both sockets, and unregisters every
// remaining cabin.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		h.recvConn.Close()
		h.sendConn.Close()
		return
	}
	h.running = false
	keys := make([]string, 0, len(h.callbacks))
	for key := range h.callbacks {
		keys = append(keys, key)
	}
	h.mu.Unlock()

	<-h.done
	h.recvConn.Close()
	h.sendConn.Close()
	for _, key := range keys {
		h.Unregister(key)
	}
	h.logger.Infow("Socket hub closed")
}
