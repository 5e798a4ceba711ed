// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_rtpcodec

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/pion/rtp"
)

const (
	// HeaderSize is the fixed RTP header length without CSRCs or extensions.
	HeaderSize = 12

	// TimestampStep is the timestamp increment per 20 ms frame at 48 kHz.
	TimestampStep = 960
)

var (
	ErrTooShort   = errors.New("rtp: packet shorter than fixed header")
	ErrBadVersion = errors.New("rtp: version is not 2")
)

// Packet is the parsed view of an inbound RTP datagram.
type Packet struct {
	Padding        bool
	Extension      bool
	CSRCCount      int
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	Payload        []byte
}

// Parse validates and decodes an RTP datagram. Rejects anything shorter
// than 12 bytes or with version != 2; CSRC list, extension block, and
// trailing padding are accounted for so Payload is exactly the media bytes.
func Parse(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, ErrTooShort
	}
	if data[0]>>6 != 2 {
		return nil, ErrBadVersion
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}

	return &Packet{
		Padding:        pkt.Padding,
		Extension:      pkt.Extension,
		CSRCCount:      len(pkt.CSRC),
		Marker:         pkt.Marker,
		PayloadType:    pkt.PayloadType,
		SequenceNumber: pkt.SequenceNumber,
		Timestamp:      pkt.Timestamp,
		SSRC:           pkt.SSRC,
		Payload:        pkt.Payload,
	}, nil
}

// ExtractSSRC reads the SSRC field (bytes 8..12, big-endian) without a full
// parse. The router uses this for demultiplexing.
func ExtractSSRC(data []byte) (uint32, bool) {
	if len(data) < HeaderSize {
		return 0, false
	}
	return binary.BigEndian.Uint32(data[8:12]), true
}

// Build synthesizes an outbound RTP packet: version 2, no padding, no
// extension, no CSRCs, marker cleared.
func Build(payloadType uint8, sequence uint16, timestamp, ssrc uint32, payload []byte) ([]byte, error) {
	pkt := rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    payloadType,
			SequenceNumber: sequence,
			Timestamp:      timestamp,
			SSRC:           ssrc,
		},
		Payload: payload,
	}
	return pkt.Marshal()
}

// OutboundState tracks the per-cabin sequence number and timestamp for the
// emitted stream. Sequence is random-seeded; timestamp is seeded from the
// wall clock at 48 kHz so restarts do not replay old timestamps.
type OutboundState struct {
	mu       sync.Mutex
	seeded   bool
	sequence uint16
	ts       uint32
}

// Next reserves the next (sequence, timestamp) pair: sequence advances by 1
// mod 2^16 and timestamp by 960 mod 2^32 per emitted 20 ms frame.
func (o *OutboundState) Next() (uint16, uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.seeded {
		o.sequence = uint16(rand.Intn(1 << 16))
		o.ts = uint32(time.Now().Unix() * 48000)
		o.seeded = true
	} else {
		o.sequence++
		o.ts += TimestampStep
	}
	return o.sequence, o.ts
}

// Peek returns the current pair without advancing. Zero values before the
// first Next.
func (o *OutboundState) Peek() (uint16, uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sequence, o.ts
}
