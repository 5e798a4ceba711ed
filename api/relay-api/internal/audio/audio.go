// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio

import "encoding/binary"

// AudioConfig describes a PCM stream: 16-bit signed little-endian samples.
type AudioConfig struct {
	SampleRate int
	Channels   int
}

var (
	// SFU_AUDIO_CONFIG is the wire format on both RTP legs (Opus native).
	SFU_AUDIO_CONFIG = AudioConfig{SampleRate: 48000, Channels: 2}

	// RELAY_INTERNAL_AUDIO_CONFIG is what the ML pipeline consumes.
	RELAY_INTERNAL_AUDIO_CONFIG = AudioConfig{SampleRate: 16000, Channels: 1}

	// TTS_AUDIO_CONFIG is what the synthesis collaborator produces.
	TTS_AUDIO_CONFIG = AudioConfig{SampleRate: 24000, Channels: 1}
)

// BytesPerSecond returns the byte rate of the config.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * 2
}

// BytesToInt16 reinterprets little-endian PCM bytes as samples. A trailing
// odd byte is dropped.
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

// Int16ToBytes serializes samples as little-endian PCM bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// MeanAbsAmplitude returns the mean absolute sample value of PCM bytes.
func MeanAbsAmplitude(pcm []byte) float64 {
	samples := BytesToInt16(pcm)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(len(samples))
}

// DownmixToMono averages interleaved stereo samples.
func DownmixToMono(stereo []byte) []byte {
	samples := BytesToInt16(stereo)
	n := len(samples) / 2
	mono := make([]int16, n)
	for i := 0; i < n; i++ {
		mono[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
	}
	return Int16ToBytes(mono)
}

// MonoToStereo duplicates each sample into both channels.
func MonoToStereo(mono []byte) []byte {
	n := len(mono) / 2
	stereo := make([]byte, n*4)
	for i := 0; i < n; i++ {
		stereo[i*4] = mono[i*2]
		stereo[i*4+1] = mono[i*2+1]
		stereo[i*4+2] = mono[i*2]
		stereo[i*4+3] = mono[i*2+1]
	}
	return stereo
}

// SplitFrames cuts PCM into frames of frameBytes. The final short frame is
// padded by repeating its last sample rather than with silence, which avoids
// an audible click at the utterance tail.
func SplitFrames(pcm []byte, frameBytes int) [][]byte {
	if len(pcm) == 0 || frameBytes <= 0 {
		return nil
	}
	var frames [][]byte
	for off := 0; off < len(pcm); off += frameBytes {
		end := off + frameBytes
		if end <= len(pcm) {
			frames = append(frames, pcm[off:end])
			continue
		}
		frame := make([]byte, frameBytes)
		n := copy(frame, pcm[off:])
		if n >= 2 {
			last := frame[n-2 : n]
			for p := n; p+1 < frameBytes; p += 2 {
				frame[p] = last[0]
				frame[p+1] = last[1]
			}
		}
		frames = append(frames, frame)
	}
	return frames
}
