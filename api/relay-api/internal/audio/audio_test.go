// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio

import (
	"encoding/binary"
	"testing"

	"github.com/crosstalkai/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone builds n mono samples of constant amplitude.
func tone(n int, amplitude int16) []byte {
	s := make([]int16, n)
	for i := range s {
		s[i] = amplitude
	}
	return Int16ToBytes(s)
}

func TestInt16RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}
	assert.Equal(t, samples, BytesToInt16(Int16ToBytes(samples)))
}

func TestMeanAbsAmplitude(t *testing.T) {
	assert.Equal(t, 0.0, MeanAbsAmplitude(nil))
	assert.Equal(t, 50.0, MeanAbsAmplitude(tone(160, 50)))
	assert.Equal(t, 50.0, MeanAbsAmplitude(tone(160, -50)))
}

func TestDownmixAndStereoRoundTrip(t *testing.T) {
	mono := tone(100, 3000)
	stereo := MonoToStereo(mono)
	require.Len(t, stereo, len(mono)*2)
	assert.Equal(t, mono, DownmixToMono(stereo))
}

func TestResample_48kTo16kLength(t *testing.T) {
	r, err := GetResampler(commons.NewNopLogger())
	require.NoError(t, err)

	// 20ms of 48kHz stereo = 960 frames * 2ch * 2 bytes.
	in := make([]byte, 960*2*2)
	out, err := r.Resample(in, SFU_AUDIO_CONFIG, RELAY_INTERNAL_AUDIO_CONFIG)
	require.NoError(t, err)
	// 20ms of 16kHz mono = 320 samples.
	assert.Len(t, out, 320*2)
}

func TestResample_24kMonoTo48kStereoLength(t *testing.T) {
	r, err := GetResampler(commons.NewNopLogger())
	require.NoError(t, err)

	// 1s of 24kHz mono.
	in := make([]byte, 24000*2)
	out, err := r.Resample(in, TTS_AUDIO_CONFIG, SFU_AUDIO_CONFIG)
	require.NoError(t, err)
	// 1s of 48kHz stereo.
	assert.Len(t, out, 48000*2*2)
}

func TestResample_SameConfigPassesThrough(t *testing.T) {
	r, _ := GetResampler(commons.NewNopLogger())
	in := tone(320, 100)
	out, err := r.Resample(in, RELAY_INTERNAL_AUDIO_CONFIG, RELAY_INTERNAL_AUDIO_CONFIG)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestSplitFrames_ExactAndPadded(t *testing.T) {
	frameBytes := 8

	frames := SplitFrames(make([]byte, 16), frameBytes)
	require.Len(t, frames, 2)
	assert.Len(t, frames[0], frameBytes)

	// 10 bytes -> 2 frames, second padded by repeating the last sample.
	pcm := Int16ToBytes([]int16{1, 2, 3, 4, 7})
	frames = SplitFrames(pcm, frameBytes)
	require.Len(t, frames, 2)
	tail := BytesToInt16(frames[1])
	assert.Equal(t, []int16{7, 7, 7, 7}, tail, "pad repeats last sample, not silence")
}

func TestSplitFrames_Empty(t *testing.T) {
	assert.Nil(t, SplitFrames(nil, 8))
}

func TestNoiseGate_ZeroesQuietIsolatedSamples(t *testing.T) {
	// Quiet hum everywhere, one loud burst in the middle.
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = 100
	}
	for i := 400; i < 420; i++ {
		samples[i] = 5000
	}

	out := BytesToInt16(NoiseGate(Int16ToBytes(samples), 500, 48))

	assert.Equal(t, int16(0), out[0], "quiet far from speech is gated")
	assert.Equal(t, int16(5000), out[410], "loud samples survive")
	assert.Equal(t, int16(100), out[400-10], "quiet within dilation of speech survives")
	assert.Equal(t, int16(0), out[400-100], "quiet beyond dilation is gated")
}

func TestNoiseGate_NoThresholdPassesThrough(t *testing.T) {
	pcm := tone(100, 100)
	assert.Equal(t, pcm, NoiseGate(pcm, 0, 480))
}

func TestWrapPCMToWAV_Header(t *testing.T) {
	pcm := tone(16000, 1000) // 1s mono 16k
	wav := WrapPCMToWAV(pcm, RELAY_INTERNAL_AUDIO_CONFIG)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
}
