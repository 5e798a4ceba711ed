// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio

import (
	"fmt"

	"github.com/crosstalkai/pkg/commons"
)

// Resampler converts PCM between the relay's audio configs.
type Resampler interface {
	Resample(pcm []byte, from, to AudioConfig) ([]byte, error)
}

type linearResampler struct {
	logger commons.Logger
}

// GetResampler returns the process resampler. Linear interpolation is
// sufficient for the relay's fixed conversions (48k↔16k, 24k→48k), all of
// which are integer-ratio.
func GetResampler(logger commons.Logger) (Resampler, error) {
	return &linearResampler{logger: logger}, nil
}

func (r *linearResampler) Resample(pcm []byte, from, to AudioConfig) ([]byte, error) {
	if from.Channels < 1 || from.Channels > 2 || to.Channels < 1 || to.Channels > 2 {
		return nil, fmt.Errorf("resample: unsupported channel count %d -> %d", from.Channels, to.Channels)
	}

	mono := pcm
	if from.Channels == 2 {
		mono = DownmixToMono(pcm)
	}

	if from.SampleRate != to.SampleRate {
		mono = resampleMono(mono, from.SampleRate, to.SampleRate)
	}

	if to.Channels == 2 {
		return MonoToStereo(mono), nil
	}
	return mono, nil
}

// resampleMono converts mono PCM between sample rates by linear
// interpolation.
func resampleMono(input []byte, inRate, outRate int) []byte {
	if inRate == outRate || len(input) < 2 {
		return input
	}

	in := BytesToInt16(input)
	ratio := float64(outRate) / float64(inRate)
	outN := int(float64(len(in)) * ratio)
	out := make([]int16, outN)

	for i := 0; i < outN; i++ {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		i1, i2 := idx, idx+1
		if i1 >= len(in) {
			i1 = len(in) - 1
		}
		if i2 >= len(in) {
			i2 = len(in) - 1
		}
		out[i] = int16(float64(in[i1])*(1-frac) + float64(in[i2])*frac)
	}
	return Int16ToBytes(out)
}
