// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio

// NoiseGate zeroes samples whose absolute value is below threshold and whose
// ±dilation neighborhood is also entirely below it. Dilating the keep-mask
// preserves the attack and tail of real speech while cutting isolated hiss
// between words. dilation is in samples (480 ≈ 10 ms at 48 kHz).
func NoiseGate(pcm []byte, threshold int, dilation int) []byte {
	samples := BytesToInt16(pcm)
	if len(samples) == 0 || threshold <= 0 {
		return pcm
	}

	loud := make([]bool, len(samples))
	for i, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		loud[i] = v >= threshold
	}

	// Binary dilation of the loud mask: a sample survives when anything
	// within ±dilation is loud.
	keep := make([]bool, len(samples))
	next := -1 // index of the next loud sample at or after i
	// Forward pass records distance to previous loud sample; backward pass
	// to the next one.
	prevDist := make([]int, len(samples))
	last := -1
	for i := range samples {
		if loud[i] {
			last = i
		}
		if last == -1 {
			prevDist[i] = dilation + 1
		} else {
			prevDist[i] = i - last
		}
	}
	for i := len(samples) - 1; i >= 0; i-- {
		if loud[i] {
			next = i
		}
		nd := dilation + 1
		if next != -1 {
			nd = next - i
		}
		keep[i] = prevDist[i] <= dilation || nd <= dilation
	}

	out := make([]int16, len(samples))
	for i, s := range samples {
		if keep[i] {
			out[i] = s
		}
	}
	return Int16ToBytes(out)
}
