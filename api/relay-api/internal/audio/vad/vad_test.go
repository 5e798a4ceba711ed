// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio_vad

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	"github.com/crosstalkai/pkg/commons"
)

// scriptedClassifier answers IsSpeech per frame from a fixed script,
// repeating the last answer once exhausted.
type scriptedClassifier struct {
	answers []bool
	err     error
	calls   int
}

func (s *scriptedClassifier) IsSpeech(frame []byte) (bool, error) {
	defer func() { s.calls++ }()
	if s.err != nil {
		return false, s.err
	}
	if len(s.answers) == 0 {
		return false, nil
	}
	i := s.calls
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	}
	return s.answers[i], nil
}

func tone(frames int, amplitude int16) []byte {
	s := make([]int16, frames*FrameSamples)
	for i := range s {
		s[i] = amplitude
	}
	return internal_audio.Int16ToBytes(s)
}

func newTestDetector(c FrameClassifier) *Detector {
	d := NewDetector(commons.NewNopLogger(), c, Config{})
	// Fixed clock so the hangover does not leak across assertions.
	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }
	return d
}

func TestIsSpeech_LoudSpeechDetected(t *testing.T) {
	c := &scriptedClassifier{answers: []bool{true}}
	d := newTestDetector(c)

	assert.True(t, d.IsSpeech(tone(50, 1500)))
	assert.Equal(t, 50, c.calls, "every frame is classified")
}

func TestIsSpeech_QuietAudioRejectedDespiteClassifier(t *testing.T) {
	// Classifier fires on everything; amplitude gate must still hold.
	d := newTestDetector(&scriptedClassifier{answers: []bool{true}})
	assert.False(t, d.IsSpeech(tone(50, 50)))
}

func TestIsSpeech_LowSpeechRatioRejected(t *testing.T) {
	answers := make([]bool, 50)
	for i := 0; i < 10; i++ { // 20% < 30% floor
		answers[i] = true
	}
	answers[49] = false
	d := newTestDetector(&scriptedClassifier{answers: answers})
	assert.False(t, d.IsSpeech(tone(50, 1500)))
}

func TestIsSpeech_SubFrameWindowUsesEnergyOnly(t *testing.T) {
	failing := &scriptedClassifier{err: errors.New("model unavailable")}
	d := newTestDetector(failing)

	half := tone(1, 1500)[:FrameBytes/2]
	assert.True(t, d.IsSpeech(half))
	assert.Equal(t, 0, failing.calls, "short windows never reach the classifier")
}

func TestIsSpeech_HangoverHoldsDecision(t *testing.T) {
	c := &scriptedClassifier{answers: []bool{true}}
	d := NewDetector(commons.NewNopLogger(), c, Config{})

	now := time.Unix(1000, 0)
	d.now = func() time.Time { return now }

	assert.True(t, d.IsSpeech(tone(50, 1500)))

	// 200ms later, pure silence: still inside the 300ms hangover.
	now = now.Add(200 * time.Millisecond)
	c.answers = []bool{false}
	assert.True(t, d.IsSpeech(tone(50, 0)))

	// 400ms after the last true decision: hangover expired.
	now = now.Add(400 * time.Millisecond)
	assert.False(t, d.IsSpeech(tone(50, 0)))
}

func TestIsSpeech_ClassifierErrorCountsAsNonSpeech(t *testing.T) {
	d := newTestDetector(&scriptedClassifier{err: errors.New("onnx session lost")})
	assert.False(t, d.IsSpeech(tone(50, 1500)))
}

func TestEnergyClassifier(t *testing.T) {
	c := EnergyClassifier{}
	loud, err := c.IsSpeech(tone(1, 1500))
	assert.NoError(t, err)
	assert.True(t, loud)

	quiet, err := c.IsSpeech(tone(1, 50))
	assert.NoError(t, err)
	assert.False(t, quiet)
}
