// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio_vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	"github.com/crosstalkai/pkg/commons"
)

// sileroWindowSamples is the model's native analysis window at 16 kHz.
const sileroWindowSamples = 512

// aggressivenessThresholds maps the 0..3 aggressiveness knob onto the
// model's speech-probability threshold.
var aggressivenessThresholds = [...]float32{0.3, 0.4, 0.5, 0.6}

// SileroClassifier runs the silero ONNX model per frame. It is not safe for
// concurrent use; each cabin worker owns its own instance.
type SileroClassifier struct {
	detector *speech.Detector
	logger   commons.Logger
}

// NewSileroClassifier loads the model at modelPath. Aggressiveness outside
// 0..3 is clamped.
func NewSileroClassifier(logger commons.Logger, modelPath string, aggressiveness int) (*SileroClassifier, error) {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}

	sd, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           internal_audio.RELAY_INTERNAL_AUDIO_CONFIG.SampleRate,
		Threshold:            aggressivenessThresholds[aggressiveness],
		MinSilenceDurationMs: 100,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("load silero model %s: %w", modelPath, err)
	}

	return &SileroClassifier{detector: sd, logger: logger}, nil
}

// IsSpeech classifies one 20 ms frame. The frame is zero-padded up to the
// model's native window before inference.
func (s *SileroClassifier) IsSpeech(frame []byte) (bool, error) {
	samples := internal_audio.BytesToInt16(frame)

	window := make([]float32, sileroWindowSamples)
	for i, v := range samples {
		if i >= sileroWindowSamples {
			break
		}
		window[i] = float32(v) / 32768.0
	}

	segments, err := s.detector.Detect(window)
	if err != nil {
		return false, fmt.Errorf("silero detect: %w", err)
	}
	if err := s.detector.Reset(); err != nil {
		s.logger.Debugw("Silero detector reset failed", "error", err)
	}
	return len(segments) > 0, nil
}

// Close releases the ONNX session.
func (s *SileroClassifier) Close() error {
	return s.detector.Destroy()
}
