// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_audio_vad

import (
	"time"

	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	"github.com/crosstalkai/pkg/commons"
)

const (
	// FrameSamples is one 20 ms step at 16 kHz mono.
	FrameSamples = 320
	FrameBytes   = FrameSamples * 2
)

// FrameClassifier decides whether a single 20 ms 16 kHz mono frame holds
// speech. Implemented by the silero adapter in production and by an energy
// classifier when no model is configured.
type FrameClassifier interface {
	IsSpeech(frame []byte) (bool, error)
}

// Config tunes the detector. Zero values take the defaults below.
type Config struct {
	EnergyThreshold   float64 // mean-abs amplitude gate, default 200
	MinSpeechRatio    float64 // speech frames / total frames, default 0.3
	SilenceDurationMs int     // hangover, default 300
}

func (c Config) withDefaults() Config {
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = 200
	}
	if c.MinSpeechRatio == 0 {
		c.MinSpeechRatio = 0.3
	}
	if c.SilenceDurationMs == 0 {
		c.SilenceDurationMs = 300
	}
	return c
}

// Detector combines a frame-level classifier with an energy gate and a
// hangover. The double gate exists to suppress hallucinated transcriptions
// on quiet noise: the classifier alone fires on breath and keyboard clatter.
type Detector struct {
	cfg        Config
	classifier FrameClassifier
	logger     commons.Logger

	lastSpeech time.Time
	now        func() time.Time
}

// NewDetector builds a Detector over the given classifier.
func NewDetector(logger commons.Logger, classifier FrameClassifier, cfg Config) *Detector {
	return &Detector{
		cfg:        cfg.withDefaults(),
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// IsSpeech decides whether the window (16 kHz, 16-bit, mono PCM) holds
// speech. Windows shorter than one frame fall back to the energy gate
// alone. A false decision within the hangover of the last true decision is
// held at true so word tails are not clipped.
func (d *Detector) IsSpeech(window []byte) bool {
	decision := d.rawDecision(window)

	if decision {
		d.lastSpeech = d.now()
		return true
	}
	if !d.lastSpeech.IsZero() &&
		d.now().Sub(d.lastSpeech) < time.Duration(d.cfg.SilenceDurationMs)*time.Millisecond {
		return true
	}
	return false
}

func (d *Detector) rawDecision(window []byte) bool {
	amplitude := internal_audio.MeanAbsAmplitude(window)

	if len(window) < FrameBytes {
		return amplitude > d.cfg.EnergyThreshold
	}

	total := 0
	speech := 0
	for off := 0; off+FrameBytes <= len(window); off += FrameBytes {
		total++
		ok, err := d.classifier.IsSpeech(window[off : off+FrameBytes])
		if err != nil {
			d.logger.Debugw("Frame classifier error", "error", err)
			continue
		}
		if ok {
			speech++
		}
	}

	if total == 0 {
		return false
	}
	ratio := float64(speech) / float64(total)
	return ratio >= d.cfg.MinSpeechRatio && amplitude > d.cfg.EnergyThreshold
}

// EnergyClassifier is the model-free fallback frame classifier.
type EnergyClassifier struct {
	Threshold float64
}

func (e EnergyClassifier) IsSpeech(frame []byte) (bool, error) {
	threshold := e.Threshold
	if threshold == 0 {
		threshold = 200
	}
	return internal_audio.MeanAbsAmplitude(frame) > threshold, nil
}
