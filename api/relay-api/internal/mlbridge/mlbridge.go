// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_mlbridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/crosstalkai/pkg/commons"
)

// Bridge is the boundary to the model gateway: speech recognition, text
// translation, speech synthesis, and speaker-embedding extraction. Cabins
// and the indexer depend on this interface, not the HTTP client, so tests
// inject fakes.
type Bridge interface {
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Synthesize(ctx context.Context, text, language string, speakerEmbedding []float32) ([]byte, error)
	CloneSpeaker(ctx context.Context, wav []byte) ([]float32, error)
}

type sttResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

type ttsRequest struct {
	Text             string    `json:"text"`
	Language         string    `json:"language"`
	SpeakerEmbedding []float32 `json:"speaker_embedding,omitempty"`
}

type cloneResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Client talks to the model gateway over REST.
type Client struct {
	http   *resty.Client
	logger commons.Logger
}

// Option customizes the Client.
type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetryCount sets transient-failure retries. Default is none: the audio
// path is real-time, a late answer is as useless as no answer.
func WithRetryCount(n int) Option {
	return func(c *Client) {
		c.http.SetRetryCount(n).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(time.Second)
	}
}

// NewClient builds a Bridge over the gateway at baseURL.
func NewClient(logger commons.Logger, baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30 * time.Second),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe posts a WAV file and returns the recognized text, trimmed.
func (c *Client) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	var out sttResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("audio_file", "chunk.wav", strings.NewReader(string(wav))).
		SetQueryParam("language", language).
		SetResult(&out).
		Post("/stt")
	if err != nil {
		return "", fmt.Errorf("stt request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("stt gateway returned %s: %s", resp.Status(), resp.String())
	}
	return strings.TrimSpace(out.Text), nil
}

// Translate converts text between languages. Identical source and target
// short-circuits without a network call.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	var out translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(translateRequest{Text: text, SourceLang: sourceLang, TargetLang: targetLang}).
		SetResult(&out).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("translate gateway returned %s: %s", resp.Status(), resp.String())
	}
	return strings.TrimSpace(out.TranslatedText), nil
}

// Synthesize renders text to 24 kHz mono 16-bit PCM. The embedding, when
// present, selects the cloned voice; the gateway falls back to its stock
// voice otherwise.
func (c *Client) Synthesize(ctx context.Context, text, language string, speakerEmbedding []float32) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ttsRequest{Text: text, Language: language, SpeakerEmbedding: speakerEmbedding}).
		Post("/tts_to_audio/")
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tts gateway returned %s: %s", resp.Status(), resp.String())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("tts gateway returned empty audio for %q", text)
	}
	return stripWAVHeader(body), nil
}

// CloneSpeaker extracts a speaker embedding from reference audio.
func (c *Client) CloneSpeaker(ctx context.Context, wav []byte) ([]float32, error) {
	var out cloneResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("wav_file", "reference.wav", strings.NewReader(string(wav))).
		SetResult(&out).
		Post("/clone_speaker")
	if err != nil {
		return nil, fmt.Errorf("clone request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clone gateway returned %s: %s", resp.Status(), resp.String())
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("clone gateway returned empty embedding")
	}
	return out.Embedding, nil
}

// stripWAVHeader drops the canonical 44-byte header when the gateway
// answers with a RIFF container instead of raw PCM.
func stripWAVHeader(body []byte) []byte {
	if len(body) > 44 && string(body[0:4]) == "RIFF" && string(body[8:12]) == "WAVE" {
		return body[44:]
	}
	return body
}
