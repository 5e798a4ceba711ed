// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

// Package protos holds the wire contract of the relay's three gRPC services.
// The message types mirror relay.proto and travel over the registered JSON
// codec (see codec.go); integrators that prefer protobuf binaries generate
// bindings from relay.proto instead.
package protos

// ============================================================================
// AudioService messages
// ============================================================================

type ProcessAudioBufferRequest struct {
	UserId         string  `json:"user_id"`
	RoomId         string  `json:"room_id"`
	OrganizationId string  `json:"organization_id,omitempty"`
	Buffer         []byte  `json:"buffer"`
	Duration       float64 `json:"duration"`
	SampleRate     int32   `json:"sample_rate"`
	Channels       int32   `json:"channels"`
}

type ProcessAudioBufferResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Transcript string  `json:"transcript"`
	Confidence float32 `json:"confidence"`
}

type AllocateTranslationPortRequest struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type AllocateTranslationPortResponse struct {
	Success  bool   `json:"success"`
	Port     int32  `json:"port"`
	SendPort int32  `json:"send_port"`
	Ssrc     uint32 `json:"ssrc"`
	Ready    bool   `json:"ready"`
}

type CreateTranslationProduceRequest struct {
	RoomId         string `json:"room_id"`
	UserId         string `json:"user_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type CreateTranslationProduceResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	StreamId string `json:"stream_id"`
}

type DestroyCabinRequest struct {
	RoomId         string `json:"room_id"`
	TargetUserId   string `json:"target_user_id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type DestroyCabinResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ============================================================================
// SemanticService messages
// ============================================================================

type SaveTranscriptRequest struct {
	RoomId         string `json:"room_id"`
	Speaker        string `json:"speaker"`
	Text           string `json:"text"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	Language       string `json:"language,omitempty"`
	OrganizationId string `json:"organization_id,omitempty"`
	RoomKey        string `json:"room_key"`
}

type SaveTranscriptResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SearchTranscriptsRequest struct {
	Query          string `json:"query"`
	RoomId         string `json:"room_id"`
	Limit          int32  `json:"limit,omitempty"`
	OrganizationId string `json:"organization_id,omitempty"`
	RoomKey        string `json:"room_key"`
}

type TranscriptResult struct {
	RoomId    string  `json:"room_id"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"`
	Score     float32 `json:"score"`
}

type SearchTranscriptsResponse struct {
	Results []*TranscriptResult `json:"results"`
}

type GetAllTranscriptsRequest struct {
	RoomKey        string `json:"room_key"`
	OrganizationId string `json:"organization_id,omitempty"`
}

type TranscriptLine struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type GetAllTranscriptsResponse struct {
	Results []*TranscriptLine `json:"results"`
}

// ============================================================================
// ChatbotService messages
// ============================================================================

type AskChatBotRequest struct {
	Question       string `json:"question"`
	RoomId         string `json:"room_id"`
	OrganizationId string `json:"organization_id,omitempty"`
	RoomKey        string `json:"room_key,omitempty"`
}

type AskChatBotResponse struct {
	Answer string `json:"answer"`
}
