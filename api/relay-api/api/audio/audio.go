// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package audio_api

import (
	"context"
	"fmt"
	"time"

	"github.com/crosstalkai/api/relay-api/config"
	internal_audio "github.com/crosstalkai/api/relay-api/internal/audio"
	internal_cabin "github.com/crosstalkai/api/relay-api/internal/cabin"
	internal_mlbridge "github.com/crosstalkai/api/relay-api/internal/mlbridge"
	"github.com/crosstalkai/pkg/commons"
	relay_api "github.com/crosstalkai/protos"
)

type audioApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	manager *internal_cabin.Manager
	bridge  internal_mlbridge.Bridge
}

type audioGrpcApi struct {
	audioApi
}

// NewAudioGRPCApi exposes cabin control and the legacy batch-transcription
// path over gRPC.
func NewAudioGRPCApi(cfg *config.AppConfig, logger commons.Logger,
	manager *internal_cabin.Manager,
	bridge internal_mlbridge.Bridge,
) relay_api.AudioServiceServer {
	return &audioGrpcApi{
		audioApi{
			cfg:     cfg,
			logger:  logger,
			manager: manager,
			bridge:  bridge,
		},
	}
}

// ProcessAudioBuffer transcribes one uploaded PCM buffer. Legacy path kept
// for callers that predate the streaming cabins.
func (a *audioGrpcApi) ProcessAudioBuffer(ctx context.Context, req *relay_api.ProcessAudioBufferRequest) (*relay_api.ProcessAudioBufferResponse, error) {
	if len(req.Buffer) == 0 {
		return &relay_api.ProcessAudioBufferResponse{
			Success: false,
			Message: "empty audio buffer",
		}, nil
	}

	cfg := internal_audio.AudioConfig{
		SampleRate: int(req.SampleRate),
		Channels:   int(req.Channels),
	}
	if cfg.SampleRate == 0 {
		cfg = internal_audio.RELAY_INTERNAL_AUDIO_CONFIG
	}

	wav := internal_audio.WrapPCMToWAV(req.Buffer, cfg)
	transcript, err := a.bridge.Transcribe(ctx, wav, "auto")
	if err != nil {
		a.logger.Warnw("Batch transcription failed",
			"room", req.RoomId, "user", req.UserId, "error", err)
		return &relay_api.ProcessAudioBufferResponse{
			Success: false,
			Message: "transcription failed",
		}, nil
	}

	return &relay_api.ProcessAudioBufferResponse{
		Success:    true,
		Message:    "ok",
		Transcript: transcript,
		Confidence: 1.0,
	}, nil
}

// AllocateTranslationPort creates (or returns) the caller's cabin with
// placeholder languages; CreateTranslationProduce sets the real pair.
func (a *audioGrpcApi) AllocateTranslationPort(_ context.Context, req *relay_api.AllocateTranslationPortRequest) (*relay_api.AllocateTranslationPortResponse, error) {
	if req.RoomId == "" || req.UserId == "" {
		return &relay_api.AllocateTranslationPortResponse{Success: false}, nil
	}

	info, err := a.manager.CreateCabin(req.RoomId, req.UserId, "vi", "en", a.cfg.MediasoupPort)
	if err != nil {
		a.logger.Errorw("Cabin creation failed",
			"room", req.RoomId, "user", req.UserId, "error", err)
		return &relay_api.AllocateTranslationPortResponse{Success: false}, nil
	}

	return &relay_api.AllocateTranslationPortResponse{
		Success:  true,
		Port:     int32(info.RTPPort),
		SendPort: int32(info.SendPort),
		Ssrc:     info.SSRC,
		Ready:    info.Status == internal_cabin.StatusListening,
	}, nil
}

// CreateTranslationProduce binds the caller's cabin to its real language
// pair and starts it.
func (a *audioGrpcApi) CreateTranslationProduce(_ context.Context, req *relay_api.CreateTranslationProduceRequest) (*relay_api.CreateTranslationProduceResponse, error) {
	cab := a.manager.FindCabinByUser(req.RoomId, req.UserId)
	if cab == nil {
		return &relay_api.CreateTranslationProduceResponse{
			Success: false,
			Message: fmt.Sprintf("no cabin for user %s in room %s", req.UserId, req.RoomId),
		}, nil
	}

	updated, err := a.manager.UpdateCabinLanguages(cab.CabinKey(), req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		return &relay_api.CreateTranslationProduceResponse{
			Success: false,
			Message: err.Error(),
		}, nil
	}
	if err := a.manager.StartCabin(updated.CabinKey()); err != nil {
		return &relay_api.CreateTranslationProduceResponse{
			Success: false,
			Message: err.Error(),
		}, nil
	}

	return &relay_api.CreateTranslationProduceResponse{
		Success:  true,
		Message:  "ok",
		StreamId: fmt.Sprintf("translation_%s_%d", req.UserId, time.Now().Unix()),
	}, nil
}

// DestroyCabin tears the cabin down. Destroying an absent cabin succeeds.
func (a *audioGrpcApi) DestroyCabin(_ context.Context, req *relay_api.DestroyCabinRequest) (*relay_api.DestroyCabinResponse, error) {
	a.manager.DestroyCabin(req.RoomId, req.TargetUserId, req.SourceLanguage, req.TargetLanguage)
	return &relay_api.DestroyCabinResponse{Success: true, Message: "ok"}, nil
}
