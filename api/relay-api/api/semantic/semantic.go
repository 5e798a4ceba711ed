// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package semantic_api

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crosstalkai/api/relay-api/config"
	internal_indexer "github.com/crosstalkai/api/relay-api/internal/indexer"
	"github.com/crosstalkai/pkg/commons"
	relay_api "github.com/crosstalkai/protos"
)

type semanticApi struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	indexer *internal_indexer.Indexer
}

type semanticGrpcApi struct {
	semanticApi
}

// NewSemanticGRPCApi exposes transcript indexing and retrieval over gRPC.
func NewSemanticGRPCApi(cfg *config.AppConfig, logger commons.Logger,
	indexer *internal_indexer.Indexer,
) relay_api.SemanticServiceServer {
	return &semanticGrpcApi{
		semanticApi{
			cfg:     cfg,
			logger:  logger,
			indexer: indexer,
		},
	}
}

// roomKeyStatus maps the indexer's typed room-key error onto InvalidArgument
// so callers can tell a bad key from an empty room.
func roomKeyStatus(err error) error {
	var invalid *internal_indexer.InvalidRoomKeyError
	if errors.As(err, &invalid) {
		return status.Error(codes.InvalidArgument, invalid.Error())
	}
	return err
}

func (s *semanticGrpcApi) SaveTranscript(ctx context.Context, req *relay_api.SaveTranscriptRequest) (*relay_api.SaveTranscriptResponse, error) {
	ts := req.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}

	err := s.indexer.Save(ctx, internal_indexer.Record{
		RoomID:         req.RoomId,
		RoomKey:        req.RoomKey,
		Speaker:        req.Speaker,
		Text:           req.Text,
		Language:       req.Language,
		Timestamp:      ts,
		OrganizationID: req.OrganizationId,
	})
	if err != nil {
		if mapped := roomKeyStatus(err); mapped != err {
			return nil, mapped
		}
		s.logger.Errorw("Transcript save failed",
			"room", req.RoomId, "speaker", req.Speaker, "error", err)
		return &relay_api.SaveTranscriptResponse{Success: false, Message: err.Error()}, nil
	}
	return &relay_api.SaveTranscriptResponse{Success: true, Message: "ok"}, nil
}

func (s *semanticGrpcApi) SearchTranscripts(ctx context.Context, req *relay_api.SearchTranscriptsRequest) (*relay_api.SearchTranscriptsResponse, error) {
	limit := int(req.Limit)
	if limit <= 0 {
		limit = s.cfg.MaxSearchResults
	}

	results, err := s.indexer.Search(ctx, req.Query, req.RoomKey, limit, req.OrganizationId)
	if err != nil {
		return nil, roomKeyStatus(err)
	}

	out := make([]*relay_api.TranscriptResult, 0, len(results))
	for _, r := range results {
		roomID := r.RoomID
		if roomID == "" {
			roomID = req.RoomId
		}
		// Results carry the speaker inline so SFU clients can render
		// attribution without a schema change.
		text := r.Text
		if r.Speaker != "" {
			text = r.Speaker + ": " + text
		}
		out = append(out, &relay_api.TranscriptResult{
			RoomId:    roomID,
			Text:      text,
			Timestamp: r.Timestamp,
			Score:     float32(r.Score),
		})
	}
	return &relay_api.SearchTranscriptsResponse{Results: out}, nil
}

func (s *semanticGrpcApi) GetAllTranscripts(ctx context.Context, req *relay_api.GetAllTranscriptsRequest) (*relay_api.GetAllTranscriptsResponse, error) {
	records, err := s.indexer.GetAll(ctx, req.RoomKey, req.OrganizationId)
	if err != nil {
		return nil, roomKeyStatus(err)
	}

	out := make([]*relay_api.TranscriptLine, 0, len(records))
	for _, rec := range records {
		out = append(out, &relay_api.TranscriptLine{
			Speaker:   rec.Speaker,
			Text:      rec.Text,
			Timestamp: rec.Timestamp,
		})
	}
	return &relay_api.GetAllTranscriptsResponse{Results: out}, nil
}
