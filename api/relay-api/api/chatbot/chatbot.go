// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package chatbot_api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crosstalkai/api/relay-api/config"
	internal_chatbot "github.com/crosstalkai/api/relay-api/internal/chatbot"
	internal_indexer "github.com/crosstalkai/api/relay-api/internal/indexer"
	"github.com/crosstalkai/pkg/commons"
	relay_api "github.com/crosstalkai/protos"
)

type chatbotApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	bot    *internal_chatbot.Bot
}

type chatbotGrpcApi struct {
	chatbotApi
}

// NewChatbotGRPCApi exposes transcript Q&A over gRPC.
func NewChatbotGRPCApi(cfg *config.AppConfig, logger commons.Logger,
	bot *internal_chatbot.Bot,
) relay_api.ChatbotServiceServer {
	return &chatbotGrpcApi{
		chatbotApi{
			cfg:    cfg,
			logger: logger,
			bot:    bot,
		},
	}
}

func (c *chatbotGrpcApi) AskChatBot(ctx context.Context, req *relay_api.AskChatBotRequest) (*relay_api.AskChatBotResponse, error) {
	// Older SFU callers only send room_id; treat it as the room key when
	// no explicit key arrives.
	roomKey := req.RoomKey
	if roomKey == "" {
		roomKey = req.RoomId
	}

	answer, err := c.bot.Ask(ctx, req.Question, roomKey, req.OrganizationId)
	if err != nil {
		var invalid *internal_indexer.InvalidRoomKeyError
		if errors.As(err, &invalid) {
			return nil, status.Error(codes.InvalidArgument, invalid.Error())
		}
		c.logger.Warnw("Chatbot request failed",
			"room", req.RoomId, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &relay_api.AskChatBotResponse{Answer: answer}, nil
}
