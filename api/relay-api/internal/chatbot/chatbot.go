// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	internal_indexer "github.com/crosstalkai/api/relay-api/internal/indexer"
	"github.com/crosstalkai/pkg/commons"
)

const systemPrompt = "You are a meeting assistant. Answer the user's question " +
	"using only the transcript lines provided. If the transcript does not " +
	"contain the answer, say so. Answer in the language of the question."

const maxContextLines = 40

// Retriever is the slice of the transcript indexer the chatbot needs.
type Retriever interface {
	Search(ctx context.Context, query, roomKey string, limit int, organizationID string) ([]internal_indexer.SearchResult, error)
}

// ChatModel answers one prompt; implemented over the OpenAI API in
// production and faked in tests.
type ChatModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Bot answers questions about a room from its indexed transcript.
type Bot struct {
	logger    commons.Logger
	retriever Retriever
	model     ChatModel
}

// NewBot wires a chatbot over a retriever and a chat model.
func NewBot(logger commons.Logger, retriever Retriever, model ChatModel) *Bot {
	return &Bot{logger: logger, retriever: retriever, model: model}
}

// Ask retrieves transcript lines relevant to the question and feeds them
// with the question to the model.
func (b *Bot) Ask(ctx context.Context, question, roomKey, organizationID string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}

	results, err := b.retriever.Search(ctx, question, roomKey, maxContextLines, organizationID)
	if err != nil {
		return "", fmt.Errorf("retrieve transcript: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Transcript:\n")
	if len(results) == 0 {
		sb.WriteString("(no matching lines)\n")
	}
	for _, r := range results {
		ts := time.Unix(r.Timestamp, 0).UTC().Format("15:04:05")
		fmt.Fprintf(&sb, "[%s] %s: %s\n", ts, r.Speaker, r.Text)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)

	answer, err := b.model.Complete(ctx, systemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	b.logger.Debugw("Chatbot answered",
		"roomKey", roomKey, "contextLines", len(results), "answerLen", len(answer))
	return answer, nil
}

// OpenAIChat is the production ChatModel.
type OpenAIChat struct {
	client oai.Client
	model  string
}

// NewOpenAIChat builds a ChatModel for the given model name.
func NewOpenAIChat(apiKey, model string) *OpenAIChat {
	return &OpenAIChat{
		client: oai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete runs one system+user exchange.
func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
