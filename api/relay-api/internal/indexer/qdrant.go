// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_indexer

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/crosstalkai/pkg/commons"
)

// embeddingDims matches text-embedding-3-small.
const embeddingDims = 1536

// QdrantStore persists transcript points in a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     commons.Logger
}

// NewQdrantStore connects to Qdrant at rawURL (scheme decides TLS) and
// ensures the collection exists.
func NewQdrantStore(ctx context.Context, logger commons.Logger, rawURL, apiKey, collection string) (*QdrantStore, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", rawURL)
	}
	port := 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port in %q", rawURL)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	s := &QdrantStore{client: client, collection: collection, logger: logger}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     embeddingDims,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	s.logger.Infow("Created transcript collection", "collection", s.collection)
	return nil
}

// Upsert writes the point, replacing any existing version of it.
func (s *QdrantStore) Upsert(ctx context.Context, point Point) error {
	payload := map[string]any{
		"room_id":   point.Record.RoomID,
		"room_key":  point.Record.RoomKey,
		"speaker":   point.Record.Speaker,
		"text":      point.Record.Text,
		"language":  point.Record.Language,
		"timestamp": point.Record.Timestamp,
	}
	if point.Record.EnglishText != "" {
		payload["english_text"] = point.Record.EnglishText
	}
	if point.Record.OrganizationID != "" {
		payload["organization_id"] = point.Record.OrganizationID
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

func roomFilter(roomKey, organizationID string) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch("room_key", roomKey)}
	if organizationID != "" {
		must = append(must, qdrant.NewMatch("organization_id", organizationID))
	}
	return &qdrant.Filter{Must: must}
}

// Query runs a similarity search filtered to one room.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, roomKey, organizationID string, limit int) ([]ScoredPoint, error) {
	matches, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         roomFilter(roomKey, organizationID),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(matches))
	for _, m := range matches {
		out = append(out, ScoredPoint{
			Point: Point{
				ID:     m.GetId().GetUuid(),
				Record: payloadToRecord(m.GetPayload()),
			},
			Score: float64(m.GetScore()),
		})
	}
	return out, nil
}

// Scroll pages through every point for a room, up to limit.
func (s *QdrantStore) Scroll(ctx context.Context, roomKey, organizationID string, limit int) ([]Point, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter:         roomFilter(roomKey, organizationID),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Point, 0, len(points))
	for _, p := range points {
		out = append(out, Point{
			ID:     p.GetId().GetUuid(),
			Record: payloadToRecord(p.GetPayload()),
		})
	}
	return out, nil
}

func payloadToRecord(payload map[string]*qdrant.Value) Record {
	return Record{
		RoomID:         payload["room_id"].GetStringValue(),
		RoomKey:        payload["room_key"].GetStringValue(),
		Speaker:        payload["speaker"].GetStringValue(),
		Text:           payload["text"].GetStringValue(),
		EnglishText:    payload["english_text"].GetStringValue(),
		Language:       payload["language"].GetStringValue(),
		Timestamp:      payload["timestamp"].GetIntegerValue(),
		OrganizationID: payload["organization_id"].GetStringValue(),
	}
}
