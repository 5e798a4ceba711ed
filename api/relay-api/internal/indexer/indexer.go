// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package internal_indexer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crosstalkai/pkg/commons"
)

// InvalidRoomKeyError rejects transcripts and searches whose room_key is
// not a canonical UUID. Callers must not fold this into an empty result.
type InvalidRoomKeyError struct {
	RoomKey string
}

func (e *InvalidRoomKeyError) Error() string {
	return fmt.Sprintf("room_key %q is not a canonical UUID", e.RoomKey)
}

// MinScore is the similarity floor below which matches are discarded.
const MinScore = 0.60

const scrollLimit = 1000

// pointNamespace seeds deterministic point IDs so re-saving the same
// transcript line overwrites instead of duplicating.
var pointNamespace = uuid.MustParse("8f2d6f1c-44a0-4bf8-9c1d-2a5b7e903d14")

// Record is one transcript line with its indexing metadata.
type Record struct {
	RoomID         string
	RoomKey        string
	Speaker        string
	Text           string
	EnglishText    string
	Language       string
	Timestamp      int64
	OrganizationID string
}

// SearchResult is one scored match.
type SearchResult struct {
	RoomID    string
	Text      string
	Speaker   string
	Timestamp int64
	Score     float64
}

// Point is a stored vector plus its transcript payload.
type Point struct {
	ID     string
	Vector []float32
	Record Record
}

// ScoredPoint is a Point returned from a similarity query.
type ScoredPoint struct {
	Point
	Score float64
}

// VectorStore is the persistence boundary; implemented over Qdrant in
// production and faked in tests.
type VectorStore interface {
	Upsert(ctx context.Context, point Point) error
	Query(ctx context.Context, vector []float32, roomKey, organizationID string, limit int) ([]ScoredPoint, error)
	Scroll(ctx context.Context, roomKey, organizationID string, limit int) ([]Point, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Translator is the slice of the model gateway the indexer needs.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Indexer stores transcript lines as vectors and answers similarity
// queries over them. English re-vectoring runs on a bounded background
// group so a slow translator never blocks Save.
type Indexer struct {
	logger     commons.Logger
	store      VectorStore
	embedder   Embedder
	translator Translator

	background *errgroup.Group
}

// New wires an Indexer. backgroundLimit bounds concurrent re-vector tasks.
func New(logger commons.Logger, store VectorStore, embedder Embedder, translator Translator, backgroundLimit int) *Indexer {
	g := &errgroup.Group{}
	if backgroundLimit <= 0 {
		backgroundLimit = 4
	}
	g.SetLimit(backgroundLimit)
	return &Indexer{
		logger:     logger,
		store:      store,
		embedder:   embedder,
		translator: translator,
		background: g,
	}
}

// Close waits for in-flight background re-vector tasks.
func (x *Indexer) Close() {
	x.background.Wait()
}

func validateRoomKey(roomKey string) error {
	if _, err := uuid.Parse(roomKey); err != nil {
		return &InvalidRoomKeyError{RoomKey: roomKey}
	}
	return nil
}

// PointID derives the deterministic ID for a transcript line.
func PointID(rec Record) string {
	seed := fmt.Sprintf("%s|%s|%d|%s", rec.RoomKey, rec.Speaker, rec.Timestamp, rec.Text)
	return uuid.NewSHA1(pointNamespace, []byte(seed)).String()
}

// Save embeds the original text, upserts the point, and schedules the
// English re-vector pass in the background.
func (x *Indexer) Save(ctx context.Context, rec Record) error {
	if err := validateRoomKey(rec.RoomKey); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Text) == "" {
		return fmt.Errorf("transcript text is empty")
	}

	vector, err := x.embedder.Embed(ctx, rec.Text)
	if err != nil {
		return fmt.Errorf("embed transcript: %w", err)
	}

	point := Point{ID: PointID(rec), Vector: vector, Record: rec}
	if err := x.store.Upsert(ctx, point); err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}

	x.background.Go(func() error {
		x.reVectorEnglish(point)
		return nil
	})
	return nil
}

// reVectorEnglish translates the original to English and swaps the point's
// vector to the English embedding, keeping english_text alongside. The
// whole point is re-upserted so vector and payload change together.
func (x *Indexer) reVectorEnglish(point Point) {
	ctx := context.Background()

	lang := point.Record.Language
	if lang == "" {
		lang = "auto"
	}
	english, err := x.translator.Translate(ctx, point.Record.Text, lang, "en")
	if err != nil || strings.TrimSpace(english) == "" {
		x.logger.Warnw("English translation for re-vector failed",
			"pointId", point.ID, "error", err)
		return
	}

	vector, err := x.embedder.Embed(ctx, english)
	if err != nil {
		x.logger.Warnw("English embedding failed", "pointId", point.ID, "error", err)
		return
	}

	point.Vector = vector
	point.Record.EnglishText = english
	if err := x.store.Upsert(ctx, point); err != nil {
		x.logger.Warnw("English re-vector upsert failed", "pointId", point.ID, "error", err)
	}
}

// summaryQuery detects requests for a whole-room summary rather than a
// similarity lookup.
func summaryQuery(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(q, "summary") || strings.Contains(q, "tóm tắt")
}

// Search runs a bilingual similarity query: one vector from the raw query
// and one from its English translation, merged by point keeping the higher
// score, floored at MinScore. Summary-style queries return the full room
// instead.
func (x *Indexer) Search(ctx context.Context, query, roomKey string, limit int, organizationID string) ([]SearchResult, error) {
	if err := validateRoomKey(roomKey); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	if summaryQuery(query) {
		points, err := x.store.Scroll(ctx, roomKey, organizationID, scrollLimit)
		if err != nil {
			return nil, fmt.Errorf("scroll room: %w", err)
		}
		results := make([]SearchResult, 0, len(points))
		for _, p := range points {
			results = append(results, toResult(ScoredPoint{Point: p, Score: 1.0}))
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Timestamp < results[j].Timestamp })
		return results, nil
	}

	vectors := make([][]float32, 0, 2)
	raw, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vectors = append(vectors, raw)

	if english, err := x.translator.Translate(ctx, query, "auto", "en"); err == nil &&
		strings.TrimSpace(english) != "" && english != query {
		if vec, err := x.embedder.Embed(ctx, english); err == nil {
			vectors = append(vectors, vec)
		}
	}

	best := make(map[string]ScoredPoint)
	for _, vec := range vectors {
		matches, err := x.store.Query(ctx, vec, roomKey, organizationID, limit)
		if err != nil {
			return nil, fmt.Errorf("query vectors: %w", err)
		}
		for _, m := range matches {
			if existing, ok := best[m.ID]; !ok || m.Score > existing.Score {
				best[m.ID] = m
			}
		}
	}

	results := make([]SearchResult, 0, len(best))
	for _, m := range best {
		if m.Score < MinScore {
			continue
		}
		results = append(results, toResult(m))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetAll returns every transcript line for the room in timestamp order,
// bounded by the scroll limit.
func (x *Indexer) GetAll(ctx context.Context, roomKey, organizationID string) ([]Record, error) {
	if err := validateRoomKey(roomKey); err != nil {
		return nil, err
	}
	points, err := x.store.Scroll(ctx, roomKey, organizationID, scrollLimit)
	if err != nil {
		return nil, fmt.Errorf("scroll room: %w", err)
	}
	records := make([]Record, 0, len(points))
	for _, p := range points {
		records = append(records, p.Record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })
	return records, nil
}

func toResult(m ScoredPoint) SearchResult {
	text := m.Record.Text
	if text == "" {
		text = m.Record.EnglishText
	}
	return SearchResult{
		RoomID:    m.Record.RoomID,
		Text:      text,
		Speaker:   m.Record.Speaker,
		Timestamp: m.Record.Timestamp,
		Score:     m.Score,
	}
}
