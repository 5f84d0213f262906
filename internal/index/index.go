// ABOUTME: EmbeddingIndex over item text with a pluggable similarity backend
// ABOUTME: Scores are cosine similarity clamped to a 0-1 relevance scale
package index

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harper/agenda/internal/models"
)

const (
	// DefaultK is the number of candidates returned by a search
	DefaultK = 5
	// DefaultThreshold drops matches less relevant than this
	DefaultThreshold = 0.3
	// DefaultIDKey is the metadata key carrying the item id
	DefaultIDKey = "item_id"
)

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Backend stores documents and ranks them by raw cosine similarity
type Backend interface {
	Add(ctx context.Context, docs []models.Document) error
	Remove(ctx context.Context, ids []int64) error
	Search(ctx context.Context, vector []float64, k int, filter map[string]string) ([]models.Match, error)
	Get(ctx context.Context, ids []int64) ([]models.Document, error)
	IDs(ctx context.Context) ([]int64, error)
	Persist(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Options configures an Index. Zero values select the defaults, except
// Threshold where 0 keeps every match and a negative value selects
// DefaultThreshold.
type Options struct {
	K           int
	Threshold   float64
	IDKey       string
	Concurrency int
	Logger      *zap.Logger
}

// Index keeps one embedding document per item
type Index struct {
	backend     Backend
	embedder    Embedder
	k           int
	threshold   float64
	idKey       string
	concurrency int
	logger      *zap.Logger
}

// New creates an Index
func New(backend Backend, embedder Embedder, opts Options) *Index {
	ix := &Index{
		backend:     backend,
		embedder:    embedder,
		k:           opts.K,
		threshold:   opts.Threshold,
		idKey:       opts.IDKey,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	if ix.k <= 0 {
		ix.k = DefaultK
	}
	if ix.threshold < 0 {
		ix.threshold = DefaultThreshold
	}
	if ix.idKey == "" {
		ix.idKey = DefaultIDKey
	}
	if ix.concurrency <= 0 {
		ix.concurrency = 4
	}
	if ix.logger == nil {
		ix.logger = zap.NewNop()
	}
	return ix
}

// Add embeds and stores a document for each row
func (ix *Index) Add(ctx context.Context, rows []models.ItemRow) error {
	if len(rows) == 0 {
		return nil
	}

	docs := make([]models.Document, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			text := row.DocumentText()
			vec, err := ix.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed item %d: %w", row.ItemID, err)
			}
			docs[i] = models.Document{
				ID:   row.ItemID,
				Text: text,
				Metadata: map[string]string{
					ix.idKey:      strconv.FormatInt(row.ItemID, 10),
					"item_type":   string(row.ItemType),
					"item_status": string(row.ItemStatus),
				},
				Vector: vec,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ix.backend.Add(ctx, docs); err != nil {
		return fmt.Errorf("index add: %w", err)
	}
	ix.logger.Debug("indexed documents", zap.Int64s("item_ids", models.ItemIDs(rows)))
	return nil
}

// Remove drops the documents for ids; missing ids are ignored
func (ix *Index) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ix.backend.Remove(ctx, ids); err != nil {
		return fmt.Errorf("index remove: %w", err)
	}
	return nil
}

// Replace removes then re-adds the documents for rows
func (ix *Index) Replace(ctx context.Context, rows []models.ItemRow) error {
	if err := ix.Remove(ctx, models.ItemIDs(rows)); err != nil {
		return err
	}
	return ix.Add(ctx, rows)
}

// Search returns up to the configured k matches above the configured threshold
func (ix *Index) Search(ctx context.Context, query string, filter map[string]string) ([]models.Match, error) {
	return ix.SearchK(ctx, query, ix.k, ix.threshold, filter)
}

// SearchK returns up to k matches scoring at least threshold, most relevant first
func (ix *Index) SearchK(ctx context.Context, query string, k int, threshold float64, filter map[string]string) ([]models.Match, error) {
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	raw, err := ix.backend.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	matches := make([]models.Match, 0, len(raw))
	for _, m := range raw {
		score := Relevance(m.Score)
		if score < threshold {
			continue
		}
		matches = append(matches, models.Match{ItemID: m.ItemID, Score: score})
	}
	return matches, nil
}

// Documents returns the stored documents for ids
func (ix *Index) Documents(ctx context.Context, ids []int64) ([]models.Document, error) {
	return ix.backend.Get(ctx, ids)
}

// IDs lists the ids of every indexed document
func (ix *Index) IDs(ctx context.Context) ([]int64, error) {
	return ix.backend.IDs(ctx)
}

// Persist flushes backend state to durable storage
func (ix *Index) Persist(ctx context.Context) error {
	return ix.backend.Persist(ctx)
}

// Reset discards every document. Only used for a full rebuild.
func (ix *Index) Reset(ctx context.Context) error {
	return ix.backend.Reset(ctx)
}

// Relevance maps cosine similarity onto [0, 1]
func Relevance(cosine float64) float64 {
	switch {
	case cosine < 0:
		return 0
	case cosine > 1:
		return 1
	}
	return cosine
}
