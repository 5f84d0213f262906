// ABOUTME: In-process flat vector index with optional JSON file persistence
// ABOUTME: Exact brute-force cosine search guarded by a RWMutex
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/util"
)

// FlatBackend keeps every document in memory
type FlatBackend struct {
	path string
	mu   sync.RWMutex
	docs map[int64]models.Document
}

// NewFlatBackend loads documents from path when it exists; an empty path never persists
func NewFlatBackend(path string) (*FlatBackend, error) {
	b := &FlatBackend{path: path, docs: make(map[int64]models.Document)}
	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read flat index: %w", err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode flat index: %w", err)
	}
	for _, d := range docs {
		b.docs[d.ID] = d
	}
	return b, nil
}

// Add inserts or replaces documents
func (b *FlatBackend) Add(ctx context.Context, docs []models.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range docs {
		b.docs[d.ID] = d
	}
	return nil
}

// Remove deletes documents by id
func (b *FlatBackend) Remove(ctx context.Context, ids []int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.docs, id)
	}
	return nil
}

// Search ranks documents passing filter by cosine similarity
func (b *FlatBackend) Search(ctx context.Context, vector []float64, k int, filter map[string]string) ([]models.Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	results := make([]models.Match, 0, len(b.docs))
	for id, d := range b.docs {
		if !util.MatchesFilter(d.Metadata, filter) {
			continue
		}
		results = append(results, models.Match{ItemID: id, Score: util.CosineSimilarity(vector, d.Vector)})
	}
	return util.TopK(results, k), nil
}

// Get returns documents for ids that exist
func (b *FlatBackend) Get(ctx context.Context, ids []int64) ([]models.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var docs []models.Document
	for _, id := range ids {
		if d, ok := b.docs[id]; ok {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// IDs lists document ids ascending
func (b *FlatBackend) IDs(ctx context.Context) ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]int64, 0, len(b.docs))
	for id := range b.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Persist writes all documents to the backing file atomically
func (b *FlatBackend) Persist(ctx context.Context) error {
	if b.path == "" {
		return nil
	}

	b.mu.RLock()
	docs := make([]models.Document, 0, len(b.docs))
	for _, d := range b.docs {
		docs = append(docs, d)
	}
	b.mu.RUnlock()
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode flat index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write flat index: %w", err)
	}
	return os.Rename(tmp, b.path)
}

// Reset clears memory and removes the backing file
func (b *FlatBackend) Reset(ctx context.Context) error {
	b.mu.Lock()
	b.docs = make(map[int64]models.Document)
	b.mu.Unlock()

	if b.path == "" {
		return nil
	}
	if err := os.Remove(b.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove flat index: %w", err)
	}
	return nil
}
