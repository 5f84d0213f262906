// ABOUTME: Charm KV index backend storing one JSON document per item
// ABOUTME: Persist syncs with the charm cloud when auto sync is enabled
package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/util"
)

// DocumentPrefix namespaces embedding documents inside the KV store
const DocumentPrefix = "doc:"

// DocumentKey generates a key for an embedding document
func DocumentKey(id int64) string {
	return DocumentPrefix + strconv.FormatInt(id, 10)
}

// ParseDocumentKey extracts the item id from a document key
func ParseDocumentKey(key string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(key, DocumentPrefix), 10, 64)
}

// KV is the subset of the charm client the backend needs
type KV interface {
	SetJSON(key string, value any) error
	GetJSON(key string, dest any) error
	Delete(key string) error
	ListKeys(prefix string) ([]string, error)
	Sync() error
}

// CharmBackend stores documents in charm KV
type CharmBackend struct {
	kv KV
}

// NewCharmBackend wraps a charm KV client
func NewCharmBackend(kv KV) *CharmBackend {
	return &CharmBackend{kv: kv}
}

// Add writes each document under its document key
func (b *CharmBackend) Add(ctx context.Context, docs []models.Document) error {
	for _, d := range docs {
		if err := b.kv.SetJSON(DocumentKey(d.ID), d); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes document keys
func (b *CharmBackend) Remove(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := b.kv.Delete(DocumentKey(id)); err != nil {
			return err
		}
	}
	return nil
}

// Search loads every document and ranks by cosine similarity
func (b *CharmBackend) Search(ctx context.Context, vector []float64, k int, filter map[string]string) ([]models.Match, error) {
	docs, err := b.all()
	if err != nil {
		return nil, err
	}

	var results []models.Match
	for _, d := range docs {
		if !util.MatchesFilter(d.Metadata, filter) {
			continue
		}
		results = append(results, models.Match{ItemID: d.ID, Score: util.CosineSimilarity(vector, d.Vector)})
	}
	return util.TopK(results, k), nil
}

// Get returns documents for ids that exist
func (b *CharmBackend) Get(ctx context.Context, ids []int64) ([]models.Document, error) {
	var docs []models.Document
	for _, id := range ids {
		var d models.Document
		if err := b.kv.GetJSON(DocumentKey(id), &d); err != nil {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// IDs lists document ids ascending
func (b *CharmBackend) IDs(ctx context.Context) ([]int64, error) {
	keys, err := b.kv.ListKeys(DocumentPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list document keys: %w", err)
	}
	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		id, err := ParseDocumentKey(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Persist syncs with the charm server
func (b *CharmBackend) Persist(ctx context.Context) error {
	return b.kv.Sync()
}

// Reset deletes every document key, leaving other keys alone
func (b *CharmBackend) Reset(ctx context.Context) error {
	keys, err := b.kv.ListKeys(DocumentPrefix)
	if err != nil {
		return fmt.Errorf("failed to list document keys: %w", err)
	}
	for _, key := range keys {
		if err := b.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (b *CharmBackend) all() ([]models.Document, error) {
	keys, err := b.kv.ListKeys(DocumentPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list document keys: %w", err)
	}

	docs := make([]models.Document, 0, len(keys))
	for _, key := range keys {
		var d models.Document
		if err := b.kv.GetJSON(key, &d); err != nil {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}
