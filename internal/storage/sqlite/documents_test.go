// ABOUTME: Tests for embedding document persistence and similarity search
// ABOUTME: Verifies upsert, filtered search, removal and reset
package sqlite

import (
	"context"
	"math"
	"testing"

	"github.com/harper/agenda/internal/models"
)

func newTestDocumentStore(t *testing.T) *DocumentStore {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentStore(db)
}

func TestDocumentStore_AddSearch(t *testing.T) {
	s := newTestDocumentStore(t)
	ctx := context.Background()

	docs := []models.Document{
		{ID: 1, Text: "dentist", Metadata: map[string]string{"item_type": "EVENT"}, Vector: []float64{1, 0, 0}},
		{ID: 2, Text: "groceries", Metadata: map[string]string{"item_type": "NOTE"}, Vector: []float64{0, 1, 0}},
		{ID: 3, Text: "doctor", Metadata: map[string]string{"item_type": "EVENT"}, Vector: []float64{0.9, 0.1, 0}},
	}
	if err := s.Add(ctx, docs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	results, err := s.Search(ctx, []float64{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ItemID != 1 || results[1].ItemID != 3 {
		t.Errorf("order = %v, want [1 3]", results)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("top score = %v, want 1", results[0].Score)
	}

	filtered, err := s.Search(ctx, []float64{0, 1, 0}, 5, map[string]string{"item_type": "EVENT"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range filtered {
		if r.ItemID == 2 {
			t.Error("filter should exclude NOTE document")
		}
	}
}

func TestDocumentStore_UpsertRemoveReset(t *testing.T) {
	s := newTestDocumentStore(t)
	ctx := context.Background()

	_ = s.Add(ctx, []models.Document{{ID: 7, Text: "old", Vector: []float64{1, 0}}})
	_ = s.Add(ctx, []models.Document{{ID: 7, Text: "new", Vector: []float64{0, 1}}})

	got, err := s.Get(ctx, []int64{7})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got) != 1 || got[0].Text != "new" || got[0].Vector[1] != 1 {
		t.Errorf("Get() = %+v, want replaced document", got)
	}

	_ = s.Add(ctx, []models.Document{{ID: 8, Text: "other", Vector: []float64{1, 1}}})
	if err := s.Remove(ctx, []int64{7, 99}); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	ids, _ := s.IDs(ctx)
	if len(ids) != 1 || ids[0] != 8 {
		t.Errorf("IDs() = %v, want [8]", ids)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	ids, _ = s.IDs(ctx)
	if len(ids) != 0 {
		t.Errorf("IDs() after reset = %v", ids)
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	v := []float64{0.1, -2.5, math.Pi}
	got := blobToVector(vectorToBlob(v))
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], v[i])
		}
	}
}
