// ABOUTME: Tests for the embedding index across every backend
// ABOUTME: Same behavioural suite runs against flat, sqlite and charm backends
package index

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/storage/sqlite"
)

func rows() []models.ItemRow {
	return []models.ItemRow{
		{Item: models.Item{ItemID: 1, Content: "dentist appointment with Dr Smith", ItemType: models.ItemTypeEvent}},
		{Item: models.Item{ItemID: 2, Content: "groceries list milk eggs", ItemType: models.ItemTypeNote}},
		{Item: models.Item{ItemID: 3, Title: "Work", Content: "project kickoff meeting", ItemType: models.ItemTypeEvent}},
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	flat, err := NewFlatBackend("")
	require.NoError(t, err)

	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Backend{
		"flat":   flat,
		"sqlite": sqlite.NewDocumentStore(db),
		"charm":  NewCharmBackend(newMemKV()),
	}
}

func TestIndex_Backends(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ix := New(backend, newVocabEmbedder(), Options{Threshold: -1})

			require.NoError(t, ix.Add(ctx, rows()))

			ids, err := ix.IDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2, 3}, ids)

			matches, err := ix.Search(ctx, "dentist appointment", nil)
			require.NoError(t, err)
			require.NotEmpty(t, matches)
			assert.Equal(t, int64(1), matches[0].ItemID)
			for _, m := range matches {
				assert.GreaterOrEqual(t, m.Score, DefaultThreshold)
				assert.LessOrEqual(t, m.Score, 1.0)
				assert.NotEqual(t, int64(2), m.ItemID, "unrelated note should fall below threshold")
			}

			docs, err := ix.Documents(ctx, []int64{3})
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "Work project kickoff meeting", docs[0].Text)
			assert.Equal(t, "3", docs[0].Metadata[DefaultIDKey])
			assert.Equal(t, "EVENT", docs[0].Metadata["item_type"])

			filtered, err := ix.SearchK(ctx, "groceries meeting", 5, 0.1, map[string]string{"item_type": "EVENT"})
			require.NoError(t, err)
			for _, m := range filtered {
				assert.NotEqual(t, int64(2), m.ItemID)
			}

			require.NoError(t, ix.Remove(ctx, []int64{1, 42}))
			ids, _ = ix.IDs(ctx)
			assert.Equal(t, []int64{2, 3}, ids)

			require.NoError(t, ix.Persist(ctx))
			require.NoError(t, ix.Reset(ctx))
			ids, _ = ix.IDs(ctx)
			assert.Empty(t, ids)
		})
	}
}

func TestIndex_ReplaceSwapsDocument(t *testing.T) {
	ctx := context.Background()
	flat, _ := NewFlatBackend("")
	ix := New(flat, newVocabEmbedder(), Options{Threshold: DefaultThreshold})

	require.NoError(t, ix.Add(ctx, rows()[:1]))
	updated := rows()[0]
	updated.Content = "orthodontist visit"
	require.NoError(t, ix.Replace(ctx, []models.ItemRow{updated}))

	docs, _ := ix.Documents(ctx, []int64{1})
	require.Len(t, docs, 1)
	assert.Equal(t, "orthodontist visit", docs[0].Text)

	matches, _ := ix.Search(ctx, "dentist appointment", nil)
	assert.Empty(t, matches)
}

func TestIndex_ThresholdAndK(t *testing.T) {
	ctx := context.Background()
	flat, _ := NewFlatBackend("")
	ix := New(flat, newVocabEmbedder(), Options{K: 1})

	require.NoError(t, ix.Add(ctx, []models.ItemRow{
		{Item: models.Item{ItemID: 1, Content: "meeting alpha"}},
		{Item: models.Item{ItemID: 2, Content: "meeting beta"}},
	}))

	matches, err := ix.Search(ctx, "meeting", nil)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = ix.SearchK(ctx, "meeting", 5, 0.99, nil)
	require.NoError(t, err)
	assert.Empty(t, matches, "partial overlap scores below a 0.99 cutoff")
}

func TestIndex_ZeroThresholdKeepsWeakMatches(t *testing.T) {
	ctx := context.Background()
	words := []string{"meeting"}
	for i := 0; i < 19; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	// one shared word out of twenty scores about 0.22
	row := models.ItemRow{Item: models.Item{ItemID: 1, Content: strings.Join(words, " ")}}

	flat, _ := NewFlatBackend("")
	ix := New(flat, newVocabEmbedder(), Options{Threshold: 0})
	require.NoError(t, ix.Add(ctx, []models.ItemRow{row}))

	matches, err := ix.Search(ctx, "meeting", nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.2236, matches[0].Score, 0.001)

	flat, _ = NewFlatBackend("")
	ix = New(flat, newVocabEmbedder(), Options{Threshold: -1})
	require.NoError(t, ix.Add(ctx, []models.ItemRow{row}))

	matches, err = ix.Search(ctx, "meeting", nil)
	require.NoError(t, err)
	assert.Empty(t, matches, "negative threshold selects the default cutoff")
}

func TestDocumentKeyRoundTrip(t *testing.T) {
	key := DocumentKey(42)
	assert.Equal(t, "doc:42", key)

	id, err := ParseDocumentKey(key)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseDocumentKey("doc:abc")
	assert.Error(t, err)
}

func TestIndex_EmbedFailure(t *testing.T) {
	ctx := context.Background()
	flat, _ := NewFlatBackend("")
	ix := New(flat, failingEmbedder{}, Options{})

	assert.Error(t, ix.Add(ctx, rows()))
	_, err := ix.Search(ctx, "anything", nil)
	assert.Error(t, err)

	ids, _ := ix.IDs(ctx)
	assert.Empty(t, ids, "failed embedding must not write partial documents")
}

func TestFlatBackend_PersistReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "flat.json")

	b, err := NewFlatBackend(path)
	require.NoError(t, err)
	require.NoError(t, b.Add(ctx, []models.Document{{ID: 5, Text: "x", Vector: []float64{1, 2}}}))
	require.NoError(t, b.Persist(ctx))

	reloaded, err := NewFlatBackend(path)
	require.NoError(t, err)
	ids, _ := reloaded.IDs(ctx)
	assert.Equal(t, []int64{5}, ids)

	require.NoError(t, reloaded.Reset(ctx))
	again, err := NewFlatBackend(path)
	require.NoError(t, err)
	ids, _ = again.IDs(ctx)
	assert.Empty(t, ids)
}

func TestCharmBackend_ResetKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data["settings:theme"] = []byte(`"dark"`)
	b := NewCharmBackend(kv)

	require.NoError(t, b.Add(ctx, []models.Document{{ID: 1, Vector: []float64{1}}}))
	require.NoError(t, b.Persist(ctx))
	assert.Equal(t, 1, kv.syncs)

	require.NoError(t, b.Reset(ctx))
	_, ok := kv.data["settings:theme"]
	assert.True(t, ok)
	ids, _ := b.IDs(ctx)
	assert.Empty(t, ids)
}

func TestRelevance(t *testing.T) {
	assert.Equal(t, 0.0, Relevance(-0.4))
	assert.Equal(t, 0.5, Relevance(0.5))
	assert.Equal(t, 1.0, Relevance(1.0000001))
}
