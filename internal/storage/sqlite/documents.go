// ABOUTME: Embedding document storage for SQLite
// ABOUTME: Stores vectors as BLOBs and ranks by brute-force cosine similarity
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/util"
)

// DocumentStore persists embedding documents keyed by item id
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Add inserts or replaces documents
func (s *DocumentStore) Add(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, doc := range docs {
			md, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (doc_id, text, metadata, vector, created_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(doc_id) DO UPDATE SET
					text = excluded.text,
					metadata = excluded.metadata,
					vector = excluded.vector
			`, doc.ID, doc.Text, string(md), vectorToBlob(doc.Vector), time.Now()); err != nil {
				return fmt.Errorf("save document %d: %w", doc.ID, err)
			}
		}
		return nil
	})
}

// Remove deletes documents by id; unknown ids are ignored
func (s *DocumentStore) Remove(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE doc_id IN ("+placeholders(len(ids))+")",
		appendIDs(nil, ids)...)
	return err
}

// Search performs cosine similarity search over documents passing filter
func (s *DocumentStore) Search(ctx context.Context, vector []float64, k int, filter map[string]string) ([]models.Match, error) {
	docs, err := s.query(ctx, "SELECT doc_id, text, metadata, vector FROM documents")
	if err != nil {
		return nil, err
	}

	var results []models.Match
	for _, doc := range docs {
		if !util.MatchesFilter(doc.Metadata, filter) {
			continue
		}
		results = append(results, models.Match{
			ItemID: doc.ID,
			Score:  util.CosineSimilarity(vector, doc.Vector),
		})
	}

	return util.TopK(results, k), nil
}

// Get returns the stored documents for ids
func (s *DocumentStore) Get(ctx context.Context, ids []int64) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.query(ctx,
		"SELECT doc_id, text, metadata, vector FROM documents WHERE doc_id IN ("+placeholders(len(ids))+") ORDER BY doc_id",
		appendIDs(nil, ids)...)
}

// IDs lists every document id in ascending order
func (s *DocumentStore) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc_id FROM documents ORDER BY doc_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Persist is a no-op; every write is committed immediately
func (s *DocumentStore) Persist(ctx context.Context) error {
	return nil
}

// Reset discards every document
func (s *DocumentStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents")
	return err
}

func (s *DocumentStore) query(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []models.Document
	for rows.Next() {
		var (
			doc  models.Document
			md   sql.NullString
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &md, &blob); err != nil {
			return nil, err
		}
		if md.Valid && md.String != "" {
			if err := json.Unmarshal([]byte(md.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %d: %w", doc.ID, err)
			}
		}
		doc.Vector = blobToVector(blob)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint64(blob[i*8:])
		vector[i] = math.Float64frombits(bits)
	}
	return vector
}
