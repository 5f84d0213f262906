// ABOUTME: Test doubles for the core package
// ABOUTME: Scripted completer, word-bag embedder, spy index and a sqlite-backed harness
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"go.uber.org/goleak"

	"github.com/harper/agenda/internal/datetime"
	"github.com/harper/agenda/internal/index"
	"github.com/harper/agenda/internal/models"
	"github.com/harper/agenda/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

// Wednesday 2026-10-14 10:30 UTC
var refTime = time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

// Prompt kinds routed by scriptLLM
const (
	kindTask      = "task"
	kindOperation = "operation"
	kindExtract   = "extract"
	kindReply     = "reply"
)

func promptKind(system string) string {
	switch {
	case strings.Contains(system, "note or a schedule"):
		return kindTask
	case strings.Contains(system, "which operation"):
		return kindOperation
	case system == notePrompt || system == schedulePrompt:
		return kindExtract
	default:
		return kindReply
	}
}

// scriptLLM answers each prompt kind from a queue; the last answer repeats
type scriptLLM struct {
	mu      sync.Mutex
	scripts map[string][]string
	errs    map[string]error
	calls   map[string]int
	systems []string
}

func newScriptLLM() *scriptLLM {
	return &scriptLLM{
		scripts: make(map[string][]string),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (s *scriptLLM) on(kind string, answers ...string) *scriptLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[kind] = answers
	return s
}

func (s *scriptLLM) fail(kind string, err error) *scriptLLM {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[kind] = err
	return s
}

func (s *scriptLLM) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

func (s *scriptLLM) Complete(ctx context.Context, system, user string, history []models.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := promptKind(system)
	s.calls[kind]++
	s.systems = append(s.systems, system)
	if err := s.errs[kind]; err != nil {
		return "", err
	}
	q := s.scripts[kind]
	if len(q) == 0 {
		return "", nil
	}
	if len(q) > 1 {
		s.scripts[kind] = q[1:]
	}
	return q[0], nil
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "my": true, "to": true, "for": true,
	"with": true, "from": true, "of": true, "at": true, "please": true,
	"show": true, "i": true, "did": true, "have": true, "what": true,
}

// bagEmbedder maps each non-stopword to its own dimension
type bagEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: make(map[string]int)}
}

func (e *bagEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec := make([]float64, 256)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if stopwords[w] {
			continue
		}
		idx, ok := e.vocab[w]
		if !ok {
			if len(e.vocab) == len(vec) {
				return nil, errors.New("vocabulary full")
			}
			idx = len(e.vocab)
			e.vocab[w] = idx
		}
		vec[idx]++
	}
	return vec, nil
}

// spyIndex counts mutations and can fail writes
type spyIndex struct {
	*index.Index
	mu        sync.Mutex
	mutations int
	searches  int
	failWrite error
}

func (s *spyIndex) mutate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations++
	return s.failWrite
}

func (s *spyIndex) Add(ctx context.Context, rows []models.ItemRow) error {
	if err := s.mutate(); err != nil {
		return err
	}
	return s.Index.Add(ctx, rows)
}

func (s *spyIndex) Remove(ctx context.Context, ids []int64) error {
	if err := s.mutate(); err != nil {
		return err
	}
	return s.Index.Remove(ctx, ids)
}

func (s *spyIndex) Replace(ctx context.Context, rows []models.ItemRow) error {
	if err := s.mutate(); err != nil {
		return err
	}
	return s.Index.Replace(ctx, rows)
}

func (s *spyIndex) Search(ctx context.Context, query string, filter map[string]string) ([]models.Match, error) {
	s.mu.Lock()
	s.searches++
	s.mu.Unlock()
	return s.Index.Search(ctx, query, filter)
}

type harness struct {
	llm       *scriptLLM
	store     *sqlite.ItemStore
	reconcile *sqlite.ReconcileStore
	index     *spyIndex
	pipeline  *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	resolver := datetime.NewResolver(datetime.WithClock(func() time.Time { return refTime }))
	h := &harness{
		llm:       newScriptLLM(),
		store:     sqlite.NewItemStore(db, resolver, nil),
		reconcile: sqlite.NewReconcileStore(db),
	}
	backend, err := index.NewFlatBackend("")
	if err != nil {
		t.Fatalf("NewFlatBackend() error = %v", err)
	}
	h.index = &spyIndex{Index: index.New(backend, newBagEmbedder(), index.Options{Threshold: index.DefaultThreshold})}

	policy := DefaultPolicy()
	classifier := NewClassifier(h.llm, ClassifierConfig{Policy: policy}, nil)
	h.pipeline = NewPipeline(classifier, NewExtractor(h.llm, nil), h.store, h.index, h.reconcile, nil)
	return h
}

// seed stores rows directly and indexes them without touching the spy counters
func (h *harness) seed(t *testing.T, slots ...models.Slots) []models.ItemRow {
	t.Helper()
	ctx := context.Background()
	rows := make([]models.ItemRow, 0, len(slots))
	for _, s := range slots {
		row, err := h.store.CreateItem(ctx, s)
		if err != nil {
			t.Fatalf("CreateItem(%+v) error = %v", s, err)
		}
		rows = append(rows, *row)
	}
	if err := h.index.Index.Add(ctx, rows); err != nil {
		t.Fatalf("index Add() error = %v", err)
	}
	return rows
}
