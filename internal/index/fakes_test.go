// ABOUTME: Test doubles for the index package
// ABOUTME: Vocabulary embedder, in-memory charm KV and a failing embedder
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

const vocabDims = 64

// vocabEmbedder gives every distinct word its own dimension
type vocabEmbedder struct {
	mu    sync.Mutex
	vocab map[string]int
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: make(map[string]int)}
}

func (e *vocabEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec := make([]float64, vocabDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		idx, ok := e.vocab[w]
		if !ok {
			if len(e.vocab) >= vocabDims {
				return nil, fmt.Errorf("vocabulary full")
			}
			idx = len(e.vocab)
			e.vocab[w] = idx
		}
		vec[idx]++
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("embedding service down")
}

// memKV is an in-memory stand-in for the charm client
type memKV struct {
	data  map[string][]byte
	syncs int
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) SetJSON(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memKV) GetJSON(key string, dest any) error {
	b, ok := m.data[key]
	if !ok {
		return fmt.Errorf("key not found: %s", key)
	}
	return json.Unmarshal(b, dest)
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) ListKeys(prefix string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memKV) Sync() error {
	m.syncs++
	return nil
}
