// ABOUTME: Tests for the OpenAI-compatible client against a local HTTP server
// ABOUTME: Covers completion history, embeddings and retry on transient errors
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/agenda/internal/models"
)

func testConfig(url string) *ClientConfig {
	cfg := DefaultConfig("test-key")
	cfg.BaseURL = url + "/v1"
	cfg.MaxRetries = 2
	cfg.RetryDelay = time.Millisecond
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestComplete(t *testing.T) {
	var gotMessages []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		var body struct {
			Model    string           `json:"model"`
			Messages []map[string]any `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotMessages = body.Messages
		assert.Equal(t, "intent-model", body.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"intent-model",
			"choices":[{"index":0,"message":{"role":"assistant","content":"schedule"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	history := []models.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	got, err := client.WithChatModel("intent-model").Complete(context.Background(), "classify", "book dentist", history)
	require.NoError(t, err)
	assert.Equal(t, "schedule", got)

	require.Len(t, gotMessages, 4)
	assert.Equal(t, "system", gotMessages[0]["role"])
	assert.Equal(t, "hello", gotMessages[2]["content"])
	assert.Equal(t, "book dentist", gotMessages[3]["content"])
}

func TestComplete_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "sys", "text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_RecoversAfterTransientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"try again"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,-0.25,1]}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(testConfig(srv.URL), nil)
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "dentist")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25, 1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewOpenAIClient_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAIClient(&ClientConfig{}, nil)
	assert.Error(t, err)

	_, err = NewOpenAIClient(&ClientConfig{BaseURL: "http://localhost:11434/v1"}, nil)
	assert.NoError(t, err)
}

func TestComplete_HonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RetryDelay = time.Hour
	client, err := NewOpenAIClient(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, "sys", "text", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
