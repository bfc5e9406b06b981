package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"studyrag-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProviderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "search_query: hello", req.Prompt)
		_, _ = w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	assert.Equal(t, "nomic-embed-text", p.Model())

	vec, err := QueryEmbedder{Provider: p}.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestOllamaProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := EmbedDocument(context.Background(), NewOllamaProvider(srv.URL, "missing"), "x")
	assert.ErrorContains(t, err, "status 404")
}

func TestGeminiProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:embedContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, TaskDocument, req.TaskType)
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.5,0.25]}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", "")
	p.BaseURL = srv.URL
	vec, err := EmbedDocument(context.Background(), p, "doc")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestNormalizeZeroVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, normalizeVector([]float32{0, 0}))
}

type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	ttls    []time.Duration
}

func (m *memKV) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (m *memKV) Set(ctx context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.([]byte)
	m.ttls = append(m.ttls, exp)
	return redis.NewStatusResult("OK", nil)
}

type countingProvider struct {
	calls int
	vec   []float32
}

func (c *countingProvider) Model() string { return "m" }

func (c *countingProvider) Generate(ctx context.Context, text, task string) (*EmbeddingResponse, error) {
	c.calls++
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: c.vec}}, nil
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{vec: []float32{0.1, -2.5, float32(math.Pi)}}
	kv := &memKV{data: map[string][]byte{}}
	p := NewCachedProvider(inner, kv, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	first, err := p.Generate(ctx, "text", TaskQuery)
	require.NoError(t, err)
	second, err := p.Generate(ctx, "text", TaskQuery)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first.Embedding.Values, second.Embedding.Values)
	assert.Equal(t, []time.Duration{time.Hour}, kv.ttls)

	_, err = p.Generate(ctx, "text", TaskDocument)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "task type is part of the key")
}

func TestCachedProviderReadFailureFallsThrough(t *testing.T) {
	inner := &countingProvider{vec: []float32{1}}
	p := NewCachedProvider(inner, &memKV{data: map[string][]byte{}, failGet: true}, time.Minute, logger.NewNopLogger())

	res, err := p.Generate(context.Background(), "x", TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, res.Embedding.Values)
	assert.Equal(t, 1, inner.calls)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "t", "x"), CacheKey("m", "t", "x"))
	assert.NotEqual(t, CacheKey("m", "t", "x"), CacheKey("n", "t", "x"))
	assert.Len(t, CacheKey("m", "t", "x"), len("emb:")+64)
}
