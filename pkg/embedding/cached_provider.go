package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"time"

	"studyrag-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const cacheModule = "embedding.cache"

// RedisKV is the slice of the redis client the cache needs.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedProvider memoizes embeddings in Redis. Cache errors never fail a
// request; the inner provider is called instead.
type CachedProvider struct {
	inner  EmbeddingProvider
	kv     RedisKV
	ttl    time.Duration
	logger logger.ILogger
}

func NewCachedProvider(inner EmbeddingProvider, kv RedisKV, ttl time.Duration, log logger.ILogger) *CachedProvider {
	return &CachedProvider{inner: inner, kv: kv, ttl: ttl, logger: log}
}

func (c *CachedProvider) Model() string { return c.inner.Model() }

// CacheKey is stable for a model, task and text.
func CacheKey(model, taskType, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + taskType + "|" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	key := CacheKey(c.inner.Model(), taskType, text)

	raw, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if values, ok := decodeVector(raw); ok {
			return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: values}}, nil
		}
		c.logger.Warn(cacheModule, "Corrupt cached embedding, recomputing", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn(cacheModule, "Embedding cache read failed", map[string]interface{}{"error": err.Error()})
	}

	res, err := c.inner.Generate(ctx, text, taskType)
	if err != nil {
		return nil, err
	}

	if err := c.kv.Set(ctx, key, encodeVector(res.Embedding.Values), c.ttl).Err(); err != nil {
		c.logger.Warn(cacheModule, "Embedding cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return res, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, true
}
