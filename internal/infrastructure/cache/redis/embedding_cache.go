package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evidentia/docsqa/internal/core/ports"
)

// CachedEmbedder decorates an Embedder with a Redis cache keyed by the
// SHA-256 of the text. Cache failures are never fatal: a miss or a broken
// connection falls through to the inner embedder.
type CachedEmbedder struct {
	inner  ports.Embedder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedEmbedder(inner ports.Embedder, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{inner: inner, client: client, ttl: ttl, logger: logger}
}

func Open(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if vector, ok := c.get(ctx, text); ok {
			out[i] = vector
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	missingTexts := make([]string, 0, len(missing))
	for _, i := range missing {
		missingTexts = append(missingTexts, texts[i])
	}
	vectors, err := c.inner.Embed(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	for j, i := range missing {
		out[i] = vectors[j]
		c.set(ctx, texts[i], vectors[j])
	}
	return out, nil
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.get(ctx, text); ok {
		return vector, nil
	}
	vector, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(ctx, text, vector)
	return vector, nil
}

func (c *CachedEmbedder) get(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("embedding cache read failed", "error", err)
		}
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		c.logger.Warn("embedding cache entry corrupt", "error", err)
		return nil, false
	}
	return vector, true
}

func (c *CachedEmbedder) set(ctx context.Context, text string, vector []float32) {
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(text), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "docsqa:embed:" + hex.EncodeToString(sum[:])
}
