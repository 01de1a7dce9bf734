package models

import (
	"context"
	"time"

	"github.com/Protocol-Lattice/research-agent/pkg/cache"
)

// CachedLLM memoises Generate results keyed by model and prompt. Streams
// are never cached.
type CachedLLM struct {
	inner Agent
	name  string
	lru   *cache.LRU[string]
}

func NewCachedLLM(inner Agent, name string, capacity int, ttl time.Duration) *CachedLLM {
	return &CachedLLM{inner: inner, name: name, lru: cache.NewLRU[string](capacity, ttl)}
}

func (c *CachedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	key := cache.HashKey(c.name, prompt)
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	out, err := c.inner.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.lru.Set(key, out)
	return out, nil
}

func (c *CachedLLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	return c.inner.GenerateStream(ctx, req)
}

// Stats exposes the underlying cache counters.
func (c *CachedLLM) Stats() cache.Stats { return c.lru.Stats() }

func (c *CachedLLM) Close() error { return Close(c.inner) }
