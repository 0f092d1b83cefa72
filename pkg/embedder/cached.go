package embedder

import (
	"context"

	"github.com/dgraph-io/ristretto"
)

// Cached wraps a Provider with an in-memory embedding cache keyed by text.
// Repeated ingestion and retrieval of identical strings skip the provider
// round trip.
type Cached struct {
	provider Provider
	cache    *ristretto.Cache
}

// NewCached wraps provider with a cache holding up to maxEntries vectors.
// A non-positive maxEntries defaults to 10000.
func NewCached(provider Provider, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{provider: provider, cache: cache}, nil
}

// Embed returns the cached vector for text, or embeds and caches it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float64); ok {
			return vec, nil
		}
	}
	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, vec, 1)
	return vec, nil
}

// EmbedBatch embeds only the cache misses and assembles results in input
// order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			if vec, ok := v.([]float64); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.provider.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		c.cache.Set(missing[j], vec, 1)
	}
	return out, nil
}

// Dimensions returns the wrapped provider's vector dimension.
func (c *Cached) Dimensions() int {
	return c.provider.Dimensions()
}

// Model returns the wrapped provider's model name.
func (c *Cached) Model() string {
	return c.provider.Model()
}

// Close closes the cache and the wrapped provider.
func (c *Cached) Close() error {
	c.cache.Close()
	return c.provider.Close()
}
