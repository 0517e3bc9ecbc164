// Package embedcache wraps an embedding service with an LRU cache keyed
// by input text. Repeated questions skip the provider round trip.
package embedcache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultSize is the number of cached vectors.
const DefaultSize = 1024

// Service is a caching driven.EmbeddingService.
type Service struct {
	driven.EmbeddingService
	cache  *lru.Cache[string, []float32]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New wraps inner with a cache of size entries (DefaultSize if <= 0).
func New(inner driven.EmbeddingService, size int) (*Service, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedcache: %w", err)
	}
	return &Service{EmbeddingService: inner, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and caches it.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.cache.Get(text); ok {
		s.hits.Add(1)
		return clone(v), nil
	}
	s.misses.Add(1)

	v, err := s.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, clone(v))
	return v, nil
}

// EmbedBatch serves cached texts and embeds the rest in one inner call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, t := range texts {
		if v, ok := s.cache.Get(t); ok {
			s.hits.Add(1)
			out[i] = clone(v)
			continue
		}
		s.misses.Add(1)
		missing = append(missing, t)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := s.EmbeddingService.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedcache: got %d embeddings for %d inputs", len(vectors), len(missing))
	}
	for j, v := range vectors {
		out[missingAt[j]] = v
		s.cache.Add(missing[j], clone(v))
	}
	return out, nil
}

// Hits returns the number of cache hits.
func (s *Service) Hits() uint64 {
	return s.hits.Load()
}

// Misses returns the number of cache misses.
func (s *Service) Misses() uint64 {
	return s.misses.Load()
}

// Len returns the number of cached vectors.
func (s *Service) Len() int {
	return s.cache.Len()
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
