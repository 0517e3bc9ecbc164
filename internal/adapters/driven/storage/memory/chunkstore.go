package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory driven.ChunkStore with exact search.
// Every query is scored against every stored vector, so it suits tests and
// small throwaway sessions rather than large corpora.
type ChunkStore struct {
	mu       sync.RWMutex
	dim      int
	now      func() time.Time
	vectors  [][]float32
	texts    []string
	metadata []domain.ChunkMetadata
	sources  map[string]int
}

// NewChunkStore creates an empty store for vectors of the given size.
func NewChunkStore(dimension int) (*ChunkStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("memory: dimension must be positive: %w", domain.ErrInvalidInput)
	}
	return &ChunkStore{
		dim:     dimension,
		now:     time.Now,
		sources: make(map[string]int),
	}, nil
}

// Exists reports whether any chunk has the given source.
func (s *ChunkStore) Exists(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[source]
	return ok
}

// Append adds a batch. It validates the whole batch before touching state.
func (s *ChunkStore) Append(ctx context.Context, embeddings [][]float32, metadatas []domain.ChunkMetadata, texts []string) (int, error) {
	if len(embeddings) != len(metadatas) || len(embeddings) != len(texts) {
		return 0, fmt.Errorf("memory: batch lengths differ (embeddings=%d metadata=%d texts=%d): %w",
			len(embeddings), len(metadatas), len(texts), domain.ErrInvalidInput)
	}
	if len(embeddings) == 0 {
		return 0, fmt.Errorf("memory: empty batch: %w", domain.ErrInvalidInput)
	}
	for i, e := range embeddings {
		if len(e) != s.dim {
			return 0, fmt.Errorf("memory: embedding %d has dimension %d, want %d: %w", i, len(e), s.dim, domain.ErrInvalidInput)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := len(s.texts)
	stamp := s.now()
	for i, m := range metadatas {
		m.SequenceID = first + i
		if m.IngestedAt.IsZero() {
			m.IngestedAt = stamp
		}
		m.Attributes = maps.Clone(m.Attributes)
		s.metadata = append(s.metadata, m)
		s.sources[m.Source]++

		v := make([]float32, len(embeddings[i]))
		copy(v, embeddings[i])
		s.vectors = append(s.vectors, v)
	}
	s.texts = append(s.texts, texts...)
	return first, nil
}

// Search scores every stored chunk and returns the k best.
func (s *ChunkStore) Search(ctx context.Context, query []float32, k int) ([]driven.StoredHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("memory: query has dimension %d, want %d: %w", len(query), s.dim, domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("memory: k must be positive: %w", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.texts) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	hits := make([]driven.StoredHit, len(s.vectors))
	for i, v := range s.vectors {
		meta := s.metadata[i]
		meta.Attributes = maps.Clone(meta.Attributes)
		hits[i] = driven.StoredHit{
			Chunk:      domain.Chunk{Text: s.texts[i], Metadata: meta},
			Similarity: float64(domain.Dot(query, v)),
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.texts)
}

// Dimension returns the embedding size.
func (s *ChunkStore) Dimension() int {
	return s.dim
}

// Stats returns a summary of the store. Generation is always 0.
func (s *ChunkStore) Stats() domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StoreStats{
		Chunks:    len(s.texts),
		Sources:   len(s.sources),
		Dimension: s.dim,
	}
}

// Flush is a no-op for the memory store.
func (s *ChunkStore) Flush(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the memory store.
func (s *ChunkStore) Close() error {
	return nil
}
