package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Searcher implements the interface.
var _ driving.SearchService = (*Searcher)(nil)

// Searcher embeds a query and returns the nearest stored chunks.
type Searcher struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	guard    driven.StageGuard
}

// NewSearcher creates a searcher. guard may be nil.
func NewSearcher(store driven.ChunkStore, embedder driven.EmbeddingService, guard driven.StageGuard) *Searcher {
	return &Searcher{
		store:    store,
		embedder: embedder,
		guard:    guard,
	}
}

// Search returns up to k chunks nearest to query in index order.
// The index emptiness check runs before the query is embedded.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	logger.Section("Search")
	defer logger.Timed("search")()

	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if s.store.Len() == 0 {
		return nil, domain.ErrIndexEmpty
	}
	logger.Debug("Query: %q, k: %d", query, k)

	vec, err := guarded(ctx, s.guard, domain.StageEmbed, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	if len(vec) != s.store.Dimension() {
		return nil, domain.NewStageError(domain.StageEmbed,
			fmt.Errorf("query embedding has dimension %d, store expects %d", len(vec), s.store.Dimension()))
	}
	unit, err := domain.Normalize(vec)
	if err != nil {
		return nil, domain.NewStageError(domain.StageEmbed, fmt.Errorf("query embedding: %w", err))
	}

	hits, err := s.store.Search(ctx, unit, k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchResult, len(hits))
	for n, h := range hits {
		results[n] = domain.NewSearchResult(h.Chunk.Metadata, h.Chunk.Text, h.Similarity)
	}
	logger.Debug("Found %d results", len(results))
	return results, nil
}

// Stats summarises the indexed content.
func (s *Searcher) Stats() domain.StoreStats {
	return s.store.Stats()
}
