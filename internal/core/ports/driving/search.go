package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides vector search to external actors.
type SearchService interface {
	// Search returns up to k chunks nearest to the query, most similar
	// first. Returns domain.ErrIndexEmpty when nothing is indexed.
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)

	// Stats summarises the indexed content.
	Stats() domain.StoreStats
}
