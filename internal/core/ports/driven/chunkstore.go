package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// StoredHit is a ChunkStore search hit joined to its stored record.
type StoredHit struct {
	// Chunk is the stored text and metadata.
	Chunk domain.Chunk

	// Similarity is the inner product with the query.
	Similarity float64
}
