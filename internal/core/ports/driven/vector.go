package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorIndex is an append-only approximate nearest neighbour index.
// Vectors are addressed by insertion position; there is no deletion.
// Similarity is the inner product, so vectors must be normalized by the
// caller for it to equal cosine similarity.
//
// Implementations are not required to be safe for concurrent writers;
// the owning ChunkStore serialises Add against Search.
type VectorIndex interface {
	// Add appends vectors. The first one receives position Len().
	Add(vectors [][]float32) error

	// Search returns up to k hits in descending similarity.
	Search(query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the vector size.
	Dimension() int

	// Truncate drops every vector at position >= n.
	// It is used to roll back a batch whose persist failed.
	Truncate(n int) error

	// WriteTo serialises the index.
	WriteTo(w io.Writer) (int64, error)

	// ReadFrom replaces the index contents with a serialised snapshot.
	ReadFrom(r io.Reader) (int64, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Position is the vector's insertion index. Negative means no match.
	Position int

	// Similarity is the inner product with the query.
	Similarity float64
}

// ChunkStore owns the aligned content array, metadata array and vector
// index, and persists all three together.
//
// Len of the three parts is always equal. Append is serialised with
// persistence; searches may run concurrently with each other.
type ChunkStore interface {
	// Exists reports whether any chunk has the given source.
	Exists(source string) bool

	// Append adds a batch and persists it before returning.
	// The three slices must have equal length. On error nothing is
	// appended. Sequence ids are assigned by position; any SequenceID set
	// in metadatas is overwritten. Returns the first new position.
	Append(ctx context.Context, embeddings [][]float32, metadatas []domain.ChunkMetadata, texts []string) (int, error)

	// Search returns up to k chunks nearest to the normalized query.
	Search(ctx context.Context, query []float32, k int) ([]StoredHit, error)

	// Len returns the number of stored chunks.
	Len() int

	// Dimension returns the embedding size.
	Dimension() int

	// Stats returns a summary of the store.
	Stats() domain.StoreStats

	// Flush persists the current state.
	Flush(ctx context.Context) error

	// Close flushes and releases resources.
	Close() error
}
