// Package embeddings provides a compressor that drops documents whose
// embedding similarity to the query falls below a threshold.
package embeddings

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Compressor implements the interface.
var _ driven.Compressor = (*Compressor)(nil)

// DefaultThreshold is the minimum cosine similarity kept.
const DefaultThreshold = 0.3

// Compressor filters documents by query similarity.
type Compressor struct {
	embedder  driven.EmbeddingService
	threshold float64
}

// New creates an embedding filter. A threshold of 0 or less uses
// DefaultThreshold.
func New(embedder driven.EmbeddingService, threshold float64) *Compressor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Compressor{embedder: embedder, threshold: threshold}
}

// Compress embeds the query and every document in one batch and keeps
// documents at or above the threshold, unchanged and in input order.
func (c *Compressor) Compress(ctx context.Context, req driven.CompressRequest) ([]driven.CompressedDocument, error) {
	if len(req.Documents) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(req.Documents)+1)
	texts = append(texts, req.Query)
	for _, d := range req.Documents {
		texts = append(texts, d.Text)
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d texts", len(vectors), len(texts))
	}

	query := vectors[0]
	var out []driven.CompressedDocument
	for i, d := range req.Documents {
		v := vectors[i+1]
		if len(v) != len(query) {
			return nil, fmt.Errorf("embed documents: dimension mismatch at %d", i)
		}
		if domain.Cosine(query, v) >= c.threshold {
			out = append(out, driven.CompressedDocument{Text: d.Text})
		}
	}
	return out, nil
}
