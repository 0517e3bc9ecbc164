// Package none provides a reranker that keeps retrieval order.
package none

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = Reranker{}

// Reranker returns the identity permutation truncated to TopN.
type Reranker struct{}

// Rerank implements driven.Reranker. Scores decrease with position.
func (Reranker) Rerank(ctx context.Context, req driven.RerankRequest) ([]driven.RerankHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(req.Documents)
	if req.TopN > 0 && req.TopN < n {
		n = req.TopN
	}
	hits := make([]driven.RerankHit, n)
	for i := range hits {
		hits[i] = driven.RerankHit{Index: i, Score: 1 / float64(i+1)}
	}
	return hits, nil
}
