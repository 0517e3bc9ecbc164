package driven

import "context"

// Reranker reorders candidate documents by relevance to a query.
type Reranker interface {
	// Rerank returns positions into req.Documents, most relevant first,
	// at most req.TopN of them.
	Rerank(ctx context.Context, req RerankRequest) ([]RerankHit, error)
}

// RerankRequest is the reranking service request.
type RerankRequest struct {
	// Query is the (rewritten) question.
	Query string

	// Documents are the candidate texts.
	Documents []string

	// TopN bounds the response length.
	TopN int
}

// RerankHit is one reranked entry.
type RerankHit struct {
	// Index is a position in RerankRequest.Documents, not a store id.
	Index int

	// Score is the provider's relevance score.
	Score float64
}
