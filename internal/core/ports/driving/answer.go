package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerService answers questions from the indexed documents.
type AnswerService interface {
	// Answer runs rewrite, retrieve, rerank, compress and generate.
	Answer(ctx context.Context, query string) (*domain.Answer, error)
}
