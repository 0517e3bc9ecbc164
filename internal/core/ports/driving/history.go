package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// HistoryService exposes the ingest journal.
type HistoryService interface {
	// History returns up to limit ingest attempts, newest first.
	// A non-positive limit means DefaultHistoryLimit.
	History(ctx context.Context, limit int) ([]domain.IngestRecord, error)
}

// DefaultHistoryLimit is used when a caller does not bound History.
const DefaultHistoryLimit = 20
