package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestJournal keeps an append-only history of ingest attempts.
type IngestJournal interface {
	// Record appends one entry and returns it with its ID assigned.
	Record(ctx context.Context, rec domain.IngestRecord) (domain.IngestRecord, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.IngestRecord, error)

	// Close releases the underlying database.
	Close() error
}
