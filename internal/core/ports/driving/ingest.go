package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestService adds documents to the index.
type IngestService interface {
	// Ingest parses, chunks, embeds and stores one document.
	// Returns domain.ErrDuplicateDocument or domain.ErrEmptyDocument
	// without touching the store.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error)

	// IngestDir ingests every supported file directly inside dir.
	// Already indexed files are reported as skipped.
	IngestDir(ctx context.Context, dir string) (*domain.DirReport, error)

	// Supports reports whether the file type can be ingested.
	Supports(path string) bool
}
