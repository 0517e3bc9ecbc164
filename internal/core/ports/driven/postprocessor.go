package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PostProcessor turns parsed pages into chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, cleanup).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes the document's pages and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	// If the processor refines chunks (e.g., cleanup), it receives and returns chunks.
	// Returned chunks carry Text and Metadata.PageNumber; the ingestor fills the rest.
	Process(ctx context.Context, pages []domain.PageText, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the pages through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, pages []domain.PageText) ([]domain.Chunk, error)
}
