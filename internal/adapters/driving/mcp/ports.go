package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides retrieval and index statistics.
	Search driving.SearchService

	// Answer runs the full question answering chain.
	Answer driving.AnswerService

	// Ingest adds local documents to the index.
	Ingest driving.IngestService

	// History lists recent ingest attempts.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Answer, Ingest and History are optional; their tools and resources
	// are not registered without them.
	return nil
}
