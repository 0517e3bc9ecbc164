package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Parser extracts page-level text from a source file.
// A page with no extractable text yields an empty PageText.Text; only a
// total failure returns an error.
type Parser interface {
	// Parse returns the document's pages in order.
	Parse(ctx context.Context, path string) ([]domain.PageText, error)

	// Extensions returns the file extensions handled, including the dot.
	Extensions() []string
}

// ParserRegistry selects a parser for a file.
type ParserRegistry interface {
	// For returns the parser for path, or domain.ErrUnsupportedType.
	For(path string) (Parser, error)

	// Supports reports whether any parser handles path.
	Supports(path string) bool
}
