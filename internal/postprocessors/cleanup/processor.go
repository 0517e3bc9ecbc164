// Package cleanup provides a processor that tidies chunk whitespace.
package cleanup

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor collapses runs of whitespace to single spaces and drops
// chunks left empty. Extracted PDF text is full of layout padding that
// would otherwise waste embedding and prompt budget.
type Processor struct{}

// New creates a cleanup processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "cleanup"
}

// Process rewrites each chunk's text in place and filters out blanks.
func (p *Processor) Process(_ context.Context, _ []domain.PageText, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := chunks[:0]
	for _, c := range chunks {
		c.Text = strings.Join(strings.Fields(c.Text), " ")
		if c.Text == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
