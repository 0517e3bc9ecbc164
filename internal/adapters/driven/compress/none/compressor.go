// Package none provides a passthrough compressor.
package none

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Compressor implements the interface.
var _ driven.Compressor = Compressor{}

// Compressor returns every document unchanged.
type Compressor struct{}

// Compress implements driven.Compressor.
func (Compressor) Compress(ctx context.Context, req driven.CompressRequest) ([]driven.CompressedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]driven.CompressedDocument, len(req.Documents))
	for i, d := range req.Documents {
		out[i] = driven.CompressedDocument{Text: d.Text}
	}
	return out, nil
}
