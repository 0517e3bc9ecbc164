// Package plaintext parses plain text files as a single page.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Parser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{
		".txt",
		".text",
		".log",
		".csv",
		".json",
		".yaml",
		".yml",
		".toml",
		".xml",
		".go",
		".py",
		".rs",
		".java",
		".c",
		".h",
		".sh",
		".sql",
	}
}

// Parse reads the whole file as page 1. Invalid UTF-8 sequences are
// replaced so downstream chunking always sees valid text.
func (n *Normaliser) Parse(ctx context.Context, path string) ([]domain.PageText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plaintext: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "�")
	return []domain.PageText{{Number: 1, Text: strings.TrimSpace(text)}}, nil
}
