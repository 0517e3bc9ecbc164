package normalisers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry selects a parser by lower-cased file extension.
// Later registrations win for a shared extension.
type Registry struct {
	byExt map[string]driven.Parser
}

// NewRegistry creates a registry holding the given parsers.
func NewRegistry(parsers ...driven.Parser) *Registry {
	r := &Registry{byExt: make(map[string]driven.Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// NewDefaultRegistry registers the built-in parsers: PDF, Markdown and
// plain text.
func NewDefaultRegistry() *Registry {
	return NewRegistry(plaintext.New(), markdown.New(), pdf.New())
}

// Register adds p for each of its extensions.
func (r *Registry) Register(p driven.Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// For returns the parser for path.
func (r *Registry) For(path string) (driven.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExt[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("no parser for extension %s: %w", ext, domain.ErrUnsupportedType)
	}
	return p, nil
}

// Supports reports whether any parser handles path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
