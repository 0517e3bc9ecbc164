package domain

import (
	"fmt"
	"time"
)

// MaxK is the largest result count the outer shells accept.
const MaxK = 20

// CheckK reports whether k is a result count the shells accept.
func CheckK(k int) error {
	if k < 1 || k > MaxK {
		return fmt.Errorf("%w: k must be between 1 and %d, got %d", ErrInvalidInput, MaxK, k)
	}
	return nil
}

// SearchResult represents a single search hit.
// Metadata is a private copy per result and carries the chunk text
// under the "content" key.
type SearchResult struct {
	// Metadata is the chunk metadata plus the injected content.
	Metadata map[string]any `json:"metadata"`

	// Similarity is the inner product with the query (cosine on
	// normalized vectors). Higher is more similar.
	Similarity float64 `json:"similarity"`
}

// NewSearchResult builds a result from stored metadata and text.
func NewSearchResult(meta ChunkMetadata, text string, similarity float64) SearchResult {
	m := meta.ToMap()
	m[MetaContent] = text
	return SearchResult{Metadata: m, Similarity: similarity}
}

// Content returns the result's text, normalizing whatever shape the
// content field holds.
func (r SearchResult) Content() string {
	return ContentFromAny(r.Metadata[MetaContent]).String()
}

// Source returns the origin document id.
func (r SearchResult) Source() string {
	s, _ := r.Metadata[MetaSource].(string)
	return s
}

// Title returns the document title, or "" if none was recorded.
func (r SearchResult) Title() string {
	s, _ := r.Metadata[MetaTitle].(string)
	return s
}

// PageNumber returns the 1-based page number, or 0 if unknown.
func (r SearchResult) PageNumber() int {
	return intValue(r.Metadata[MetaPageNumber])
}

// SequenceID returns the chunk's store position, or -1 if unknown.
func (r SearchResult) SequenceID() int {
	if _, ok := r.Metadata[MetaSequenceID]; !ok {
		return -1
	}
	return intValue(r.Metadata[MetaSequenceID])
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// IngestRequest describes one document to ingest.
type IngestRequest struct {
	// Path is the file to parse.
	Path string

	// Source is the document id. Defaults to the file's base name.
	Source string

	// Attributes are copied onto every chunk's metadata.
	Attributes map[string]string
}

// IngestReport summarises a successful ingest.
type IngestReport struct {
	Source        string        `json:"source"`
	Title         string        `json:"title"`
	BatchID       string        `json:"batch_id"`
	Pages         int           `json:"pages"`
	Chunks        int           `json:"chunks"`
	FirstSequence int           `json:"first_sequence"`
	Duration      time.Duration `json:"duration"`
}

// DirReport summarises a directory ingest.
type DirReport struct {
	Ingested []IngestReport   `json:"ingested"`
	Skipped  []string         `json:"skipped,omitempty"`
	Failed   map[string]error `json:"-"`
}

// Answer is the result of the end-to-end question answering pipeline.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Query is the question as asked.
	Query string `json:"query"`

	// RewrittenQuery is the query after the rewrite stage.
	RewrittenQuery string `json:"rewritten_query"`

	// Sources are the reranked results the context was built from.
	Sources []SearchResult `json:"sources"`

	// Context is the compressed context handed to generation.
	Context string `json:"context"`

	// Grounded is false when no context was found and Text is the
	// canned no-context reply.
	Grounded bool `json:"grounded"`
}

// NoContextAnswer is returned when retrieval finds nothing to ground an
// answer on.
const NoContextAnswer = "I could not find any relevant context in the indexed documents to answer this question."
