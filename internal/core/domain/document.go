package domain

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// PageText is the extracted text of one document page.
// An empty Text means the page had nothing extractable.
type PageText struct {
	// Number is the 1-based page number.
	Number int

	// Text is the page content.
	Text string
}

// Chunk represents a searchable unit within a document.
// Chunks are immutable once created.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Metadata describes where the chunk came from.
	Metadata ChunkMetadata
}

// ChunkMetadata is the persisted record for one chunk.
// SequenceID equals the chunk's position in the content array, the
// metadata array and the vector index.
type ChunkMetadata struct {
	// Source is the origin document id. Duplicate detection keys on it.
	Source string `msgpack:"source"`

	// Title is a display name derived from the document.
	Title string `msgpack:"title,omitempty"`

	// PageNumber is the 1-based page the chunk was cut from.
	PageNumber int `msgpack:"page_number"`

	// SequenceID is the chunk's position in the store.
	SequenceID int `msgpack:"sequence_id"`

	// BatchID groups all chunks written by one ingest.
	BatchID string `msgpack:"batch_id,omitempty"`

	// IngestedAt is when the batch was appended.
	IngestedAt time.Time `msgpack:"ingested_at"`

	// Attributes holds free-form parser or caller supplied values.
	Attributes map[string]string `msgpack:"attributes,omitempty"`
}

// Metadata keys exposed on search results.
const (
	MetaContent    = "content"
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaPageNumber = "page_number"
	MetaSequenceID = "sequence_id"
	MetaBatchID    = "batch_id"
	MetaIngestedAt = "ingested_at"
)

// ToMap returns a fresh map view of the metadata.
// Attributes are copied under their own keys without overriding the
// well-known fields.
func (m ChunkMetadata) ToMap() map[string]any {
	out := make(map[string]any, 6+len(m.Attributes))
	for k, v := range m.Attributes {
		out[k] = v
	}
	out[MetaSource] = m.Source
	out[MetaPageNumber] = m.PageNumber
	out[MetaSequenceID] = m.SequenceID
	if m.Title != "" {
		out[MetaTitle] = m.Title
	}
	if m.BatchID != "" {
		out[MetaBatchID] = m.BatchID
	}
	if !m.IngestedAt.IsZero() {
		out[MetaIngestedAt] = m.IngestedAt
	}
	return out
}

// StoreStats summarises the contents of a chunk store.
type StoreStats struct {
	// Chunks is the number of stored chunks.
	Chunks int `json:"chunks"`

	// Sources is the number of distinct documents.
	Sources int `json:"sources"`

	// Dimension is the embedding size.
	Dimension int `json:"dimension"`

	// Generation is the current on-disk snapshot number (0 if never persisted).
	Generation uint64 `json:"generation"`
}

// maxTitleLength bounds a title taken from document text.
const maxTitleLength = 200

// DeriveTitle picks a display title for a document: the first non-empty
// line of the first page if it is short enough, else the base of name with
// its extension dropped and separators turned into spaces. name is the
// document's source id, which for uploads is the client's file name.
func DeriveTitle(pages []PageText, name string) string {
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.IndexFunc(line, unicode.IsControl) >= 0 {
				continue
			}
			if utf8.RuneCountInString(line) <= maxTitleLength {
				return line
			}
		}
		break
	}

	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
