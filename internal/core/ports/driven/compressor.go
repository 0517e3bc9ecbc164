package driven

import "context"

// Compressor drops low-relevance text from retrieved documents.
type Compressor interface {
	// Compress returns the retained texts in input order.
	// Documents may be dropped entirely or shortened.
	Compress(ctx context.Context, req CompressRequest) ([]CompressedDocument, error)
}

// CompressRequest is the compression service request.
type CompressRequest struct {
	// Documents are the candidates in ranked order.
	Documents []CompressDocument

	// Query is the (rewritten) question.
	Query string
}

// CompressDocument is one candidate for compression.
type CompressDocument struct {
	// Text is the normalized chunk content.
	Text string

	// Metadata is the result's metadata copy.
	Metadata map[string]any
}

// CompressedDocument is a retained text.
type CompressedDocument struct {
	Text string
}
