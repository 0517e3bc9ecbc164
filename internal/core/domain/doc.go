// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk, ChunkMetadata: the indexed unit and its persisted record
//   - PageText: parser output for one page
//   - SearchResult: a scored retrieval hit with a private metadata copy
//   - Content: the text-or-fragments union normalized at the boundary
//   - Answer: the output of the question answering pipeline
//   - AppSettings: provider, retrieval and store configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
