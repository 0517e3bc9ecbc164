// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ChunkStore: Aligned chunk text, metadata and vectors with atomic persistence
//   - VectorIndex: Approximate nearest neighbour search over normalized vectors
//   - Parser: Extracts page-level text from a source file
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the answer pipeline degrades to what is available:
//
//   - LLMService: Rewriting, LLM compression and answer generation.
//   - Reranker: Without it, retrieval order is kept.
//   - Compressor: Without it, chunks are used in full.
//   - PromptStore: Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or parser package
package driven
