// Package hnsw provides a pure Go Hierarchical Navigable Small World index.
// It implements the driven.VectorIndex interface.
//
// Vectors are addressed by insertion position and compared by inner
// product, so callers normalize them first to get cosine similarity.
// The index serialises to a compact little-endian binary snapshot.
package hnsw
