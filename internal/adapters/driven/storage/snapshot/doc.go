// Package snapshot provides a file-based implementation of driven.ChunkStore.
//
// The store keeps three aligned arrays in memory: chunk text, chunk
// metadata and an HNSW vector index. Position i in each array belongs to
// the chunk whose SequenceID is i.
//
// # Data Location
//
// Every successful append writes a new generation directory:
//
//	<data_dir>/
//	  CURRENT              names the live generation, e.g. "gen-7"
//	  gen-7/index.hnsw     binary HNSW snapshot
//	  gen-7/metadata.msgpack
//	  gen-7/content.msgpack
//
// Files are fsynced before CURRENT is replaced by rename, so a crash
// leaves either the old or the new generation live, never a mix. Older
// generations are pruned after the switch.
//
// # Thread Safety
//
// Appends and their persistence run under a write lock. Searches share a
// read lock and never observe a half-applied batch.
package snapshot
