package snapshot

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("snapshot: store is closed")

// DefaultKeepGenerations is how many generations survive pruning.
const DefaultKeepGenerations = 2

// Option configures a Store.
type Option func(*Store)

// WithIndexConfig sets the HNSW parameters used for a fresh index.
func WithIndexConfig(cfg hnsw.Config) Option {
	return func(s *Store) {
		s.indexCfg = cfg
	}
}

// WithKeepGenerations sets how many generations are kept on disk.
// Values below 1 are treated as 1.
func WithKeepGenerations(n int) Option {
	return func(s *Store) {
		s.keep = max(n, 1)
	}
}

// WithClock overrides the time source used to stamp IngestedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a ChunkStore persisted as generation directories.
type Store struct {
	mu       sync.RWMutex
	dir      string
	dim      int
	keep     int
	indexCfg hnsw.Config
	now      func() time.Time

	index    driven.VectorIndex
	texts    []string
	metadata []domain.ChunkMetadata
	sources  map[string]int // source -> chunk count

	generation uint64 // live generation on disk, 0 if none
	nextGen    uint64
	persisted  int // chunk count of the live generation
	closed     bool

	// beforeCommit runs after artifacts are written and before CURRENT
	// is switched. Tests use it to inject persist failures.
	beforeCommit func() error
}

// Open loads the store from dir, or starts an empty one when dir holds no
// generation yet. Any unreadable, misaligned or wrong-dimension state is
// reported as domain.ErrCorruptState rather than silently discarded.
func Open(dir string, dimension int, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot: data directory is required: %w", domain.ErrInvalidInput)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("snapshot: dimension must be positive: %w", domain.ErrInvalidInput)
	}

	s := &Store{
		dir:     dir,
		dim:     dimension,
		keep:    DefaultKeepGenerations,
		now:     time.Now,
		sources: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("snapshot: creating data directory: %w", err)
	}

	index, err := hnsw.New(dimension, s.indexCfg)
	if err != nil {
		return nil, err
	}
	s.index = index

	current, ok, err := readCurrent(dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := removeUncommittedFirst(dir); err != nil {
			return nil, err
		}
		logger.Debug("snapshot: no generation in %s, starting empty (dim=%d)", dir, dimension)
		return s, nil
	}

	if err := removeStale(dir, current); err != nil {
		return nil, err
	}
	if err := s.load(current); err != nil {
		return nil, err
	}
	s.generation = current
	s.nextGen = current
	s.persisted = len(s.texts)
	logger.Debug("snapshot: loaded generation %d with %d chunks from %d sources", current, len(s.texts), len(s.sources))
	return s, nil
}

// Exists reports whether any chunk has the given source.
func (s *Store) Exists(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[source]
	return ok
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.texts)
}

// Dimension returns the embedding size.
func (s *Store) Dimension() int {
	return s.dim
}

// Stats returns a summary of the store.
func (s *Store) Stats() domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StoreStats{
		Chunks:     len(s.texts),
		Sources:    len(s.sources),
		Dimension:  s.dim,
		Generation: s.generation,
	}
}

// Append adds a batch and persists it as a new generation. On any error
// the in-memory state is left exactly as it was before the call.
func (s *Store) Append(ctx context.Context, embeddings [][]float32, metadatas []domain.ChunkMetadata, texts []string) (int, error) {
	if len(embeddings) != len(metadatas) || len(embeddings) != len(texts) {
		return 0, fmt.Errorf("snapshot: batch lengths differ (embeddings=%d metadata=%d texts=%d): %w",
			len(embeddings), len(metadatas), len(texts), domain.ErrInvalidInput)
	}
	if len(embeddings) == 0 {
		return 0, fmt.Errorf("snapshot: empty batch: %w", domain.ErrInvalidInput)
	}
	for i, e := range embeddings {
		if len(e) != s.dim {
			return 0, fmt.Errorf("snapshot: embedding %d has dimension %d, want %d: %w", i, len(e), s.dim, domain.ErrInvalidInput)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	first := len(s.texts)
	stamp := s.now()
	records := make([]domain.ChunkMetadata, len(metadatas))
	for i, m := range metadatas {
		m.SequenceID = first + i
		if m.IngestedAt.IsZero() {
			m.IngestedAt = stamp
		}
		m.Attributes = maps.Clone(m.Attributes)
		records[i] = m
	}

	if err := s.index.Add(embeddings); err != nil {
		return 0, fmt.Errorf("snapshot: indexing batch: %w", err)
	}
	s.texts = append(s.texts, texts...)
	s.metadata = append(s.metadata, records...)
	for _, m := range records {
		s.sources[m.Source]++
	}

	if err := s.persist(); err != nil {
		s.rollback(first, records)
		return 0, fmt.Errorf("snapshot: persisting batch: %w", err)
	}
	return first, nil
}

// rollback restores the state to n chunks after a failed persist.
func (s *Store) rollback(n int, records []domain.ChunkMetadata) {
	if err := s.index.Truncate(n); err != nil {
		logger.Error("snapshot: rolling back index: %v", err)
	}
	s.texts = s.texts[:n]
	s.metadata = s.metadata[:n]
	for _, m := range records {
		s.sources[m.Source]--
		if s.sources[m.Source] <= 0 {
			delete(s.sources, m.Source)
		}
	}
	logger.Warn("snapshot: rolled back to %d chunks", n)
}

// Search returns up to k chunks nearest to the normalized query.
// Positions reported by the index are joined only when they address a
// stored chunk.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]driven.StoredHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.texts) == 0 {
		return nil, domain.ErrIndexEmpty
	}

	hits, err := s.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("snapshot: searching index: %w", err)
	}

	out := make([]driven.StoredHit, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(s.texts) {
			continue
		}
		meta := s.metadata[h.Position]
		meta.Attributes = maps.Clone(meta.Attributes)
		out = append(out, driven.StoredHit{
			Chunk:      domain.Chunk{Text: s.texts[h.Position], Metadata: meta},
			Similarity: h.Similarity,
		})
	}
	return out, nil
}

// Flush persists any state not yet on disk.
func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.persisted == len(s.texts) {
		return nil
	}
	if err := s.persist(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	return nil
}

// Close flushes and marks the store closed. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true
	return err
}
