package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func testBatch(source string, vectors ...[]float32) ([][]float32, []domain.ChunkMetadata, []string) {
	metas := make([]domain.ChunkMetadata, len(vectors))
	texts := make([]string, len(vectors))
	for i := range vectors {
		metas[i] = domain.ChunkMetadata{
			Source:     source,
			PageNumber: i + 1,
			SequenceID: 99,
			Attributes: map[string]string{"lang": "en"},
		}
		texts[i] = source + " chunk"
	}
	return vectors, metas, texts
}

func TestNewChunkStore_InvalidDimension(t *testing.T) {
	_, err := NewChunkStore(0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkStore_AppendAssignsPositions(t *testing.T) {
	ctx := context.Background()
	s, err := NewChunkStore(2)
	require.NoError(t, err)
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	bv, bm, bt := testBatch("a.pdf", []float32{1, 0}, []float32{0, 1})
	first, err := s.Append(ctx, bv, bm, bt)
	require.NoError(t, err)
	assert.Equal(t, 0, first)

	bv, bm, bt = testBatch("b.pdf", []float32{1, 0})
	first, err = s.Append(ctx, bv, bm, bt)
	require.NoError(t, err)
	assert.Equal(t, 2, first)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Exists("a.pdf"))
	assert.False(t, s.Exists("c.pdf"))
	assert.Equal(t, domain.StoreStats{Chunks: 3, Sources: 2, Dimension: 2}, s.Stats())

	hits, err := s.Search(ctx, []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Chunk.Metadata.SequenceID)
	assert.Equal(t, fixed, hits[0].Chunk.Metadata.IngestedAt)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestChunkStore_AppendRejectsBadBatch(t *testing.T) {
	ctx := context.Background()
	s, _ := NewChunkStore(2)

	vectors, metas, texts := testBatch("a.pdf", []float32{1, 0})
	_, err := s.Append(ctx, vectors, metas, append(texts, "extra"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bv, bm, bt := testBatch("a.pdf", []float32{1, 0, 0})
	_, err = s.Append(ctx, bv, bm, bt)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Append(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Exists("a.pdf"))
}

func TestChunkStore_SearchEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	s, _ := NewChunkStore(2)

	_, err := s.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexEmpty)

	bv, bm, bt := testBatch("a.pdf", []float32{1, 0})
	_, _ = s.Append(ctx, bv, bm, bt)

	_, err = s.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Search(cancelled, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunkStore_SearchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := NewChunkStore(2)
	bv, bm, bt := testBatch("a.pdf", []float32{1, 0})
	_, _ = s.Append(ctx, bv, bm, bt)

	hits, err := s.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	hits[0].Chunk.Metadata.Attributes["lang"] = "de"

	hits, _ = s.Search(ctx, []float32{1, 0}, 5)
	assert.Equal(t, "en", hits[0].Chunk.Metadata.Attributes["lang"])
}
