package cleanup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "cleanup", New().Name())
}

func TestProcess_CollapsesWhitespace(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "  hello\n\n  world\t!  ", Metadata: domain.ChunkMetadata{PageNumber: 3}},
	}

	out, err := New().Process(context.Background(), nil, chunks)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello world !", out[0].Text)
	assert.Equal(t, 3, out[0].Metadata.PageNumber)
}

func TestProcess_DropsBlankChunks(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: " \n\f "},
		{Text: "kept"},
		{Text: ""},
	}

	out, err := New().Process(context.Background(), nil, chunks)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Text)
}

func TestProcess_AllBlank(t *testing.T) {
	out, err := New().Process(context.Background(), nil, []domain.Chunk{{Text: "   "}})

	require.NoError(t, err)
	assert.Nil(t, out)
}
