package none

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestRerank(t *testing.T) {
	docs := []string{"a", "b", "c"}
	tests := []struct {
		name string
		topN int
		want []int
	}{
		{name: "all", topN: 0, want: []int{0, 1, 2}},
		{name: "truncated", topN: 2, want: []int{0, 1}},
		{name: "larger than input", topN: 9, want: []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := Reranker{}.Rerank(context.Background(), driven.RerankRequest{Documents: docs, TopN: tt.topN})
			require.NoError(t, err)

			got := make([]int, len(hits))
			for i, h := range hits {
				got[i] = h.Index
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRerank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Reranker{}.Rerank(ctx, driven.RerankRequest{Documents: []string{"a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
