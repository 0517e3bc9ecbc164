package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestObserveStage(t *testing.T) {
	m := New()

	m.ObserveStage(domain.StageEmbed, 30*time.Millisecond, nil)
	m.ObserveStage(domain.StageEmbed, time.Second, domain.NewStageTimeout(domain.StageEmbed, errors.New("slow")))
	m.ObserveStage(domain.StageRerank, time.Second, domain.NewStageError(domain.StageRerank, errors.New("boom")))

	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(domain.StageEmbed, "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues(domain.StageRerank, "error")))
}

func TestIngestAndQuestionCounters(t *testing.T) {
	m := New()

	m.DocumentIngested(5)
	m.DocumentIngested(3)
	m.IngestFailed("duplicate")
	m.ObserveRetry(domain.StageGenerate)
	m.QuestionAnswered(true)
	m.QuestionAnswered(false)
	m.QuestionAnswered(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsIngested))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.ChunksIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestFailures.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRetries.WithLabelValues(domain.StageGenerate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Questions.WithLabelValues("false")))
}

func TestHandler_ExposesStoreAndCache(t *testing.T) {
	m := New()
	m.RegisterStore(func() domain.StoreStats {
		return domain.StoreStats{Chunks: 12, Sources: 2, Generation: 4}
	})
	m.RegisterCache(func() uint64 { return 9 }, func() uint64 { return 1 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, "sercha_rag_index_chunks 12")
	assert.Contains(t, out, "sercha_rag_index_documents 2")
	assert.Contains(t, out, "sercha_rag_index_generation 4")
	assert.Contains(t, out, "sercha_rag_embedding_cache_hits_total 9")
	assert.Contains(t, out, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.DocumentIngested(1)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.DocumentsIngested))
}
