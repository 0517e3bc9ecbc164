// Package metrics exposes pipeline metrics in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.MetricsRecorder = (*Metrics)(nil)

const namespace = "sercha_rag"

// Metrics holds all collectors on a private registry, so several
// instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	factory  promauto.Factory

	StageDuration     *prometheus.HistogramVec
	StageFailures     *prometheus.CounterVec
	StageRetries      *prometheus.CounterVec
	DocumentsIngested prometheus.Counter
	ChunksIngested    prometheus.Counter
	IngestFailures    *prometheus.CounterVec
	Questions         *prometheus.CounterVec
}

// New creates and registers all metrics, including Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		factory:  f,
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of guarded external calls by pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Failed external calls by stage and kind (timeout or error).",
		}, []string{"stage", "kind"}),
		StageRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Retried external calls by stage.",
		}, []string{"stage"}),
		DocumentsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents successfully ingested.",
		}),
		ChunksIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_ingested_total",
			Help:      "Chunks appended to the index.",
		}),
		IngestFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_failures_total",
			Help:      "Rejected or failed ingests by reason.",
		}, []string{"reason"}),
		Questions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Answered questions by whether any context was found.",
		}, []string{"grounded"}),
	}
}

// ObserveStage implements driven.MetricsRecorder.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err == nil {
		return
	}
	kind := "error"
	if errors.Is(err, domain.ErrStageTimeout) {
		kind = "timeout"
	}
	m.StageFailures.WithLabelValues(stage, kind).Inc()
}

// ObserveRetry implements driven.MetricsRecorder.
func (m *Metrics) ObserveRetry(stage string) {
	m.StageRetries.WithLabelValues(stage).Inc()
}

// DocumentIngested implements driven.MetricsRecorder.
func (m *Metrics) DocumentIngested(chunks int) {
	m.DocumentsIngested.Inc()
	m.ChunksIngested.Add(float64(chunks))
}

// IngestFailed implements driven.MetricsRecorder.
func (m *Metrics) IngestFailed(reason string) {
	m.IngestFailures.WithLabelValues(reason).Inc()
}

// QuestionAnswered implements driven.MetricsRecorder.
func (m *Metrics) QuestionAnswered(grounded bool) {
	label := "false"
	if grounded {
		label = "true"
	}
	m.Questions.WithLabelValues(label).Inc()
}

// RegisterStore exposes the store size as gauges read at scrape time.
func (m *Metrics) RegisterStore(stats func() domain.StoreStats) {
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_chunks",
		Help:      "Chunks in the index.",
	}, func() float64 { return float64(stats().Chunks) })
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_documents",
		Help:      "Distinct documents in the index.",
	}, func() float64 { return float64(stats().Sources) })
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_generation",
		Help:      "Current on-disk snapshot generation.",
	}, func() float64 { return float64(stats().Generation) })
}

// RegisterCache exposes embedding cache counters read at scrape time.
func (m *Metrics) RegisterCache(hits, misses func() uint64) {
	m.factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_hits_total",
		Help:      "Query embeddings served from cache.",
	}, func() float64 { return float64(hits()) })
	m.factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_misses_total",
		Help:      "Query embeddings computed by the provider.",
	}, func() float64 { return float64(misses()) })
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
