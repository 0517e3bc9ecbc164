package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Ingestor implements the interface.
var (
	_ driving.IngestService  = (*Ingestor)(nil)
	_ driving.HistoryService = (*Ingestor)(nil)
)

// Ingest failure reasons reported to the metrics recorder.
const (
	reasonDuplicate   = "duplicate"
	reasonUnsupported = "unsupported"
	reasonParse       = "parse"
	reasonEmpty       = "empty"
	reasonEmbed       = "embed"
	reasonStore       = "store"
)

// Ingestor turns files into stored, embedded chunks.
type Ingestor struct {
	store    driven.ChunkStore
	parsers  driven.ParserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	guard    driven.StageGuard
	metrics  driven.MetricsRecorder
	journal  driven.IngestJournal
	now      func() time.Time

	// inflight holds sources being ingested so two concurrent requests for
	// the same source cannot both pass the duplicate check.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewIngestor creates an ingestor. guard may be nil.
func NewIngestor(
	store driven.ChunkStore,
	parsers driven.ParserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	guard driven.StageGuard,
) *Ingestor {
	return &Ingestor{
		store:    store,
		parsers:  parsers,
		pipeline: pipeline,
		embedder: embedder,
		guard:    guard,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// SetMetrics sets the recorder for ingest outcomes.
func (i *Ingestor) SetMetrics(m driven.MetricsRecorder) {
	i.metrics = m
}

// SetJournal sets where ingest attempts are recorded.
func (i *Ingestor) SetJournal(j driven.IngestJournal) {
	i.journal = j
}

// Supports reports whether the file type can be ingested.
func (i *Ingestor) Supports(path string) bool {
	return i.parsers.Supports(path)
}

// Ingest parses, chunks, embeds and stores one document. Nothing is
// written unless every step before the append succeeds. The attempt is
// journaled whatever its outcome.
func (i *Ingestor) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	start := i.now()
	report, err := i.ingest(ctx, req)
	i.record(ctx, req, report, err, i.now().Sub(start))
	return report, err
}

// History returns recent journal entries. Without a journal it is empty.
func (i *Ingestor) History(ctx context.Context, limit int) ([]domain.IngestRecord, error) {
	if i.journal == nil {
		return []domain.IngestRecord{}, nil
	}
	if limit <= 0 {
		limit = driving.DefaultHistoryLimit
	}
	return i.journal.Recent(ctx, limit)
}

func (i *Ingestor) ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	logger.Section("Ingest")
	defer logger.Timed("ingest")()

	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	source := req.Source
	if source == "" {
		source = filepath.Base(req.Path)
	}
	logger.Debug("Path: %s, source: %s", req.Path, source)

	if !i.claim(source) {
		i.failed(reasonDuplicate)
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateDocument, source)
	}
	defer i.release(source)

	start := i.now()

	parser, err := i.parsers.For(req.Path)
	if err != nil {
		i.failed(reasonUnsupported)
		return nil, err
	}
	pages, err := parser.Parse(ctx, req.Path)
	if err != nil {
		i.failed(reasonParse)
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if nonEmptyPages(pages) == 0 {
		i.failed(reasonEmpty)
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, source)
	}
	logger.Debug("Parsed %d pages (%d with text)", len(pages), nonEmptyPages(pages))

	chunks, err := i.pipeline.Process(ctx, pages)
	if err != nil {
		i.failed(reasonParse)
		return nil, fmt.Errorf("chunk %s: %w", source, err)
	}
	if len(chunks) == 0 {
		i.failed(reasonEmpty)
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, source)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}
	vectors, err := i.embed(ctx, texts)
	if err != nil {
		i.failed(reasonEmbed)
		return nil, err
	}

	title := domain.DeriveTitle(pages, source)
	batchID := uuid.NewString()
	metas := make([]domain.ChunkMetadata, len(chunks))
	for n, c := range chunks {
		metas[n] = domain.ChunkMetadata{
			Source:     source,
			Title:      title,
			PageNumber: c.Metadata.PageNumber,
			BatchID:    batchID,
			Attributes: mergeAttributes(c.Metadata.Attributes, req.Attributes),
		}
	}

	first, err := i.store.Append(ctx, vectors, metas, texts)
	if err != nil {
		i.failed(reasonStore)
		return nil, fmt.Errorf("store %s: %w", source, err)
	}

	if i.metrics != nil {
		i.metrics.DocumentIngested(len(chunks))
	}
	report := &domain.IngestReport{
		Source:        source,
		Title:         title,
		BatchID:       batchID,
		Pages:         len(pages),
		Chunks:        len(chunks),
		FirstSequence: first,
		Duration:      i.now().Sub(start),
	}
	logger.Info("Ingested %s: %d chunks from %d pages at sequence %d", source, report.Chunks, report.Pages, first)
	return report, nil
}

// embed runs one batch embedding call and normalizes the result. Any
// mismatch with the request or the store is the provider's fault.
func (i *Ingestor) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := guarded(ctx, i.guard, domain.StageEmbed, func(ctx context.Context) ([][]float32, error) {
		return i.embedder.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, domain.NewStageError(domain.StageEmbed,
			fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(texts)))
	}

	dim := i.store.Dimension()
	out := make([][]float32, len(vectors))
	for n, v := range vectors {
		if len(v) != dim {
			return nil, domain.NewStageError(domain.StageEmbed,
				fmt.Errorf("embedding %d has dimension %d, store expects %d", n, len(v), dim))
		}
		unit, err := domain.Normalize(v)
		if err != nil {
			return nil, domain.NewStageError(domain.StageEmbed, fmt.Errorf("embedding %d: %w", n, err))
		}
		out[n] = unit
	}
	return out, nil
}

// IngestDir ingests every supported regular file directly inside dir, in
// name order. Already indexed files are skipped; other failures are
// collected and do not stop the walk.
func (i *Ingestor) IngestDir(ctx context.Context, dir string) (*domain.DirReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	report := &domain.DirReport{Failed: make(map[string]error)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !i.Supports(path) {
			continue
		}

		r, err := i.Ingest(ctx, domain.IngestRequest{Path: path})
		switch {
		case errors.Is(err, domain.ErrDuplicateDocument):
			report.Skipped = append(report.Skipped, entry.Name())
		case err != nil:
			logger.Warn("Failed to ingest %s: %v", path, err)
			report.Failed[entry.Name()] = err
		default:
			report.Ingested = append(report.Ingested, *r)
		}
	}
	return report, nil
}

// claim registers source as in flight. It fails if the source is stored
// or already being ingested.
func (i *Ingestor) claim(source string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, busy := i.inflight[source]; busy || i.store.Exists(source) {
		return false
	}
	i.inflight[source] = struct{}{}
	return true
}

func (i *Ingestor) release(source string) {
	i.mu.Lock()
	delete(i.inflight, source)
	i.mu.Unlock()
}

// record writes one journal entry. A journal failure is logged and never
// changes the ingest result.
func (i *Ingestor) record(ctx context.Context, req domain.IngestRequest, report *domain.IngestReport, err error, took time.Duration) {
	if i.journal == nil || strings.TrimSpace(req.Path) == "" {
		return
	}
	rec := domain.IngestRecord{
		Source:   req.Source,
		Path:     req.Path,
		Duration: took,
		At:       i.now().UTC(),
	}
	if rec.Source == "" {
		rec.Source = filepath.Base(req.Path)
	}
	switch {
	case err == nil && report != nil:
		rec.Status = domain.IngestStatusIngested
		rec.Title = report.Title
		rec.BatchID = report.BatchID
		rec.Pages = report.Pages
		rec.Chunks = report.Chunks
	case errors.Is(err, domain.ErrDuplicateDocument):
		rec.Status = domain.IngestStatusDuplicate
	case errors.Is(err, domain.ErrEmptyDocument):
		rec.Status = domain.IngestStatusEmpty
	default:
		rec.Status = domain.IngestStatusFailed
	}
	if err != nil {
		rec.Error = err.Error()
	}

	if _, jerr := i.journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
		logger.Warn("Failed to journal %s: %v", rec.Source, jerr)
	}
}

func (i *Ingestor) failed(reason string) {
	if i.metrics != nil {
		i.metrics.IngestFailed(reason)
	}
}

func nonEmptyPages(pages []domain.PageText) int {
	n := 0
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			n++
		}
	}
	return n
}

// mergeAttributes copies chunk attributes then request attributes.
// Request attributes win.
func mergeAttributes(chunk, request map[string]string) map[string]string {
	if len(chunk) == 0 && len(request) == 0 {
		return nil
	}
	out := make(map[string]string, len(chunk)+len(request))
	for k, v := range chunk {
		out[k] = v
	}
	for k, v := range request {
		out[k] = v
	}
	return out
}
