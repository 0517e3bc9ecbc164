package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService returns a fixed vector per text, or the vector
// registered for that text in byText.
type mockEmbeddingService struct {
	mu        sync.Mutex
	embedding []float32
	byText    map[string][]float32
	embedErr  error
	dropOne   bool
	calls     int
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.byText[text]; ok {
		return v
	}
	return m.embedding
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = m.vectorFor(t)
	}
	if m.dropOne && len(result) > 0 {
		result = result[1:]
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService records requests and replies from a queue.
type mockLLMService struct {
	replies  []string
	err      error
	requests []driven.GenerateRequest
}

func (m *mockLLMService) Generate(_ context.Context, req driven.GenerateRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockReranker returns preset hits.
type mockReranker struct {
	hits    []driven.RerankHit
	err     error
	request driven.RerankRequest
}

func (m *mockReranker) Rerank(_ context.Context, req driven.RerankRequest) ([]driven.RerankHit, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return m.hits, nil
}

// mockCompressor keeps documents whose text is not in drop.
type mockCompressor struct {
	drop    map[string]bool
	err     error
	request driven.CompressRequest
}

func (m *mockCompressor) Compress(_ context.Context, req driven.CompressRequest) ([]driven.CompressedDocument, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	var out []driven.CompressedDocument
	for _, d := range req.Documents {
		if m.drop[d.Text] {
			continue
		}
		out = append(out, driven.CompressedDocument{Text: d.Text})
	}
	return out, nil
}

// mockParser returns preset pages.
type mockParser struct {
	pages    []domain.PageText
	parseErr error
	calls    int
}

func (m *mockParser) Parse(_ context.Context, _ string) ([]domain.PageText, error) {
	m.calls++
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.pages, nil
}

func (m *mockParser) Extensions() []string {
	return []string{".txt"}
}

// mockParserRegistry serves one parser for .txt files.
type mockParserRegistry struct {
	parser driven.Parser
}

func (m *mockParserRegistry) For(path string) (driven.Parser, error) {
	if !m.Supports(path) {
		return nil, domain.ErrUnsupportedType
	}
	return m.parser, nil
}

func (m *mockParserRegistry) Supports(path string) bool {
	return filepath.Ext(path) == ".txt"
}

// mockPipeline turns each non-empty page into one chunk per word.
type mockPipeline struct {
	err error
}

func (m *mockPipeline) Process(_ context.Context, pages []domain.PageText) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	var chunks []domain.Chunk
	for _, p := range pages {
		for _, w := range splitWords(p.Text) {
			chunks = append(chunks, domain.Chunk{
				Text:     w,
				Metadata: domain.ChunkMetadata{PageNumber: p.Number},
			})
		}
	}
	return chunks, nil
}

func splitWords(s string) []string {
	var out []string
	word := ""
	for _, r := range s {
		if r == ' ' || r == '\n' {
			if word != "" {
				out = append(out, word)
			}
			word = ""
			continue
		}
		word += string(r)
	}
	if word != "" {
		out = append(out, word)
	}
	return out
}

// mockGuard records stages and runs fn directly, wrapping failures.
type mockGuard struct {
	stages []string
}

func (m *mockGuard) Do(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	m.stages = append(m.stages, stage)
	err := fn(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewStageTimeout(stage, err)
	}
	return domain.NewStageError(stage, err)
}

// mockRecorder counts metrics events.
type mockRecorder struct {
	ingested  []int
	failures  []string
	questions []bool
}

func (m *mockRecorder) ObserveStage(_ string, _ time.Duration, _ error) {}

func (m *mockRecorder) ObserveRetry(_ string) {}

func (m *mockRecorder) DocumentIngested(chunks int) {
	m.ingested = append(m.ingested, chunks)
}

func (m *mockRecorder) IngestFailed(reason string) {
	m.failures = append(m.failures, reason)
}

func (m *mockRecorder) QuestionAnswered(grounded bool) {
	m.questions = append(m.questions, grounded)
}

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockJournal keeps records in memory.
type mockJournal struct {
	records   []domain.IngestRecord
	recordErr error
	recentErr error
	limits    []int
}

func (m *mockJournal) Record(_ context.Context, rec domain.IngestRecord) (domain.IngestRecord, error) {
	if m.recordErr != nil {
		return domain.IngestRecord{}, m.recordErr
	}
	rec.ID = int64(len(m.records) + 1)
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *mockJournal) Recent(_ context.Context, limit int) ([]domain.IngestRecord, error) {
	m.limits = append(m.limits, limit)
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	out := make([]domain.IngestRecord, 0, len(m.records))
	for n := len(m.records) - 1; n >= 0 && len(out) < limit; n-- {
		out = append(out, m.records[n])
	}
	return out, nil
}

func (m *mockJournal) Close() error {
	return nil
}
