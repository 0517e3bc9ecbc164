package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	stats   domain.StoreStats
	err     error
	gotK    int
}

func (m *mockSearchService) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.gotK = k
	return m.results, m.err
}

func (m *mockSearchService) Stats() domain.StoreStats {
	return m.stats
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	gotReq domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	m.gotReq = req
	return m.report, m.err
}

func (m *mockIngestService) IngestDir(_ context.Context, _ string) (*domain.DirReport, error) {
	return &domain.DirReport{}, m.err
}

func (m *mockIngestService) Supports(_ string) bool {
	return true
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	records []domain.IngestRecord
	err     error
}

func (m *mockHistoryService) History(_ context.Context, _ int) ([]domain.IngestRecord, error) {
	return m.records, m.err
}

func passage(source string, page int, content string, similarity float64) domain.SearchResult {
	meta := domain.ChunkMetadata{Source: source, Title: "Title of " + source, PageNumber: page, SequenceID: page}
	return domain.NewSearchResult(meta, content, similarity)
}
