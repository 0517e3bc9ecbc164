package httpapi

import (
	"context"
	"os"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockSearchService struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (m *mockSearchService) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.gotK = k
	return m.results, m.err
}

func (m *mockSearchService) Stats() domain.StoreStats {
	return domain.StoreStats{Chunks: 10, Sources: 2, Dimension: 4}
}

type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIngestService records the request and the uploaded bytes.
type mockIngestService struct {
	err      error
	gotReq   domain.IngestRequest
	gotBytes []byte
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	m.gotReq = req
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, err
	}
	m.gotBytes = data
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestReport{Source: req.Source, Pages: 1, Chunks: 2}, nil
}

func (m *mockIngestService) IngestDir(_ context.Context, _ string) (*domain.DirReport, error) {
	return &domain.DirReport{}, nil
}

func (m *mockIngestService) Supports(_ string) bool {
	return true
}

type mockHistoryService struct {
	records  []domain.IngestRecord
	err      error
	gotLimit int
}

func (m *mockHistoryService) History(_ context.Context, limit int) ([]domain.IngestRecord, error) {
	m.gotLimit = limit
	return m.records, m.err
}
