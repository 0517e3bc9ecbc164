package cli

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	gotK    int
}

func (m *mockSearchService) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.gotK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockSearchService) Stats() domain.StoreStats {
	return domain.StoreStats{Chunks: 12, Sources: 2, Dimension: 768, Generation: 4}
}

// mockAnswerService implements driving.AnswerService for testing.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerService) Answer(_ context.Context, query string) (*domain.Answer, error) {
	if m.err != nil {
		return nil, m.err
	}
	a := *m.answer
	a.Query = query
	return &a, nil
}

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	requests  []domain.IngestRequest
	errs      map[string]error
	dirs      []string
	dirReport *domain.DirReport
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	m.requests = append(m.requests, req)
	if err := m.errs[req.Path]; err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = filepath.Base(req.Path)
	}
	return &domain.IngestReport{Source: source, Title: "Test Title", Pages: 2, Chunks: 5}, nil
}

func (m *mockIngestService) IngestDir(_ context.Context, dir string) (*domain.DirReport, error) {
	m.dirs = append(m.dirs, dir)
	if m.dirReport != nil {
		return m.dirReport, nil
	}
	return &domain.DirReport{Failed: map[string]error{}}, nil
}

func (m *mockIngestService) Supports(path string) bool {
	return filepath.Ext(path) == ".pdf"
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      map[string]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if key == "bogus.key" {
		return domain.ErrInvalidInput
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"embedding.provider", "retrieval.k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return m.pingErr
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return m.pingErr
}

func (m *mockSettingsService) ValidateRerankConfig() error {
	return nil
}

var (
	_ driving.SearchService   = (*mockSearchService)(nil)
	_ driving.AnswerService   = (*mockAnswerService)(nil)
	_ driving.IngestService   = (*mockIngestService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
	_ driving.HistoryService  = (*mockHistoryService)(nil)
)

// mockHistoryService implements driving.HistoryService for testing.
type mockHistoryService struct {
	records  []domain.IngestRecord
	err      error
	gotLimit int
}

func (m *mockHistoryService) History(_ context.Context, limit int) ([]domain.IngestRecord, error) {
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	answer   *mockAnswerService
	ingest   *mockIngestService
	settings *mockSettingsService
	history  *mockHistoryService
}

func testPassage(source, title string, page int, text string, sim float64) domain.SearchResult {
	meta := domain.ChunkMetadata{Source: source, Title: title, PageNumber: page}
	return domain.NewSearchResult(meta, text, sim)
}

// setupTestServices installs mocks and returns them with a cleanup func.
func setupTestServices() (*testServices, func()) {
	oldIngest, oldSearch, oldAnswer := ingestService, searchService, answerService
	oldSettings, oldMetrics, oldLoader := settingsService, metricsHandler, runtimeLoader
	oldHistory := historyService

	ts := &testServices{
		search: &mockSearchService{
			results: []domain.SearchResult{
				testPassage("paper.pdf", "Attention Is All You Need", 3, "The Transformer relies on attention.", 0.91),
				testPassage("paper.pdf", "Attention Is All You Need", 4, "Multi-head attention runs in parallel.", 0.84),
			},
		},
		answer: &mockAnswerService{
			answer: &domain.Answer{
				Text:           "It relies entirely on attention.",
				RewrittenQuery: "transformer architecture attention",
				Context:        "The Transformer relies on attention.",
				Grounded:       true,
				Sources: []domain.SearchResult{
					testPassage("paper.pdf", "Attention Is All You Need", 3, "The Transformer relies on attention.", 0.91),
				},
			},
		},
		ingest:   &mockIngestService{errs: map[string]error{}},
		settings: newMockSettingsService(),
		history:  &mockHistoryService{},
	}

	ingestService = ts.ingest
	searchService = ts.search
	answerService = ts.answer
	settingsService = ts.settings
	historyService = ts.history
	metricsHandler = http.NotFoundHandler()
	runtimeLoader = nil

	return ts, func() {
		ingestService, searchService, answerService = oldIngest, oldSearch, oldAnswer
		settingsService, metricsHandler, runtimeLoader = oldSettings, oldMetrics, oldLoader
		historyService = oldHistory
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables, which persist between Execute calls.
func resetFlags() {
	verbose, ephemeral = false, false
	searchK, searchJSON = domain.DefaultAppSettings().Retrieval.K, false
	askInteractive, askJSON, askShowContext = false, false, false
	ingestSource, ingestAttrs, ingestJSON = "", map[string]string{}, false
	statsJSON = false
	historyLimit, historyJSON = driving.DefaultHistoryLimit, false
	serveAddr, serveNoMCP, serveWatchDir = "", false, ""
	watchSkipExisting = false
}
