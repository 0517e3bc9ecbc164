package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	AnswerFunc func(ctx context.Context, query string) (*domain.Answer, error)
}

func (m *MockAnswerService) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, query)
	}
	return &domain.Answer{Text: "ok", Query: query}, nil
}

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	SearchFunc func(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

func (m *MockSearchService) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, k)
	}
	return nil, nil
}

func (m *MockSearchService) Stats() domain.StoreStats {
	return domain.StoreStats{}
}

var (
	_ driving.AnswerService = (*MockAnswerService)(nil)
	_ driving.SearchService = (*MockSearchService)(nil)
)

func TestNewPorts(t *testing.T) {
	answer := &MockAnswerService{}
	search := &MockSearchService{}

	ports := NewPorts(answer, search)

	require.NotNil(t, ports)
	assert.Equal(t, answer, ports.Answer)
	assert.Equal(t, search, ports.Search)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{
			name:  "all ports set",
			ports: NewPorts(&MockAnswerService{}, &MockSearchService{}),
		},
		{
			name:    "missing answer",
			ports:   &Ports{Search: &MockSearchService{}},
			wantErr: ErrMissingAnswerService,
		},
		{
			name:    "missing search",
			ports:   &Ports{Answer: &MockAnswerService{}},
			wantErr: ErrMissingSearchService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
