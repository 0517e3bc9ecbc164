package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	mockSearch := &mockSearchService{
		stats: domain.StoreStats{Chunks: 42, Sources: 3, Dimension: 768, Generation: 7},
	}
	server, err := NewServer(&Ports{Search: mockSearch})
	require.NoError(t, err)

	result, err := server.handleStatsResource(context.Background(), makeReadResourceRequest(statsURI))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Equal(t, "sercha-rag://stats", result.Contents[0].URI)
	assert.Contains(t, result.Contents[0].Text, `"chunks": 42`)
	assert.Contains(t, result.Contents[0].Text, `"dimension": 768`)
	assert.Contains(t, result.Contents[0].Text, `"generation": 7`)
}

func TestServer_handleHistoryResource(t *testing.T) {
	history := &mockHistoryService{records: []domain.IngestRecord{
		{ID: 3, Source: "paper.pdf", Status: domain.IngestStatusIngested, Chunks: 9},
	}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, History: history})
	require.NoError(t, err)

	result, err := server.handleHistoryResource(context.Background(), makeReadResourceRequest(historyURI))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "sercha-rag://history", result.Contents[0].URI)
	assert.Contains(t, result.Contents[0].Text, `"source": "paper.pdf"`)
	assert.Contains(t, result.Contents[0].Text, `"status": "ingested"`)
}

func TestServer_handleHistoryResource_Empty(t *testing.T) {
	server, err := NewServer(&Ports{Search: &mockSearchService{}, History: &mockHistoryService{}})
	require.NoError(t, err)

	result, err := server.handleHistoryResource(context.Background(), makeReadResourceRequest(historyURI))

	require.NoError(t, err)
	assert.Equal(t, "[]", result.Contents[0].Text)
}

func TestServer_handleHistoryResource_Error(t *testing.T) {
	history := &mockHistoryService{err: errors.New("database is locked")}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, History: history})
	require.NoError(t, err)

	_, err = server.handleHistoryResource(context.Background(), makeReadResourceRequest(historyURI))

	assert.ErrorContains(t, err, "reading history")
}
