package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// defaultK is used when a tool call leaves k unset.
var defaultK = domain.DefaultAppSettings().Retrieval.K

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or phrase to find passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of passages to return, 1 to 20 (default 3)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput represents a single retrieved chunk.
type PassageOutput struct {
	Source     string  `json:"source"`
	Title      string  `json:"title,omitempty"`
	Page       int     `json:"page"`
	SequenceID int     `json:"sequence_id"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer         string          `json:"answer"`
	Grounded       bool            `json:"grounded"`
	RewrittenQuery string          `json:"rewritten_query,omitempty"`
	Sources        []PassageOutput `json:"sources"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Path   string `json:"path" jsonschema:"absolute path of a local file to index"`
	Source string `json:"source,omitempty" jsonschema:"source name to record (default: the file name)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Pages   int    `json:"pages"`
	Chunks  int    `json:"chunks"`
	BatchID string `json:"batch_id"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the passages most similar to a query from the indexed documents",
	}, s.handleSearch)

	if s.ports.Answer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question using only the indexed documents as context",
		}, s.handleAsk)
	}

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Index a local PDF, text or markdown file",
		}, s.handleIngest)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := input.K
	if k <= 0 {
		k = defaultK
	}
	if err := domain.CheckK(k); err != nil {
		return nil, SearchOutput{}, err
	}

	results, err := s.ports.Search.Search(ctx, input.Query, k)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: passages(results),
		Count:   len(results),
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Answer.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:         answer.Text,
		Grounded:       answer.Grounded,
		RewrittenQuery: answer.RewrittenQuery,
		Sources:        passages(answer.Sources),
	}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, errors.New("path is required")
	}

	report, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		Path:   input.Path,
		Source: input.Source,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		Source:  report.Source,
		Title:   report.Title,
		Pages:   report.Pages,
		Chunks:  report.Chunks,
		BatchID: report.BatchID,
	}, nil
}

func passages(results []domain.SearchResult) []PassageOutput {
	out := make([]PassageOutput, len(results))
	for i := range results {
		out[i] = PassageOutput{
			Source:     results[i].Source(),
			Title:      results[i].Title(),
			Page:       results[i].PageNumber(),
			SequenceID: results[i].SequenceID(),
			Similarity: results[i].Similarity,
			Content:    results[i].Content(),
		}
	}
	return out
}
