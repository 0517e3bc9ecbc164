package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// DefaultRewriteMaxTokens caps the rewritten query.
const DefaultRewriteMaxTokens = 64

// ContextPipeline holds the three context assembly stages. Each stage is
// independent so a caller can retry one alone.
type ContextPipeline struct {
	llm              driven.LLMService
	reranker         driven.Reranker
	compressor       driven.Compressor
	prompts          driven.PromptStore
	guard            driven.StageGuard
	rewriteMaxTokens int
}

// NewContextPipeline creates a pipeline. Any dependency may be nil: a
// missing LLM keeps the query as asked, a missing reranker keeps
// retrieval order and a missing compressor uses chunks in full.
func NewContextPipeline(
	llm driven.LLMService,
	reranker driven.Reranker,
	compressor driven.Compressor,
	prompts driven.PromptStore,
	guard driven.StageGuard,
) *ContextPipeline {
	return &ContextPipeline{
		llm:              llm,
		reranker:         reranker,
		compressor:       compressor,
		prompts:          prompts,
		guard:            guard,
		rewriteMaxTokens: DefaultRewriteMaxTokens,
	}
}

// SetRewriteMaxTokens overrides the rewrite token cap. Non-positive
// values restore the default.
func (p *ContextPipeline) SetRewriteMaxTokens(n int) {
	if n <= 0 {
		n = DefaultRewriteMaxTokens
	}
	p.rewriteMaxTokens = n
}

// Rewrite turns the question into a retrieval query with one
// deterministic LLM call. An empty reply keeps the original query.
func (p *ContextPipeline) Rewrite(ctx context.Context, query string) (string, error) {
	if p.llm == nil {
		logger.Debug("No LLM configured, skipping rewrite")
		return query, nil
	}
	defer logger.Timed("rewrite")()

	template := loadPrompt(p.prompts, driven.PromptQueryRewrite, defaultRewritePrompt)
	out, err := guarded(ctx, p.guard, domain.StageRewrite, func(ctx context.Context) (string, error) {
		return p.llm.Generate(ctx, driven.GenerateRequest{
			Prompt:      fmt.Sprintf(template, query),
			MaxTokens:   p.rewriteMaxTokens,
			Temperature: driven.Temperature(0),
		})
	})
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		logger.Debug("Empty rewrite, keeping original query")
		return query, nil
	}
	logger.Debug("Rewritten query: %q", out)
	return out, nil
}

// Rerank reorders results by relevance to query and keeps at most topN.
// topN <= 0 keeps all of them. The reranker's positions address the
// input slice and are validated before use.
func (p *ContextPipeline) Rerank(ctx context.Context, query string, results []domain.SearchResult, topN int) ([]domain.SearchResult, error) {
	n := len(results)
	if topN <= 0 || topN > n {
		topN = n
	}
	if n == 0 {
		return nil, nil
	}
	if p.reranker == nil {
		return append([]domain.SearchResult(nil), results[:topN]...), nil
	}
	defer logger.Timed("rerank")()

	docs := make([]string, n)
	for i, r := range results {
		docs[i] = r.Content()
	}

	hits, err := guarded(ctx, p.guard, domain.StageRerank, func(ctx context.Context) ([]driven.RerankHit, error) {
		return p.reranker.Rerank(ctx, driven.RerankRequest{
			Query:     query,
			Documents: docs,
			TopN:      topN,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(hits) > topN {
		return nil, domain.NewStageError(domain.StageRerank,
			fmt.Errorf("got %d results, asked for at most %d", len(hits), topN))
	}

	seen := make(map[int]struct{}, len(hits))
	out := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= n {
			return nil, domain.NewStageError(domain.StageRerank,
				fmt.Errorf("index %d out of range [0, %d)", h.Index, n))
		}
		if _, dup := seen[h.Index]; dup {
			return nil, domain.NewStageError(domain.StageRerank,
				fmt.Errorf("index %d returned twice", h.Index))
		}
		seen[h.Index] = struct{}{}
		out = append(out, results[h.Index])
	}
	logger.Debug("Reranked %d results into %d", n, len(out))
	return out, nil
}

// Compress reduces results to the text relevant to query, joined with
// blank lines in encounter order.
func (p *ContextPipeline) Compress(ctx context.Context, results []domain.SearchResult, query string) (string, error) {
	docs := make([]driven.CompressDocument, len(results))
	for i, r := range results {
		docs[i] = driven.CompressDocument{
			Text:     domain.ContentFromAny(r.Metadata[domain.MetaContent]).String(),
			Metadata: r.Metadata,
		}
	}

	var kept []driven.CompressedDocument
	if p.compressor == nil || len(docs) == 0 {
		kept = make([]driven.CompressedDocument, len(docs))
		for i, d := range docs {
			kept[i] = driven.CompressedDocument{Text: d.Text}
		}
	} else {
		defer logger.Timed("compress")()
		var err error
		kept, err = guarded(ctx, p.guard, domain.StageCompress, func(ctx context.Context) ([]driven.CompressedDocument, error) {
			return p.compressor.Compress(ctx, driven.CompressRequest{Documents: docs, Query: query})
		})
		if err != nil {
			return "", err
		}
	}

	parts := make([]string, 0, len(kept))
	for _, d := range kept {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		parts = append(parts, d.Text)
	}
	logger.Debug("Compressed %d documents into %d passages", len(docs), len(parts))
	return strings.Join(parts, "\n\n"), nil
}
