package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure AnswerOrchestrator implements the interface.
var _ driving.AnswerService = (*AnswerOrchestrator)(nil)

// AnswerConfig holds the tunables of the answer pipeline.
type AnswerConfig struct {
	// K is the number of chunks retrieved.
	K int

	// TopN bounds the reranked results. Zero keeps all retrieved.
	TopN int

	// Temperature is used for generation.
	Temperature float64

	// MaxTokens caps the generated answer.
	MaxTokens int
}

// AnswerConfigFromSettings derives the pipeline tunables from settings.
func AnswerConfigFromSettings(s *domain.AppSettings) AnswerConfig {
	return AnswerConfig{
		K:           s.Retrieval.K,
		TopN:        s.Rerank.TopN,
		Temperature: s.LLM.Temperature,
		MaxTokens:   s.LLM.MaxTokens,
	}
}

// AnswerOrchestrator runs rewrite, search, rerank, compress and generate
// as one sequential chain.
type AnswerOrchestrator struct {
	searcher driving.SearchService
	pipeline *ContextPipeline
	llm      driven.LLMService
	prompts  driven.PromptStore
	guard    driven.StageGuard
	metrics  driven.MetricsRecorder
	cfg      AnswerConfig
}

// NewAnswerOrchestrator creates an orchestrator. llm is required for
// generation; Answer fails with domain.ErrLLMUnavailable without it.
func NewAnswerOrchestrator(
	searcher driving.SearchService,
	pipeline *ContextPipeline,
	llm driven.LLMService,
	prompts driven.PromptStore,
	guard driven.StageGuard,
	cfg AnswerConfig,
) *AnswerOrchestrator {
	if cfg.K < 1 {
		cfg.K = domain.DefaultAppSettings().Retrieval.K
	}
	return &AnswerOrchestrator{
		searcher: searcher,
		pipeline: pipeline,
		llm:      llm,
		prompts:  prompts,
		guard:    guard,
		cfg:      cfg,
	}
}

// SetMetrics sets the recorder for answered questions.
func (o *AnswerOrchestrator) SetMetrics(m driven.MetricsRecorder) {
	o.metrics = m
}

// Answer answers query from the indexed documents. When retrieval finds
// nothing the canned no-context reply is returned without generating.
func (o *AnswerOrchestrator) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	logger.Section("Answer")
	defer logger.Timed("answer")()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if o.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	rewritten, err := o.pipeline.Rewrite(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := o.searcher.Search(ctx, rewritten, o.cfg.K)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Info("No context found, skipping generation")
		o.answered(false)
		return &domain.Answer{
			Text:           domain.NoContextAnswer,
			Query:          query,
			RewrittenQuery: rewritten,
			Sources:        []domain.SearchResult{},
		}, nil
	}

	reranked, err := o.pipeline.Rerank(ctx, rewritten, results, o.cfg.TopN)
	if err != nil {
		return nil, err
	}

	contextText, err := o.pipeline.Compress(ctx, reranked, rewritten)
	if err != nil {
		return nil, err
	}

	template := loadPrompt(o.prompts, driven.PromptAnswer, defaultAnswerPrompt)
	system := loadPrompt(o.prompts, driven.PromptAnswerSystem, defaultAnswerSystem)
	text, err := guarded(ctx, o.guard, domain.StageGenerate, func(ctx context.Context) (string, error) {
		return o.llm.Generate(ctx, driven.GenerateRequest{
			System:      system,
			Prompt:      fmt.Sprintf(template, contextText, rewritten),
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: driven.Temperature(o.cfg.Temperature),
		})
	})
	if err != nil {
		return nil, err
	}

	o.answered(true)
	return &domain.Answer{
		Text:           strings.TrimSpace(text),
		Query:          query,
		RewrittenQuery: rewritten,
		Sources:        reranked,
		Context:        contextText,
		Grounded:       true,
	}, nil
}

func (o *AnswerOrchestrator) answered(grounded bool) {
	if o.metrics != nil {
		o.metrics.QuestionAnswered(grounded)
	}
}
