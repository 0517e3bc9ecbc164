// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	compressembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/embeddings"
	compressllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/llm"
	compressnone "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/none"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/rerank/cohere"
	rerankernone "github.com/custodia-labs/sercha-rag/internal/adapters/driven/rerank/none"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to configuration errors.
const fixHint = "Run 'sercha-rag settings show' and 'sercha-rag settings set' to fix"

// InitResult contains the AI services for one process.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Reranker         driven.Reranker
	Compressor       driven.Compressor
	Warnings         []string // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates and validates every AI service the pipeline needs.
//
// Embeddings are mandatory: without them neither ingestion nor search can
// run. A missing or unreachable LLM is a warning, since search still
// works. The reranker and compressor fall back to their passthrough
// variants with a warning when their configuration is unusable.
func Init(settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured. %s",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider, fixHint)
	}
	result.EmbeddingService = embedder

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	switch {
	case err != nil:
		result.warn("LLM disabled: %v", err)
	case llm == nil:
		result.warn("LLM disabled: provider %q is not configured", settings.LLM.Provider)
	default:
		result.LLMService = llm
	}

	reranker, err := CreateReranker(&settings.Rerank)
	if err != nil {
		result.warn("reranking disabled: %v", err)
		reranker = rerankernone.Reranker{}
	}
	result.Reranker = reranker

	compressor, err := CreateCompressor(&settings.Compress, settings.LLM.MaxTokens, result.LLMService, embedder, prompts)
	if err != nil {
		result.warn("compression disabled: %v", err)
		compressor = compressnone.Compressor{}
	}
	result.Compressor = compressor

	return result, nil
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc.Ping)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(svc.Ping)
}

// ValidateRerankConfig validates a rerank configuration. The identity
// reranker is always valid.
func ValidateRerankConfig(settings *domain.RerankSettings) error {
	r, err := CreateReranker(settings)
	if err != nil {
		return err
	}
	if p, ok := r.(interface{ Ping(context.Context) error }); ok {
		return ping(p.Ping)
	}
	return nil
}

func ping(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return fn(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.ResolveDimensions(),
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.ResolveDimensions(),
		})

	case domain.AIProviderAnthropic, domain.AIProviderGemini:
		return nil, fmt.Errorf("%s does not support embeddings here, use ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return geminillm.NewLLMService(context.Background(), geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates the reranker selected by settings. A nil or
// empty provider selects the identity reranker.
func CreateReranker(settings *domain.RerankSettings) (driven.Reranker, error) {
	if settings == nil || settings.Provider == "" || settings.Provider == domain.RerankProviderNone {
		return rerankernone.Reranker{}, nil
	}

	switch settings.Provider {
	case domain.RerankProviderCohere:
		return cohere.NewReranker(cohere.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
	}
}

// CreateCompressor creates the compressor selected by settings. The LLM
// extractor needs llm; the embedding filter needs embedder.
func CreateCompressor(
	settings *domain.CompressSettings,
	maxTokens int,
	llm driven.LLMService,
	embedder driven.EmbeddingService,
	prompts driven.PromptStore,
) (driven.Compressor, error) {
	if settings == nil || settings.Mode == "" || settings.Mode == domain.CompressModeNone {
		return compressnone.Compressor{}, nil
	}

	switch settings.Mode {
	case domain.CompressModeLLM:
		if llm == nil {
			return nil, fmt.Errorf("compress mode %q needs an LLM: %w", settings.Mode, domain.ErrLLMUnavailable)
		}
		c := compressllm.New(llm, maxTokens)
		if prompts != nil {
			c.SetPromptStore(prompts)
		}
		return c, nil

	case domain.CompressModeEmbeddings:
		if embedder == nil {
			return nil, fmt.Errorf("compress mode %q needs embeddings: %w", settings.Mode, domain.ErrEmbeddingUnavailable)
		}
		return compressembed.New(embedder, settings.Threshold), nil

	default:
		return nil, fmt.Errorf("unsupported compress mode: %s", settings.Mode)
	}
}
