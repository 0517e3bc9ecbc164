package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini cloud API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// RerankProvider identifies the reranking backend.
type RerankProvider string

// Available rerank providers.
const (
	// RerankProviderCohere uses the Cohere rerank API.
	RerankProviderCohere RerankProvider = "cohere"

	// RerankProviderNone keeps retrieval order.
	RerankProviderNone RerankProvider = "none"
)

// IsValid returns true if the rerank provider is recognised.
func (p RerankProvider) IsValid() bool {
	return p == RerankProviderCohere || p == RerankProviderNone
}

// String returns the string representation.
func (p RerankProvider) String() string {
	return string(p)
}

// CompressMode selects how retrieved context is compressed.
type CompressMode string

// Available compression modes.
const (
	// CompressModeLLM asks the LLM to extract relevant sentences.
	CompressModeLLM CompressMode = "llm"

	// CompressModeEmbeddings drops documents below a similarity threshold.
	CompressModeEmbeddings CompressMode = "embeddings"

	// CompressModeNone passes documents through unchanged.
	CompressModeNone CompressMode = "none"
)

// IsValid returns true if the compression mode is recognised.
func (m CompressMode) IsValid() bool {
	switch m {
	case CompressModeLLM, CompressModeEmbeddings, CompressModeNone:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m CompressMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m CompressMode) Description() string {
	switch m {
	case CompressModeLLM:
		return "LLM extraction (keeps relevant sentences)"
	case CompressModeEmbeddings:
		return "Embedding filter (drops low-similarity chunks)"
	case CompressModeNone:
		return "None (full chunks)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// Temperature is used for answer generation.
	Temperature float64

	// MaxTokens caps the generated answer.
	MaxTokens int

	// RewriteMaxTokens caps the rewritten query.
	RewriteMaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds reranking configuration.
type RerankSettings struct {
	// Provider is the reranking backend.
	Provider RerankProvider

	// Model is the rerank model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for Cohere).
	APIKey string

	// TopN bounds how many results survive reranking.
	// Zero keeps every retrieved result.
	TopN int
}

// IsConfigured returns true if the rerank provider is set up.
func (r RerankSettings) IsConfigured() bool {
	switch r.Provider {
	case RerankProviderNone:
		return true
	case RerankProviderCohere:
		return r.APIKey != ""
	default:
		return false
	}
}

// CompressSettings holds context compression configuration.
type CompressSettings struct {
	// Mode selects the compressor.
	Mode CompressMode

	// Threshold is the minimum similarity kept by the embeddings filter.
	Threshold float64
}

// RetrievalSettings holds chunking and retrieval configuration.
type RetrievalSettings struct {
	// K is the number of chunks retrieved per question.
	K int

	// ChunkSize is the window length in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between neighbouring windows.
	ChunkOverlap int
}

// StoreSettings holds on-disk index configuration.
type StoreSettings struct {
	// DataDir holds the persisted generations.
	DataDir string

	// KeepGenerations is how many snapshots survive pruning.
	KeepGenerations int

	// M is the HNSW graph degree.
	M int

	// EfConstruction is the HNSW build-time candidate list size.
	EfConstruction int

	// EfSearch is the HNSW query-time candidate list size.
	EfSearch int
}

// GuardSettings bounds calls to external services.
type GuardSettings struct {
	// Timeout is the per-call deadline. Zero disables it.
	Timeout time.Duration

	// Rate is the sustained calls per second. Zero disables limiting.
	Rate float64

	// Burst is the limiter bucket size.
	Burst int

	// MaxRetries is how many times a failed call is retried.
	MaxRetries int

	// BreakerFailures opens a stage's circuit after that many consecutive
	// failures. Zero disables the breaker.
	BreakerFailures int

	// BreakerCooldown is how long an open circuit rejects calls.
	BreakerCooldown time.Duration
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Rerank    RerankSettings
	Compress  CompressSettings
	Retrieval RetrievalSettings
	Store     StoreSettings
	Guard     GuardSettings
	Server    ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty; they come from the config file or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:         AIProviderGemini,
			Model:            DefaultLLMModels()[AIProviderGemini],
			Temperature:      0,
			MaxTokens:        256,
			RewriteMaxTokens: 64,
		},
		Rerank: RerankSettings{
			Provider: RerankProviderNone,
			Model:    "rerank-v3.5",
		},
		Compress: CompressSettings{
			Mode:      CompressModeNone,
			Threshold: 0.3,
		},
		Retrieval: RetrievalSettings{
			K:            3,
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Store: StoreSettings{
			KeepGenerations: 2,
			M:               32,
			EfConstruction:  200,
			EfSearch:        64,
		},
		Guard: GuardSettings{
			Timeout:         60 * time.Second,
			Burst:           1,
			BreakerCooldown: 30 * time.Second,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// ResolveDimensions returns the embedding size implied by the settings:
// the explicit override, then the known model size, then 0 (unknown).
func (e EmbeddingSettings) ResolveDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}
