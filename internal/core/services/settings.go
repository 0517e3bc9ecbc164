package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyRewriteMaxTokens  = "llm.rewrite_max_tokens"
	keyRerankProvider    = "rerank.provider"
	keyRerankModel       = "rerank.model"
	keyRerankBaseURL     = "rerank.base_url"
	keyRerankAPIKey      = "rerank.api_key"
	keyRerankTopN        = "rerank.top_n"
	keyCompressMode      = "compress.mode"
	keyCompressThreshold = "compress.threshold"
	keyRetrievalK        = "retrieval.k"
	keyChunkSize         = "retrieval.chunk_size"
	keyChunkOverlap      = "retrieval.chunk_overlap"
	keyDataDir           = "store.data_dir"
	keyKeepGenerations   = "store.keep_generations"
	keyHNSWM             = "store.m"
	keyEfConstruction    = "store.ef_construction"
	keyEfSearch          = "store.ef_search"
	keyGuardTimeout      = "guard.timeout"
	keyGuardRate         = "guard.rate"
	keyGuardBurst        = "guard.burst"
	keyGuardMaxRetries   = "guard.max_retries"
	keyGuardBreaker      = "guard.breaker_failures"
	keyGuardCooldown     = "guard.breaker_cooldown"
	keyServerAddr        = "server.addr"
)

// valueKind is how a setting's string form is parsed.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindAIProvider
	kindRerankProvider
	kindCompressMode
)

// settingKeys lists every supported key in display order.
var settingKeys = []struct {
	key  string
	kind valueKind
}{
	{keyEmbedProvider, kindAIProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyEmbedDimensions, kindInt},
	{keyLLMProvider, kindAIProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyLLMTemperature, kindFloat},
	{keyLLMMaxTokens, kindInt},
	{keyRewriteMaxTokens, kindInt},
	{keyRerankProvider, kindRerankProvider},
	{keyRerankModel, kindString},
	{keyRerankBaseURL, kindString},
	{keyRerankAPIKey, kindString},
	{keyRerankTopN, kindInt},
	{keyCompressMode, kindCompressMode},
	{keyCompressThreshold, kindFloat},
	{keyRetrievalK, kindInt},
	{keyChunkSize, kindInt},
	{keyChunkOverlap, kindInt},
	{keyDataDir, kindString},
	{keyKeepGenerations, kindInt},
	{keyHNSWM, kindInt},
	{keyEfConstruction, kindInt},
	{keyEfSearch, kindInt},
	{keyGuardTimeout, kindDuration},
	{keyGuardRate, kindFloat},
	{keyGuardBurst, kindInt},
	{keyGuardMaxRetries, kindInt},
	{keyGuardBreaker, kindInt},
	{keyGuardCooldown, kindDuration},
	{keyServerAddr, kindString},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider:         s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:            s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:          s.configStore.GetString(keyLLMBaseURL),
			APIKey:           s.configStore.GetString(keyLLMAPIKey),
			Temperature:      s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:        s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			RewriteMaxTokens: s.getInt(keyRewriteMaxTokens, d.LLM.RewriteMaxTokens),
		},
		Rerank: domain.RerankSettings{
			Provider: s.getRerankProvider(d.Rerank.Provider),
			Model:    s.getString(keyRerankModel, d.Rerank.Model),
			BaseURL:  s.configStore.GetString(keyRerankBaseURL),
			APIKey:   s.configStore.GetString(keyRerankAPIKey),
			TopN:     s.getInt(keyRerankTopN, d.Rerank.TopN),
		},
		Compress: domain.CompressSettings{
			Mode:      s.getCompressMode(d.Compress.Mode),
			Threshold: s.getFloat(keyCompressThreshold, d.Compress.Threshold),
		},
		Retrieval: domain.RetrievalSettings{
			K:            s.getInt(keyRetrievalK, d.Retrieval.K),
			ChunkSize:    s.getInt(keyChunkSize, d.Retrieval.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, d.Retrieval.ChunkOverlap),
		},
		Store: domain.StoreSettings{
			DataDir:         s.getString(keyDataDir, d.Store.DataDir),
			KeepGenerations: s.getInt(keyKeepGenerations, d.Store.KeepGenerations),
			M:               s.getInt(keyHNSWM, d.Store.M),
			EfConstruction:  s.getInt(keyEfConstruction, d.Store.EfConstruction),
			EfSearch:        s.getInt(keyEfSearch, d.Store.EfSearch),
		},
		Guard: domain.GuardSettings{
			Timeout:    s.getDuration(keyGuardTimeout, d.Guard.Timeout),
			Rate:       s.getFloat(keyGuardRate, d.Guard.Rate),
			Burst:      s.getInt(keyGuardBurst, d.Guard.Burst),
			MaxRetries: s.getInt(keyGuardMaxRetries, d.Guard.MaxRetries),

			BreakerFailures: s.getInt(keyGuardBreaker, d.Guard.BreakerFailures),
			BreakerCooldown: s.getDuration(keyGuardCooldown, d.Guard.BreakerCooldown),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written so
// a key supplied through the environment never has to live in the file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyRewriteMaxTokens, settings.LLM.RewriteMaxTokens},
		{keyRerankProvider, settings.Rerank.Provider.String()},
		{keyRerankModel, settings.Rerank.Model},
		{keyRerankBaseURL, settings.Rerank.BaseURL},
		{keyRerankTopN, settings.Rerank.TopN},
		{keyCompressMode, settings.Compress.Mode.String()},
		{keyCompressThreshold, settings.Compress.Threshold},
		{keyRetrievalK, settings.Retrieval.K},
		{keyChunkSize, settings.Retrieval.ChunkSize},
		{keyChunkOverlap, settings.Retrieval.ChunkOverlap},
		{keyDataDir, settings.Store.DataDir},
		{keyKeepGenerations, settings.Store.KeepGenerations},
		{keyHNSWM, settings.Store.M},
		{keyEfConstruction, settings.Store.EfConstruction},
		{keyEfSearch, settings.Store.EfSearch},
		{keyGuardTimeout, settings.Guard.Timeout.String()},
		{keyGuardRate, settings.Guard.Rate},
		{keyGuardBurst, settings.Guard.Burst},
		{keyGuardMaxRetries, settings.Guard.MaxRetries},
		{keyGuardBreaker, settings.Guard.BreakerFailures},
		{keyGuardCooldown, settings.Guard.BreakerCooldown.String()},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	for key, apiKey := range map[string]string{
		keyEmbedAPIKey:  settings.Embedding.APIKey,
		keyLLMAPIKey:    settings.LLM.APIKey,
		keyRerankAPIKey: settings.Rerank.APIKey,
	} {
		if apiKey == "" {
			continue
		}
		if err := s.configStore.Set(key, apiKey); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// Keys returns every supported setting key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Set parses value according to key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKind(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s must be a duration such as 30s", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	case kindAIProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid provider %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	case kindRerankProvider:
		if !domain.RerankProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid rerank provider %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	case kindCompressMode:
		if !domain.CompressMode(value).IsValid() {
			return fmt.Errorf("%w: invalid compress mode %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	default:
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func lookupKind(key string) (valueKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return kindString, false
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	// A new model implies its own vector size.
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if settings.Embedding.ResolveDimensions() == 0 && settings.Embedding.Provider != domain.AIProviderOllama {
		return fmt.Errorf("%w: unknown dimension for embedding model %q, set %s",
			domain.ErrInvalidInput, settings.Embedding.Model, keyEmbedDimensions)
	}
	if !settings.Rerank.IsConfigured() {
		return fmt.Errorf("%w: rerank provider %q is not configured", domain.ErrInvalidInput, settings.Rerank.Provider)
	}
	if settings.Compress.Mode == domain.CompressModeLLM && !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: compress mode %q requires an LLM provider", domain.ErrInvalidInput, settings.Compress.Mode)
	}
	if settings.Compress.Threshold > 1 {
		return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrInvalidInput, keyCompressThreshold)
	}
	if settings.Retrieval.K < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyRetrievalK)
	}
	if settings.Retrieval.ChunkOverlap >= settings.Retrieval.ChunkSize {
		return fmt.Errorf("%w: %s must be smaller than %s", domain.ErrInvalidInput, keyChunkOverlap, keyChunkSize)
	}
	if settings.Store.KeepGenerations < 1 {
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyKeepGenerations)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// ValidateRerankConfig validates the current rerank configuration by pinging the provider.
func (s *SettingsService) ValidateRerankConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateRerank(&settings.Rerank)
}

// Helper methods for reading config with defaults. A key that is present
// wins even when its value is zero.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getRerankProvider(defaultVal domain.RerankProvider) domain.RerankProvider {
	provider := domain.RerankProvider(s.configStore.GetString(keyRerankProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCompressMode(defaultVal domain.CompressMode) domain.CompressMode {
	mode := domain.CompressMode(s.configStore.GetString(keyCompressMode))
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}
