package ai

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	compressembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/embeddings"
	compressllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/llm"
	compressnone "github.com/custodia-labs/sercha-rag/internal/adapters/driven/compress/none"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/rerank/cohere"
	rerankernone "github.com/custodia-labs/sercha-rag/internal/adapters/driven/rerank/none"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ollamaServer answers the endpoints the Ollama adapters ping.
func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// deadServer returns a URL nothing listens on.
func deadServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name: "gemini provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderGemini,
				APIKey:   "test-key",
			},
			wantNil:     true,
			wantErr:     true,
			errContains: "gemini does not support embeddings",
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		Model:      "nomic-embed-text",
		Dimensions: 512,
	})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, 512, svc.Dimensions())

	svc, err = CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "test-key",
		Model:    "text-embedding-3-large",
	})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, 3072, svc.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.LLMSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:    "nil settings returns nil",
			wantNil: true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.LLMSettings{},
			wantNil:  true,
		},
		{
			name: "gemini provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderGemini,
				APIKey:   "test-key",
				Model:    "gemini-2.0-flash",
			},
		},
		{
			name: "ollama provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOllama,
				Model:    "llama3.2",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "gpt-4o-mini",
			},
		},
		{
			name: "anthropic provider creates service",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
				Model:    "claude-3-5-sonnet-latest",
			},
		},
		{
			name: "gemini without key is not configured",
			settings: &domain.LLMSettings{
				Provider: domain.AIProviderGemini,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestCreateReranker(t *testing.T) {
	r, err := CreateReranker(nil)
	require.NoError(t, err)
	assert.IsType(t, rerankernone.Reranker{}, r)

	r, err = CreateReranker(&domain.RerankSettings{Provider: domain.RerankProviderNone})
	require.NoError(t, err)
	assert.IsType(t, rerankernone.Reranker{}, r)

	r, err = CreateReranker(&domain.RerankSettings{Provider: domain.RerankProviderCohere, APIKey: "key"})
	require.NoError(t, err)
	assert.IsType(t, &cohere.Reranker{}, r)

	_, err = CreateReranker(&domain.RerankSettings{Provider: domain.RerankProviderCohere})
	assert.Error(t, err, "cohere needs an API key")

	_, err = CreateReranker(&domain.RerankSettings{Provider: "jina"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported rerank provider")
}

func TestCreateCompressor(t *testing.T) {
	llm := &stubLLM{}
	embedder := &stubEmbedder{}

	c, err := CreateCompressor(nil, 256, llm, embedder, nil)
	require.NoError(t, err)
	assert.IsType(t, compressnone.Compressor{}, c)

	c, err = CreateCompressor(&domain.CompressSettings{Mode: domain.CompressModeLLM}, 256, llm, embedder, nil)
	require.NoError(t, err)
	assert.IsType(t, &compressllm.Compressor{}, c)

	c, err = CreateCompressor(&domain.CompressSettings{Mode: domain.CompressModeEmbeddings, Threshold: 0.5}, 256, llm, embedder, nil)
	require.NoError(t, err)
	assert.IsType(t, &compressembed.Compressor{}, c)

	_, err = CreateCompressor(&domain.CompressSettings{Mode: domain.CompressModeLLM}, 256, nil, embedder, nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = CreateCompressor(&domain.CompressSettings{Mode: domain.CompressModeEmbeddings}, 256, llm, nil, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = CreateCompressor(&domain.CompressSettings{Mode: "summarise"}, 256, llm, embedder, nil)
	assert.Error(t, err)
}

func TestValidateEmbeddingConfig(t *testing.T) {
	t.Run("nil settings is valid", func(t *testing.T) {
		assert.NoError(t, ValidateEmbeddingConfig(nil))
	})

	t.Run("reachable ollama", func(t *testing.T) {
		srv := ollamaServer(t)
		err := ValidateEmbeddingConfig(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "nomic-embed-text",
		})
		assert.NoError(t, err)
	})

	t.Run("unreachable ollama", func(t *testing.T) {
		err := ValidateEmbeddingConfig(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  deadServer(t),
			Model:    "nomic-embed-text",
		})
		assert.Error(t, err)
	})
}

func TestValidateLLMConfig(t *testing.T) {
	t.Run("nil settings is valid", func(t *testing.T) {
		assert.NoError(t, ValidateLLMConfig(nil))
	})

	t.Run("reachable ollama", func(t *testing.T) {
		srv := ollamaServer(t)
		err := ValidateLLMConfig(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "llama3.2",
		})
		assert.NoError(t, err)
	})

	t.Run("unreachable ollama", func(t *testing.T) {
		err := ValidateLLMConfig(&domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  deadServer(t),
			Model:    "llama3.2",
		})
		assert.Error(t, err)
	})
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("unreachable service wraps sentinel", func(t *testing.T) {
		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  deadServer(t),
			Model:    "nomic-embed-text",
		})
		assert.Nil(t, svc)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "sercha-rag settings")
	})

	t.Run("unsupported provider wraps sentinel", func(t *testing.T) {
		_, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderGemini,
			APIKey:   "key",
		})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("reachable service", func(t *testing.T) {
		srv := ollamaServer(t)
		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "nomic-embed-text",
		})
		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})
}

func TestCreateAndValidateLLMService(t *testing.T) {
	svc, err := CreateAndValidateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  deadServer(t),
		Model:    "llama3.2",
	})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	svc, err = CreateAndValidateLLMService(nil)
	assert.NoError(t, err)
	assert.Nil(t, svc)
}

func TestInit(t *testing.T) {
	t.Run("missing embeddings is fatal", func(t *testing.T) {
		settings := domain.DefaultAppSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}

		result, err := Init(&settings, nil)
		assert.Nil(t, result)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("degrades optional services with warnings", func(t *testing.T) {
		srv := ollamaServer(t)
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM = domain.LLMSettings{Provider: domain.AIProviderGemini}
		settings.Rerank = domain.RerankSettings{Provider: domain.RerankProviderCohere}
		settings.Compress = domain.CompressSettings{Mode: domain.CompressModeLLM}

		result, err := Init(&settings, nil)
		require.NoError(t, err)
		defer result.Close()

		assert.NotNil(t, result.EmbeddingService)
		assert.Nil(t, result.LLMService)
		assert.IsType(t, rerankernone.Reranker{}, result.Reranker)
		assert.IsType(t, compressnone.Compressor{}, result.Compressor)
		assert.Len(t, result.Warnings, 3)
	})

	t.Run("fully local setup", func(t *testing.T) {
		srv := ollamaServer(t)
		settings := domain.DefaultAppSettings()
		settings.Embedding.BaseURL = srv.URL
		settings.LLM = domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			BaseURL:  srv.URL,
			Model:    "llama3.2",
		}
		settings.Compress.Mode = domain.CompressModeEmbeddings

		result, err := Init(&settings, nil)
		require.NoError(t, err)
		defer result.Close()

		assert.NotNil(t, result.LLMService)
		assert.IsType(t, &compressembed.Compressor{}, result.Compressor)
		assert.Empty(t, result.Warnings)
	})
}
