package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedcache"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/metrics"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/resilience"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/snapshot"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/hnsw"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// queryCacheSize bounds the number of cached query embeddings.
const queryCacheSize = 512

// wiring holds what every command needs before providers are contacted.
type wiring struct {
	configDir string
	settings  *services.SettingsService
	prompts   driven.PromptStore
}

// newWiring opens the config and prompt stores under configDir, or the
// default directory when configDir is empty.
func newWiring(configDir string) (*wiring, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir, file.WithEnvLookup(os.LookupEnv))
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	return &wiring{
		configDir: configDir,
		settings:  services.NewSettingsService(configStore, ai.NewConfigValidator()),
		prompts:   prompts,
	}, nil
}

// loadRuntime builds the pipeline from the current settings.
func (w *wiring) loadRuntime(_ context.Context, opts cli.RuntimeOptions) (*cli.Runtime, error) {
	logger.Section("Startup")
	settings, err := w.settings.Get()
	if err != nil {
		return nil, err
	}

	aiServices, err := ai.Init(settings, w.prompts)
	if err != nil {
		return nil, err
	}
	for _, warning := range aiServices.Warnings {
		logger.Warn("%s", warning)
	}

	store, err := w.openStore(settings, aiServices.EmbeddingService.Dimensions(), opts.Ephemeral)
	if err != nil {
		aiServices.Close()
		return nil, err
	}

	journal, err := w.openJournal(settings, opts.Ephemeral)
	if err != nil {
		store.Close() //nolint:errcheck // already failing
		aiServices.Close()
		return nil, err
	}

	rt, err := assemble(settings, aiServices, store, journal, w.prompts)
	if err != nil {
		store.Close() //nolint:errcheck // already failing
		if journal != nil {
			journal.Close() //nolint:errcheck // already failing
		}
		aiServices.Close()
		return nil, err
	}
	rt.Close = func() error {
		defer aiServices.Close()
		err := store.Close()
		if journal != nil {
			err = errors.Join(err, journal.Close())
		}
		return err
	}
	return rt, nil
}

// dataDir returns the configured data directory or the default under the
// config directory.
func (w *wiring) dataDir(settings *domain.AppSettings) string {
	if settings.Store.DataDir != "" {
		return settings.Store.DataDir
	}
	return filepath.Join(w.configDir, "data")
}

// openJournal opens the ingest journal. Ephemeral runs keep no history.
func (w *wiring) openJournal(settings *domain.AppSettings, ephemeral bool) (driven.IngestJournal, error) {
	if ephemeral {
		return nil, nil
	}
	journal, err := sqlite.Open(w.dataDir(settings))
	if err != nil {
		return nil, fmt.Errorf("opening ingest journal: %w", err)
	}
	logger.Debug("ingest journal at %s", journal.Path())
	return journal, nil
}

// openStore opens the on-disk store, or an in-memory one when ephemeral.
func (w *wiring) openStore(settings *domain.AppSettings, dimension int, ephemeral bool) (driven.ChunkStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension unknown, set embedding.dimensions", domain.ErrInvalidInput)
	}
	if ephemeral {
		logger.Info("using in-memory store (dim=%d)", dimension)
		store, err := memory.NewChunkStore(dimension)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	dataDir := w.dataDir(settings)
	store, err := snapshot.Open(dataDir, dimension,
		snapshot.WithKeepGenerations(settings.Store.KeepGenerations),
		snapshot.WithIndexConfig(hnsw.Config{
			M:              settings.Store.M,
			EfConstruction: settings.Store.EfConstruction,
			EfSearch:       settings.Store.EfSearch,
		}),
	)
	if errors.Is(err, domain.ErrCorruptState) {
		return nil, fmt.Errorf("%w (data dir %s: the embedding model may have changed, use a fresh store.data_dir)", err, dataDir)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// assemble connects the core services to the driven adapters.
func assemble(
	settings *domain.AppSettings,
	aiServices *ai.InitResult,
	store driven.ChunkStore,
	journal driven.IngestJournal,
	prompts driven.PromptStore,
) (*cli.Runtime, error) {
	m := metrics.New()
	guard := resilience.New(resilience.ConfigFromSettings(settings.Guard), resilience.WithRecorder(m))

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Retrieval.ChunkSize, settings.Retrieval.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	ingestor := services.NewIngestor(store, normalisers.NewDefaultRegistry(), pipeline, aiServices.EmbeddingService, guard)
	ingestor.SetMetrics(m)
	if journal != nil {
		ingestor.SetJournal(journal)
	}

	// Only queries go through the cache; ingested chunks are embedded once.
	queryEmbedder, err := embedcache.New(aiServices.EmbeddingService, queryCacheSize)
	if err != nil {
		return nil, err
	}
	searcher := services.NewSearcher(store, queryEmbedder, guard)

	contextPipeline := services.NewContextPipeline(
		aiServices.LLMService, aiServices.Reranker, aiServices.Compressor, prompts, guard,
	)
	contextPipeline.SetRewriteMaxTokens(settings.LLM.RewriteMaxTokens)

	answerer := services.NewAnswerOrchestrator(
		searcher, contextPipeline, aiServices.LLMService, prompts, guard,
		services.AnswerConfigFromSettings(settings),
	)
	answerer.SetMetrics(m)

	m.RegisterStore(store.Stats)
	m.RegisterCache(queryEmbedder.Hits, queryEmbedder.Misses)

	return &cli.Runtime{
		Ingest:  ingestor,
		Search:  searcher,
		Answer:  answerer,
		History: ingestor,
		Metrics: m.Handler(),
	}, nil
}
