// Package cli implements the sercha-rag command line.
// Commands talk to the core only through driving ports; the services are
// built lazily by a RuntimeLoader so that settings commands work before
// any provider is configured.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by the commands. Tests assign mocks directly.
var (
	ingestService   driving.IngestService
	searchService   driving.SearchService
	answerService   driving.AnswerService
	settingsService driving.SettingsService
	historyService  driving.HistoryService
	metricsHandler  http.Handler
)

var (
	verbose   bool
	ephemeral bool
)

// Runtime is the set of services built from the current settings.
type Runtime struct {
	Ingest  driving.IngestService
	Search  driving.SearchService
	Answer  driving.AnswerService
	History driving.HistoryService
	Metrics http.Handler

	// Close flushes and releases the store and providers. May be nil.
	Close func() error
}

// RuntimeOptions tune how a Runtime is built.
type RuntimeOptions struct {
	// Ephemeral keeps the index in memory for the life of the process.
	Ephemeral bool
}

// RuntimeLoader builds a Runtime on first use.
type RuntimeLoader func(ctx context.Context, opts RuntimeOptions) (*Runtime, error)

var (
	runtimeLoader RuntimeLoader
	loaded        *Runtime
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions about your PDF documents",
	Long: `sercha-rag indexes PDF documents into a local vector store and answers
questions about them with retrieval augmented generation.

Typical use:
  sercha-rag settings llm        # pick an LLM provider
  sercha-rag ingest ./papers     # index every PDF in a directory
  sercha-rag ask "What is the main finding?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline stages and timings")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the index in memory only")
}

// SetSettingsService sets the settings service used by the settings commands.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetRuntimeLoader sets the function that builds the pipeline services.
func SetRuntimeLoader(l RuntimeLoader) {
	runtimeLoader = l
}

// Execute runs the root command and releases the runtime afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeRuntime(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// requireRuntime builds the pipeline services unless they are already set.
func requireRuntime(cmd *cobra.Command) error {
	if searchService != nil {
		return nil
	}
	if runtimeLoader == nil {
		return errors.New("services not configured")
	}

	rt, err := runtimeLoader(cmd.Context(), RuntimeOptions{Ephemeral: ephemeral})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	loaded = rt
	ingestService = rt.Ingest
	searchService = rt.Search
	answerService = rt.Answer
	historyService = rt.History
	metricsHandler = rt.Metrics
	return nil
}

func closeRuntime() error {
	if loaded == nil || loaded.Close == nil {
		return nil
	}
	rt := loaded
	loaded = nil
	return rt.Close()
}
