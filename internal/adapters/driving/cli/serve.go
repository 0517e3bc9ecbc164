package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/watch"
)

var (
	serveAddr     string
	serveNoMCP    bool
	serveWatchDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /upload   multipart PDF upload (field "file")
  POST /search   {"query_text": "...", "k": 5}
  POST /answer   {"query": "..."}
  GET  /healthz  liveness probe
  GET  /         status and index statistics
  GET  /history  recent ingest attempts (?limit=N)
  GET  /metrics  Prometheus metrics
       /mcp      MCP over streamable HTTP (disable with --no-mcp)

With --watch, documents dropped into the directory are ingested while the
server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "directory to auto-ingest from")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	cfg := httpapi.Config{
		Ingest:  ingestService,
		Search:  searchService,
		Answer:  answerService,
		History: historyService,
		Metrics: metricsHandler,
	}
	if !serveNoMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{
			Search:  searchService,
			Answer:  answerService,
			Ingest:  ingestService,
			History: historyService,
		})
		if err != nil {
			return err
		}
		cfg.MCP = mcpServer.Handler()
	}

	server, err := httpapi.New(cfg)
	if err != nil {
		return err
	}

	// The server and the watcher share a context: when either stops with
	// an error the other is shut down.
	g, ctx := errgroup.WithContext(cmd.Context())

	if serveWatchDir != "" {
		if ingestService == nil {
			return errors.New("ingest service not configured")
		}
		w, err := watch.New(ingestService, serveWatchDir, watch.WithOnResult(watchReporter(cmd)))
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := w.Run(ctx); err != nil {
				return fmt.Errorf("watcher stopped: %w", err)
			}
			return nil
		})
	}

	addr := resolveAddr()
	fmt.Fprintf(cmd.OutOrStdout(), "sercha-rag listening on http://localhost%s\n", addr)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})
	return g.Wait()
}

// resolveAddr picks the listen address: flag, then settings, then default.
func resolveAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.Server.Addr != "" {
			return s.Server.Addr
		}
	}
	return ":8080"
}
