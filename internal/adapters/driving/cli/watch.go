package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/watch"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var watchSkipExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents as they appear in a directory",
	Long: `Watches a directory and ingests every supported document created or
written in it. Files already in the directory are ingested first unless
--skip-existing is set. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipExisting, "skip-existing", false, "do not ingest files already present")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	w, err := watch.New(ingestService, args[0],
		watch.WithInitialScan(!watchSkipExisting),
		watch.WithOnResult(watchReporter(cmd)),
	)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Dir())
	return w.Run(cmd.Context())
}

// watchReporter prints one line per automatic ingest.
func watchReporter(cmd *cobra.Command) func(watch.Result) {
	p := newPrinter(cmd)
	return func(r watch.Result) {
		switch {
		case errors.Is(r.Err, domain.ErrDuplicateDocument):
			p.Warning("Skipped %s: already indexed", r.Path)
		case r.Err != nil:
			cmd.Printf("Failed %s: %v\n", r.Path, r.Err)
		default:
			p.Success("Ingested %s: %d pages, %d chunks", r.Report.Source, r.Report.Pages, r.Report.Chunks)
		}
	}
}
