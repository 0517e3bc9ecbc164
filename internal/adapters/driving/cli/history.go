package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent ingest attempts",
	Long: `Show recent ingest attempts from the ingest journal, newest first.

Every ingest is recorded, including duplicates and failures. Runs with
--ephemeral keep no journal.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", driving.DefaultHistoryLimit, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if historyService == nil {
		return errors.New("history service not configured")
	}
	if historyLimit <= 0 {
		return errors.New("--limit must be positive")
	}

	records, err := historyService.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	if historyJSON {
		if records == nil {
			records = []domain.IngestRecord{}
		}
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No ingest history.")
		return nil
	}

	p := newPrinter(cmd)
	p.Heading("Ingest history")
	for _, r := range records {
		when := r.At.Local().Format(time.DateTime)
		switch r.Status {
		case domain.IngestStatusIngested:
			cmd.Printf("  %s  %s  %s\n", when, p.render(p.success, string(r.Status)), r.Source)
			cmd.Printf("    %d pages, %d chunks in %s\n", r.Pages, r.Chunks, r.Duration.Round(time.Millisecond))
		default:
			cmd.Printf("  %s  %s  %s\n", when, p.render(p.warning, string(r.Status)), r.Source)
			if r.Error != "" {
				cmd.Printf("    %s\n", p.render(p.muted, r.Error))
			}
		}
	}
	return nil
}
