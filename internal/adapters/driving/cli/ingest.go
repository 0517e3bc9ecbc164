package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	ingestSource string
	ingestAttrs  map[string]string
	ingestJSON   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Add documents to the index",
	Long: `Parses, chunks and embeds documents and appends them to the index.

Paths may be files or directories. For a directory, every supported file
directly inside it is ingested. A document whose source is already indexed
is skipped; re-ingesting never duplicates chunks.

Supported types: .pdf (via pdftotext), .txt, .md.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "document id (single file only, defaults to the file name)")
	ingestCmd.Flags().StringToStringVar(&ingestAttrs, "attr", nil, "extra metadata as key=value, repeatable")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// ingestSummary collects the outcome of one ingest invocation.
type ingestSummary struct {
	Ingested []domain.IngestReport `json:"ingested"`
	Skipped  []string              `json:"skipped"`
	Failed   map[string]string     `json:"failed"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestSource != "" && len(args) > 1 {
		return errors.New("--source can only be used with a single file")
	}
	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	summary := &ingestSummary{
		Ingested: []domain.IngestReport{},
		Skipped:  []string{},
		Failed:   map[string]string{},
	}

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			summary.Failed[path] = err.Error()
			continue
		}
		if info.IsDir() {
			if ingestSource != "" {
				return errors.New("--source cannot be used with a directory")
			}
			ingestDirectory(cmd, path, summary)
			continue
		}
		ingestFile(cmd, path, summary)
	}

	if ingestJSON {
		if err := printJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		printIngestSummary(cmd, summary)
	}

	if n := len(summary.Failed); n > 0 {
		return fmt.Errorf("%d document(s) failed to ingest", n)
	}
	return nil
}

func ingestFile(cmd *cobra.Command, path string, summary *ingestSummary) {
	report, err := ingestService.Ingest(cmd.Context(), domain.IngestRequest{
		Path:       path,
		Source:     ingestSource,
		Attributes: ingestAttrs,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateDocument):
		summary.Skipped = append(summary.Skipped, path)
	case err != nil:
		summary.Failed[path] = err.Error()
	default:
		summary.Ingested = append(summary.Ingested, *report)
	}
}

func ingestDirectory(cmd *cobra.Command, dir string, summary *ingestSummary) {
	report, err := ingestService.IngestDir(cmd.Context(), dir)
	if err != nil {
		summary.Failed[dir] = err.Error()
		return
	}
	summary.Ingested = append(summary.Ingested, report.Ingested...)
	summary.Skipped = append(summary.Skipped, report.Skipped...)
	for name, ferr := range report.Failed {
		summary.Failed[name] = ferr.Error()
	}
}

func printIngestSummary(cmd *cobra.Command, summary *ingestSummary) {
	p := newPrinter(cmd)
	for i := range summary.Ingested {
		r := &summary.Ingested[i]
		p.Success("Ingested %s: %d pages, %d chunks (%s)", r.Source, r.Pages, r.Chunks, r.Duration.Round(time.Millisecond))
		if r.Title != "" {
			p.Muted("  title: %s", r.Title)
		}
	}
	for _, s := range summary.Skipped {
		p.Warning("Skipped %s: already indexed", s)
	}

	failed := make([]string, 0, len(summary.Failed))
	for path := range summary.Failed {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		cmd.Printf("Failed %s: %s\n", path, summary.Failed[path])
	}

	if len(summary.Ingested) == 0 && len(summary.Skipped) == 0 && len(failed) == 0 {
		cmd.Println("No supported documents found.")
	}
}
