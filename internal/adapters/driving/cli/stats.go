package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if searchService == nil {
		return errors.New("search service not configured")
	}

	stats := searchService.Stats()
	if statsJSON {
		return printJSON(cmd, stats)
	}

	newPrinter(cmd).Heading("Index")
	cmd.Printf("  Documents:  %d\n", stats.Sources)
	cmd.Printf("  Chunks:     %d\n", stats.Chunks)
	cmd.Printf("  Dimension:  %d\n", stats.Dimension)
	cmd.Printf("  Generation: %d\n", stats.Generation)
	return nil
}
