package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive chat",
	Long: `Launch the interactive terminal chat for sercha-rag.

Ask questions and read grounded answers with their sources, or switch to
the search view to inspect the raw passages retrieval returns.

Controls:
  Enter    - Ask / Search
  Tab      - Switch between chat and search
  Ctrl+S   - Toggle sources
  Ctrl+L   - Clear the transcript
  Esc      - Back to the input
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runChatWith(cmd, "")
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChatWith(cmd *cobra.Command, question string) (err error) {
	// Recover so a panic leaves a stack trace instead of a garbled terminal.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	k := domain.DefaultAppSettings().Retrieval.K
	if settingsService != nil {
		if s, serr := settingsService.Get(); serr == nil && domain.CheckK(s.Retrieval.K) == nil {
			k = s.Retrieval.K
		}
	}

	app, err := tui.NewApp(tui.NewPorts(answerService, searchService), k)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context()).WithQuestion(question)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
