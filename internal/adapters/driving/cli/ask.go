package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askInteractive bool
	askJSON        bool
	askShowContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Answers a question using the indexed documents.

The question is rewritten for retrieval, the nearest passages are fetched,
optionally reranked and compressed, and the LLM answers from that context
only. When nothing relevant is indexed the answer says so instead of
guessing.

Use --interactive to continue in the chat interface.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if askInteractive {
			return cobra.MaximumNArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "open the chat interface")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the context the answer was generated from")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askInteractive {
		question := ""
		if len(args) == 1 {
			question = args[0]
		}
		return runChatWith(cmd, question)
	}

	if err := requireRuntime(cmd); err != nil {
		return err
	}
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerService.Answer(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	p := newPrinter(cmd)
	cmd.Println(answer.Text)
	cmd.Println()

	if !answer.Grounded {
		p.Warning("No indexed passage matched the question.")
		return nil
	}

	if answer.RewrittenQuery != "" && answer.RewrittenQuery != answer.Query {
		p.Muted("Searched for: %s", answer.RewrittenQuery)
	}
	p.Heading("Sources:")
	p.Passages(answer.Sources)

	if askShowContext {
		p.Heading("Context:")
		cmd.Println(answer.Context)
	}
	return nil
}
