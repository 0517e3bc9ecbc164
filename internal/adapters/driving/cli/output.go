package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength bounds passage text in plain listings.
const snippetLength = 240

// printer renders command output, styled when writing to a terminal.
type printer struct {
	cmd    *cobra.Command
	styled bool

	heading lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
}

func newPrinter(cmd *cobra.Command) *printer {
	return &printer{
		cmd:     cmd,
		styled:  isTerminal(cmd.OutOrStdout()),
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) Heading(text string) {
	p.cmd.Println(p.render(p.heading, text))
}

func (p *printer) Muted(format string, args ...any) {
	p.cmd.Println(p.render(p.muted, fmt.Sprintf(format, args...)))
}

func (p *printer) Success(format string, args ...any) {
	p.cmd.Println(p.render(p.success, fmt.Sprintf(format, args...)))
}

func (p *printer) Warning(format string, args ...any) {
	p.cmd.Println(p.render(p.warning, fmt.Sprintf(format, args...)))
}

// Passages lists results with a citation, similarity and snippet each.
func (p *printer) Passages(results []domain.SearchResult) {
	for i := range results {
		r := &results[i]
		p.cmd.Printf("  [%d] %s\n", i+1, p.render(p.heading, list.Citation(r)))
		p.cmd.Println("      " + p.render(p.muted, fmt.Sprintf("similarity %.3f", r.Similarity)))
		if snippet := snippet(r.Content(), snippetLength); snippet != "" {
			p.cmd.Printf("      %s\n", snippet)
		}
		p.cmd.Println()
	}
}

// snippet collapses whitespace and truncates text to n runes.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-3]) + "..."
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
