// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ResultList displays retrieved passages in a navigable list.
// The selected passage is shown in full; the others as one-line previews.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			r.MoveUp()
		case tea.KeyDown:
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(r.results)+3)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(r.results))), "")

	for i := range r.results {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

// renderResult formats one passage: a heading line and its text.
func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	heading := fmt.Sprintf("%d. %s", index+1, Citation(result))
	similarity := fmt.Sprintf("%.3f", result.Similarity)

	text := strings.Join(strings.Fields(result.Content()), " ")
	if index != r.selected {
		text = truncate(text, r.width-6)
	}

	if index == r.selected {
		return r.styles.Selected.Render("> "+heading+"  "+similarity) + "\n" +
			r.styles.Normal.Width(r.width-4).MarginLeft(4).Render(text)
	}
	return r.styles.Normal.Render("  "+heading+"  ") + r.styles.Muted.Render(similarity) + "\n" +
		r.styles.Muted.Render("    "+text)
}

// Citation formats a passage as "title (source, p. N)".
func Citation(result *domain.SearchResult) string {
	title := result.Title()
	if title == "" {
		title = result.Source()
	}
	if page := result.PageNumber(); page > 0 {
		return fmt.Sprintf("%s (%s, p. %d)", title, result.Source(), page)
	}
	return fmt.Sprintf("%s (%s)", title, result.Source())
}

func truncate(s string, limit int) string {
	if limit < 20 {
		limit = 20
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

// SetResults updates the result list.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}
