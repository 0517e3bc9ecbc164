package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func passage(source, title string, page int, text string) domain.SearchResult {
	return domain.NewSearchResult(domain.ChunkMetadata{Source: source, Title: title, PageNumber: page}, text, 0.5)
}

func TestResultList_EmptyView(t *testing.T) {
	r := NewResultList(nil)

	assert.Contains(t, r.View(), "No passages")
	assert.Nil(t, r.SelectedResult())
}

func TestResultList_Navigation(t *testing.T) {
	r := NewResultList(nil)
	r.SetResults([]domain.SearchResult{
		passage("a.pdf", "A", 1, "first"),
		passage("b.pdf", "B", 2, "second"),
	})

	r.MoveUp()
	assert.Equal(t, 0, r.Selected())

	r.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, r.Selected())
	r.MoveDown()
	assert.Equal(t, 1, r.Selected())

	require.NotNil(t, r.SelectedResult())
	assert.Equal(t, "b.pdf", r.SelectedResult().Source())
}

func TestResultList_SetResultsResetsSelection(t *testing.T) {
	r := NewResultList(nil)
	r.SetResults([]domain.SearchResult{passage("a.pdf", "", 0, "x"), passage("b.pdf", "", 0, "y")})
	r.MoveDown()

	r.SetResults([]domain.SearchResult{passage("c.pdf", "", 0, "z")})

	assert.Equal(t, 0, r.Selected())
	assert.Equal(t, 1, r.Count())
}

func TestResultList_ViewTruncatesUnselected(t *testing.T) {
	r := NewResultList(nil)
	r.SetDimensions(40, 20)
	long := strings.Repeat("word ", 50)
	r.SetResults([]domain.SearchResult{passage("a.pdf", "A", 1, "short"), passage("b.pdf", "B", 2, long)})

	view := r.View()

	assert.Contains(t, view, "Passages (2)")
	assert.Contains(t, view, "A (a.pdf, p. 1)")
	assert.Contains(t, view, "...")
}

func TestCitation(t *testing.T) {
	withPage := passage("guide.pdf", "User Guide", 3, "")
	noTitle := passage("notes.md", "", 0, "")

	assert.Equal(t, "User Guide (guide.pdf, p. 3)", Citation(&withPage))
	assert.Equal(t, "notes.md (notes.md)", Citation(&noTitle))
}
