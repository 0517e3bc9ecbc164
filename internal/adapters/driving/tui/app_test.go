package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(NewPorts(&MockAnswerService{}, &MockSearchService{}), 3)
	require.NoError(t, err)
	return app
}

func TestNewApp_StartsInChat(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.False(t, app.Ready())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Search: &MockSearchService{}}, 3)

	assert.ErrorIs(t, err, ErrMissingAnswerService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t)

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Same(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_ViewBeforeResize(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_WindowSizeMakesReady(t *testing.T) {
	app := newTestApp(t)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Nil(t, cmd)
	assert.True(t, model.(*App).Ready())
	assert.NotEqual(t, "Initialising...", app.View())
}

func TestApp_QuitOnCtrlC(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(80, 24)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_TabSwitchesViews(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(80, 24)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, messages.ViewChanged{View: messages.ViewSearch}, msg)

	app.Update(msg)
	assert.Equal(t, messages.ViewSearch, app.CurrentView())

	app.Update(messages.ViewChanged{View: messages.ViewChat})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_AnswerReachesChatFromSearchView(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(80, 24)
	app.Update(messages.ViewChanged{View: messages.ViewSearch})

	app.Update(messages.AnswerCompleted{
		Question: "what is it?",
		Answer:   &domain.Answer{Text: "a pipeline"},
	})

	assert.Equal(t, 1, app.chatView.Turns())
	assert.Equal(t, messages.ViewSearch, app.CurrentView())
}

func TestApp_SearchCompletedReachesSearchView(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(80, 24)

	meta := domain.ChunkMetadata{Source: "a.pdf", Title: "A", PageNumber: 1}
	app.Update(messages.SearchCompleted{
		Query:   "q",
		Results: []domain.SearchResult{domain.NewSearchResult(meta, "text", 0.9)},
	})

	assert.Len(t, app.searchView.Results(), 1)
}

func TestApp_InitWithQuestionAsks(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(80, 24)
	app.WithQuestion("is it on?")

	cmd := app.Init()

	require.NotNil(t, cmd)
	assert.True(t, app.chatView.Busy())
}

func TestApp_SetDimensions(t *testing.T) {
	app := newTestApp(t)

	app.SetDimensions(120, 40)

	assert.Equal(t, 120, app.width)
	assert.Equal(t, 40, app.height)
	assert.True(t, app.Ready())
	assert.True(t, app.chatView.Ready())
	assert.True(t, app.searchView.Ready())
}
