package status

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap().ChatHelp())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
}

func TestBar_ViewByState(t *testing.T) {
	tests := []struct {
		state   State
		message string
		count   int
		want    string
	}{
		{StateReady, "", 0, "Ready"},
		{StateReady, "Answered in 1.2s", 0, "Answered in 1.2s"},
		{StateThinking, "", 0, "Thinking..."},
		{StateSearching, "", 0, "Searching..."},
		{StateError, "index is empty", 0, "Error: index is empty"},
		{StateError, "", 0, "Error"},
		{StateResults, "", 4, "4 passages"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state)+tt.message, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetCount(tt.count)

			assert.Contains(t, bar.View(), tt.want)
		})
	}
}

func TestBar_ShowsHints(t *testing.T) {
	bindings := []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send"))}
	bar := NewBar(nil, bindings)
	bar.SetWidth(100)

	assert.Contains(t, bar.View(), "enter: send")
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetCount(3)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.count)
}
