// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoAnswerService indicates that no answer service was provided.
var ErrNoAnswerService = errors.New("answer service is required")

// reserved is the number of lines used by the header, input and status bar.
const reserved = 7

// turn is one question with its outcome.
type turn struct {
	question string
	answer   *domain.Answer
	err      error
	elapsed  time.Duration
}

// View is a scrolling transcript with an input line. Questions are
// answered one at a time; input is ignored while an answer is pending.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Prompt
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	turns       []turn
	pending     string
	busy        bool
	showSources bool

	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, answerService driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Answer

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewPrompt(s, "Ask:", "Ask a question about your documents..."),
		viewport:      viewport.New(80, 24-reserved),
		spinner:       sp,
		statusbar:     status.NewBar(s, km.ChatHelp()),
		answerService: answerService,
		ctx:           context.Background(),
		showSources:   true,
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerCompleted:
		v.handleAnswerCompleted(msg)
		return v, nil

	case spinner.TickMsg:
		if !v.busy {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.refresh()
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.PageUp), keymap.Matches(keyStr, v.keymap.PageDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(keyStr, v.keymap.ToggleSources):
		v.showSources = !v.showSources
		v.refresh()
		return v, nil

	case keymap.Matches(keyStr, v.keymap.Clear):
		if !v.busy {
			v.turns = nil
			v.statusbar.Clear()
			v.refresh()
		}
		return v, nil
	}

	if v.busy {
		return v, nil
	}

	if keymap.Matches(keyStr, v.keymap.Submit) {
		question := strings.TrimSpace(v.input.Value())
		if question == "" {
			return v, nil
		}
		v.input.Reset()
		return v, v.Submit(question)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// Submit starts answering question.
func (v *View) Submit(question string) tea.Cmd {
	v.busy = true
	v.pending = question
	v.statusbar.SetState(status.StateThinking)
	v.refresh()
	return tea.Batch(v.spinner.Tick, v.ask(question))
}

// ask runs the answer chain and reports the outcome as a message.
func (v *View) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if v.answerService == nil {
			return messages.AnswerCompleted{Question: question, Err: ErrNoAnswerService}
		}

		start := time.Now()
		answer, err := v.answerService.Answer(v.ctx, question)
		return messages.AnswerCompleted{
			Question: question,
			Answer:   answer,
			Err:      err,
			Elapsed:  time.Since(start),
		}
	}
}

// handleAnswerCompleted records the finished turn.
func (v *View) handleAnswerCompleted(msg messages.AnswerCompleted) {
	v.busy = false
	v.pending = ""
	v.turns = append(v.turns, turn{
		question: msg.Question,
		answer:   msg.Answer,
		err:      msg.Err,
		elapsed:  msg.Elapsed,
	})

	if msg.Err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(fmt.Sprintf("Answered in %s", msg.Elapsed.Round(100*time.Millisecond)))
	}
	v.refresh()
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.transcript())
	v.viewport.GotoBottom()
}

// transcript renders every turn, plus the pending question.
func (v *View) transcript() string {
	if len(v.turns) == 0 && !v.busy {
		return v.styles.Muted.Render("Ask anything about the indexed documents. Answers use only their content.")
	}

	wrap := v.styles.Normal.Width(v.width - 2)
	blocks := make([]string, 0, len(v.turns)+1)

	for i := range v.turns {
		blocks = append(blocks, v.renderTurn(&v.turns[i], wrap))
	}
	if v.busy {
		blocks = append(blocks,
			v.styles.Question.Render("You: ")+wrap.Render(v.pending)+"\n"+
				v.spinner.View()+v.styles.Muted.Render(" retrieving and generating..."))
	}

	return strings.Join(blocks, "\n\n")
}

func (v *View) renderTurn(t *turn, wrap lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(v.styles.Question.Render("You: "))
	b.WriteString(wrap.Render(t.question))
	b.WriteString("\n")

	if t.err != nil {
		msg := "Error: " + t.err.Error()
		if stage := domain.FailedStage(t.err); stage != "" {
			msg = fmt.Sprintf("Error in %s stage: %v", stage, t.err)
		}
		b.WriteString(v.styles.Error.Render(msg))
		return b.String()
	}

	b.WriteString(v.styles.Answer.Render("Answer: "))
	if t.answer.Grounded {
		b.WriteString(wrap.Render(t.answer.Text))
	} else {
		b.WriteString(v.styles.Warning.Render(t.answer.Text))
	}

	if v.showSources && len(t.answer.Sources) > 0 {
		for i := range t.answer.Sources {
			line := fmt.Sprintf("  [%d] %s  %.3f", i+1, list.Citation(&t.answer.Sources[i]), t.answer.Sources[i].Similarity)
			b.WriteString("\n")
			b.WriteString(v.styles.Source.Render(line))
		}
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("sercha-rag"),
		v.viewport.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	vpHeight := height - reserved
	if vpHeight < 3 {
		vpHeight = 3
	}
	v.viewport.Width = width
	v.viewport.Height = vpHeight
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Busy reports whether an answer is pending.
func (v *View) Busy() bool {
	return v.busy
}

// Turns returns the number of finished turns.
func (v *View) Turns() int {
	return len(v.turns)
}

// ShowSources reports whether sources are listed under answers.
func (v *View) ShowSources() bool {
	return v.showSources
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}
