// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// AnswerCompleted carries the answer to a question back to the model.
type AnswerCompleted struct {
	Question string
	Answer   *domain.Answer
	Err      error
	Elapsed  time.Duration
}

// SearchCompleted carries retrieved passages back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the question and answer transcript.
	ViewChat ViewType = iota
	// ViewSearch lists raw retrieved passages.
	ViewSearch
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Next returns the view that tab switches to.
func (v ViewType) Next() ViewType {
	if v == ViewChat {
		return ViewSearch
	}
	return ViewChat
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
