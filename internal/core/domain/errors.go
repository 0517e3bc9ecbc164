package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no parser handles the document format.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Rewriting and answer generation are disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Neither ingestion nor search can run without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrDuplicateDocument indicates the document source is already indexed.
	// The request is rejected and the store is left untouched.
	ErrDuplicateDocument = errors.New("document already indexed")

	// ErrEmptyDocument indicates parsing yielded no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// Store Errors.

	// ErrCorruptState indicates persisted artifacts are unreadable,
	// misaligned, or were written with a different embedding dimension.
	// It is fatal at startup.
	ErrCorruptState = errors.New("corrupt index state")

	// ErrIndexEmpty indicates a search ran before anything was ingested.
	// This is distinct from a search that found no matches.
	ErrIndexEmpty = errors.New("index is empty")

	// Pipeline Errors.

	// ErrExternalService indicates a call to an external service failed.
	ErrExternalService = errors.New("external service failed")

	// ErrStageTimeout indicates a call to an external service exceeded
	// its deadline.
	ErrStageTimeout = errors.New("external service timed out")
)

// Pipeline stage names used in StageError.
const (
	StageEmbed    = "embed"
	StageRewrite  = "rewrite"
	StageRerank   = "rerank"
	StageCompress = "compress"
	StageGenerate = "generate"
)

// StageError reports which pipeline stage failed.
// It matches ErrExternalService or ErrStageTimeout via errors.Is,
// as well as the underlying cause.
type StageError struct {
	// Stage is the failing stage, e.g. "rerank".
	Stage string

	// Timeout is true when the stage exceeded its deadline.
	Timeout bool

	// Err is the underlying cause.
	Err error
}

// NewStageError wraps err as a failure of the named stage.
// Returns nil when err is nil. Errors that already carry a stage are
// returned unchanged so the innermost stage wins.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// NewStageTimeout wraps err as a deadline overrun of the named stage.
func NewStageTimeout(stage string, err error) error {
	return &StageError{Stage: stage, Timeout: true, Err: err}
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("stage %s timed out: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes both the error kind and the cause.
func (e *StageError) Unwrap() []error {
	kind := ErrExternalService
	if e.Timeout {
		kind = ErrStageTimeout
	}
	return []error{kind, e.Err}
}

// FailedStage returns the stage named by err, or "" if err carries none.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
