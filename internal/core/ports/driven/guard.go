package driven

import (
	"context"
	"time"
)

// StageGuard bounds one external call of the answer or ingest pipeline.
// Implementations apply deadlines, rate limits and retries, and report
// failures as *domain.StageError naming the stage.
type StageGuard interface {
	// Do runs fn under the guard. fn must honour the context it is given.
	Do(ctx context.Context, stage string, fn func(ctx context.Context) error) error
}

// MetricsRecorder receives pipeline events for observability.
// All methods must be safe for concurrent use.
type MetricsRecorder interface {
	// ObserveStage records one guarded call and its outcome.
	ObserveStage(stage string, elapsed time.Duration, err error)

	// ObserveRetry records a retry of the stage.
	ObserveRetry(stage string)

	// DocumentIngested records a successful ingest.
	DocumentIngested(chunks int)

	// IngestFailed records a rejected or failed ingest.
	IngestFailed(reason string)

	// QuestionAnswered records an answer, grounded or not.
	QuestionAnswered(grounded bool)
}
