package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// guarded runs fn under guard and returns its value. Without a guard the
// call runs directly and a failure is still reported as a stage error.
func guarded[T any](
	ctx context.Context,
	guard driven.StageGuard,
	stage string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var out T
	if guard == nil {
		v, err := fn(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return out, domain.NewStageTimeout(stage, err)
		}
		if err != nil {
			return out, domain.NewStageError(stage, err)
		}
		return v, nil
	}

	err := guard.Do(ctx, stage, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
