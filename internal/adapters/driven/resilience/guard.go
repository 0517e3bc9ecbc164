// Package resilience bounds calls to external services with a deadline,
// an optional token-bucket rate limit, optional exponential backoff and an
// optional per-stage circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Guard implements the interface.
var _ driven.StageGuard = (*Guard)(nil)

// Default backoff intervals.
const (
	DefaultInitialInterval = 250 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
	DefaultBreakerCooldown = 30 * time.Second
)

// Config configures a Guard. The zero value runs each call once with no
// deadline and no rate limit.
type Config struct {
	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration

	// Rate is the sustained calls per second. Zero disables limiting.
	Rate float64

	// Burst is the limiter bucket size (minimum 1).
	Burst int

	// MaxRetries is how many times a failed attempt is retried.
	MaxRetries int

	// InitialInterval and MaxInterval shape the backoff between retries.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// BreakerFailures opens a stage's breaker after that many consecutive
	// failed calls. Zero disables the breaker.
	BreakerFailures int

	// BreakerCooldown is how long an open breaker rejects calls before
	// letting one probe through.
	BreakerCooldown time.Duration
}

// ConfigFromSettings converts guard settings.
func ConfigFromSettings(s domain.GuardSettings) Config {
	return Config{
		Timeout:    s.Timeout,
		Rate:       s.Rate,
		Burst:      s.Burst,
		MaxRetries: s.MaxRetries,

		BreakerFailures: s.BreakerFailures,
		BreakerCooldown: s.BreakerCooldown,
	}
}

// Guard implements driven.StageGuard.
type Guard struct {
	cfg      Config
	limiter  *rate.Limiter
	recorder driven.MetricsRecorder

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// Option configures a Guard.
type Option func(*Guard)

// WithRecorder reports every call and retry to r.
func WithRecorder(r driven.MetricsRecorder) Option {
	return func(g *Guard) {
		g.recorder = r
	}
}

// New creates a Guard.
func New(cfg Config, opts ...Option) *Guard {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = DefaultBreakerCooldown
	}

	g := &Guard{cfg: cfg, breakers: make(map[string]*gobreaker.CircuitBreaker)}
	if cfg.Rate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), max(cfg.Burst, 1))
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do runs fn, retrying failed attempts with exponential backoff. A
// per-attempt deadline overrun is retried while the caller's context is
// live; once the caller's context is done nothing is retried.
//
// When the stage's breaker is open the call fails at once without
// reaching fn.
//
// The returned error is a *domain.StageError: ErrStageTimeout for
// deadline overruns, ErrExternalService otherwise.
func (g *Guard) Do(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	start := time.Now()

	var err error
	if cb := g.breaker(stage); cb != nil {
		_, err = cb.Execute(func() (interface{}, error) {
			return nil, g.retry(ctx, stage, fn)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.NewStageError(stage, fmt.Errorf("circuit open: %w", err))
		}
	} else {
		err = g.retry(ctx, stage, fn)
	}

	if g.recorder != nil {
		g.recorder.ObserveStage(stage, time.Since(start), err)
	}
	return err
}

// BreakerState reports the state of a stage's breaker, or "disabled".
func (g *Guard) BreakerState(stage string) string {
	cb := g.breaker(stage)
	if cb == nil {
		return "disabled"
	}
	return cb.State().String()
}

// breaker returns the stage's breaker, creating it on first use.
func (g *Guard) breaker(stage string) *gobreaker.CircuitBreaker {
	if g.cfg.BreakerFailures <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[stage]
	if !ok {
		threshold := uint32(g.cfg.BreakerFailures)
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        stage,
			MaxRequests: 1,
			Timeout:     g.cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("%s: circuit %s -> %s", name, from, to)
			},
			// A caller giving up says nothing about the provider.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		})
		g.breakers[stage] = cb
	}
	return cb
}

// retry runs fn under the backoff policy and wraps the final error.
func (g *Guard) retry(ctx context.Context, stage string, fn func(ctx context.Context) error) error {
	var (
		lastErr  error
		timedOut bool
		attempt  int
	)

	operation := func() error {
		if attempt > 0 {
			logger.Debug("%s: retry %d after: %v", stage, attempt, lastErr)
			if g.recorder != nil {
				g.recorder.ObserveRetry(stage)
			}
		}
		attempt++

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				// Wait fails early when the reservation would outlive the
				// deadline, before the context itself is done.
				lastErr = err
				timedOut = ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded)
				return backoff.Permanent(err)
			}
		}

		err := g.attempt(ctx, fn)
		if err == nil {
			lastErr, timedOut = nil, false
			return nil
		}
		lastErr = err
		timedOut = errors.Is(err, context.DeadlineExceeded)
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.cfg.InitialInterval
	b.MaxInterval = g.cfg.MaxInterval
	b.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.cfg.MaxRetries)), ctx))
	if err != nil {
		// Retry reports the caller's context error when it gives up
		// while waiting; keep the last call's error as the cause.
		if lastErr != nil && !errors.Is(lastErr, err) {
			err = errors.Join(err, lastErr)
		}
		if timedOut || errors.Is(err, context.DeadlineExceeded) {
			err = domain.NewStageTimeout(stage, err)
		} else {
			err = domain.NewStageError(stage, err)
		}
	}
	return err
}

func (g *Guard) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.cfg.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	err := fn(actx)
	if err != nil && actx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
		// Some clients surface the deadline as a transport error.
		err = errors.Join(context.DeadlineExceeded, err)
	}
	return err
}
