package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
)

// RetryPolicy bounds the attempts made for one external call.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Timeout applies to each attempt; a timed out attempt is retried.
	Timeout time.Duration
}

// sleep waits for d or until ctx is done. Replaced in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the delay before retry number n (1-based), doubling each time.
func (p RetryPolicy) Backoff(n int) time.Duration {
	base := p.InitialBackoff
	if base <= 0 {
		base = defaultInitialBackoff
	}
	max := p.MaxBackoff
	if max <= 0 {
		max = defaultMaxBackoff
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}

// Do runs fn until it succeeds, returns a permanent error, the parent context
// ends, or the attempts are exhausted.
func Do[T any](ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if policy.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}
		result, err := fn(callCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: %w", op, errors.Join(ctx.Err(), err))
		}
		if attempt == attempts {
			break
		}

		delay := policy.Backoff(attempt)
		logger.Warn("ai call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s: %w", op, errors.Join(err, lastErr))
		}
	}

	return zero, fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, lastErr)
}

type retryingEmbedder struct {
	next   Embedder
	policy RetryPolicy
	logger *zap.Logger
}

// WithEmbedRetry wraps an Embedder with the retry policy.
func WithEmbedRetry(next Embedder, policy RetryPolicy, logger *zap.Logger) Embedder {
	return &retryingEmbedder{next: next, policy: policy, logger: logger}
}

func (r *retryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return Do(ctx, r.policy, r.logger, "embed", func(ctx context.Context) ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

type retryingGenerator struct {
	next   Generator
	policy RetryPolicy
	logger *zap.Logger
}

// WithGenerateRetry wraps a Generator with the retry policy.
func WithGenerateRetry(next Generator, policy RetryPolicy, logger *zap.Logger) Generator {
	return &retryingGenerator{next: next, policy: policy, logger: logger}
}

func (r *retryingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return Do(ctx, r.policy, r.logger, "generate", func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, prompt)
	})
}
