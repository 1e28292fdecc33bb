package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	originalSleep := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = originalSleep })
	return &waits
}

func TestDoRetriesTransientErrors(t *testing.T) {
	waits := noSleep(t)
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: 100 * time.Millisecond}

	var calls int
	got, err := Do(context.Background(), policy, zap.NewNop(), "embed", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *waits)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	noSleep(t)
	transient := errors.New("deadline")

	var calls int
	_, err := Do(context.Background(), RetryPolicy{MaxAttempts: 2}, nil, "generate", func(context.Context) (int, error) {
		calls++
		return 0, transient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 2, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	waits := noSleep(t)
	invalid := errors.New("invalid api key")

	var calls int
	_, err := Do(context.Background(), RetryPolicy{MaxAttempts: 5}, nil, "embed", func(context.Context) (int, error) {
		calls++
		return 0, Permanent(invalid)
	})

	assert.ErrorIs(t, err, invalid)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestDoAppliesPerAttemptTimeout(t *testing.T) {
	noSleep(t)

	var calls int
	_, err := Do(context.Background(), RetryPolicy{MaxAttempts: 2, Timeout: 10 * time.Millisecond}, nil, "embed",
		func(ctx context.Context) (int, error) {
			calls++
			<-ctx.Done()
			return 0, ctx.Err()
		})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestDoHonoursCancelledParent(t *testing.T) {
	noSleep(t)
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	_, err := Do(ctx, RetryPolicy{MaxAttempts: 5}, nil, "embed", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffIsCapped(t *testing.T) {
	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 3*time.Second, p.Backoff(3))
	assert.Equal(t, 3*time.Second, p.Backoff(10))
}

func TestRetryingEmbedder(t *testing.T) {
	noSleep(t)
	var calls atomic.Int32
	inner := EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("rate limited")
		}
		return []float32{float32(len(text))}, nil
	})

	vec, err := WithEmbedRetry(inner, RetryPolicy{MaxAttempts: 3}, zap.NewNop()).Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, vec)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRateLimitedGeneratorWaits(t *testing.T) {
	limiter := NewLimiter(1, 1)
	gen := RateLimitedGenerator(GeneratorFunc(func(context.Context, string) (string, error) {
		return "ok", nil
	}), limiter)

	out, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, "p")
	assert.Error(t, err, "second call must not fit into the 10ms window of a 1 rps bucket")
}

func TestNewLimiterDisabled(t *testing.T) {
	limiter := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}
