package matchround

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

func TestSchedulerRunsDueRounds(t *testing.T) {
	e := setup(t, options{})
	ctx := context.Background()

	due := e.createRound(t)
	future := time.Now().Add(time.Hour)
	later, err := e.uc.CreateMatchRound(ctx, e.activity.ID, &CreateRoundRequest{Name: "later", ScheduledAt: &future})
	require.NoError(t, err)

	s := NewScheduler(e.uc, e.store.Rounds(), time.Minute, 10, 0, zap.NewNop())
	assert.Equal(t, 1, s.RunDue(ctx))

	got, err := e.store.Rounds().GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundCompleted, got.Status)

	got, err = e.store.Rounds().GetByID(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundScheduled, got.Status)

	assert.Zero(t, s.RunDue(ctx))
}

type stubRunner struct {
	calls []int64
	err   error
}

func (r *stubRunner) RunMatchRound(_ context.Context, id int64) (*RunResult, error) {
	r.calls = append(r.calls, id)
	return nil, r.err
}

func TestSchedulerLogsFailures(t *testing.T) {
	e := setup(t, options{})
	ctx := context.Background()
	round := e.createRound(t)

	core, logs := observer.New(zapcore.DebugLevel)
	runner := &stubRunner{err: errors.New("boom")}
	s := NewScheduler(runner, e.store.Rounds(), time.Minute, 0, 0, zap.New(core))

	assert.Zero(t, s.RunDue(ctx))
	assert.Equal(t, []int64{round.ID}, runner.calls)
	assert.Equal(t, 1, logs.FilterMessage("scheduled round failed").Len())

	runner.err = domain.ErrRoundAlreadyRunning
	s.RunDue(ctx)
	assert.Equal(t, 1, logs.FilterMessage("due round skipped").Len())

	runner.err = domain.ErrQuestionnaireMissing
	s.RunDue(ctx)
	skipped := logs.FilterMessage("due round skipped").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, zapcore.DebugLevel, skipped[1].Level)
	assert.Equal(t, 1, logs.FilterMessage("scheduled round failed").Len())
}

func TestSchedulerIsNotStarvedByRoundsWithoutQuestionnaire(t *testing.T) {
	e := setup(t, options{})
	ctx := context.Background()

	bare := e.store.AddActivity(domain.Activity{Name: "Chess", Type: "indoor"})
	early := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 2; i++ {
		_, err := e.uc.CreateMatchRound(ctx, bare.ID, &CreateRoundRequest{Name: "no questionnaire", ScheduledAt: &early})
		require.NoError(t, err)
	}
	recent := time.Now().Add(-time.Minute)
	runnable, err := e.uc.CreateMatchRound(ctx, e.activity.ID, &CreateRoundRequest{Name: "runnable", ScheduledAt: &recent})
	require.NoError(t, err)

	s := NewScheduler(e.uc, e.store.Rounds(), time.Minute, 2, 0, zap.NewNop())
	for i := 0; i < 5; i++ {
		s.RunDue(ctx)
	}

	got, err := e.store.Rounds().GetByID(ctx, runnable.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundCompleted, got.Status)
}

type failOnRound struct {
	repository.MatchRoundRepository
	id *int64
}

func (f failOnRound) Complete(ctx context.Context, id int64, token string, matches []*domain.Match, excluded []int64) error {
	if id == *f.id {
		return errors.New("connection reset")
	}
	return f.MatchRoundRepository.Complete(ctx, id, token, matches, excluded)
}

func TestSchedulerRotatesReleasedRounds(t *testing.T) {
	var broken int64
	e := setup(t, options{wrapRounds: func(r repository.MatchRoundRepository) repository.MatchRoundRepository {
		return failOnRound{MatchRoundRepository: r, id: &broken}
	}})
	ctx := context.Background()

	var ticks atomic.Int64
	base := time.Now().Add(-time.Hour)
	e.store.SetClock(func() time.Time { return base.Add(time.Duration(ticks.Add(1)) * time.Millisecond) })

	past := time.Now().Add(-time.Minute)
	stuck, err := e.uc.CreateMatchRound(ctx, e.activity.ID, &CreateRoundRequest{Name: "stuck", ScheduledAt: &past})
	require.NoError(t, err)
	broken = stuck.ID
	healthy, err := e.uc.CreateMatchRound(ctx, e.activity.ID, &CreateRoundRequest{Name: "healthy", ScheduledAt: &past})
	require.NoError(t, err)

	s := NewScheduler(e.uc, e.store.Rounds(), time.Minute, 1, 0, zap.NewNop())
	assert.Zero(t, s.RunDue(ctx))
	assert.Equal(t, 1, s.RunDue(ctx))

	got, err := e.store.Rounds().GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundCompleted, got.Status)

	got, err = e.store.Rounds().GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundScheduled, got.Status)
	require.NotNil(t, got.LastError)
}

func TestSchedulerReclaimsAbandonedRuns(t *testing.T) {
	e := setup(t, options{})
	ctx := context.Background()
	round := e.createRound(t)
	_, err := e.store.Rounds().MarkRunning(ctx, round.ID, "crashed-process")
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	s := NewScheduler(e.uc, e.store.Rounds(), time.Minute, 10, 5*time.Minute, zap.New(core))

	assert.Zero(t, s.RunDue(ctx))
	got, err := e.store.Rounds().GetByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundRunning, got.Status)

	later := time.Now().Add(10 * time.Minute)
	s.now = func() time.Time { return later }
	assert.Equal(t, 1, s.RunDue(ctx))
	assert.Equal(t, 1, logs.FilterMessage("reclaimed stale rounds").Len())

	got, err = e.store.Rounds().GetByID(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundCompleted, got.Status)
}

func TestSchedulerStopsWithContext(t *testing.T) {
	e := setup(t, options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewScheduler(&stubRunner{}, e.store.Rounds(), 5*time.Millisecond, 1, 0, nil).Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
