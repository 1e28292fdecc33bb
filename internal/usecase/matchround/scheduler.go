package matchround

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/logger"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

type roundRunner interface {
	RunMatchRound(ctx context.Context, roundID int64) (*RunResult, error)
}

// Scheduler periodically runs rounds whose scheduled time has passed.
// Released rounds become due again on the next tick, behind rounds that
// have waited longer. Rounds left running for longer than staleAfter are
// put back to scheduled before each batch.
type Scheduler struct {
	runner     roundRunner
	rounds     repository.MatchRoundRepository
	interval   time.Duration
	batchSize  int
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewScheduler(runner roundRunner, rounds repository.MatchRoundRepository, interval time.Duration, batchSize int, staleAfter time.Duration, log *zap.Logger) *Scheduler {
	if batchSize < 1 {
		batchSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		runner:     runner,
		rounds:     rounds,
		interval:   interval,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		logger:     log,
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("round scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("round scheduler stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue runs every due round once and returns how many completed.
func (s *Scheduler) RunDue(ctx context.Context) int {
	s.reclaimStale(ctx)

	due, err := s.rounds.ListDue(ctx, s.now(), s.batchSize)
	if err != nil {
		s.logger.Error("failed to list due rounds", zap.Error(err))
		return 0
	}

	completed := 0
	for _, round := range due {
		if ctx.Err() != nil {
			break
		}
		fields := logger.RoundFields(round.ActivityID, round.ID)
		if _, err := s.runner.RunMatchRound(ctx, round.ID); err != nil {
			switch {
			case errors.Is(err, domain.ErrRoundAlreadyRunning),
				errors.Is(err, domain.ErrRoundNotScheduled),
				errors.Is(err, domain.ErrQuestionnaireMissing):
				s.logger.Debug("due round skipped", append(fields, zap.Error(err))...)
			default:
				s.logger.Warn("scheduled round failed", append(fields, zap.Error(err))...)
			}
			continue
		}
		completed++
	}
	return completed
}

// reclaimStale puts back rounds whose run was abandoned by a crashed or
// killed process. A zero staleAfter disables it.
func (s *Scheduler) reclaimStale(ctx context.Context) {
	if s.staleAfter <= 0 {
		return
	}
	n, err := s.rounds.ReclaimStale(ctx, s.now().Add(-s.staleAfter), "run abandoned")
	if err != nil {
		s.logger.Error("failed to reclaim stale rounds", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("reclaimed stale rounds", zap.Int64("count", n))
	}
}
