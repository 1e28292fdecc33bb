package matchround

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/lock"
	"github.com/gdugdh24/mpit2026-matching/internal/logger"
	"github.com/gdugdh24/mpit2026-matching/internal/matching"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

type MatchRoundUseCase struct {
	roundRepo         repository.MatchRoundRepository
	matchRepo         repository.MatchRepository
	activityRepo      repository.ActivityRepository
	questionnaireRepo repository.QuestionnaireRepository
	loader            *matching.Loader
	pipeline          *matching.Pipeline
	suggester         *matching.Suggester
	locker            lock.Locker
	lockTTL           time.Duration
	suggestionLimit   int
	logger            *zap.Logger
	now               func() time.Time
}

type Options struct {
	LockTTL         time.Duration
	SuggestionLimit int
}

func NewMatchRoundUseCase(
	roundRepo repository.MatchRoundRepository,
	matchRepo repository.MatchRepository,
	activityRepo repository.ActivityRepository,
	questionnaireRepo repository.QuestionnaireRepository,
	loader *matching.Loader,
	pipeline *matching.Pipeline,
	suggester *matching.Suggester,
	locker lock.Locker,
	opts Options,
	log *zap.Logger,
) *MatchRoundUseCase {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MatchRoundUseCase{
		roundRepo:         roundRepo,
		matchRepo:         matchRepo,
		activityRepo:      activityRepo,
		questionnaireRepo: questionnaireRepo,
		loader:            loader,
		pipeline:          pipeline,
		suggester:         suggester,
		locker:            locker,
		lockTTL:           opts.LockTTL,
		suggestionLimit:   opts.SuggestionLimit,
		logger:            log,
		now:               time.Now,
	}
}

// CreateRoundRequest represents a new match round
type CreateRoundRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// RunResult is what a round execution produced
type RunResult struct {
	Round    *domain.MatchRound   `json:"round"`
	Matches  []*domain.Match      `json:"matches"`
	Excluded []matching.Exclusion `json:"excluded"`
}

// CreateMatchRound schedules a round for an activity. Without scheduled_at the
// round is due immediately.
func (uc *MatchRoundUseCase) CreateMatchRound(ctx context.Context, activityID int64, req *CreateRoundRequest) (*domain.MatchRound, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRound)
	}

	if _, err := uc.activityRepo.GetByID(ctx, activityID); err != nil {
		return nil, err
	}

	scheduledAt := uc.now()
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	round := &domain.MatchRound{
		ActivityID:  activityID,
		Name:        name,
		ScheduledAt: scheduledAt.UTC(),
		Status:      domain.RoundScheduled,
	}
	if err := uc.roundRepo.Create(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to create match round: %w", err)
	}

	uc.logger.Info("match round scheduled",
		append(logger.RoundFields(activityID, round.ID), zap.Time("scheduled_at", round.ScheduledAt))...,
	)
	return round, nil
}

// RunMatchRound executes the matching pipeline for a scheduled round and
// stores every match together with the completed status. On failure nothing is
// stored and the round goes back to scheduled with the reason recorded.
func (uc *MatchRoundUseCase) RunMatchRound(ctx context.Context, roundID int64) (*RunResult, error) {
	round, err := uc.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	log := uc.logger.With(logger.RoundFields(round.ActivityID, round.ID)...)

	if !round.CanRun() {
		metrics.RecordRoundRun("rejected", 0, 0)
		if round.Status == domain.RoundRunning {
			return nil, domain.ErrRoundAlreadyRunning
		}
		return nil, fmt.Errorf("%w: status is %s", domain.ErrRoundNotScheduled, round.Status)
	}

	if _, err := uc.questionnaireRepo.GetByActivityID(ctx, round.ActivityID); err != nil {
		metrics.RecordRoundRun("rejected", 0, 0)
		return nil, err
	}

	unlock, err := uc.locker.TryLock(ctx, "round:"+strconv.FormatInt(roundID, 10), uc.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			metrics.RecordRoundRun("rejected", 0, 0)
			return nil, domain.ErrRoundAlreadyRunning
		}
		return nil, err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release round lock", zap.Error(err))
		}
	}()

	token := uuid.NewString()
	if _, err := uc.roundRepo.MarkRunning(ctx, roundID, token); err != nil {
		metrics.RecordRoundRun("rejected", 0, 0)
		return nil, err
	}

	start := uc.now()
	log.Info("match round started")

	result, err := uc.execute(ctx, round, token)
	if err != nil {
		uc.release(ctx, log, roundID, token, err)
		metrics.RecordRoundRun("failed", time.Since(start), 0)
		return nil, err
	}

	completed, err := uc.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	result.Round = completed

	for _, e := range result.Excluded {
		log.Warn("participant excluded from round", zap.Int64(logger.FieldProfileID, e.ProfileID), zap.String("reason", e.Reason))
	}
	metrics.RecordRoundRun("completed", time.Since(start), len(result.Matches))
	log.Info("match round completed",
		zap.Int("matches", len(result.Matches)),
		zap.Int("excluded", len(result.Excluded)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (uc *MatchRoundUseCase) execute(ctx context.Context, round *domain.MatchRound, token string) (*RunResult, error) {
	pool, err := uc.loader.LoadPool(ctx, round.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	out, err := uc.pipeline.Run(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("matching failed: %w", err)
	}

	for _, m := range out.Matches {
		m.RoundID = round.ID
	}
	if err := uc.roundRepo.Complete(ctx, round.ID, token, out.Matches, matching.ExcludedIDs(out.Excluded)); err != nil {
		return nil, fmt.Errorf("failed to store matches: %w", err)
	}

	matches := out.Matches
	if matches == nil {
		matches = []*domain.Match{}
	}
	return &RunResult{Matches: matches, Excluded: out.Excluded}, nil
}

func (uc *MatchRoundUseCase) release(ctx context.Context, log *zap.Logger, roundID int64, token string, cause error) {
	log.Error("match round failed", zap.Error(cause))
	if err := uc.roundRepo.Release(context.WithoutCancel(ctx), roundID, token, cause.Error()); err != nil {
		log.Error("failed to release match round", zap.Error(err))
	}
}

// CancelMatchRound cancels a round that has not started yet.
func (uc *MatchRoundUseCase) CancelMatchRound(ctx context.Context, roundID int64) (*domain.MatchRound, error) {
	if err := uc.roundRepo.Cancel(ctx, roundID); err != nil {
		return nil, err
	}
	round, err := uc.roundRepo.GetByID(ctx, roundID)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("match round cancelled", logger.RoundFields(round.ActivityID, round.ID)...)
	return round, nil
}

// GetMatchRounds lists an activity's rounds, latest schedule first.
func (uc *MatchRoundUseCase) GetMatchRounds(ctx context.Context, activityID int64) ([]*domain.MatchRound, error) {
	if _, err := uc.activityRepo.GetByID(ctx, activityID); err != nil {
		return nil, err
	}
	rounds, err := uc.roundRepo.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match rounds: %w", err)
	}
	return rounds, nil
}

func (uc *MatchRoundUseCase) GetParticipants(ctx context.Context, activityID int64) ([]*domain.ActivityParticipant, error) {
	if _, err := uc.activityRepo.GetByID(ctx, activityID); err != nil {
		return nil, err
	}
	participants, err := uc.activityRepo.GetParticipants(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (uc *MatchRoundUseCase) GetRoundMatches(ctx context.Context, roundID int64) ([]*domain.Match, error) {
	if _, err := uc.roundRepo.GetByID(ctx, roundID); err != nil {
		return nil, err
	}
	matches, err := uc.matchRepo.ListByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list round matches: %w", err)
	}
	return matches, nil
}

// SuggestCandidates ranks the activity participants a profile could be matched
// with. Pairs blocked by hard filters are never suggested.
func (uc *MatchRoundUseCase) SuggestCandidates(ctx context.Context, activityID, profileID int64) ([]matching.Suggestion, error) {
	if _, err := uc.loader.LoadParticipant(ctx, activityID, profileID); err != nil {
		return nil, err
	}

	pool, err := uc.loader.LoadPool(ctx, activityID)
	if err != nil {
		return nil, err
	}
	target := pool.Find(profileID)
	if target == nil {
		return nil, domain.ErrParticipantNotFound
	}

	rules := uc.pipeline.Filters(pool)
	var candidates []*matching.Participant
	for _, p := range pool.Participants {
		if p.ID() == profileID {
			continue
		}
		kept, _ := matching.FilterPairs([]matching.Pair{matching.NewPair(target, p)}, rules)
		if len(kept) == 1 {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return []matching.Suggestion{}, nil
	}

	return uc.suggester.Suggest(ctx, pool, target, candidates, uc.suggestionLimit)
}
