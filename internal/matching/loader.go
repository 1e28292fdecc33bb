package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

// Loader reads an activity's participant pool from the record store.
type Loader struct {
	activities     repository.ActivityRepository
	questionnaires repository.QuestionnaireRepository
	profiles       repository.ProfileRepository
	matches        repository.MatchRepository
	logger         *zap.Logger
}

func NewLoader(
	activities repository.ActivityRepository,
	questionnaires repository.QuestionnaireRepository,
	profiles repository.ProfileRepository,
	matches repository.MatchRepository,
	logger *zap.Logger,
) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		activities:     activities,
		questionnaires: questionnaires,
		profiles:       profiles,
		matches:        matches,
		logger:         logger,
	}
}

// LoadPool returns the activity with its questionnaire, eligible participants,
// exclusion rules and pairs matched in earlier completed rounds.
func (l *Loader) LoadPool(ctx context.Context, activityID int64) (*Pool, error) {
	activity, err := l.activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	questionnaire, err := l.questionnaires.GetByActivityID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	participants, err := l.activities.GetParticipants(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	eligible := make([]*domain.ActivityParticipant, 0, len(participants))
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		if !p.IsEligible() {
			continue
		}
		eligible = append(eligible, p)
		ids = append(ids, p.ProfileID)
	}

	profiles, err := l.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	pool := &Pool{Activity: activity, Questionnaire: questionnaire}
	for _, p := range eligible {
		profile, ok := profiles[p.ProfileID]
		if !ok {
			l.logger.Warn("participant without profile skipped",
				zap.Int64("activity_id", activityID),
				zap.Int64("profile_id", p.ProfileID),
			)
			continue
		}
		pool.Participants = append(pool.Participants, &Participant{Profile: profile, Participant: p})
	}
	sort.Slice(pool.Participants, func(i, j int) bool {
		return pool.Participants[i].ID() < pool.Participants[j].ID()
	})

	if pool.Exclusions, err = l.activities.GetExclusions(ctx, activityID); err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	if pool.PreviousPairs, err = l.matches.ListPairsByActivity(ctx, activityID); err != nil {
		return nil, fmt.Errorf("failed to load previous matches: %w", err)
	}

	return pool, nil
}

// LoadParticipant returns one eligible participant of an activity.
func (l *Loader) LoadParticipant(ctx context.Context, activityID, profileID int64) (*Participant, error) {
	participant, err := l.activities.GetParticipant(ctx, activityID, profileID)
	if err != nil {
		return nil, err
	}
	if !participant.IsEligible() {
		return nil, fmt.Errorf("%w: profile %d has not completed the questionnaire", domain.ErrNoEligibleParticipant, profileID)
	}

	profile, err := l.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &Participant{Profile: profile, Participant: participant}, nil
}
