package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

type MatchRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Match, error)
	ListByRound(ctx context.Context, roundID int64) ([]*domain.Match, error)
	// ListPairsByActivity returns the pairs matched in completed rounds of the activity.
	ListPairsByActivity(ctx context.Context, activityID int64) ([]domain.PairKey, error)
	GetProfileMatches(ctx context.Context, profileID int64, limit, offset int) ([]*domain.Match, error)
	GetMutualMatches(ctx context.Context, profileID int64, limit, offset int) ([]*domain.Match, error)
	// RecordVote writes the profile's vote and recomputes is_mutual_match as one
	// atomic update. The bool reports whether this vote made the match mutual.
	RecordVote(ctx context.Context, matchID, profileID int64, vote domain.Vote) (*domain.Match, bool, error)
}
