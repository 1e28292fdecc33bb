package vote

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/logger"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type VoteUseCase struct {
	matchRepo repository.MatchRepository
	logger    *zap.Logger
}

func NewVoteUseCase(matchRepo repository.MatchRepository, log *zap.Logger) *VoteUseCase {
	if log == nil {
		log = zap.NewNop()
	}
	return &VoteUseCase{matchRepo: matchRepo, logger: log}
}

// VoteRequest represents a vote on a match
type VoteRequest struct {
	Vote string `json:"vote" binding:"required,oneof=up down"`
}

// MatchView is a match as seen by one of its parties
type MatchView struct {
	ID             int64       `json:"id"`
	RoundID        int64       `json:"round_id"`
	ActivityID     int64       `json:"activity_id"`
	OtherProfileID int64       `json:"other_profile_id"`
	Score          float64     `json:"match_score"`
	Explanation    string      `json:"explanation"`
	Icebreaker     string      `json:"icebreaker"`
	MyVote         domain.Vote `json:"my_vote"`
	OtherVote      domain.Vote `json:"other_vote"`
	IsMutualMatch  bool        `json:"is_mutual_match"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewMatchView projects m for profileID. The other side's vote is only
// revealed once the match is mutual.
func NewMatchView(m *domain.Match, profileID int64) MatchView {
	other, _ := m.GetOtherProfileID(profileID)
	view := MatchView{
		ID:             m.ID,
		RoundID:        m.RoundID,
		ActivityID:     m.ActivityID,
		OtherProfileID: other,
		Score:          m.Score,
		Explanation:    m.ExplanationFor(profileID),
		IsMutualMatch:  m.IsMutualMatch,
		CreatedAt:      m.CreatedAt,
		OtherVote:      domain.VoteUnset,
	}
	switch m.Side(profileID) {
	case 1:
		view.MyVote = m.Profile1Vote
		view.Icebreaker = m.IcebreakerForProfile1
		if m.IsMutualMatch {
			view.OtherVote = m.Profile2Vote
		}
	case 2:
		view.MyVote = m.Profile2Vote
		view.Icebreaker = m.IcebreakerForProfile2
		if m.IsMutualMatch {
			view.OtherVote = m.Profile1Vote
		}
	}
	return view
}

// RecordVote stores the profile's vote on a match. Only the two parties may
// vote; the match becomes mutual when both votes are up.
func (uc *VoteUseCase) RecordVote(ctx context.Context, matchID, profileID int64, rawVote string) (*domain.Match, error) {
	vote, err := domain.ParseVote(rawVote)
	if err != nil {
		return nil, err
	}

	match, becameMutual, err := uc.matchRepo.RecordVote(ctx, matchID, profileID, vote)
	if err != nil {
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(vote)).Inc()
	log := uc.logger.With(
		zap.Int64(logger.FieldMatchID, matchID),
		zap.Int64(logger.FieldProfileID, profileID),
		zap.String("vote", string(vote)),
	)
	if becameMutual {
		metrics.MutualMatchesTotal.Inc()
		log.Info("mutual match")
	} else {
		log.Debug("vote recorded")
	}
	return match, nil
}

// GetMatchesForProfile returns the profile's matches, newest first.
func (uc *VoteUseCase) GetMatchesForProfile(ctx context.Context, profileID int64, limit, offset int) ([]MatchView, error) {
	limit, offset = page(limit, offset)
	matches, err := uc.matchRepo.GetProfileMatches(ctx, profileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	return views(matches, profileID), nil
}

// GetMutualMatchesForProfile returns only matches both parties voted up, newest first.
func (uc *VoteUseCase) GetMutualMatchesForProfile(ctx context.Context, profileID int64, limit, offset int) ([]MatchView, error) {
	limit, offset = page(limit, offset)
	matches, err := uc.matchRepo.GetMutualMatches(ctx, profileID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get mutual matches: %w", err)
	}
	return views(matches, profileID), nil
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func views(matches []*domain.Match, profileID int64) []MatchView {
	out := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		out = append(out, NewMatchView(m, profileID))
	}
	return out
}
