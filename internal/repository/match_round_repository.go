package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

type MatchRoundRepository interface {
	Create(ctx context.Context, round *domain.MatchRound) error
	GetByID(ctx context.Context, id int64) (*domain.MatchRound, error)
	ListByActivity(ctx context.Context, activityID int64) ([]*domain.MatchRound, error)
	// ListDue returns scheduled rounds due at now whose activity has a
	// questionnaire, least recently touched first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.MatchRound, error)
	// MarkRunning moves a scheduled round to running and stamps it with token.
	// It is a compare-and-set: only one caller can win for a given round.
	MarkRunning(ctx context.Context, id int64, token string) (*domain.MatchRound, error)
	// Complete stores the matches and moves the round to completed in one transaction.
	Complete(ctx context.Context, id int64, token string, matches []*domain.Match, excluded []int64) error
	// Release puts a running round back to scheduled and records the failure reason.
	Release(ctx context.Context, id int64, token string, reason string) error
	// ReclaimStale puts rounds that started running before startedBefore back to
	// scheduled, clearing their token. It returns how many rounds moved.
	ReclaimStale(ctx context.Context, startedBefore time.Time, reason string) (int64, error)
	Cancel(ctx context.Context, id int64) error
}
