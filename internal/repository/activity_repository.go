package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

type ActivityRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Activity, error)
	GetParticipants(ctx context.Context, activityID int64) ([]*domain.ActivityParticipant, error)
	GetParticipant(ctx context.Context, activityID, profileID int64) (*domain.ActivityParticipant, error)
	GetExclusions(ctx context.Context, activityID int64) ([]*domain.ActivityExclusion, error)
}

type QuestionnaireRepository interface {
	// GetByActivityID returns domain.ErrQuestionnaireMissing when none is attached.
	GetByActivityID(ctx context.Context, activityID int64) (*domain.Questionnaire, error)
}
