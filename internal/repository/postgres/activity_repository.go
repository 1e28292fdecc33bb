package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

type participantRow struct {
	ID         int64          `db:"id"`
	ActivityID int64          `db:"activity_id"`
	ProfileID  int64          `db:"profile_id"`
	Status     string         `db:"status"`
	Answers    types.JSONText `db:"answers"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r participantRow) toDomain() (*domain.ActivityParticipant, error) {
	answers := domain.Answers{}
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &answers); err != nil {
			return nil, fmt.Errorf("decode answers of participant %d: %w", r.ID, err)
		}
	}
	return &domain.ActivityParticipant{
		ID:         r.ID,
		ActivityID: r.ActivityID,
		ProfileID:  r.ProfileID,
		Status:     domain.ParticipantStatus(r.Status),
		Answers:    answers,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

const participantColumns = `id, activity_id, profile_id, status, COALESCE(answers, '{}'::jsonb) AS answers, created_at, updated_at`

func (r *activityRepository) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	var activity domain.Activity
	query := `
		SELECT id, name, type, starts_at, ends_at, matches_per_participant, allow_repeat_matches, created_at
		FROM activities WHERE id = $1
	`
	err := r.db.GetContext(ctx, &activity, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrActivityNotFound
		}
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) GetParticipants(ctx context.Context, activityID int64) ([]*domain.ActivityParticipant, error) {
	var rows []participantRow
	query := `SELECT ` + participantColumns + ` FROM activity_participants WHERE activity_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query, activityID); err != nil {
		return nil, err
	}

	participants := make([]*domain.ActivityParticipant, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, nil
}

func (r *activityRepository) GetParticipant(ctx context.Context, activityID, profileID int64) (*domain.ActivityParticipant, error) {
	var row participantRow
	query := `SELECT ` + participantColumns + ` FROM activity_participants WHERE activity_id = $1 AND profile_id = $2`
	if err := r.db.GetContext(ctx, &row, query, activityID, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, err
	}
	return row.toDomain()
}

func (r *activityRepository) GetExclusions(ctx context.Context, activityID int64) ([]*domain.ActivityExclusion, error) {
	var exclusions []*domain.ActivityExclusion
	query := `
		SELECT id, activity_id, profile_id_1, profile_id_2, reason, created_at
		FROM activity_exclusions WHERE activity_id = $1
	`
	err := r.db.SelectContext(ctx, &exclusions, query, activityID)
	return exclusions, err
}

type questionnaireRepository struct {
	db *sqlx.DB
}

func NewQuestionnaireRepository(db *sqlx.DB) repository.QuestionnaireRepository {
	return &questionnaireRepository{db: db}
}

func (r *questionnaireRepository) GetByActivityID(ctx context.Context, activityID int64) (*domain.Questionnaire, error) {
	var row struct {
		ID         int64          `db:"id"`
		ActivityID int64          `db:"activity_id"`
		Questions  types.JSONText `db:"questions"`
		CreatedAt  time.Time      `db:"created_at"`
	}
	query := `
		SELECT id, activity_id, questions, created_at
		FROM activity_questionnaires WHERE activity_id = $1
		ORDER BY created_at DESC LIMIT 1
	`
	if err := r.db.GetContext(ctx, &row, query, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrQuestionnaireMissing
		}
		return nil, err
	}

	q := &domain.Questionnaire{ID: row.ID, ActivityID: row.ActivityID, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal(row.Questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("decode questionnaire %d: %w", row.ID, err)
	}
	return q, nil
}
