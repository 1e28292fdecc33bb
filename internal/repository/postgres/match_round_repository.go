package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const roundColumns = `
	id, activity_id, name, scheduled_at, status, run_token, last_error,
	COALESCE(excluded_profile_ids, '{}') AS excluded_profile_ids,
	started_at, completed_at, created_at, updated_at
`

type matchRoundRepository struct {
	db *sqlx.DB
}

func NewMatchRoundRepository(db *sqlx.DB) repository.MatchRoundRepository {
	return &matchRoundRepository{db: db}
}

type roundRow struct {
	ID                 int64         `db:"id"`
	ActivityID         int64         `db:"activity_id"`
	Name               string        `db:"name"`
	ScheduledAt        time.Time     `db:"scheduled_at"`
	Status             string        `db:"status"`
	RunToken           *string       `db:"run_token"`
	LastError          *string       `db:"last_error"`
	ExcludedProfileIDs pq.Int64Array `db:"excluded_profile_ids"`
	StartedAt          *time.Time    `db:"started_at"`
	CompletedAt        *time.Time    `db:"completed_at"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

func (r roundRow) toDomain() *domain.MatchRound {
	return &domain.MatchRound{
		ID:                 r.ID,
		ActivityID:         r.ActivityID,
		Name:               r.Name,
		ScheduledAt:        r.ScheduledAt,
		Status:             domain.RoundStatus(r.Status),
		RunToken:           r.RunToken,
		LastError:          r.LastError,
		ExcludedProfileIDs: []int64(r.ExcludedProfileIDs),
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (r *matchRoundRepository) Create(ctx context.Context, round *domain.MatchRound) error {
	if round.Status == "" {
		round.Status = domain.RoundScheduled
	}
	query := `
		INSERT INTO match_rounds (activity_id, name, scheduled_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, round.ActivityID, round.Name, round.ScheduledAt, string(round.Status)).
		Scan(&round.ID, &round.CreatedAt, &round.UpdatedAt)
}

func (r *matchRoundRepository) GetByID(ctx context.Context, id int64) (*domain.MatchRound, error) {
	var row roundRow
	query := `SELECT ` + roundColumns + ` FROM match_rounds WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *matchRoundRepository) ListByActivity(ctx context.Context, activityID int64) ([]*domain.MatchRound, error) {
	var rows []roundRow
	query := `SELECT ` + roundColumns + ` FROM match_rounds WHERE activity_id = $1 ORDER BY scheduled_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, query, activityID); err != nil {
		return nil, err
	}
	return toRounds(rows), nil
}

func (r *matchRoundRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.MatchRound, error) {
	var rows []roundRow
	query := `
		SELECT ` + roundColumns + ` FROM match_rounds
		WHERE status = 'scheduled' AND scheduled_at <= $1
		  AND EXISTS (
			SELECT 1 FROM activity_questionnaires q
			WHERE q.activity_id = match_rounds.activity_id
		  )
		ORDER BY updated_at, id
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, err
	}
	return toRounds(rows), nil
}

func toRounds(rows []roundRow) []*domain.MatchRound {
	rounds := make([]*domain.MatchRound, 0, len(rows))
	for _, row := range rows {
		rounds = append(rounds, row.toDomain())
	}
	return rounds
}

func (r *matchRoundRepository) MarkRunning(ctx context.Context, id int64, token string) (*domain.MatchRound, error) {
	var row roundRow
	query := `
		UPDATE match_rounds
		SET status = 'running', run_token = $2, started_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + roundColumns
	err := r.db.GetContext(ctx, &row, query, id, token)
	if err == nil {
		return row.toDomain(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, statusError(current.Status)
}

func statusError(status domain.RoundStatus) error {
	if status == domain.RoundRunning {
		return domain.ErrRoundAlreadyRunning
	}
	return fmt.Errorf("%w: status is %s", domain.ErrRoundNotScheduled, status)
}

func (r *matchRoundRepository) Complete(ctx context.Context, id int64, token string, matches []*domain.Match, excluded []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE match_rounds
		SET status = 'completed', run_token = NULL, last_error = NULL,
		    excluded_profile_ids = $3, completed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND run_token = $2 AND status = 'running'
	`
	result, err := tx.ExecContext(ctx, query, id, token, pq.Array(excluded))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRoundRunLost
	}

	for _, match := range matches {
		match.RoundID = id
		if err := insertMatch(ctx, tx, match); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateMatch, match.Key())
			}
			return fmt.Errorf("insert match %s: %w", match.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit round %d: %w", id, err)
	}
	return nil
}

func (r *matchRoundRepository) Release(ctx context.Context, id int64, token string, reason string) error {
	query := `
		UPDATE match_rounds
		SET status = 'scheduled', run_token = NULL, last_error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND run_token = $2 AND status = 'running'
	`
	result, err := r.db.ExecContext(ctx, query, id, token, reason)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRoundRunLost
	}
	return nil
}

func (r *matchRoundRepository) ReclaimStale(ctx context.Context, startedBefore time.Time, reason string) (int64, error) {
	query := `
		UPDATE match_rounds
		SET status = 'scheduled', run_token = NULL, last_error = $2, updated_at = CURRENT_TIMESTAMP
		WHERE status = 'running' AND started_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, startedBefore, reason)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *matchRoundRepository) Cancel(ctx context.Context, id int64) error {
	query := `
		UPDATE match_rounds
		SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'scheduled'
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return statusError(current.Status)
	}
	return nil
}
