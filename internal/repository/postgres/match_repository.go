package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
	"github.com/jmoiron/sqlx"
)

const matchColumns = `
	id, round_id, activity_id, profile_id_1, profile_id_2, match_score,
	explanation_for_profile_1, explanation_for_profile_2,
	icebreaker_for_profile_1, icebreaker_for_profile_2,
	profile_1_vote, profile_2_vote, is_mutual_match, created_at, updated_at
`

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

// insertMatch stores a match inside the round completion transaction.
func insertMatch(ctx context.Context, tx *sqlx.Tx, match *domain.Match) error {
	// Ensure profile_id_1 < profile_id_2 for the unique pair constraint
	key := match.Key()
	match.ProfileID1, match.ProfileID2 = key.A, key.B
	if match.Profile1Vote == "" {
		match.Profile1Vote = domain.VoteUnset
	}
	if match.Profile2Vote == "" {
		match.Profile2Vote = domain.VoteUnset
	}

	query := `
		INSERT INTO matches (
			round_id, activity_id, profile_id_1, profile_id_2, match_score,
			explanation_for_profile_1, explanation_for_profile_2,
			icebreaker_for_profile_1, icebreaker_for_profile_2,
			profile_1_vote, profile_2_vote, is_mutual_match
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false)
		RETURNING id, created_at, updated_at
	`
	return tx.QueryRowxContext(ctx, query,
		match.RoundID, match.ActivityID, match.ProfileID1, match.ProfileID2, match.Score,
		match.ExplanationForProfile1, match.ExplanationForProfile2,
		match.IcebreakerForProfile1, match.IcebreakerForProfile2,
		match.Profile1Vote, match.Profile2Vote,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
}

func (r *matchRepository) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	var match domain.Match
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	err := r.db.GetContext(ctx, &match, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

func (r *matchRepository) ListByRound(ctx context.Context, roundID int64) ([]*domain.Match, error) {
	var matches []*domain.Match
	query := `SELECT ` + matchColumns + ` FROM matches WHERE round_id = $1 ORDER BY match_score DESC, id`
	err := r.db.SelectContext(ctx, &matches, query, roundID)
	return matches, err
}

func (r *matchRepository) ListPairsByActivity(ctx context.Context, activityID int64) ([]domain.PairKey, error) {
	query := `
		SELECT m.profile_id_1, m.profile_id_2
		FROM matches m
		JOIN match_rounds r ON r.id = m.round_id
		WHERE m.activity_id = $1 AND r.status = 'completed'
	`
	rows, err := r.db.QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []domain.PairKey
	for rows.Next() {
		var p1, p2 int64
		if err := rows.Scan(&p1, &p2); err != nil {
			return nil, err
		}
		pairs = append(pairs, domain.NewPairKey(p1, p2))
	}
	return pairs, rows.Err()
}

func (r *matchRepository) GetProfileMatches(ctx context.Context, profileID int64, limit, offset int) ([]*domain.Match, error) {
	var matches []*domain.Match
	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE (profile_id_1 = $1 OR profile_id_2 = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &matches, query, profileID, limit, offset)
	return matches, err
}

func (r *matchRepository) GetMutualMatches(ctx context.Context, profileID int64, limit, offset int) ([]*domain.Match, error) {
	var matches []*domain.Match
	query := `
		SELECT ` + matchColumns + ` FROM matches
		WHERE (profile_id_1 = $1 OR profile_id_2 = $1) AND is_mutual_match = true
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &matches, query, profileID, limit, offset)
	return matches, err
}

// recordVoteQuery sets the voter's side and derives is_mutual_match from the
// post-update votes in the same statement. The prev CTE locks the row first,
// so a concurrent vote waits and then reads the committed mutual flag as
// was_mutual.
const recordVoteQuery = `
	WITH prev AS (
		SELECT id AS prev_id, is_mutual_match AS was_mutual
		FROM matches WHERE id = $1
		FOR UPDATE
	)
	UPDATE matches SET
		profile_1_vote = CASE WHEN profile_id_1 = $2 THEN $3 ELSE profile_1_vote END,
		profile_2_vote = CASE WHEN profile_id_2 = $2 THEN $3 ELSE profile_2_vote END,
		is_mutual_match = (CASE WHEN profile_id_1 = $2 THEN $3 ELSE profile_1_vote END) = 'up'
			AND (CASE WHEN profile_id_2 = $2 THEN $3 ELSE profile_2_vote END) = 'up',
		updated_at = CURRENT_TIMESTAMP
	FROM prev
	WHERE id = prev.prev_id AND (profile_id_1 = $2 OR profile_id_2 = $2)
	RETURNING ` + matchColumns + `, prev.was_mutual`

type voteRow struct {
	domain.Match
	WasMutual bool `db:"was_mutual"`
}

func (r *matchRepository) RecordVote(ctx context.Context, matchID, profileID int64, vote domain.Vote) (*domain.Match, bool, error) {
	var row voteRow
	err := r.db.GetContext(ctx, &row, recordVoteQuery, matchID, profileID, string(vote))
	if err == nil {
		return &row.Match, row.IsMutualMatch && !row.WasMutual, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	// Nothing updated: either the match is missing or the profile is not a party.
	if _, err := r.GetByID(ctx, matchID); err != nil {
		return nil, false, err
	}
	return nil, false, domain.ErrNotMatchParty
}
