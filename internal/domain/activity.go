package domain

import "time"

type ParticipantStatus string

const (
	ParticipantPending   ParticipantStatus = "pending"
	ParticipantCompleted ParticipantStatus = "completed"
)

type Activity struct {
	ID       int64     `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Type     string    `json:"type" db:"type"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`
	// MatchesPerParticipant overrides the configured per-round cap when set.
	MatchesPerParticipant *int      `json:"matches_per_participant" db:"matches_per_participant"`
	AllowRepeatMatches    bool      `json:"allow_repeat_matches" db:"allow_repeat_matches"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

type ActivityParticipant struct {
	ID         int64             `json:"id"`
	ActivityID int64             `json:"activity_id"`
	ProfileID  int64             `json:"profile_id"`
	Status     ParticipantStatus `json:"status"`
	Answers    Answers           `json:"answers"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (p *ActivityParticipant) IsEligible() bool {
	return p.Status == ParticipantCompleted
}

// ActivityExclusion forbids pairing two profiles within an activity.
type ActivityExclusion struct {
	ID         int64     `json:"id" db:"id"`
	ActivityID int64     `json:"activity_id" db:"activity_id"`
	ProfileID1 int64     `json:"profile_id_1" db:"profile_id_1"`
	ProfileID2 int64     `json:"profile_id_2" db:"profile_id_2"`
	Reason     *string   `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func (e *ActivityExclusion) Key() PairKey {
	return NewPairKey(e.ProfileID1, e.ProfileID2)
}
