package domain

import "time"

type RoundStatus string

const (
	RoundScheduled RoundStatus = "scheduled"
	RoundRunning   RoundStatus = "running"
	RoundCompleted RoundStatus = "completed"
	RoundCancelled RoundStatus = "cancelled"
)

type MatchRound struct {
	ID          int64       `json:"id"`
	ActivityID  int64       `json:"activity_id"`
	Name        string      `json:"name"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Status      RoundStatus `json:"status"`
	RunToken    *string     `json:"-"`
	LastError   *string     `json:"last_error,omitempty"`
	// ExcludedProfileIDs lists participants dropped from the last run, e.g. after embedding failures.
	ExcludedProfileIDs []int64    `json:"excluded_profile_ids"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (r *MatchRound) CanRun() bool {
	return r.Status == RoundScheduled
}

func (r *MatchRound) CanCancel() bool {
	return r.Status == RoundScheduled
}

func (r *MatchRound) IsDue(now time.Time) bool {
	return r.Status == RoundScheduled && !r.ScheduledAt.After(now)
}
