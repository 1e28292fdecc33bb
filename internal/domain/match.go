package domain

import (
	"fmt"
	"time"
)

type Vote string

const (
	VoteUnset Vote = "unset"
	VoteUp    Vote = "up"
	VoteDown  Vote = "down"
)

func ParseVote(s string) (Vote, error) {
	switch Vote(s) {
	case VoteUp, VoteDown:
		return Vote(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVote, s)
	}
}

type Match struct {
	ID                     int64     `json:"id" db:"id"`
	RoundID                int64     `json:"round_id" db:"round_id"`
	ActivityID             int64     `json:"activity_id" db:"activity_id"`
	ProfileID1             int64     `json:"profile_id_1" db:"profile_id_1"`
	ProfileID2             int64     `json:"profile_id_2" db:"profile_id_2"`
	Score                  float64   `json:"match_score" db:"match_score"`
	ExplanationForProfile1 string    `json:"explanation_for_profile_1" db:"explanation_for_profile_1"`
	ExplanationForProfile2 string    `json:"explanation_for_profile_2" db:"explanation_for_profile_2"`
	IcebreakerForProfile1  string    `json:"icebreaker_for_profile_1" db:"icebreaker_for_profile_1"`
	IcebreakerForProfile2  string    `json:"icebreaker_for_profile_2" db:"icebreaker_for_profile_2"`
	Profile1Vote           Vote      `json:"profile_1_vote" db:"profile_1_vote"`
	Profile2Vote           Vote      `json:"profile_2_vote" db:"profile_2_vote"`
	IsMutualMatch          bool      `json:"is_mutual_match" db:"is_mutual_match"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Match) Key() PairKey {
	return NewPairKey(m.ProfileID1, m.ProfileID2)
}

func (m *Match) HasProfile(profileID int64) bool {
	return m.ProfileID1 == profileID || m.ProfileID2 == profileID
}

func (m *Match) GetOtherProfileID(profileID int64) (int64, bool) {
	if m.ProfileID1 == profileID {
		return m.ProfileID2, true
	}
	if m.ProfileID2 == profileID {
		return m.ProfileID1, true
	}
	return 0, false
}

// Side returns 1 or 2 for the party the profile occupies, 0 otherwise.
func (m *Match) Side(profileID int64) int {
	switch profileID {
	case m.ProfileID1:
		return 1
	case m.ProfileID2:
		return 2
	default:
		return 0
	}
}

// ApplyVote writes the vote for the given profile's side and recomputes the mutual flag.
func (m *Match) ApplyVote(profileID int64, vote Vote) error {
	switch m.Side(profileID) {
	case 1:
		m.Profile1Vote = vote
	case 2:
		m.Profile2Vote = vote
	default:
		return ErrNotMatchParty
	}
	m.IsMutualMatch = m.Profile1Vote == VoteUp && m.Profile2Vote == VoteUp
	return nil
}

// ExplanationFor returns the rationale written for the given party.
func (m *Match) ExplanationFor(profileID int64) string {
	if m.Side(profileID) == 2 {
		return m.ExplanationForProfile2
	}
	return m.ExplanationForProfile1
}

// MatchReason is a read-compat accessor for clients that still expect one reason per match.
// Only the two-sided fields are persisted.
func (m *Match) MatchReason() string {
	if m.ExplanationForProfile1 != "" {
		return m.ExplanationForProfile1
	}
	return m.ExplanationForProfile2
}

// Icebreaker is the single-field counterpart of MatchReason.
func (m *Match) Icebreaker() string {
	if m.IcebreakerForProfile1 != "" {
		return m.IcebreakerForProfile1
	}
	return m.IcebreakerForProfile2
}

// PairKey identifies an unordered profile pair; A is always the smaller id.
type PairKey struct {
	A int64
	B int64
}

func NewPairKey(p1, p2 int64) PairKey {
	if p1 > p2 {
		p1, p2 = p2, p1
	}
	return PairKey{A: p1, B: p2}
}

func (k PairKey) Less(other PairKey) bool {
	if k.A != other.A {
		return k.A < other.A
	}
	return k.B < other.B
}

func (k PairKey) String() string {
	return fmt.Sprintf("%d-%d", k.A, k.B)
}
