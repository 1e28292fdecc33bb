package domain

import (
	"strings"
	"time"
)

type Profile struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Bio         *string   `json:"bio" db:"bio"`
	BirthMonth  *int      `json:"birth_month" db:"birth_month"`
	BirthYear   *int      `json:"birth_year" db:"birth_year"`
	Location    *string   `json:"location" db:"location"`
	Gender      *string   `json:"gender" db:"gender"`
	Interests   []string  `json:"interests" db:"interests"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SameLocation reports whether both profiles state the same location, ignoring case.
// Unknown locations never match.
func (p *Profile) SameLocation(other *Profile) (same bool, known bool) {
	if p.Location == nil || other.Location == nil {
		return false, false
	}
	a := strings.TrimSpace(*p.Location)
	b := strings.TrimSpace(*other.Location)
	if a == "" || b == "" {
		return false, false
	}
	return strings.EqualFold(a, b), true
}

// AgeGapYears returns the absolute difference of birth years when both are known.
func (p *Profile) AgeGapYears(other *Profile) (int, bool) {
	if p.BirthYear == nil || other.BirthYear == nil {
		return 0, false
	}
	gap := *p.BirthYear - *other.BirthYear
	if gap < 0 {
		gap = -gap
	}
	return gap, true
}
