// Package matching computes match candidates for an activity: it embeds
// participant profiles, drops ineligible pairs, scores and ranks the rest and
// asks a text generator to explain each selected pair.
package matching

import (
	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// Participant is an eligible activity participant joined with its profile.
type Participant struct {
	Profile     *domain.Profile
	Participant *domain.ActivityParticipant
	// Analysis is set when profile analysis is enabled and succeeded.
	Analysis *ai.ProfileAnalysis
}

func (p *Participant) ID() int64 {
	return p.Profile.ID
}

func (p *Participant) Answers() domain.Answers {
	if p.Participant == nil {
		return nil
	}
	return p.Participant.Answers
}

// Pool is everything a round needs to know about an activity.
type Pool struct {
	Activity      *domain.Activity
	Questionnaire *domain.Questionnaire
	// Participants are eligible participants ordered by profile id.
	Participants  []*Participant
	Exclusions    []*domain.ActivityExclusion
	PreviousPairs []domain.PairKey
}

// Find returns the participant with the profile id, or nil.
func (p *Pool) Find(profileID int64) *Participant {
	for _, participant := range p.Participants {
		if participant.ID() == profileID {
			return participant
		}
	}
	return nil
}

// Exclusion records a participant left out of a round and why.
type Exclusion struct {
	ProfileID int64  `json:"profile_id"`
	Reason    string `json:"reason"`
}

func ExcludedIDs(exclusions []Exclusion) []int64 {
	ids := make([]int64, 0, len(exclusions))
	for _, e := range exclusions {
		ids = append(ids, e.ProfileID)
	}
	return ids
}
