package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// Seed is the JSON fixture format accepted by LoadSeedFile.
type Seed struct {
	Profiles       []domain.Profile             `json:"profiles"`
	Activities     []domain.Activity            `json:"activities"`
	Participants   []domain.ActivityParticipant `json:"participants"`
	Questionnaires []domain.Questionnaire       `json:"questionnaires"`
	Exclusions     []domain.ActivityExclusion   `json:"exclusions"`
}

// Apply adds every record of the seed to the store.
func (seed *Seed) Apply(s *Store) error {
	for _, p := range seed.Profiles {
		if p.ID <= 0 {
			return fmt.Errorf("seed profile %q has no id", p.DisplayName)
		}
		s.AddProfile(p)
	}
	for _, a := range seed.Activities {
		if a.ID <= 0 {
			return fmt.Errorf("seed activity %q has no id", a.Name)
		}
		s.AddActivity(a)
	}
	for _, q := range seed.Questionnaires {
		s.SetQuestionnaire(q)
	}
	for _, p := range seed.Participants {
		s.AddParticipant(p)
	}
	for _, e := range seed.Exclusions {
		s.AddExclusion(e)
	}
	return nil
}

// LoadSeedFile reads a JSON seed from path into the store.
func LoadSeedFile(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}
	return seed.Apply(s)
}
