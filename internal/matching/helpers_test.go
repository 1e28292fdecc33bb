package matching

import (
	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

func participant(id int64, name string, answers domain.Answers) *Participant {
	return &Participant{
		Profile: &domain.Profile{ID: id, DisplayName: name},
		Participant: &domain.ActivityParticipant{
			ProfileID: id,
			Status:    domain.ParticipantCompleted,
			Answers:   answers,
		},
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
