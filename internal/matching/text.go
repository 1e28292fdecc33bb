package matching

import (
	"fmt"
	"strings"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// ProfileText renders the text that gets embedded: profile attributes first,
// then answers in questionnaire order. The output is stable for equal input.
func ProfileText(p *Participant, q *domain.Questionnaire) string {
	var sb strings.Builder
	profile := p.Profile

	writeLine(&sb, "Name", profile.DisplayName)
	if profile.Bio != nil {
		writeLine(&sb, "About", *profile.Bio)
	}
	if profile.Gender != nil {
		writeLine(&sb, "Gender", *profile.Gender)
	}
	if profile.BirthYear != nil {
		writeLine(&sb, "Birth year", fmt.Sprintf("%d", *profile.BirthYear))
	}
	if profile.Location != nil {
		writeLine(&sb, "Location", *profile.Location)
	}
	if len(profile.Interests) > 0 {
		writeLine(&sb, "Interests", strings.Join(profile.Interests, ", "))
	}
	if p.Analysis != nil && len(p.Analysis.PersonalityTraits) > 0 {
		writeLine(&sb, "Traits", strings.Join(p.Analysis.PersonalityTraits, ", "))
	}

	answers := p.Answers()
	if q != nil {
		for _, question := range q.Questions {
			values := answers.Values(question.ID)
			if len(values) == 0 {
				continue
			}
			prompt := question.Prompt
			if prompt == "" {
				prompt = question.ID
			}
			writeLine(&sb, prompt, strings.Join(values, ", "))
		}
	}

	return strings.TrimSpace(sb.String())
}

func writeLine(sb *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteByte('\n')
}
