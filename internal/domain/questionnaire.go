package domain

import (
	"sort"
	"strings"
	"time"
)

type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionText   QuestionType = "text"
)

type Question struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
	// Weight marks the question as a soft preference signal when positive.
	Weight float64 `json:"weight,omitempty"`
}

func (q Question) IsSoft() bool {
	return q.Weight > 0
}

type Questionnaire struct {
	ID         int64      `json:"id"`
	ActivityID int64      `json:"activity_id"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Answers maps a question id to the chosen options or the free-text answer.
type Answers map[string][]string

// Values returns trimmed, non-empty answer values for a question.
func (a Answers) Values(questionID string) []string {
	raw := a[questionID]
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// QuestionIDs returns answered question ids in lexical order.
func (a Answers) QuestionIDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
