package matching

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
)

const DefaultPlaceholder = "You were matched based on your questionnaire answers. Say hi!"

// Explainer asks the text generator why two participants fit each other.
// Generation problems never fail a round; the placeholder is used instead.
type Explainer struct {
	generator   ai.Generator
	placeholder string
	concurrency int
	logger      *zap.Logger
}

func NewExplainer(generator ai.Generator, placeholder string, concurrency int, logger *zap.Logger) *Explainer {
	if strings.TrimSpace(placeholder) == "" {
		placeholder = DefaultPlaceholder
	}
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explainer{generator: generator, placeholder: placeholder, concurrency: concurrency, logger: logger}
}

// Explain returns the texts for both sides of the pair. fallback is true when
// the placeholder was used.
func (e *Explainer) Explain(ctx context.Context, activityID int64, a, b *Participant, shared []string) (exp ai.Explanation, fallback bool) {
	if e.generator == nil {
		return e.placeholderExplanation(), true
	}

	prompt := ai.Fill(ai.MatchExplanationTemplate, map[string]string{
		ai.PlaceholderActivityID:   strconv.FormatInt(activityID, 10),
		ai.PlaceholderProfile:      pairJSON(a, b),
		ai.PlaceholderSimilarities: similaritiesText(shared),
	})

	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.Warn("explanation generation failed, using placeholder",
			zap.Int64("profile_id_1", a.ID()),
			zap.Int64("profile_id_2", b.ID()),
			zap.Error(err),
		)
		return e.placeholderExplanation(), true
	}

	parsed, err := ai.ParseExplanation(raw)
	if err != nil {
		e.logger.Warn("explanation response unusable, using placeholder",
			zap.Int64("profile_id_1", a.ID()),
			zap.Int64("profile_id_2", b.ID()),
			zap.Error(err),
		)
		return e.placeholderExplanation(), true
	}
	return *parsed, false
}

// ExplainAll explains every selected candidate concurrently. The result is
// index-aligned with candidates.
func (e *Explainer) ExplainAll(ctx context.Context, activityID int64, candidates []Candidate, shared [][]string) []ai.Explanation {
	out := make([]ai.Explanation, len(candidates))

	var eg errgroup.Group
	eg.SetLimit(e.concurrency)
	for i, c := range candidates {
		i, c := i, c
		eg.Go(func() error {
			exp, fallback := e.Explain(ctx, activityID, c.Pair.A, c.Pair.B, shared[i])
			if fallback {
				metrics.ExplanationFallbacks.Inc()
			}
			out[i] = exp
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (e *Explainer) placeholderExplanation() ai.Explanation {
	return ai.Explanation{ForProfile1: e.placeholder, ForProfile2: e.placeholder}
}

type profileSummary struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Bio               string   `json:"bio,omitempty"`
	Location          string   `json:"location,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	PersonalityTraits []string `json:"personality_traits,omitempty"`
}

func summarize(p *Participant) profileSummary {
	s := profileSummary{ID: p.ID(), Name: p.Profile.DisplayName, Interests: p.Profile.Interests}
	if p.Profile.Bio != nil {
		s.Bio = *p.Profile.Bio
	}
	if p.Profile.Location != nil {
		s.Location = *p.Profile.Location
	}
	if p.Analysis != nil {
		s.PersonalityTraits = p.Analysis.PersonalityTraits
	}
	return s
}

func pairJSON(a, b *Participant) string {
	data, _ := json.MarshalIndent(map[string]profileSummary{
		"profile_1": summarize(a),
		"profile_2": summarize(b),
	}, "", "  ")
	return string(data)
}

func similaritiesText(shared []string) string {
	if len(shared) == 0 {
		return "- similar questionnaire answers"
	}
	var sb strings.Builder
	for i, s := range shared {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(s)
	}
	return sb.String()
}
