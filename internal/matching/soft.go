package matching

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// SoftScorer blends the embedding similarity with how well two participants'
// soft preferences line up.
type SoftScorer struct {
	// Weight is the share of the final score taken by preference alignment, 0..1.
	Weight float64
	// LocationWeight and AgeWeight add profile signals next to questionnaire ones.
	LocationWeight float64
	AgeWeight      float64
	// AgeSpanYears is the birth year gap at which age alignment reaches 0.
	AgeSpanYears int
}

// BaseScore rescales a similarity to 0..100.
func BaseScore(similarity float64) float64 {
	return clampScore(similarity * 100)
}

// Adjust returns the final 0..100 score for a pair with the given base score.
// Without any soft signal the base score is returned unchanged.
func (s *SoftScorer) Adjust(q *domain.Questionnaire, pair Pair, base float64) float64 {
	base = clampScore(base)
	align, ok := s.Alignment(q, pair)
	if !ok {
		return base
	}
	w := math.Max(0, math.Min(1, s.Weight))
	return clampScore(base*(1-w) + 100*align*w)
}

// Alignment is the weighted average agreement of the pair over every soft
// signal both sides provided. ok is false when no signal applies.
func (s *SoftScorer) Alignment(q *domain.Questionnaire, pair Pair) (float64, bool) {
	var sum, total float64

	if q != nil {
		a, b := pair.A.Answers(), pair.B.Answers()
		for _, question := range q.Questions {
			if !question.IsSoft() {
				continue
			}
			va, vb := a.Values(question.ID), b.Values(question.ID)
			if len(va) == 0 || len(vb) == 0 {
				continue
			}
			var agreement float64
			if question.Type == domain.QuestionText {
				agreement = jaccard(tokens(va), tokens(vb))
			} else {
				agreement = jaccard(normalized(va), normalized(vb))
			}
			sum += question.Weight * agreement
			total += question.Weight
		}
	}

	if s.LocationWeight > 0 {
		if same, known := pair.A.Profile.SameLocation(pair.B.Profile); known {
			if same {
				sum += s.LocationWeight
			}
			total += s.LocationWeight
		}
	}

	if s.AgeWeight > 0 && s.AgeSpanYears > 0 {
		if gap, known := pair.A.Profile.AgeGapYears(pair.B.Profile); known {
			sum += s.AgeWeight * math.Max(0, 1-float64(gap)/float64(s.AgeSpanYears))
			total += s.AgeWeight
		}
	}

	if total == 0 {
		return 0, false
	}
	return sum / total, true
}

// SharedSignals lists what the pair has in common: profile interests, analysed
// interests and identical choice answers. Output is sorted and de-duplicated.
func SharedSignals(q *domain.Questionnaire, pair Pair) []string {
	set := make(map[string]struct{})

	for _, v := range intersect(pair.A.Profile.Interests, pair.B.Profile.Interests) {
		set[v] = struct{}{}
	}
	if pair.A.Analysis != nil && pair.B.Analysis != nil {
		for _, v := range intersect(pair.A.Analysis.Interests, pair.B.Analysis.Interests) {
			set[v] = struct{}{}
		}
	}
	if q != nil {
		a, b := pair.A.Answers(), pair.B.Answers()
		for _, question := range q.Questions {
			if question.Type != domain.QuestionChoice {
				continue
			}
			for _, v := range intersect(a.Values(question.ID), b.Values(question.ID)) {
				set[question.Prompt+": "+v] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func normalized(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func tokens(values []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, v := range values {
		for _, tok := range strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var common int
	for k := range a {
		if _, ok := b[k]; ok {
			common++
		}
	}
	return float64(common) / float64(len(a)+len(b)-common)
}

// intersect returns the values of a also present in b, compared case-insensitively.
func intersect(a, b []string) []string {
	other := normalized(b)
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		key := strings.ToLower(strings.TrimSpace(v))
		if _, ok := other[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
