package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrEmptyResponse = errors.New("empty ai response")

type ProfileAnalysis struct {
	Interests         []string `json:"interests"`
	PersonalityTraits []string `json:"personality_traits"`
	Preferences       []string `json:"preferences"`
}

type CandidateScore struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

type Explanation struct {
	ForProfile1 string
	ForProfile2 string
	Icebreaker1 string
	Icebreaker2 string
}

// ExtractJSON strips markdown code fences the model tends to wrap JSON in.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func ParseProfileAnalysis(raw string) (*ProfileAnalysis, error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse profile analysis: %w", err)
	}

	return &ProfileAnalysis{
		Interests:         coerceStrings(data["interests"]),
		PersonalityTraits: coerceStrings(data["personality_traits"]),
		Preferences:       coerceStrings(data["preferences"]),
	}, nil
}

// ParseCandidateRanking reads a list of {id, score}. Scores are clamped to 0..100
// and entries without a usable id are skipped.
func ParseCandidateRanking(raw string) ([]CandidateScore, error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		var wrapped struct {
			Candidates []map[string]any `json:"candidates"`
		}
		if err2 := json.Unmarshal([]byte(cleaned), &wrapped); err2 != nil || wrapped.Candidates == nil {
			return nil, fmt.Errorf("parse candidate ranking: %w", err)
		}
		items = wrapped.Candidates
	}

	scores := make([]CandidateScore, 0, len(items))
	for _, item := range items {
		id := coerceFloat(item["id"])
		if math.IsNaN(id) || id <= 0 {
			continue
		}
		score := coerceFloat(item["score"])
		if math.IsNaN(score) {
			score = 0
		}
		scores = append(scores, CandidateScore{ID: int64(id), Score: math.Max(0, math.Min(100, score))})
	}
	return scores, nil
}

// ParseExplanation accepts the two-sided JSON object. Any other non-empty text
// is used as the explanation for both sides.
func ParseExplanation(raw string) (*Explanation, error) {
	cleaned := ExtractJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return &Explanation{ForProfile1: cleaned, ForProfile2: cleaned}, nil
	}

	exp := &Explanation{
		ForProfile1: coerceString(data["explanation_for_profile_1"]),
		ForProfile2: coerceString(data["explanation_for_profile_2"]),
		Icebreaker1: coerceString(data["icebreaker_for_profile_1"]),
		Icebreaker2: coerceString(data["icebreaker_for_profile_2"]),
	}
	if exp.ForProfile1 == "" && exp.ForProfile2 == "" {
		return nil, fmt.Errorf("parse explanation: %w", ErrEmptyResponse)
	}
	if exp.ForProfile1 == "" {
		exp.ForProfile1 = exp.ForProfile2
	}
	if exp.ForProfile2 == "" {
		exp.ForProfile2 = exp.ForProfile1
	}
	return exp, nil
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
