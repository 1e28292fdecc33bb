package matching

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/ai/aitest"
)

func TestExplainParsesTwoSidedResponse(t *testing.T) {
	gen := &aitest.Generator{Response: "```json\n{\"explanation_for_profile_1\": \"Bob loves chess too\", \"explanation_for_profile_2\": \"Alice loves chess too\", \"icebreaker_for_profile_1\": \"Ask about openings\", \"icebreaker_for_profile_2\": \"Ask about tournaments\"}\n```"}
	e := NewExplainer(gen, "", 2, zap.NewNop())

	exp, fallback := e.Explain(context.Background(), 7, participant(1, "Alice", nil), participant(2, "Bob", nil), []string{"chess"})

	assert.False(t, fallback)
	assert.Equal(t, "Bob loves chess too", exp.ForProfile1)
	assert.Equal(t, "Alice loves chess too", exp.ForProfile2)
	assert.Equal(t, "Ask about openings", exp.Icebreaker1)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "activity 7")
	assert.Contains(t, prompts[0], "- chess")
	assert.Contains(t, prompts[0], `"name": "Alice"`)
}

func TestExplainPlainTextUsedForBothSides(t *testing.T) {
	e := NewExplainer(&aitest.Generator{Response: "You both like chess."}, "", 1, nil)
	exp, fallback := e.Explain(context.Background(), 1, participant(1, "a", nil), participant(2, "b", nil), nil)

	assert.False(t, fallback)
	assert.Equal(t, "You both like chess.", exp.ForProfile1)
	assert.Equal(t, exp.ForProfile1, exp.ForProfile2)
}

func TestExplainFallsBackToPlaceholder(t *testing.T) {
	e := NewExplainer(&aitest.Generator{Err: errors.New("unavailable")}, "Say hi!", 1, zap.NewNop())
	exp, fallback := e.Explain(context.Background(), 1, participant(1, "a", nil), participant(2, "b", nil), nil)

	assert.True(t, fallback)
	assert.Equal(t, "Say hi!", exp.ForProfile1)
	assert.Equal(t, "Say hi!", exp.ForProfile2)

	noGen := NewExplainer(nil, "", 1, nil)
	exp, fallback = noGen.Explain(context.Background(), 1, participant(1, "a", nil), participant(2, "b", nil), nil)
	assert.True(t, fallback)
	assert.Equal(t, DefaultPlaceholder, exp.ForProfile1)
}

func TestExplainAllKeepsOrder(t *testing.T) {
	gen := &aitest.Generator{Respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, `"name": "c"`) {
			return "", errors.New("boom")
		}
		return "ok", nil
	}}
	e := NewExplainer(gen, "placeholder", 3, zap.NewNop())
	a, b, c, d := participant(1, "a", nil), participant(2, "b", nil), participant(3, "c", nil), participant(4, "d", nil)
	cs := []Candidate{{Pair: NewPair(a, b)}, {Pair: NewPair(c, d)}}

	out := e.ExplainAll(context.Background(), 1, cs, [][]string{nil, nil})
	require.Len(t, out, 2)
	assert.Equal(t, "ok", out[0].ForProfile1)
	assert.Equal(t, "placeholder", out[1].ForProfile1)
}
