package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

func TestAllPairsOrdersByProfileID(t *testing.T) {
	ps := []*Participant{participant(3, "c", nil), participant(1, "a", nil), participant(2, "b", nil)}
	pairs := AllPairs(ps)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.Less(t, p.A.ID(), p.B.ID())
	}
}

func TestFilterPairs(t *testing.T) {
	a, b, c, d := participant(1, "a", nil), participant(2, "b", nil), participant(3, "c", nil), participant(4, "d", nil)
	pairs := append(AllPairs([]*Participant{a, b, c, d}), Pair{A: a, B: a})

	rules := []HardFilter{
		NewSelfPairFilter(),
		NewAlreadyMatchedFilter([]domain.PairKey{{A: 2, B: 1}}),
		NewExclusionFilter([]*domain.ActivityExclusion{{ProfileID1: 4, ProfileID2: 3}}),
	}

	kept, steps := FilterPairs(pairs, rules)

	require.Len(t, steps, 3)
	assert.Equal(t, FilterStep{Name: "self_pair", Initial: 7, Dropped: 1, Left: 6}, steps[0])
	assert.Equal(t, FilterStep{Name: "already_matched", Initial: 6, Dropped: 1, Left: 5}, steps[1])
	assert.Equal(t, FilterStep{Name: "activity_exclusion", Initial: 5, Dropped: 1, Left: 4}, steps[2])

	got := make([]string, 0, len(kept))
	for _, p := range kept {
		got = append(got, p.Key().String())
	}
	assert.Equal(t, []string{"1-3", "1-4", "2-3", "2-4"}, got)
	assert.Len(t, pairs, 7, "input must not be modified")
}

func TestDefaultFiltersHonourRepeatSettings(t *testing.T) {
	a, b := participant(1, "a", nil), participant(2, "b", nil)
	pool := &Pool{
		Activity:      &domain.Activity{ID: 1},
		PreviousPairs: []domain.PairKey{domain.NewPairKey(1, 2)},
	}
	pairs := AllPairs([]*Participant{a, b})

	kept, _ := FilterPairs(pairs, DefaultFilters(pool, true))
	assert.Empty(t, kept)

	kept, _ = FilterPairs(pairs, DefaultFilters(pool, false))
	assert.Len(t, kept, 1)

	pool.Activity.AllowRepeatMatches = true
	kept, _ = FilterPairs(pairs, DefaultFilters(pool, true))
	assert.Len(t, kept, 1)
}
