package matching

import (
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
)

// Pair is an unordered candidate pair; A always has the smaller profile id.
type Pair struct {
	A *Participant
	B *Participant
}

func NewPair(x, y *Participant) Pair {
	if y.ID() < x.ID() {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

func (p Pair) Key() domain.PairKey {
	return domain.NewPairKey(p.A.ID(), p.B.ID())
}

// AllPairs enumerates every unordered pair of participants, self pairs included
// when a profile appears twice.
func AllPairs(participants []*Participant) []Pair {
	pairs := make([]Pair, 0, len(participants)*(len(participants)-1)/2)
	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			pairs = append(pairs, NewPair(participants[i], participants[j]))
		}
	}
	return pairs
}

// HardFilter is an eligibility rule. A pair that fails any rule is dropped.
type HardFilter interface {
	Name() string
	Allow(p Pair) bool
}

// FilterStep describes what one rule did to the candidate list.
type FilterStep struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// FilterPairs applies rules in order and returns the surviving pairs with
// per-rule statistics. The input slice is not modified.
func FilterPairs(pairs []Pair, rules []HardFilter) ([]Pair, []FilterStep) {
	current := pairs
	steps := make([]FilterStep, 0, len(rules))
	for _, rule := range rules {
		kept := make([]Pair, 0, len(current))
		for _, p := range current {
			if rule.Allow(p) {
				kept = append(kept, p)
			}
		}
		steps = append(steps, FilterStep{
			Name:    rule.Name(),
			Initial: len(current),
			Dropped: len(current) - len(kept),
			Left:    len(kept),
		})
		current = kept
	}
	return current, steps
}

func logFilterSteps(logger *zap.Logger, steps []FilterStep) {
	for _, step := range steps {
		if step.Dropped > 0 {
			metrics.PairsFiltered.WithLabelValues(step.Name).Add(float64(step.Dropped))
		}
		logger.Debug("filter step",
			zap.String("name", step.Name),
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
		)
	}
}

type selfPairFilter struct{}

func NewSelfPairFilter() HardFilter { return selfPairFilter{} }

func (selfPairFilter) Name() string { return "self_pair" }

func (selfPairFilter) Allow(p Pair) bool {
	return p.A.ID() != p.B.ID()
}

type pairSetFilter struct {
	name  string
	pairs map[domain.PairKey]struct{}
}

// NewAlreadyMatchedFilter drops pairs that were matched in a completed round.
func NewAlreadyMatchedFilter(previous []domain.PairKey) HardFilter {
	f := &pairSetFilter{name: "already_matched", pairs: make(map[domain.PairKey]struct{}, len(previous))}
	for _, key := range previous {
		f.pairs[domain.NewPairKey(key.A, key.B)] = struct{}{}
	}
	return f
}

// NewExclusionFilter drops pairs forbidden by activity exclusion rules.
func NewExclusionFilter(exclusions []*domain.ActivityExclusion) HardFilter {
	f := &pairSetFilter{name: "activity_exclusion", pairs: make(map[domain.PairKey]struct{}, len(exclusions))}
	for _, e := range exclusions {
		f.pairs[e.Key()] = struct{}{}
	}
	return f
}

func (f *pairSetFilter) Name() string { return f.name }

func (f *pairSetFilter) Allow(p Pair) bool {
	_, blocked := f.pairs[p.Key()]
	return !blocked
}

// DefaultFilters builds the rule set for a pool. The already-matched rule is
// skipped when the activity allows repeats or excludePrevious is off.
func DefaultFilters(pool *Pool, excludePrevious bool) []HardFilter {
	rules := []HardFilter{NewSelfPairFilter()}
	if excludePrevious && (pool.Activity == nil || !pool.Activity.AllowRepeatMatches) {
		rules = append(rules, NewAlreadyMatchedFilter(pool.PreviousPairs))
	}
	rules = append(rules, NewExclusionFilter(pool.Exclusions))
	return rules
}
