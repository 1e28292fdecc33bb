package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

type Config struct {
	MaxResults        int
	MinSimilarity     float64
	PerParticipantCap int
	ExcludePrevious   bool
	AnalyzeProfiles   bool
}

// Result is the outcome of one pipeline run, not yet persisted.
type Result struct {
	Matches  []*domain.Match
	Excluded []Exclusion
	Steps    []FilterStep
}

type Pipeline struct {
	embeddings *EmbeddingGenerator
	scorer     *SoftScorer
	explainer  *Explainer
	analyzer   *Analyzer
	cfg        Config
	logger     *zap.Logger
}

// NewPipeline wires the stages. analyzer may be nil.
func NewPipeline(embeddings *EmbeddingGenerator, scorer *SoftScorer, explainer *Explainer, analyzer *Analyzer, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = &SoftScorer{}
	}
	return &Pipeline{
		embeddings: embeddings,
		scorer:     scorer,
		explainer:  explainer,
		analyzer:   analyzer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Cap returns the per-participant cap for the activity.
func (p *Pipeline) Cap(activity *domain.Activity) int {
	if activity != nil && activity.MatchesPerParticipant != nil && *activity.MatchesPerParticipant > 0 {
		return *activity.MatchesPerParticipant
	}
	if p.cfg.PerParticipantCap > 0 {
		return p.cfg.PerParticipantCap
	}
	return 1
}

// Filters returns the hard filters applied to pairs of the pool.
func (p *Pipeline) Filters(pool *Pool) []HardFilter {
	return DefaultFilters(pool, p.cfg.ExcludePrevious)
}

// Run computes matches for the pool. An empty or fully filtered pool yields an
// empty result, not an error. Only context cancellation is returned as error.
func (p *Pipeline) Run(ctx context.Context, pool *Pool) (*Result, error) {
	result := &Result{}
	if len(pool.Participants) < 2 {
		p.logger.Info("not enough participants to match", zap.Int("participants", len(pool.Participants)))
		return result, nil
	}

	if p.cfg.AnalyzeProfiles && p.analyzer != nil {
		p.analyzer.AnalyzeAll(ctx, pool.Participants, pool.Questionnaire)
	}

	vectors, excluded, err := p.embeddings.EmbedAll(ctx, pool.Participants, pool.Questionnaire)
	if err != nil {
		return nil, err
	}
	result.Excluded = excluded

	embedded := make([]*Participant, 0, len(vectors))
	for _, participant := range pool.Participants {
		if _, ok := vectors[participant.ID()]; ok {
			embedded = append(embedded, participant)
		}
	}

	pairs, steps := FilterPairs(AllPairs(embedded), p.Filters(pool))
	result.Steps = steps
	logFilterSteps(p.logger, steps)

	candidates := make([]Candidate, 0, len(pairs))
	for _, pair := range pairs {
		sim := CosineSimilarity(vectors[pair.A.ID()], vectors[pair.B.ID()])
		if sim < p.cfg.MinSimilarity {
			continue
		}
		candidates = append(candidates, Candidate{
			Pair:       pair,
			Similarity: sim,
			Score:      p.scorer.Adjust(pool.Questionnaire, pair, BaseScore(sim)),
		})
	}

	selected := Rank(candidates, p.cfg.MaxResults, p.Cap(pool.Activity))
	p.logger.Info("candidates ranked",
		zap.Int("participants", len(pool.Participants)),
		zap.Int("excluded", len(excluded)),
		zap.Int("pairs", len(pairs)),
		zap.Int("above_threshold", len(candidates)),
		zap.Int("selected", len(selected)),
	)
	if len(selected) == 0 {
		return result, nil
	}

	shared := make([][]string, len(selected))
	for i, c := range selected {
		shared[i] = SharedSignals(pool.Questionnaire, c.Pair)
	}

	var activityID int64
	if pool.Activity != nil {
		activityID = pool.Activity.ID
	}
	explanations := p.explainer.ExplainAll(ctx, activityID, selected, shared)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("explaining matches: %w", err)
	}

	result.Matches = make([]*domain.Match, 0, len(selected))
	for i, c := range selected {
		exp := explanations[i]
		result.Matches = append(result.Matches, &domain.Match{
			ActivityID:             activityID,
			ProfileID1:             c.Pair.A.ID(),
			ProfileID2:             c.Pair.B.ID(),
			Score:                  c.Score,
			ExplanationForProfile1: exp.ForProfile1,
			ExplanationForProfile2: exp.ForProfile2,
			IcebreakerForProfile1:  exp.Icebreaker1,
			IcebreakerForProfile2:  exp.Icebreaker2,
			Profile1Vote:           domain.VoteUnset,
			Profile2Vote:           domain.VoteUnset,
		})
	}
	return result, nil
}
