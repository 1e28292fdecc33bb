package matching

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

// Analyzer extracts interests and traits from a participant's profile.
type Analyzer struct {
	generator   ai.Generator
	concurrency int
	logger      *zap.Logger
}

func NewAnalyzer(generator ai.Generator, concurrency int, logger *zap.Logger) *Analyzer {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{generator: generator, concurrency: concurrency, logger: logger}
}

func (a *Analyzer) Analyze(ctx context.Context, p *Participant, q *domain.Questionnaire) (*ai.ProfileAnalysis, error) {
	prompt := ai.Fill(ai.ProfileAnalysisTemplate, map[string]string{
		ai.PlaceholderProfile: ProfileText(p, q),
	})
	raw, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ai.ParseProfileAnalysis(raw)
}

// AnalyzeAll sets Participant.Analysis where analysis succeeds. Failures only
// mean the participant is matched without the extra signals.
func (a *Analyzer) AnalyzeAll(ctx context.Context, participants []*Participant, q *domain.Questionnaire) {
	var eg errgroup.Group
	eg.SetLimit(a.concurrency)
	for _, p := range participants {
		p := p
		eg.Go(func() error {
			analysis, err := a.Analyze(ctx, p, q)
			if err != nil {
				a.logger.Warn("profile analysis failed", zap.Int64("profile_id", p.ID()), zap.Error(err))
				return nil
			}
			p.Analysis = analysis
			return nil
		})
	}
	_ = eg.Wait()
}

// Suggestion is one ranked candidate for a participant.
type Suggestion struct {
	ProfileID  int64   `json:"profile_id"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Suggester ranks the other participants of an activity for one participant.
type Suggester struct {
	embeddings *EmbeddingGenerator
	generator  ai.Generator
	logger     *zap.Logger
}

func NewSuggester(embeddings *EmbeddingGenerator, generator ai.Generator, logger *zap.Logger) *Suggester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suggester{embeddings: embeddings, generator: generator, logger: logger}
}

// Suggest scores candidates by embedding similarity, then lets the generator
// re-score them. When generation fails the similarity order is kept. Filtered
// candidates are expected to be removed by the caller.
func (s *Suggester) Suggest(ctx context.Context, pool *Pool, target *Participant, candidates []*Participant, limit int) ([]Suggestion, error) {
	all := append([]*Participant{target}, candidates...)
	vectors, _, err := s.embeddings.EmbedAll(ctx, all, pool.Questionnaire)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(candidates))
	targetVec, ok := vectors[target.ID()]
	for _, c := range candidates {
		vec, embedded := vectors[c.ID()]
		if !embedded {
			continue
		}
		var sim float64
		if ok {
			sim = CosineSimilarity(targetVec, vec)
		}
		suggestions = append(suggestions, Suggestion{ProfileID: c.ID(), Similarity: sim, Score: BaseScore(sim)})
	}

	if s.generator != nil && len(suggestions) > 0 {
		if scores, err := s.rankWithGenerator(ctx, pool, target, candidates); err != nil {
			s.logger.Warn("candidate ranking failed, using similarity order",
				zap.Int64("profile_id", target.ID()),
				zap.Error(err),
			)
		} else {
			for i := range suggestions {
				if score, found := scores[suggestions[i].ProfileID]; found {
					suggestions[i].Score = score
				}
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].ProfileID < suggestions[j].ProfileID
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (s *Suggester) rankWithGenerator(ctx context.Context, pool *Pool, target *Participant, candidates []*Participant) (map[int64]float64, error) {
	summaries := make([]profileSummary, 0, len(candidates))
	for _, c := range candidates {
		summaries = append(summaries, summarize(c))
	}
	candidatesJSON, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, err
	}
	targetJSON, err := json.MarshalIndent(summarize(target), "", "  ")
	if err != nil {
		return nil, err
	}

	var activityID int64
	if pool.Activity != nil {
		activityID = pool.Activity.ID
	}
	prompt := ai.Fill(ai.CandidateRankingTemplate, map[string]string{
		ai.PlaceholderUserID:     strconv.FormatInt(target.ID(), 10),
		ai.PlaceholderActivityID: strconv.FormatInt(activityID, 10),
		ai.PlaceholderProfile:    string(targetJSON),
		ai.PlaceholderCandidates: string(candidatesJSON),
	})

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ranking, err := ai.ParseCandidateRanking(raw)
	if err != nil {
		return nil, err
	}

	scores := make(map[int64]float64, len(ranking))
	for _, r := range ranking {
		scores[r.ID] = r.Score
	}
	return scores, nil
}
