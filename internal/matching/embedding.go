package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
)

const defaultConcurrency = 4

// EmbeddingGenerator produces one vector per participant. The embedder passed
// in is expected to already carry retry and rate limiting.
type EmbeddingGenerator struct {
	embedder    ai.Embedder
	cache       *EmbeddingCache
	concurrency int
	logger      *zap.Logger
}

func NewEmbeddingGenerator(embedder ai.Embedder, cache *EmbeddingCache, concurrency int, logger *zap.Logger) *EmbeddingGenerator {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingGenerator{embedder: embedder, cache: cache, concurrency: concurrency, logger: logger}
}

// Embed returns the vector for a participant, consulting the cache first.
func (g *EmbeddingGenerator) Embed(ctx context.Context, p *Participant, q *domain.Questionnaire) ([]float32, error) {
	text := ProfileText(p, q)
	if text == "" {
		return nil, errors.New("nothing to embed")
	}

	fp := Fingerprint(text)
	if vec, ok := g.cache.Get(fp); ok {
		return vec, nil
	}

	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, errors.New("empty embedding")
	}
	g.cache.Put(fp, vec)
	return vec, nil
}

// EmbedAll embeds every participant concurrently. Participants whose embedding
// fails are excluded and reported; only cancellation of ctx aborts the batch.
func (g *EmbeddingGenerator) EmbedAll(ctx context.Context, participants []*Participant, q *domain.Questionnaire) (map[int64][]float32, []Exclusion, error) {
	var (
		mu       sync.Mutex
		vectors  = make(map[int64][]float32, len(participants))
		excluded []Exclusion
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for _, p := range participants {
		p := p
		eg.Go(func() error {
			vec, err := g.Embed(egCtx, p, q)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				g.logger.Warn("participant excluded: embedding failed",
					zap.Int64("profile_id", p.ID()),
					zap.Error(err),
				)
				metrics.ParticipantsExcluded.WithLabelValues("embedding_failed").Inc()
				mu.Lock()
				excluded = append(excluded, Exclusion{ProfileID: p.ID(), Reason: fmt.Sprintf("embedding failed: %v", err)})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			vectors[p.ID()] = vec
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("embedding participants: %w", err)
	}

	sortExclusions(excluded)
	return vectors, excluded, nil
}

func sortExclusions(excluded []Exclusion) {
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].ProfileID < excluded[j].ProfileID })
}
