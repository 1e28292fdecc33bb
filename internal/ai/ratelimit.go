package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// NewLimiter builds a token bucket shared by all AI calls. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

type limitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

func RateLimitedEmbedder(next Embedder, limiter *rate.Limiter) Embedder {
	return &limitedEmbedder{next: next, limiter: limiter}
}

func (l *limitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Embed(ctx, text)
}

type limitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

func RateLimitedGenerator(next Generator, limiter *rate.Limiter) Generator {
	return &limitedGenerator{next: next, limiter: limiter}
}

func (l *limitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, prompt)
}
