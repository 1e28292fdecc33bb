package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/metrics"
)

const (
	defaultModel          = "gemini-1.5-pro"
	defaultEmbeddingModel = "text-embedding-004"

	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

var ErrNoContent = errors.New("gemini returned no content")

type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32

	// Consecutive failures that open the breaker.
	FailureThreshold uint32
	// Time the breaker stays open before letting a trial request through.
	OpenTimeout time.Duration
}

type generateFunc func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
type embedFunc func(ctx context.Context, text string) (*genai.EmbedContentResponse, error)

// Client implements ai.Embedder and ai.Generator on top of the Gemini API.
type Client struct {
	client   *genai.Client
	generate generateFunc
	embed    embedFunc

	generateBreaker *gobreaker.CircuitBreaker[string]
	embedBreaker    *gobreaker.CircuitBreaker[[]float32]

	logger *zap.Logger
}

var (
	_ ai.Embedder  = (*Client)(nil)
	_ ai.Generator = (*Client)(nil)
)

func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(cfg.Temperature)

	embeddingName := cfg.EmbeddingModel
	if embeddingName == "" {
		embeddingName = defaultEmbeddingModel
	}
	embedder := client.EmbeddingModel(embeddingName)

	c := newClient(
		func(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
			return model.GenerateContent(ctx, genai.Text(prompt))
		},
		func(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
			return embedder.EmbedContent(ctx, genai.Text(text))
		},
		cfg,
		logger.With(zap.String("ai_provider", "gemini"), zap.String("ai_model", modelName)),
	)
	c.client = client
	return c, nil
}

func newClient(generate generateFunc, embed embedFunc, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{generate: generate, embed: embed, logger: logger}
	c.generateBreaker = gobreaker.NewCircuitBreaker[string](c.breakerSettings("gemini-generate", cfg))
	c.embedBreaker = gobreaker.NewCircuitBreaker[[]float32](c.breakerSettings("gemini-embed", cfg))
	return c
}

func (c *Client) breakerSettings(name string, cfg Config) gobreaker.Settings {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A rejected request says nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || ai.IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.AICircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.generateBreaker.Execute(func() (string, error) {
		resp, err := c.generate(ctx, prompt)
		if err != nil {
			return "", classify(err)
		}
		return responseText(resp)
	})
	err = breakerError("generate", err)
	metrics.RecordAIRequest("generate", time.Since(start), err)
	return text, err
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	values, err := c.embedBreaker.Execute(func() ([]float32, error) {
		resp, err := c.embed(ctx, text)
		if err != nil {
			return nil, classify(err)
		}
		if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, ErrNoContent
		}
		return resp.Embedding.Values, nil
	})
	err = breakerError("embed", err)
	metrics.RecordAIRequest("embed", time.Since(start), err)
	return values, err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoContent
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// classify marks errors that retrying cannot fix as permanent.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated,
		codes.NotFound, codes.FailedPrecondition, codes.Unimplemented:
		return ai.Permanent(err)
	default:
		return err
	}
}

func breakerError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("gemini %s: %w: %w", op, metrics.ErrCircuitOpen, err)
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}
