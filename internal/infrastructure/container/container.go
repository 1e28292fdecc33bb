package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gdugdh24/mpit2026-matching/internal/ai"
	"github.com/gdugdh24/mpit2026-matching/internal/config"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/database"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/gemini"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/lock"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/server"
	"github.com/gdugdh24/mpit2026-matching/internal/matching"
	"github.com/gdugdh24/mpit2026-matching/internal/repository"
	"github.com/gdugdh24/mpit2026-matching/internal/repository/memory"
	"github.com/gdugdh24/mpit2026-matching/internal/repository/postgres"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/matchround"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/vote"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Gemini *gemini.Client
	Auth   *middleware.AuthMiddleware

	MatchRounds *matchround.MatchRoundUseCase
	Votes       *vote.VoteUseCase
	Scheduler   *matchround.Scheduler
	Server      *server.Server
}

type repositories struct {
	profiles       repository.ProfileRepository
	activities     repository.ActivityRepository
	questionnaires repository.QuestionnaireRepository
	rounds         repository.MatchRoundRepository
	matches        repository.MatchRepository
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	repos, err := c.initStorage(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	locker, err := c.initLocker(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	embedder, generator, err := c.initAI(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	// Matching pipeline
	embeddings := matching.NewEmbeddingGenerator(
		embedder,
		matching.NewEmbeddingCache(cfg.Match.EmbeddingCacheEnabled),
		cfg.AI.Concurrency,
		log.Named("embeddings"),
	)
	var analyzer *matching.Analyzer
	if cfg.Match.AnalyzeProfiles {
		analyzer = matching.NewAnalyzer(generator, cfg.AI.Concurrency, log.Named("analyzer"))
	}
	pipeline := matching.NewPipeline(
		embeddings,
		&matching.SoftScorer{
			Weight:         cfg.Match.SoftWeight,
			LocationWeight: cfg.Match.LocationWeight,
			AgeWeight:      cfg.Match.AgeWeight,
			AgeSpanYears:   cfg.Match.AgeSpanYears,
		},
		matching.NewExplainer(generator, cfg.Match.PlaceholderExplanation, cfg.AI.Concurrency, log.Named("explainer")),
		analyzer,
		matching.Config{
			MaxResults:        cfg.Match.MaxResults,
			MinSimilarity:     cfg.Match.MinSimilarity,
			PerParticipantCap: cfg.Match.PerParticipantCap,
			ExcludePrevious:   cfg.Match.ExcludePrevious,
			AnalyzeProfiles:   cfg.Match.AnalyzeProfiles,
		},
		log.Named("pipeline"),
	)
	loader := matching.NewLoader(repos.activities, repos.questionnaires, repos.profiles, repos.matches, log.Named("loader"))

	// Initialize use cases
	c.MatchRounds = matchround.NewMatchRoundUseCase(
		repos.rounds,
		repos.matches,
		repos.activities,
		repos.questionnaires,
		loader,
		pipeline,
		matching.NewSuggester(embeddings, generator, log.Named("suggester")),
		locker,
		matchround.Options{
			LockTTL:         cfg.Redis.LockTTL,
			SuggestionLimit: cfg.Match.SuggestionLimit,
		},
		log.Named("rounds"),
	)
	c.Votes = vote.NewVoteUseCase(repos.matches, log.Named("votes"))
	c.Scheduler = matchround.NewScheduler(
		c.MatchRounds,
		repos.rounds,
		cfg.Scheduler.Interval,
		cfg.Scheduler.BatchSize,
		cfg.Scheduler.StaleAfter,
		log.Named("scheduler"),
	)

	// HTTP
	c.Auth = middleware.NewAuthMiddleware(cfg.JWT.AccessSecret)
	router := http.NewRouter(
		handler.NewMatchRoundHandler(c.MatchRounds),
		handler.NewVoteHandler(c.Votes),
		c.Auth,
		log.Named("http"),
	)
	c.Server = server.NewServer(&cfg.Server, router.Setup(), log.Named("server"))

	return c, nil
}

func (c *Container) initStorage(ctx context.Context) (*repositories, error) {
	switch c.Config.Storage.Type {
	case config.StorageMemory:
		store := memory.NewStore()
		if path := c.Config.Storage.SeedFile; path != "" {
			if err := memory.LoadSeedFile(store, path); err != nil {
				return nil, err
			}
			c.Logger.Info("memory store seeded", zap.String("path", path))
		}
		return &repositories{
			profiles:       store.Profiles(),
			activities:     store.Activities(),
			questionnaires: store.Questionnaires(),
			rounds:         store.Rounds(),
			matches:        store.Matches(),
		}, nil
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, &c.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		return &repositories{
			profiles:       postgres.NewProfileRepository(db),
			activities:     postgres.NewActivityRepository(db),
			questionnaires: postgres.NewQuestionnaireRepository(db),
			rounds:         postgres.NewMatchRoundRepository(db),
			matches:        postgres.NewMatchRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Config.Storage.Type)
	}
}

// initLocker uses redis when enabled so that several instances never run the
// same round at once; a single instance is covered by the local locker.
func (c *Container) initLocker(ctx context.Context) (lock.Locker, error) {
	if !c.Config.Redis.Enabled {
		return lock.NewLocalLocker(), nil
	}
	client, err := database.NewRedisClient(ctx, &c.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	c.Redis = client
	return lock.NewRedisLocker(client, c.Config.Redis.LockPrefix), nil
}

func (c *Container) initAI(ctx context.Context) (ai.Embedder, ai.Generator, error) {
	cfg := c.Config.AI
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:           cfg.APIKey,
		Model:            cfg.Model,
		EmbeddingModel:   cfg.EmbeddingModel,
		Temperature:      cfg.Temperature,
		FailureThreshold: cfg.BreakerThreshold,
		OpenTimeout:      cfg.BreakerTimeout,
	}, c.Logger.Named("gemini"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	c.Gemini = client

	// Every attempt waits for the shared limiter, so retries are throttled too.
	limiter := ai.NewLimiter(cfg.RequestsPerSecond, cfg.Burst)
	policy := ai.RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts(),
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Timeout:        cfg.RequestTimeout,
	}
	log := c.Logger.Named("ai")
	embedder := ai.WithEmbedRetry(ai.RateLimitedEmbedder(client, limiter), policy, log)
	generator := ai.WithGenerateRetry(ai.RateLimitedGenerator(client, limiter), policy, log)
	return embedder, generator, nil
}

// Close closes all connections
func (c *Container) Close() error {
	var firstErr error
	if c.Gemini != nil {
		if err := c.Gemini.Close(); err != nil {
			c.Logger.Warn("error closing gemini client", zap.Error(err))
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("error closing redis", zap.Error(err))
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close database: %w", err)
		}
	}

	return firstErr
}
