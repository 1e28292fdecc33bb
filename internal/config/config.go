package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	AI        AIConfig
	Match     MatchConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	LockPrefix string
	LockTTL    time.Duration
}

type JWTConfig struct {
	AccessSecret string `validate:"required,min=32"`
}

type StorageConfig struct {
	Type string `validate:"oneof=memory postgres"`
	// JSON fixture loaded into the memory store at startup.
	SeedFile string
}

type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	JSON  bool
}

type AIConfig struct {
	APIKey            string        `validate:"required"`
	Model             string        `validate:"required"`
	EmbeddingModel    string        `validate:"required"`
	Temperature       float32       `validate:"gte=0,lte=2"`
	RequestTimeout    time.Duration `validate:"gt=0"`
	MaxRetries        int           `validate:"min=0,max=10"`
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	Concurrency       int     `validate:"min=1"`
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int
	BreakerThreshold  uint32
	BreakerTimeout    time.Duration
}

type MatchConfig struct {
	MaxResults             int     `validate:"min=1"`
	MinSimilarity          float64 `validate:"gte=-1,lte=1"`
	EmbeddingCacheEnabled  bool
	PerParticipantCap      int     `validate:"min=1"`
	SoftWeight             float64 `validate:"gte=0,lte=1"`
	LocationWeight         float64 `validate:"gte=0"`
	AgeWeight              float64 `validate:"gte=0"`
	AgeSpanYears           int     `validate:"gte=0"`
	ExcludePrevious        bool
	PlaceholderExplanation string
	AnalyzeProfiles        bool
	SuggestionLimit        int `validate:"min=1"`
}

type SchedulerConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
	// StaleAfter is how long a round may stay running before the scheduler
	// puts it back to scheduled. Defaults to the round lock TTL.
	StaleAfter time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_LOCK_PREFIX", "matching:lock:")
	v.SetDefault("REDIS_LOCK_TTL", "10m")

	v.SetDefault("STORAGE_TYPE", StoragePostgres)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", true)

	v.SetDefault("AI_MODEL", "gemini-1.5-pro")
	v.SetDefault("AI_EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("AI_TEMPERATURE", 0.7)
	v.SetDefault("AI_REQUEST_TIMEOUT", "30s")
	v.SetDefault("AI_MAX_RETRIES", 3)
	v.SetDefault("AI_INITIAL_BACKOFF", "500ms")
	v.SetDefault("AI_MAX_BACKOFF", "10s")
	v.SetDefault("AI_CONCURRENCY", 4)
	v.SetDefault("AI_REQUESTS_PER_SECOND", 5)
	v.SetDefault("AI_BURST", 5)
	v.SetDefault("AI_BREAKER_THRESHOLD", 5)
	v.SetDefault("AI_BREAKER_TIMEOUT", "30s")

	v.SetDefault("MATCH_MAX_RESULTS", 10)
	v.SetDefault("MATCH_MIN_SIMILARITY", 0.7)
	v.SetDefault("EMBEDDING_CACHE_ENABLED", true)
	v.SetDefault("MATCH_PER_PARTICIPANT_CAP", 1)
	v.SetDefault("MATCH_SOFT_WEIGHT", 0.3)
	v.SetDefault("MATCH_LOCATION_WEIGHT", 0)
	v.SetDefault("MATCH_AGE_WEIGHT", 0)
	v.SetDefault("MATCH_AGE_SPAN_YEARS", 10)
	v.SetDefault("MATCH_EXCLUDE_PREVIOUS", true)
	v.SetDefault("MATCH_PLACEHOLDER_EXPLANATION", "")
	v.SetDefault("MATCH_ANALYZE_PROFILES", false)
	v.SetDefault("MATCH_SUGGESTION_LIMIT", 10)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", "1m")
	v.SetDefault("SCHEDULER_BATCH_SIZE", 10)
	v.SetDefault("SCHEDULER_STALE_AFTER", "0s")
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads path if it exists; environment variables take precedence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			Env:             v.GetString("ENV"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Enabled:    v.GetBool("REDIS_ENABLED"),
			Host:       v.GetString("REDIS_HOST"),
			Port:       v.GetInt("REDIS_PORT"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			LockPrefix: v.GetString("REDIS_LOCK_PREFIX"),
			LockTTL:    v.GetDuration("REDIS_LOCK_TTL"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Storage: StorageConfig{
			Type:     strings.ToLower(v.GetString("STORAGE_TYPE")),
			SeedFile: v.GetString("STORAGE_SEED_FILE"),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
			JSON:  v.GetBool("LOG_JSON"),
		},
		AI: AIConfig{
			APIKey:            v.GetString("GEMINI_API_KEY"),
			Model:             v.GetString("AI_MODEL"),
			EmbeddingModel:    v.GetString("AI_EMBEDDING_MODEL"),
			Temperature:       float32(v.GetFloat64("AI_TEMPERATURE")),
			RequestTimeout:    v.GetDuration("AI_REQUEST_TIMEOUT"),
			MaxRetries:        v.GetInt("AI_MAX_RETRIES"),
			InitialBackoff:    v.GetDuration("AI_INITIAL_BACKOFF"),
			MaxBackoff:        v.GetDuration("AI_MAX_BACKOFF"),
			Concurrency:       v.GetInt("AI_CONCURRENCY"),
			RequestsPerSecond: v.GetFloat64("AI_REQUESTS_PER_SECOND"),
			Burst:             v.GetInt("AI_BURST"),
			BreakerThreshold:  v.GetUint32("AI_BREAKER_THRESHOLD"),
			BreakerTimeout:    v.GetDuration("AI_BREAKER_TIMEOUT"),
		},
		Match: MatchConfig{
			MaxResults:             v.GetInt("MATCH_MAX_RESULTS"),
			MinSimilarity:          v.GetFloat64("MATCH_MIN_SIMILARITY"),
			EmbeddingCacheEnabled:  v.GetBool("EMBEDDING_CACHE_ENABLED"),
			PerParticipantCap:      v.GetInt("MATCH_PER_PARTICIPANT_CAP"),
			SoftWeight:             v.GetFloat64("MATCH_SOFT_WEIGHT"),
			LocationWeight:         v.GetFloat64("MATCH_LOCATION_WEIGHT"),
			AgeWeight:              v.GetFloat64("MATCH_AGE_WEIGHT"),
			AgeSpanYears:           v.GetInt("MATCH_AGE_SPAN_YEARS"),
			ExcludePrevious:        v.GetBool("MATCH_EXCLUDE_PREVIOUS"),
			PlaceholderExplanation: v.GetString("MATCH_PLACEHOLDER_EXPLANATION"),
			AnalyzeProfiles:        v.GetBool("MATCH_ANALYZE_PROFILES"),
			SuggestionLimit:        v.GetInt("MATCH_SUGGESTION_LIMIT"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("SCHEDULER_ENABLED"),
			Interval:   v.GetDuration("SCHEDULER_INTERVAL"),
			BatchSize:  v.GetInt("SCHEDULER_BATCH_SIZE"),
			StaleAfter: v.GetDuration("SCHEDULER_STALE_AFTER"),
		},
	}
	if config.Scheduler.StaleAfter <= 0 {
		config.Scheduler.StaleAfter = config.Redis.LockTTL
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed on %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Storage.Type == StoragePostgres {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	return nil
}

// MaxAttempts is the number of calls a retried AI request may make: the
// first one plus MaxRetries retries.
func (c *AIConfig) MaxAttempts() int {
	return c.MaxRetries + 1
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr returns the HTTP listen address
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
