package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// AI providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizgen"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`

	Storage     Storage
	Redis       Redis
	AI          AI
	Image       Image
	Quiz        Quiz
	Leaderboard Leaderboard
	CORS        CORS
}

// Storage selects where quiz state and the leaderboard are kept.
type Storage struct {
	Backend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	Prefix  string        `env:"STORAGE_KEY_PREFIX" envDefault:"quizgen"`
	TTL     time.Duration `env:"STORAGE_TTL" envDefault:"0s"`
}

// Redis holds connection settings for the redis storage backend.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

// AI configures the question generator.
type AI struct {
	Provider          string        `env:"AI_PROVIDER" envDefault:"gemini"`
	GenerationTimeout time.Duration `env:"AI_GENERATION_TIMEOUT" envDefault:"60s"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`

	AnthropicAPIKey    string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5"`
	AnthropicMaxTokens int64  `env:"ANTHROPIC_MAX_TOKENS" envDefault:"8192"`
	AnthropicBaseURL   string `env:"ANTHROPIC_BASE_URL"`
}

// Image configures background photo lookups. An empty access key disables
// photos and every quiz gets its gradient.
type Image struct {
	UnsplashAccessKey string        `env:"UNSPLASH_ACCESS_KEY"`
	UnsplashBaseURL   string        `env:"UNSPLASH_BASE_URL" envDefault:"https://api.unsplash.com"`
	LookupTimeout     time.Duration `env:"IMAGE_LOOKUP_TIMEOUT" envDefault:"8s"`
}

// Quiz groups gameplay defaults.
type Quiz struct {
	QuestionDuration time.Duration `env:"QUIZ_SECONDS_PER_QUESTION" envDefault:"60s"`
	TickInterval     time.Duration `env:"QUIZ_TICK_INTERVAL" envDefault:"1s"`
}

// Leaderboard governs ranking size, broadcast and score sharing.
type Leaderboard struct {
	Capacity      int           `env:"LEADERBOARD_CAPACITY" envDefault:"100"`
	BroadcastTopN int           `env:"LEADERBOARD_BROADCAST_TOP" envDefault:"10"`
	RemoteURL     string        `env:"LEADERBOARD_REMOTE_URL"`
	RemoteTimeout time.Duration `env:"LEADERBOARD_REMOTE_TIMEOUT" envDefault:"5s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations the struct tags cannot express.
func (c *App) Validate() error {
	var errs []error

	switch strings.ToLower(c.Storage.Backend) {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when STORAGE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch strings.ToLower(c.AI.Provider) {
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required when AI_PROVIDER=gemini"))
		}
	case ProviderAnthropic:
		if c.AI.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider))
	}

	if c.Quiz.QuestionDuration <= 0 {
		errs = append(errs, errors.New("QUIZ_SECONDS_PER_QUESTION must be positive"))
	}
	if c.Leaderboard.Capacity <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_CAPACITY must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
