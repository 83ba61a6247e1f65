package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/config"
	"github.com/gokatarajesh/quizgen/internal/game"
	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/logging"
	"github.com/gokatarajesh/quizgen/internal/metrics"
	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/question/ai"
	"github.com/gokatarajesh/quizgen/internal/server"
	"github.com/gokatarajesh/quizgen/internal/storage"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

// Components are the services shared by the HTTP server and the CLI.
type Components struct {
	Logger      zerolog.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Store       storage.Store
	Questions   *question.Service
	Backgrounds *background.Service
	Leaderboard *leaderboard.Store
	Remote      *leaderboard.RemoteClient

	redis *redis.Client
}

// NewComponents builds storage, generation, background and leaderboard
// services from cfg. notifier may be nil.
func NewComponents(ctx context.Context, cfg *config.App, logger zerolog.Logger, notifier leaderboard.Notifier) (*Components, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	c := &Components{Logger: logger, Registry: reg, Metrics: m}

	switch strings.ToLower(cfg.Storage.Backend) {
	case config.StorageRedis:
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		rs := storage.NewRedisStore(c.redis, cfg.Storage.Prefix, cfg.Storage.TTL)
		if err := rs.Ping(ctx); err != nil {
			_ = c.redis.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Store = rs
	default:
		logger.Warn().Msg("using in-memory storage; state is lost on restart")
		c.Store = storage.NewMemoryStore()
	}

	generator, provider, err := newTextGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Questions = question.NewService(generator, logger, question.ServiceOptions{
		Provider: provider,
		Timeout:  cfg.AI.GenerationTimeout,
		Metrics:  m,
	})

	var searcher background.PhotoSearcher
	if cfg.Image.UnsplashAccessKey != "" {
		searcher = background.NewUnsplashClient(cfg.Image.UnsplashBaseURL, cfg.Image.UnsplashAccessKey, nil)
	} else {
		logger.Info().Msg("UNSPLASH_ACCESS_KEY not set; backgrounds use gradients")
	}
	c.Backgrounds = background.NewService(searcher, logger, background.ServiceOptions{
		Timeout: cfg.Image.LookupTimeout,
		Metrics: m,
	})

	c.Leaderboard = leaderboard.NewStore(c.Store, logger, leaderboard.StoreOptions{
		Capacity: cfg.Leaderboard.Capacity,
		Notifier: notifier,
		Metrics:  m,
	})
	c.Remote = leaderboard.NewRemoteClient(cfg.Leaderboard.RemoteURL, cfg.Leaderboard.RemoteTimeout, logger)
	return c, nil
}

func newTextGenerator(cfg *config.App, logger zerolog.Logger) (question.TextGenerator, string, error) {
	switch provider := strings.ToLower(cfg.AI.Provider); provider {
	case config.ProviderGemini:
		return ai.NewGemini(ai.GeminiConfig{
			APIKey:  cfg.AI.GeminiAPIKey,
			Model:   cfg.AI.GeminiModel,
			BaseURL: cfg.AI.GeminiBaseURL,
		}, nil, logger), provider, nil
	case config.ProviderAnthropic:
		return ai.NewAnthropic(ai.AnthropicConfig{
			APIKey:    cfg.AI.AnthropicAPIKey,
			Model:     cfg.AI.AnthropicModel,
			MaxTokens: cfg.AI.AnthropicMaxTokens,
			BaseURL:   cfg.AI.AnthropicBaseURL,
		}, logger), provider, nil
	case config.ProviderMock:
		logger.Warn().Msg("using mock question generator")
		return ai.NewMock(), provider, nil
	default:
		return nil, "", fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}
}

// Pinger returns the storage health check, or nil when storage is in memory.
func (c *Components) Pinger() server.Pinger {
	if rs, ok := c.Store.(*storage.RedisStore); ok {
		return rs
	}
	return nil
}

// Close releases external connections.
func (c *Components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// Application aggregates shared infrastructure (storage, game, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	components *Components
	game       *game.Service
	http       *http.Server

	lbBroadcaster *leaderboard.Broadcaster
	bgCancels     []context.CancelFunc
}

// New bootstraps logger, storage, services and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	wsHub := ws.NewHub(logger)
	lbBroadcaster := leaderboard.NewBroadcaster(wsHub, cfg.Leaderboard.BroadcastTopN, logger)

	components, err := NewComponents(ctx, cfg, logger, lbBroadcaster)
	if err != nil {
		return nil, err
	}

	gameSvc := game.NewService(
		components.Questions,
		components.Backgrounds,
		components.Store,
		components.Leaderboard,
		logger,
		game.ServiceOptions{
			QuestionDuration: cfg.Quiz.QuestionDuration,
			TickInterval:     cfg.Quiz.TickInterval,
			Metrics:          components.Metrics,
			Publisher:        wsHub,
			Sharer:           components.Remote,
		},
	)

	routes := server.Routes{
		Question:    question.NewHTTPHandler(components.Questions, logger),
		Background:  background.NewHTTPHandler(components.Backgrounds),
		Game:        game.NewHTTPHandler(gameSvc, logger),
		GameWS:      game.NewWSHandler(gameSvc, wsHub, server.NewWSUpgrader(cfg.CORS.AllowedOrigins), logger),
		Leaderboard: leaderboard.NewHTTPHandler(components.Leaderboard, logger),
	}
	apiServer := server.NewHTTPServer(cfg, logger, components.Registry, components.Pinger(), routes)

	return &Application{
		cfg:           cfg,
		logger:        logger,
		components:    components,
		game:          gameSvc,
		http:          apiServer,
		lbBroadcaster: lbBroadcaster,
		bgCancels:     make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.game.Shutdown()

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if err := a.components.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}
}
