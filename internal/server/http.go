package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/config"
	"github.com/gokatarajesh/quizgen/internal/game"
	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/logging"
	"github.com/gokatarajesh/quizgen/internal/question"
	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
)

// NewWSUpgrader accepts same-origin requests and the configured CORS origins.
func NewWSUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin) || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes carries the handlers mounted on the API mux. Nil handlers are skipped.
type Routes struct {
	Question    *question.HTTPHandler
	Background  *background.HTTPHandler
	Game        *game.HTTPHandler
	GameWS      *game.WSHandler
	Leaderboard *leaderboard.HTTPHandler
}

// NewHTTPServer wires health, metrics and API routes behind CORS.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, gatherer prometheus.Gatherer, storage Pinger, routes Routes) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, gatherer, storage, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, CORS-wrapped handler.
func NewHandler(cfg *config.App, logger zerolog.Logger, gatherer prometheus.Gatherer, storage Pinger, routes Routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := storage.Ping(ctx); err != nil {
				l := logging.FromContext(r.Context())
				l.Error().Err(err).Msg("storage ping failed")
				httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "storage unavailable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if h := routes.Question; h != nil {
		mux.HandleFunc("POST /api/generate-quiz", h.HandleGenerate)
	}
	if h := routes.Background; h != nil {
		mux.HandleFunc("POST /api/generate-image", h.HandleLookup)
	}

	if h := routes.Game; h != nil {
		mux.HandleFunc("POST /v1/quiz", h.HandleStart)
		mux.HandleFunc("GET /v1/quiz", h.HandleStatus)
		mux.HandleFunc("DELETE /v1/quiz", h.HandleAbandon)
		mux.HandleFunc("POST /v1/quiz/answers", h.HandleAnswer)
		mux.HandleFunc("POST /v1/quiz/advance", h.HandleAdvance)
		mux.HandleFunc("POST /v1/quiz/retreat", h.HandleRetreat)
		mux.HandleFunc("POST /v1/quiz/submit", h.HandleSubmit)
		mux.HandleFunc("GET /v1/results/last", h.HandleLastResult)
		mux.HandleFunc("GET /v1/results/last/review", h.HandleReview)
		mux.HandleFunc("POST /v1/results/last/share", h.HandleShare)
		mux.HandleFunc("PUT /v1/results/{id}/name", h.HandleAttachName)
	}
	if h := routes.GameWS; h != nil {
		mux.HandleFunc("GET /ws/quiz", h.HandleWebSocket)
	}

	if h := routes.Leaderboard; h != nil {
		mux.HandleFunc("GET /v1/leaderboard", h.HandleGet)
		mux.HandleFunc("DELETE /v1/leaderboard", h.HandleClear)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	})
	return c.Handler(withLogger(mux, logger))
}

func withLogger(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}
