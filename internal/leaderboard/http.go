package leaderboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	store  *Store
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(store *Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		store:  store,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the ranked leaderboard.
// Route: GET /v1/leaderboard?difficulty=all|easy|medium|hard&limit=100
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("difficulty")
	filter, err := ParseFilter(raw)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownFilter, err.Error(), "difficulty")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.store.Top(r.Context(), filter, limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("leaderboard fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLeaderboardFetchFailed, "Failed to load leaderboard")
		return
	}

	name := FilterAll
	if filter.Difficulty != "" {
		name = string(filter.Difficulty)
	}
	top := toWSEntries(entries)
	if top == nil {
		top = []ws.LeaderboardEntry{}
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"filter":      name,
		"top":         top,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleClear empties the leaderboard. The caller must confirm explicitly.
// Route: DELETE /v1/leaderboard?confirm=true
func (h *HTTPHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirmed {
		httperrors.RespondValidationError(w, httperrors.ErrCodeConfirmationRequired,
			"Clearing the leaderboard requires confirm=true", "confirm")
		return
	}

	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("leaderboard clear failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodePersistFailed, "Failed to clear leaderboard")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
