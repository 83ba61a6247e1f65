package question

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
)

// Generator is the subset of Service the HTTP layer depends on.
type Generator interface {
	Generate(ctx context.Context, req Request) (Set, error)
}

// HTTPHandler exposes question generation over REST.
type HTTPHandler struct {
	svc    Generator
	logger zerolog.Logger
}

func NewHTTPHandler(svc Generator, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "question_http").Logger(),
	}
}

type generateRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numQuestions"`
}

type generateResponse struct {
	Questions []Question `json:"questions"`
}

// HandleGenerate handles POST /api/generate-quiz
func (h *HTTPHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	set, err := h.svc.Generate(r.Context(), Request{
		Topic:      req.Topic,
		Difficulty: Difficulty(req.Difficulty),
		Count:      req.NumQuestions,
	})
	if err != nil {
		RespondGenerationError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(generateResponse{Questions: set.Questions}); err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode generate response")
	}
}

// RespondGenerationError maps generator errors onto HTTP statuses.
func RespondGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingInput):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, err.Error())
	case errors.Is(err, ErrTimeout):
		httperrors.RespondError(w, http.StatusGatewayTimeout, httperrors.ErrCodeGenerationTimeout, "Question generation timed out")
	case errors.Is(err, ErrInvalidShape):
		var verr *ValidationError
		if errors.As(err, &verr) {
			httperrors.RespondErrorWithDetails(w, http.StatusBadGateway, httperrors.ErrCodeInvalidGeneration,
				"Generated questions were malformed", map[string]interface{}{"problems": verr.Errors})
			return
		}
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeInvalidGeneration, err.Error())
	default:
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Failed to generate quiz")
	}
}
