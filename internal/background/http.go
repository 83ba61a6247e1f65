package background

import (
	"encoding/json"
	"net/http"
	"strings"

	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
)

// HTTPHandler exposes background lookups over REST.
type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// HandleLookup handles POST /api/generate-image
func (h *HTTPHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "Missing topic field", "topic")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, h.svc.Lookup(r.Context(), req.Topic))
}
