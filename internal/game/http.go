package game

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/view"
	httperrors "github.com/gokatarajesh/quizgen/pkg/http/errors"
)

// HTTPHandler exposes the quiz lifecycle over REST.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "game_http").Logger(),
	}
}

type startRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numQuestions"`
}

type answerRequest struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// resultResponse decorates a result with its display fields.
type resultResponse struct {
	quiz.Result
	Message       string `json:"message"`
	Tier          string `json:"tier"`
	TimeFormatted string `json:"timeFormatted"`
}

func newResultResponse(res quiz.Result) resultResponse {
	return resultResponse{
		Result:        res,
		Message:       quiz.ScoreMessage(res.Score),
		Tier:          string(quiz.ScoreTier(res.Score)),
		TimeFormatted: view.FormatDuration(res.TimeTaken),
	}
}

// HandleStart handles POST /v1/quiz
func (h *HTTPHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	status, err := h.svc.StartQuiz(r.Context(), question.Request{
		Topic:      req.Topic,
		Difficulty: question.Difficulty(req.Difficulty),
		Count:      req.NumQuestions,
	})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, status)
}

// HandleStatus handles GET /v1/quiz
func (h *HTTPHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, status)
}

// HandleAnswer handles POST /v1/quiz/answers
func (h *HTTPHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := h.svc.SelectAnswer(r.Context(), req.Question, req.Option); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleAdvance handles POST /v1/quiz/advance
func (h *HTTPHandler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Advance(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleRetreat handles POST /v1/quiz/retreat
func (h *HTTPHandler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Retreat(r.Context()); err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleSubmit handles POST /v1/quiz/submit
func (h *HTTPHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Submit(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, newResultResponse(res))
}

// HandleAbandon handles DELETE /v1/quiz
func (h *HTTPHandler) HandleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Abandon(); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLastResult handles GET /v1/results/last
func (h *HTTPHandler) HandleLastResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.LastResult(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, newResultResponse(res))
}

// HandleReview handles GET /v1/results/last/review
func (h *HTTPHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Review(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"review": items})
}

// HandleAttachName handles PUT /v1/results/{id}/name
func (h *HTTPHandler) HandleAttachName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	found, err := h.svc.AttachPlayerName(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if !found {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "No result with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleShare handles POST /v1/results/last/share
func (h *HTTPHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := h.svc.ShareResult(r.Context(), req.Name); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"shared": true})
}

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, err error) {
	code, status, message := classify(err)
	switch code {
	case "":
		question.RespondGenerationError(w, err)
		return
	case httperrors.ErrCodeInternalError, httperrors.ErrCodePersistFailed:
		h.logger.Error().Err(err).Msg("request failed")
	}
	if code == httperrors.ErrCodeMissingField {
		httperrors.RespondValidationError(w, code, message, "name")
		return
	}
	httperrors.RespondError(w, status, code, message)
}

// classify maps service errors to an error code, status and message. An empty
// code means the error came from question generation.
func classify(err error) (code string, status int, message string) {
	switch {
	case errors.Is(err, question.ErrMissingInput),
		errors.Is(err, question.ErrTimeout),
		errors.Is(err, question.ErrInvalidShape),
		errors.Is(err, question.ErrNetwork):
		return "", 0, ""
	case errors.Is(err, ErrNoActiveQuiz):
		return httperrors.ErrCodeNoActiveQuiz, http.StatusNotFound, "No quiz in progress"
	case errors.Is(err, ErrNoResult):
		return httperrors.ErrCodeNoResult, http.StatusNotFound, "No completed quiz yet"
	case errors.Is(err, ErrNameRequired):
		return httperrors.ErrCodeMissingField, http.StatusBadRequest, "A player name is required"
	case errors.Is(err, quiz.ErrInvalidState), errors.Is(err, quiz.ErrRunnerStopped):
		return httperrors.ErrCodeQuizNotRunning, http.StatusConflict, "The quiz is not running"
	case errors.Is(err, quiz.ErrQuestionOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		return httperrors.ErrCodeValidationFailed, http.StatusBadRequest, err.Error()
	case errors.Is(err, leaderboard.ErrRemoteDisabled):
		return httperrors.ErrCodeFeatureNotAvailable, http.StatusNotImplemented, "Score sharing is not configured"
	case errors.Is(err, ErrShareFailed):
		return httperrors.ErrCodeShareFailed, http.StatusBadGateway, "Failed to share score"
	default:
		return httperrors.ErrCodeInternalError, http.StatusInternalServerError, "Internal server error"
	}
}
