package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeUnknownFilter    = "unknown_leaderboard_filter"

	// Resource errors
	ErrCodeNotFound       = "not_found"
	ErrCodeNoActiveQuiz   = "no_active_quiz"
	ErrCodeNoResult       = "no_result"
	ErrCodeConflict       = "conflict"
	ErrCodeQuizNotRunning = "quiz_not_running"

	// Generation errors
	ErrCodeGenerationTimeout = "generation_timeout"
	ErrCodeInvalidGeneration = "invalid_generation"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
	ErrCodeConfirmationRequired   = "confirmation_required"
	ErrCodePersistFailed          = "persist_failed"
	ErrCodeShareFailed            = "share_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Feature availability
	ErrCodeFeatureNotAvailable = "feature_not_available"
)
