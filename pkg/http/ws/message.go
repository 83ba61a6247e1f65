package ws

import "encoding/json"

// MessageType constants for the quiz WebSocket protocol.
const (
	// Client -> Server
	TypeSelectAnswer = "select_answer"
	TypeAdvance      = "advance"
	TypeRetreat      = "retreat"
	TypeSubmit       = "submit"
	TypeRequestState = "request_state"

	// Server -> Client
	TypeState             = "state"
	TypeTick              = "tick"
	TypeCompleted         = "completed"
	TypeBackgroundUpdate  = "background_update"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Client Messages (incoming)

type SelectAnswerPayload struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

// Server Messages (outgoing)

type TickPayload struct {
	RemainingSeconds int    `json:"remaining_seconds"`
	Clock            string `json:"clock"`
	Warning          bool   `json:"warning"`
	CurrentQuestion  int    `json:"current_question"`
	Progress         int    `json:"progress"`
}

type CompletedPayload struct {
	ResultID       string `json:"result_id"`
	Reason         string `json:"reason"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	TimeTaken      string `json:"time_taken"`
	Message        string `json:"message"`
	Tier           string `json:"tier"`
}

type BackgroundUpdatePayload struct {
	ImageURL     string `json:"image_url"`
	ImageURLBlur string `json:"image_url_blur"`
	CSS          string `json:"css,omitempty"`
}

type LeaderboardUpdatePayload struct {
	Top []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	Medal          string `json:"medal"`
	ResultID       string `json:"result_id"`
	PlayerName     string `json:"player_name,omitempty"`
	Topic          string `json:"topic"`
	Difficulty     string `json:"difficulty"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	TimeTaken      int    `json:"time_taken"`
	Timestamp      string `json:"timestamp"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
