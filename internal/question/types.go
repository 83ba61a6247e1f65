package question

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty governs prompt phrasing only; it carries no scoring weight.
type Difficulty string

// Difficulty constants for readability.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

// Bounds on how many questions a single generation may request.
const (
	MinCount = 1
	MaxCount = 20
)

var (
	// ErrMissingInput rejects a request before any outbound call is made.
	ErrMissingInput = errors.New("missing required input")
	// ErrTimeout means the text generator did not answer before the deadline.
	ErrTimeout = errors.New("generation timed out")
	// ErrInvalidShape means the generator output could not be parsed into valid questions.
	ErrInvalidShape = errors.New("generated questions have an invalid shape")
	// ErrNetwork wraps transport or provider failures.
	ErrNetwork = errors.New("generation request failed")
)

// ParseDifficulty maps user input onto a known difficulty.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(raw))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrMissingInput, raw)
	}
}

// Question is an immutable four-option multiple-choice question.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswer"`
}

// Clone returns a copy that shares no memory with q.
func (q Question) Clone() Question {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return Question{Text: q.Text, Options: opts, CorrectIndex: q.CorrectIndex}
}

// Set is the validated output of one generation.
type Set struct {
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// CloneQuestions deep-copies a question slice.
func CloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// Request captures the user's generation input.
type Request struct {
	Topic      string
	Difficulty Difficulty
	Count      int
}

// Normalize trims the topic and checks every field, returning ErrMissingInput on any gap.
func (r Request) Normalize() (Request, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return r, fmt.Errorf("%w: topic is required", ErrMissingInput)
	}
	d, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return r, err
	}
	r.Difficulty = d
	if r.Count < MinCount || r.Count > MaxCount {
		return r, fmt.Errorf("%w: question count must be between %d and %d", ErrMissingInput, MinCount, MaxCount)
	}
	return r, nil
}
