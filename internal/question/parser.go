package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a generated batch.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// Unwrap lets callers match validation failures with errors.Is(err, ErrInvalidShape).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidShape
}

// ParseQuestions extracts a question array from raw model output and validates it.
// Models often wrap JSON in prose or code fences, so parsing falls back through
// fence stripping and then the first bracketed array in the text.
func ParseQuestions(raw string) ([]Question, error) {
	items, err := decodeArray(raw)
	if err != nil {
		return nil, err
	}

	var errs []string
	questions := make([]Question, len(items))
	for i, item := range items {
		questions[i] = Question{Text: item.Text, Options: item.Options}
		if item.CorrectAnswer == nil {
			errs = append(errs, fmt.Sprintf("question %d: missing correct answer index", i+1))
			continue
		}
		questions[i].CorrectIndex = *item.CorrectAnswer
	}

	if err := Validate(questions); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		errs = append(errs, verr.Errors...)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return questions, nil
}

// wireQuestion keeps correctAnswer nullable so an absent index is rejected
// instead of defaulting to the first option.
type wireQuestion struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
}

func decodeArray(raw string) ([]wireQuestion, error) {
	var questions []wireQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &questions); err == nil {
		return questions, nil
	}

	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &questions); err == nil {
		return questions, nil
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrInvalidShape)
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &questions); err != nil {
		return nil, fmt.Errorf("%w: parse JSON array: %v", ErrInvalidShape, err)
	}
	return questions, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Validate rejects empty batches and any question that is not a well-formed
// four-option item. Bad data is never coerced.
func Validate(questions []Question) error {
	if len(questions) == 0 {
		return &ValidationError{Errors: []string{"no questions in batch"}}
	}

	var errs []string
	for i, q := range questions {
		qNum := i + 1
		if strings.TrimSpace(q.Text) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", qNum))
		}
		if len(q.Options) != OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: expected %d options, got %d", qNum, OptionCount, len(q.Options)))
		} else {
			for j, opt := range q.Options {
				if strings.TrimSpace(opt) == "" {
					errs = append(errs, fmt.Sprintf("question %d: option %d is empty", qNum, j+1))
				}
			}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: correct answer index %d out of range", qNum, q.CorrectIndex))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
