package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gokatarajesh/quizgen/internal/question"
)

var (
	countPattern = regexp.MustCompile(`exactly (\d+) questions`)
	topicPattern = regexp.MustCompile(`questions about ("(?:[^"\\]|\\.)*")`)
)

// Mock returns deterministic questions for local development. It reads the
// requested count and topic back out of the prompt.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	count := 5
	if match := countPattern.FindStringSubmatch(prompt); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
			count = n
		}
	}
	topic := "general knowledge"
	if match := topicPattern.FindStringSubmatch(prompt); match != nil {
		if unquoted, err := strconv.Unquote(match[1]); err == nil {
			topic = unquoted
		}
	}

	questions := make([]question.Question, 0, count)
	for i := 0; i < count; i++ {
		correct := i % question.OptionCount
		options := make([]string, question.OptionCount)
		for j := range options {
			label := "Distractor"
			if j == correct {
				label = "Answer"
			}
			options[j] = fmt.Sprintf("%s %c for %s #%d", label, 'A'+j, topic, i+1)
		}
		questions = append(questions, question.Question{
			Text:         fmt.Sprintf("Sample question %d about %s?", i+1, topic),
			Options:      options,
			CorrectIndex: correct,
		})
	}

	data, err := json.Marshal(questions)
	if err != nil {
		return "", err
	}
	// wrapped in a fence the way real models often answer
	return "```json\n" + string(data) + "\n```", nil
}
