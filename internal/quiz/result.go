package quiz

import (
	"math"
	"time"

	"github.com/gokatarajesh/quizgen/internal/question"
)

// Result is the immutable outcome of one completed quiz.
type Result struct {
	ID             string              `json:"id"`
	Topic          string              `json:"topic"`
	Difficulty     question.Difficulty `json:"difficulty"`
	Score          int                 `json:"score"`
	CorrectAnswers int                 `json:"correctAnswers"`
	TotalQuestions int                 `json:"totalQuestions"`
	TimeTaken      int                 `json:"timeTaken"`
	Timestamp      time.Time           `json:"timestamp"`
	Questions      []question.Question `json:"questions,omitempty"`
	UserAnswers    Answers             `json:"userAnswers,omitempty"`
	PlayerName     string              `json:"playerName,omitempty"`
	Backdrop
}

// Clone deep-copies the question and answer slices.
func (r Result) Clone() Result {
	out := r
	if r.Questions != nil {
		out.Questions = question.CloneQuestions(r.Questions)
	}
	out.UserAnswers = r.UserAnswers.Clone()
	if r.Attribution != nil {
		attr := *r.Attribution
		out.Attribution = &attr
	}
	return out
}

// CorrectCount counts answers matching the correct option. Unanswered
// questions are never correct.
func CorrectCount(questions []question.Question, answers Answers) int {
	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] != NoAnswer && answers[i] == q.CorrectIndex {
			correct++
		}
	}
	return correct
}

// Score is the percentage of correct answers rounded half away from zero,
// so 2 of 3 scores 67 and 1 of 8 (12.5%) scores 13.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// ElapsedSeconds is the whole seconds between start and end, never negative.
func ElapsedSeconds(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// BuildResult scores a finished quiz. Questions and answers are copied.
func BuildResult(id string, set question.Set, answers Answers, start, submit time.Time) Result {
	correct := CorrectCount(set.Questions, answers)
	total := len(set.Questions)
	return Result{
		ID:             id,
		Topic:          set.Topic,
		Difficulty:     set.Difficulty,
		Score:          Score(correct, total),
		CorrectAnswers: correct,
		TotalQuestions: total,
		TimeTaken:      ElapsedSeconds(start, submit),
		Timestamp:      submit,
		Questions:      question.CloneQuestions(set.Questions),
		UserAnswers:    answers.Clone(),
	}
}

// ScoreMessage is the headline shown alongside a score.
func ScoreMessage(score int) string {
	switch {
	case score >= 100:
		return "Perfect Score!"
	case score >= 80:
		return "Excellent!"
	case score >= 60:
		return "Good Job!"
	case score >= 40:
		return "Keep Practicing!"
	default:
		return "Study More!"
	}
}

// Tier buckets a score for display.
type Tier string

const (
	TierHigh Tier = "high"
	TierMid  Tier = "mid"
	TierLow  Tier = "low"
)

func ScoreTier(score int) Tier {
	switch {
	case score >= 80:
		return TierHigh
	case score >= 60:
		return TierMid
	default:
		return TierLow
	}
}

// ReviewItem pairs a question with what the player chose.
type ReviewItem struct {
	Index        int      `json:"index"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswer"`
	Selected     *int     `json:"userAnswer"`
	Correct      bool     `json:"isCorrect"`
}

// Review lists every question of r with the selected and correct options.
func (r Result) Review() []ReviewItem {
	items := make([]ReviewItem, 0, len(r.Questions))
	for i, q := range r.Questions {
		item := ReviewItem{
			Index:        i,
			Question:     q.Text,
			Options:      append([]string(nil), q.Options...),
			CorrectIndex: q.CorrectIndex,
		}
		if i < len(r.UserAnswers) && r.UserAnswers[i] != NoAnswer {
			sel := r.UserAnswers[i]
			item.Selected = &sel
			item.Correct = sel == q.CorrectIndex
		}
		items = append(items, item)
	}
	return items
}
