package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/question"
)

// DefaultQuestionDuration is the time budget granted per question.
const DefaultQuestionDuration = 60 * time.Second

// NoAnswer marks an unanswered question.
const NoAnswer = -1

var (
	ErrInvalidState       = errors.New("operation not valid in current quiz state")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrOptionOutOfRange   = errors.New("option index out of range")
	ErrInvalidSet         = errors.New("question set is not playable")
)

// State is the lifecycle position of a Session.
type State int

const (
	StateInitializing State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "initializing":
		*s = StateInitializing
	case "in_progress":
		*s = StateInProgress
	case "completed":
		*s = StateCompleted
	default:
		return fmt.Errorf("unknown quiz state %q", text)
	}
	return nil
}

// Answers holds one selected option per question, NoAnswer where unanswered.
// It encodes unanswered slots as JSON null.
type Answers []int

func NewAnswers(n int) Answers {
	a := make(Answers, n)
	for i := range a {
		a[i] = NoAnswer
	}
	return a
}

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	copy(out, a)
	return out
}

// Answered counts slots holding a selection.
func (a Answers) Answered() int {
	n := 0
	for _, v := range a {
		if v != NoAnswer {
			n++
		}
	}
	return n
}

func (a Answers) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	raw := make([]*int, len(a))
	for i := range a {
		if a[i] != NoAnswer {
			v := a[i]
			raw[i] = &v
		}
	}
	return json.Marshal(raw)
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}
	var raw []*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Answers, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = NoAnswer
		} else {
			out[i] = *v
		}
	}
	*a = out
	return nil
}

// Backdrop is the background attached to a quiz and carried onto its result.
type Backdrop struct {
	Image       string                  `json:"backgroundImage"`
	ImageBlur   string                  `json:"backgroundImageBlur"`
	Attribution *background.Attribution `json:"imageAttribution"`
}

// BackdropFrom converts a resolved background into a Backdrop.
func BackdropFrom(img background.Image) Backdrop {
	return Backdrop{Image: img.URL, ImageBlur: img.BlurURL, Attribution: img.Attribution}
}

// SessionOptions tunes a Session; zero values pick defaults.
type SessionOptions struct {
	QuestionDuration time.Duration
	NewID            func() string
}

// Session is the single-player quiz state machine. It is not safe for
// concurrent use; Runner serializes access to it.
type Session struct {
	state       State
	set         question.Set
	backdrop    Backdrop
	answers     Answers
	current     int
	startedAt   time.Time
	deadline    time.Time
	perQuestion time.Duration
	newID       func() string
	result      *Result
}

func NewSession(opts SessionOptions) *Session {
	perQuestion := opts.QuestionDuration
	if perQuestion <= 0 {
		perQuestion = DefaultQuestionDuration
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Session{
		state:       StateInitializing,
		perQuestion: perQuestion,
		newID:       newID,
	}
}

func (s *Session) State() State {
	return s.state
}

// Start begins timing. The set is deep-copied so later edits by the caller
// cannot leak into the running quiz.
func (s *Session) Start(set question.Set, backdrop Backdrop, now time.Time) error {
	if s.state != StateInitializing {
		return fmt.Errorf("start: %w (%s)", ErrInvalidState, s.state)
	}
	if err := question.Validate(set.Questions); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSet, err)
	}

	n := len(set.Questions)
	s.set = question.Set{Topic: set.Topic, Difficulty: set.Difficulty, Questions: question.CloneQuestions(set.Questions)}
	s.backdrop = backdrop
	s.answers = NewAnswers(n)
	s.current = 0
	s.startedAt = now
	s.deadline = now.Add(time.Duration(n) * s.perQuestion)
	s.state = StateInProgress
	return nil
}

// SetBackdrop replaces the background of a quiz that has not completed yet.
func (s *Session) SetBackdrop(b Backdrop) error {
	if s.state == StateCompleted {
		return fmt.Errorf("set backdrop: %w (%s)", ErrInvalidState, s.state)
	}
	s.backdrop = b
	return nil
}

// SelectAnswer records (or overwrites) the option chosen for question q.
// It does not move the current index.
func (s *Session) SelectAnswer(q, option int) error {
	if s.state != StateInProgress {
		return fmt.Errorf("select answer: %w (%s)", ErrInvalidState, s.state)
	}
	if q < 0 || q >= len(s.answers) {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, q)
	}
	if option < 0 || option >= len(s.set.Questions[q].Options) {
		return fmt.Errorf("%w: %d", ErrOptionOutOfRange, option)
	}
	s.answers[q] = option
	return nil
}

// Advance moves to the next question, clamped at the last one.
func (s *Session) Advance() {
	if s.state != StateInProgress {
		return
	}
	if s.current < len(s.set.Questions)-1 {
		s.current++
	}
}

// Retreat moves to the previous question, clamped at the first one.
func (s *Session) Retreat() {
	if s.state != StateInProgress {
		return
	}
	if s.current > 0 {
		s.current--
	}
}

// Remaining is the time left until the deadline, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.state != StateInProgress {
		return 0
	}
	left := s.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Tick reports the remaining time and force-submits once the deadline passes.
// submitted is true only on the tick that performed the submission.
func (s *Session) Tick(now time.Time) (remaining time.Duration, res Result, submitted bool) {
	if s.state != StateInProgress {
		return 0, Result{}, false
	}
	remaining = s.Remaining(now)
	if remaining > 0 {
		return remaining, Result{}, false
	}
	res, first, _ := s.Submit(now)
	return 0, res, first
}

// Submit completes the quiz. Repeated calls return the stored result with
// first == false, so a result is produced exactly once.
func (s *Session) Submit(now time.Time) (Result, bool, error) {
	switch s.state {
	case StateInitializing:
		return Result{}, false, fmt.Errorf("submit: %w (%s)", ErrInvalidState, s.state)
	case StateCompleted:
		return s.result.Clone(), false, nil
	}

	res := BuildResult(s.newID(), s.set, s.answers, s.startedAt, now)
	res.Backdrop = s.backdrop
	s.result = &res
	s.state = StateCompleted
	return res.Clone(), true, nil
}

// Result returns the stored result once the quiz has completed.
func (s *Session) Result() (Result, bool) {
	if s.result == nil {
		return Result{}, false
	}
	return s.result.Clone(), true
}

// Status is a read-only snapshot of a Session.
type Status struct {
	State            State               `json:"state"`
	Topic            string              `json:"topic"`
	Difficulty       question.Difficulty `json:"difficulty"`
	Questions        []question.Question `json:"questions"`
	Answers          Answers             `json:"userAnswers"`
	CurrentIndex     int                 `json:"currentQuestion"`
	TotalQuestions   int                 `json:"totalQuestions"`
	Answered         int                 `json:"answered"`
	StartTime        time.Time           `json:"startTime"`
	Deadline         time.Time           `json:"deadline"`
	RemainingSeconds int                 `json:"remainingSeconds"`
	Backdrop
}

// Snapshot deep-copies the session so callers never observe partial updates.
func (s *Session) Snapshot(now time.Time) Status {
	return Status{
		State:            s.state,
		Topic:            s.set.Topic,
		Difficulty:       s.set.Difficulty,
		Questions:        question.CloneQuestions(s.set.Questions),
		Answers:          s.answers.Clone(),
		CurrentIndex:     s.current,
		TotalQuestions:   len(s.set.Questions),
		Answered:         s.answers.Answered(),
		StartTime:        s.startedAt,
		Deadline:         s.deadline,
		RemainingSeconds: int(math.Ceil(s.Remaining(now).Seconds())),
		Backdrop:         s.backdrop,
	}
}
