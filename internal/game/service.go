package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/metrics"
	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/storage"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

var (
	ErrNoActiveQuiz = errors.New("no quiz in progress")
	ErrNoResult     = errors.New("no completed quiz")
	ErrNameRequired = errors.New("player name is required")
	ErrShareFailed  = errors.New("sharing score failed")
)

// QuestionGenerator produces a validated question set.
type QuestionGenerator interface {
	Generate(ctx context.Context, req question.Request) (question.Set, error)
}

// BackgroundLookup resolves a topic background and never fails.
type BackgroundLookup interface {
	Lookup(ctx context.Context, topic string) background.Image
}

// ScoreSharer submits a score to an external leaderboard.
type ScoreSharer interface {
	Enabled() bool
	Submit(ctx context.Context, name string, score int) error
}

// Publisher fans quiz events out to live clients.
type Publisher interface {
	BroadcastAll(msg ws.Message) error
}

// CurrentQuiz is the persisted record of the quiz being played.
type CurrentQuiz struct {
	Topic      string              `json:"topic"`
	Difficulty question.Difficulty `json:"difficulty"`
	Questions  []question.Question `json:"questions"`
	StartTime  time.Time           `json:"startTime"`
	Deadline   time.Time           `json:"deadline"`
	quiz.Backdrop
}

// ServiceOptions tunes the game service; zero values pick defaults.
type ServiceOptions struct {
	QuestionDuration time.Duration
	TickInterval     time.Duration
	PersistTimeout   time.Duration
	Clock            func() time.Time
	NewID            func() string
	Metrics          *metrics.Metrics
	Publisher        Publisher
	Sharer           ScoreSharer
}

// Service runs one quiz at a time: it generates the question set, tracks the
// timed session and persists the result and leaderboard entry on completion.
type Service struct {
	generator QuestionGenerator
	images    BackgroundLookup
	store     storage.Store
	board     *leaderboard.Store
	opts      ServiceOptions
	logger    zerolog.Logger

	// startMu serializes replacing the active quiz. Runner callbacks never take it.
	startMu sync.Mutex

	mu     sync.Mutex
	active *activeQuiz
	last   *quiz.Result
	seq    uint64
}

type activeQuiz struct {
	seq    uint64
	runner *quiz.Runner
	cancel context.CancelFunc

	// touched only on the runner goroutine
	lastAnswers  quiz.Answers
	lastCurrent  int
	lastBackdrop quiz.Backdrop
	published    bool
}

func NewService(
	generator QuestionGenerator,
	images BackgroundLookup,
	store storage.Store,
	board *leaderboard.Store,
	logger zerolog.Logger,
	opts ServiceOptions,
) *Service {
	if opts.QuestionDuration <= 0 {
		opts.QuestionDuration = quiz.DefaultQuestionDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		generator: generator,
		images:    images,
		store:     store,
		board:     board,
		opts:      opts,
		logger:    logger.With().Str("component", "game").Logger(),
	}
}

// StartQuiz generates a new quiz and starts its timer. The background lookup
// runs alongside generation; if it has not settled when the questions are
// ready, the gradient fallback is used and the photo patched in later.
func (s *Service) StartQuiz(ctx context.Context, req question.Request) (quiz.Status, error) {
	norm, err := req.Normalize()
	if err != nil {
		return quiz.Status{}, err
	}

	images := make(chan background.Image, 1)
	go func() {
		images <- s.lookup(context.WithoutCancel(ctx), norm.Topic)
	}()

	set, err := s.generator.Generate(ctx, norm)
	if err != nil {
		return quiz.Status{}, err
	}

	backdrop := quiz.BackdropFrom(background.Fallback(set.Topic))
	pending := true
	select {
	case img := <-images:
		backdrop = quiz.BackdropFrom(img)
		pending = false
	default:
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	previous := s.active
	s.active = nil
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if previous != nil {
		previous.runner.Abandon()
		previous.cancel()
		s.logger.Info().Uint64("quiz_seq", previous.seq).Msg("previous quiz abandoned")
	}

	q := &activeQuiz{seq: seq}
	session := quiz.NewSession(quiz.SessionOptions{
		QuestionDuration: s.opts.QuestionDuration,
		NewID:            s.opts.NewID,
	})
	q.runner = quiz.NewRunner(session, s.logger, quiz.RunnerOptions{
		TickInterval: s.opts.TickInterval,
		Clock:        s.opts.Clock,
		OnUpdate:     func(st quiz.Status) { s.publishUpdate(q, st) },
		OnComplete:   func(res quiz.Result, reason quiz.CompletionReason) { s.complete(res, reason) },
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	if err := q.runner.Start(runCtx, set, backdrop); err != nil {
		cancel()
		return quiz.Status{}, fmt.Errorf("start quiz: %w", err)
	}

	status, err := q.runner.Status(ctx)
	if err != nil {
		q.runner.Abandon()
		cancel()
		return quiz.Status{}, err
	}
	if err := s.saveCurrent(ctx, status); err != nil {
		q.runner.Abandon()
		cancel()
		return quiz.Status{}, err
	}

	s.mu.Lock()
	s.active = q
	s.mu.Unlock()

	s.logger.Info().
		Uint64("quiz_seq", seq).
		Str("topic", set.Topic).
		Str("difficulty", string(set.Difficulty)).
		Int("questions", len(set.Questions)).
		Bool("background_pending", pending).
		Msg("quiz started")

	if pending {
		go s.patchBackdrop(q, images)
	}
	return status, nil
}

func (s *Service) lookup(ctx context.Context, topic string) background.Image {
	if s.images == nil {
		return background.Fallback(topic)
	}
	return s.images.Lookup(ctx, topic)
}

// patchBackdrop applies a late background to q if it is still the active quiz.
func (s *Service) patchBackdrop(q *activeQuiz, images <-chan background.Image) {
	var img background.Image
	select {
	case img = <-images:
	case <-q.runner.Done():
		return
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.current() != q {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
	defer cancel()

	if err := q.runner.SetBackdrop(ctx, quiz.BackdropFrom(img)); err != nil {
		s.logger.Debug().Err(err).Msg("late background not applied")
		return
	}
	status, err := q.runner.Status(ctx)
	if err != nil {
		return
	}
	if err := s.saveCurrent(ctx, status); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist late background")
	}
}

func (s *Service) saveCurrent(ctx context.Context, st quiz.Status) error {
	record := CurrentQuiz{
		Topic:      st.Topic,
		Difficulty: st.Difficulty,
		Questions:  st.Questions,
		StartTime:  st.StartTime,
		Deadline:   st.Deadline,
		Backdrop:   st.Backdrop,
	}
	if err := storage.SetJSON(ctx, s.store, storage.KeyCurrentQuiz, record); err != nil {
		return fmt.Errorf("persist current quiz: %w", err)
	}
	return nil
}

func (s *Service) current() *activeQuiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Service) runner() (*quiz.Runner, error) {
	q := s.current()
	if q == nil {
		return nil, ErrNoActiveQuiz
	}
	return q.runner, nil
}

// complete runs on the runner goroutine exactly once per finished quiz.
func (s *Service) complete(res quiz.Result, reason quiz.CompletionReason) {
	stored := res.Clone()
	s.mu.Lock()
	s.last = &stored
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
	defer cancel()

	if err := storage.SetJSON(ctx, s.store, storage.KeyLastQuizResult, res); err != nil {
		s.logger.Error().Err(err).Str("result_id", res.ID).Msg("failed to persist quiz result")
	}
	if s.board != nil {
		if _, err := s.board.Record(ctx, leaderboard.Entry{Result: res}); err != nil {
			s.logger.Error().Err(err).Str("result_id", res.ID).Msg("failed to record leaderboard entry")
		}
	}
	s.opts.Metrics.ObserveCompletion(string(reason), string(res.Difficulty), res.Score)
	s.publish(ws.TypeCompleted, completedPayload(res, reason))
}

// Status snapshots the active quiz.
func (s *Service) Status(ctx context.Context) (quiz.Status, error) {
	r, err := s.runner()
	if err != nil {
		return quiz.Status{}, err
	}
	return r.Status(ctx)
}

func (s *Service) SelectAnswer(ctx context.Context, q, option int) error {
	r, err := s.runner()
	if err != nil {
		return err
	}
	return r.SelectAnswer(ctx, q, option)
}

func (s *Service) Advance(ctx context.Context) error {
	r, err := s.runner()
	if err != nil {
		return err
	}
	return r.Advance(ctx)
}

func (s *Service) Retreat(ctx context.Context) error {
	r, err := s.runner()
	if err != nil {
		return err
	}
	return r.Retreat(ctx)
}

// Submit finishes the active quiz and returns its result once persisted.
// Submitting an already finished quiz returns the same result.
func (s *Service) Submit(ctx context.Context) (quiz.Result, error) {
	r, err := s.runner()
	if err != nil {
		return quiz.Result{}, err
	}
	res, err := r.Submit(ctx)
	if err != nil {
		return quiz.Result{}, err
	}
	select {
	case <-r.Done():
	case <-ctx.Done():
		return quiz.Result{}, ctx.Err()
	}
	return res, nil
}

// Abandon stops the active quiz without producing a result.
func (s *Service) Abandon() error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	q := s.active
	s.active = nil
	s.mu.Unlock()
	if q == nil {
		return ErrNoActiveQuiz
	}
	q.runner.Abandon()
	q.cancel()
	return nil
}

// Shutdown abandons the active quiz, if any.
func (s *Service) Shutdown() {
	if err := s.Abandon(); err != nil && !errors.Is(err, ErrNoActiveQuiz) {
		s.logger.Warn().Err(err).Msg("shutdown")
	}
}

// LastResult returns the most recent result, reading persisted state when
// this process has not completed a quiz yet.
func (s *Service) LastResult(ctx context.Context) (quiz.Result, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last.Clone(), nil
	}

	var res quiz.Result
	err := storage.GetJSON(ctx, s.store, storage.KeyLastQuizResult, &res)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return quiz.Result{}, ErrNoResult
	case err != nil:
		return quiz.Result{}, fmt.Errorf("load last result: %w", err)
	}
	return res, nil
}

// Review returns per-question review rows for the last result.
func (s *Service) Review(ctx context.Context) ([]quiz.ReviewItem, error) {
	res, err := s.LastResult(ctx)
	if err != nil {
		return nil, err
	}
	return res.Review(), nil
}

// AttachPlayerName names the leaderboard entry for resultID and, when it is
// the last result, the persisted result as well. found is false when neither
// holds that id.
func (s *Service) AttachPlayerName(ctx context.Context, resultID, name string) (found bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrNameRequired
	}

	if s.board != nil {
		found, err = s.board.AttachName(ctx, resultID, name)
		if err != nil {
			return false, err
		}
	}

	last, err := s.LastResult(ctx)
	if errors.Is(err, ErrNoResult) || (err == nil && last.ID != resultID) {
		return found, nil
	}
	if err != nil {
		return found, err
	}

	last.PlayerName = name
	if err := storage.SetJSON(ctx, s.store, storage.KeyLastQuizResult, last); err != nil {
		return found, fmt.Errorf("persist player name: %w", err)
	}
	s.mu.Lock()
	s.last = &last
	s.mu.Unlock()
	return true, nil
}

// ShareResult submits the last score under name to the external leaderboard.
func (s *Service) ShareResult(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if s.opts.Sharer == nil || !s.opts.Sharer.Enabled() {
		return leaderboard.ErrRemoteDisabled
	}
	res, err := s.LastResult(ctx)
	if err != nil {
		return err
	}
	if err := s.opts.Sharer.Submit(ctx, name, res.Score); err != nil {
		s.logger.Warn().Err(err).Str("result_id", res.ID).Msg("score share failed")
		return fmt.Errorf("%w: %v", ErrShareFailed, err)
	}
	return nil
}
