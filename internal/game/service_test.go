package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/storage"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

func questionSet(req question.Request) question.Set {
	qs := make([]question.Question, req.Count)
	for i := range qs {
		qs[i] = question.Question{
			Text:         fmt.Sprintf("Question %d about %s?", i+1, req.Topic),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % question.OptionCount,
		}
	}
	return question.Set{Topic: req.Topic, Difficulty: req.Difficulty, Questions: qs}
}

type stubGenerator struct {
	err   error
	calls atomic.Int32
}

func (g *stubGenerator) Generate(_ context.Context, req question.Request) (question.Set, error) {
	g.calls.Add(1)
	if g.err != nil {
		return question.Set{}, g.err
	}
	return questionSet(req), nil
}

type stubImages struct {
	release chan struct{}
}

var photo = background.Image{
	URL:         "https://images.example/full.jpg",
	BlurURL:     "https://images.example/blur.jpg",
	Attribution: &background.Attribution{Photographer: "Ana", Source: "unsplash"},
	Source:      background.SourcePhoto,
}

func (s *stubImages) Lookup(ctx context.Context, _ string) background.Image {
	if s.release != nil {
		<-s.release
	}
	return photo
}

type stubSharer struct {
	enabled bool
	err     error
	mu      sync.Mutex
	got     []string
}

func (s *stubSharer) Enabled() bool { return s.enabled }

func (s *stubSharer) Submit(_ context.Context, name string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, fmt.Sprintf("%s:%d", name, score))
	return s.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (p *recordingPublisher) BroadcastAll(msg ws.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) ofType(t string) []ws.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Message
	for _, m := range p.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	svc       *Service
	gen       *stubGenerator
	images    *stubImages
	backend   *storage.MemoryStore
	board     *leaderboard.Store
	publisher *recordingPublisher
	sharer    *stubSharer
}

func newFixture(t *testing.T, opts ServiceOptions) *fixture {
	t.Helper()
	f := &fixture{
		gen:       &stubGenerator{},
		images:    &stubImages{},
		backend:   storage.NewMemoryStore(),
		publisher: &recordingPublisher{},
		sharer:    &stubSharer{enabled: true},
	}
	logger := zerolog.New(io.Discard)
	f.board = leaderboard.NewStore(f.backend, logger, leaderboard.StoreOptions{})
	opts.Publisher = f.publisher
	opts.Sharer = f.sharer
	if opts.TickInterval == 0 {
		opts.TickInterval = 10 * time.Millisecond
	}
	f.svc = NewService(f.gen, f.images, f.backend, f.board, logger, opts)
	t.Cleanup(f.svc.Shutdown)
	return f
}

func startReq(n int) question.Request {
	return question.Request{Topic: "Rivers", Difficulty: question.DifficultyEasy, Count: n}
}

func TestStartQuizRejectsMissingInput(t *testing.T) {
	f := newFixture(t, ServiceOptions{})

	_, err := f.svc.StartQuiz(context.Background(), question.Request{Topic: "  ", Difficulty: question.DifficultyEasy, Count: 3})
	assert.ErrorIs(t, err, question.ErrMissingInput)
	assert.Zero(t, f.gen.calls.Load())

	_, err = f.svc.Status(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveQuiz)
}

func TestStartQuizGenerationFailure(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	f.gen.err = fmt.Errorf("%w after 1s", question.ErrTimeout)

	_, err := f.svc.StartQuiz(context.Background(), startReq(3))
	assert.ErrorIs(t, err, question.ErrTimeout)

	_, err = f.svc.Status(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveQuiz)
	_, err = f.backend.Get(context.Background(), storage.KeyCurrentQuiz)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStartQuizPersistsCurrentQuiz(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	ctx := context.Background()

	status, err := f.svc.StartQuiz(ctx, startReq(3))
	require.NoError(t, err)
	assert.Equal(t, quiz.StateInProgress, status.State)
	assert.Equal(t, 3, status.TotalQuestions)
	assert.Equal(t, 180, status.RemainingSeconds)
	assert.Equal(t, quiz.Answers{quiz.NoAnswer, quiz.NoAnswer, quiz.NoAnswer}, status.Answers)

	var current CurrentQuiz
	require.NoError(t, storage.GetJSON(ctx, f.backend, storage.KeyCurrentQuiz, &current))
	assert.Equal(t, "Rivers", current.Topic)
	assert.Equal(t, question.DifficultyEasy, current.Difficulty)
	assert.Len(t, current.Questions, 3)
	assert.Equal(t, status.Deadline.UTC(), current.Deadline.UTC())
}

func TestLateBackgroundIsPatchedIn(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	f.images.release = make(chan struct{})
	ctx := context.Background()

	status, err := f.svc.StartQuiz(ctx, startReq(2))
	require.NoError(t, err)
	fallback := background.Fallback("Rivers")
	assert.Equal(t, fallback.URL, status.Image)
	assert.Nil(t, status.Attribution)

	close(f.images.release)

	require.Eventually(t, func() bool {
		st, err := f.svc.Status(ctx)
		return err == nil && st.Image == photo.URL
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var current CurrentQuiz
		err := storage.GetJSON(ctx, f.backend, storage.KeyCurrentQuiz, &current)
		return err == nil && current.Image == photo.URL && current.Attribution != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.publisher.ofType(ws.TypeBackgroundUpdate)) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitScoresAndPersists(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute, NewID: func() string { return "result-1" }})
	ctx := context.Background()

	_, err := f.svc.StartQuiz(ctx, startReq(4))
	require.NoError(t, err)

	// correct indexes are 0,1,2,3; answer three correctly and skip one
	require.NoError(t, f.svc.SelectAnswer(ctx, 0, 0))
	require.NoError(t, f.svc.Advance(ctx))
	require.NoError(t, f.svc.SelectAnswer(ctx, 1, 1))
	require.NoError(t, f.svc.SelectAnswer(ctx, 2, 0))
	require.NoError(t, f.svc.SelectAnswer(ctx, 2, 2))
	require.NoError(t, f.svc.Retreat(ctx))

	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, 9, 0), quiz.ErrQuestionOutOfRange)
	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, 0, 4), quiz.ErrOptionOutOfRange)

	res, err := f.svc.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "result-1", res.ID)
	assert.Equal(t, 3, res.CorrectAnswers)
	assert.Equal(t, 75, res.Score)
	assert.Equal(t, quiz.Answers{0, 1, 2, quiz.NoAnswer}, res.UserAnswers)

	var stored quiz.Result
	require.NoError(t, storage.GetJSON(ctx, f.backend, storage.KeyLastQuizResult, &stored))
	assert.Equal(t, "result-1", stored.ID)
	assert.Equal(t, 75, stored.Score)

	top, err := f.board.Top(ctx, leaderboard.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "result-1", top[0].ID)

	again, err := f.svc.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ID, again.ID)
	n, _ := f.board.Len(ctx)
	assert.Equal(t, 1, n, "a second submit must not record again")

	assert.ErrorIs(t, f.svc.SelectAnswer(ctx, 3, 3), quiz.ErrInvalidState)

	completed := f.publisher.ofType(ws.TypeCompleted)
	require.Len(t, completed, 1)
	var payload ws.CompletedPayload
	require.NoError(t, json.Unmarshal(completed[0].Payload, &payload))
	assert.Equal(t, "submitted", payload.Reason)
	assert.Equal(t, 75, payload.Score)

	review, err := f.svc.Review(ctx)
	require.NoError(t, err)
	require.Len(t, review, 4)
	assert.True(t, review[0].Correct)
	assert.Nil(t, review[3].Selected)
	assert.False(t, review[3].Correct)
}

func TestTimerExpirySubmitsOnce(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: 200 * time.Millisecond})
	ctx := context.Background()

	_, err := f.svc.StartQuiz(ctx, startReq(1))
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAnswer(ctx, 0, 0))

	require.Eventually(t, func() bool {
		_, err := f.svc.LastResult(ctx)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	res, err := f.svc.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)

	completed := f.publisher.ofType(ws.TypeCompleted)
	require.Len(t, completed, 1)
	var payload ws.CompletedPayload
	require.NoError(t, json.Unmarshal(completed[0].Payload, &payload))
	assert.Equal(t, "timeout", payload.Reason)

	submitted, err := f.svc.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ID, submitted.ID)
	n, _ := f.board.Len(ctx)
	assert.Equal(t, 1, n)
}

func TestStartingNewQuizAbandonsPrevious(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	ctx := context.Background()

	_, err := f.svc.StartQuiz(ctx, startReq(2))
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAnswer(ctx, 0, 0))

	status, err := f.svc.StartQuiz(ctx, question.Request{Topic: "Volcanoes", Difficulty: question.DifficultyHard, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "Volcanoes", status.Topic)
	assert.Equal(t, 0, status.Answers.Answered())

	_, err = f.svc.LastResult(ctx)
	assert.ErrorIs(t, err, ErrNoResult)
	n, _ := f.board.Len(ctx)
	assert.Zero(t, n)
}

func TestAbandon(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Abandon(), ErrNoActiveQuiz)

	_, err := f.svc.StartQuiz(ctx, startReq(2))
	require.NoError(t, err)
	require.NoError(t, f.svc.Abandon())

	_, err = f.svc.Submit(ctx)
	assert.ErrorIs(t, err, ErrNoActiveQuiz)
	_, err = f.svc.LastResult(ctx)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestLastResultFallsBackToStorage(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	stored := quiz.Result{ID: "older", Topic: "Maps", Score: 40, TotalQuestions: 5, CorrectAnswers: 2}
	require.NoError(t, storage.SetJSON(ctx, f.backend, storage.KeyLastQuizResult, stored))

	res, err := f.svc.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "older", res.ID)
	assert.Equal(t, 40, res.Score)
}

func TestAttachPlayerName(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute, NewID: func() string { return "r-42" }})
	ctx := context.Background()

	_, err := f.svc.StartQuiz(ctx, startReq(1))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx)
	require.NoError(t, err)

	_, err = f.svc.AttachPlayerName(ctx, "r-42", "   ")
	assert.ErrorIs(t, err, ErrNameRequired)

	found, err := f.svc.AttachPlayerName(ctx, "unknown", "Kai")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = f.svc.AttachPlayerName(ctx, "r-42", " Kai ")
	require.NoError(t, err)
	assert.True(t, found)

	res, err := f.svc.LastResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kai", res.PlayerName)

	var stored quiz.Result
	require.NoError(t, storage.GetJSON(ctx, f.backend, storage.KeyLastQuizResult, &stored))
	assert.Equal(t, "Kai", stored.PlayerName)

	top, err := f.board.Top(ctx, leaderboard.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kai", top[0].PlayerName)
}

func TestShareResult(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ShareResult(ctx, ""), ErrNameRequired)
	assert.ErrorIs(t, f.svc.ShareResult(ctx, "Kai"), ErrNoResult)

	_, err := f.svc.StartQuiz(ctx, startReq(2))
	require.NoError(t, err)
	require.NoError(t, f.svc.SelectAnswer(ctx, 0, 0))
	_, err = f.svc.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.ShareResult(ctx, "Kai"))
	assert.Equal(t, []string{"Kai:50"}, f.sharer.got)

	f.sharer.err = errors.New("boom")
	assert.ErrorIs(t, f.svc.ShareResult(ctx, "Kai"), ErrShareFailed)

	f.sharer.enabled = false
	assert.ErrorIs(t, f.svc.ShareResult(ctx, "Kai"), leaderboard.ErrRemoteDisabled)
}

func TestTicksArePublished(t *testing.T) {
	f := newFixture(t, ServiceOptions{QuestionDuration: time.Minute})
	ctx := context.Background()

	_, err := f.svc.StartQuiz(ctx, startReq(2))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.publisher.ofType(ws.TypeTick)) > 0
	}, 2*time.Second, 10*time.Millisecond)

	var tick ws.TickPayload
	require.NoError(t, json.Unmarshal(f.publisher.ofType(ws.TypeTick)[0].Payload, &tick))
	assert.Equal(t, "2:00", tick.Clock)
	assert.False(t, tick.Warning)
	assert.Equal(t, 50, tick.Progress)

	states := len(f.publisher.ofType(ws.TypeState))
	require.NoError(t, f.svc.Advance(ctx))
	require.Eventually(t, func() bool {
		return len(f.publisher.ofType(ws.TypeState)) > states
	}, 2*time.Second, 10*time.Millisecond)
}
