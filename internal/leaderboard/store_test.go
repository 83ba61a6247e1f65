package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/storage"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, score, timeTaken int, d question.Difficulty) Entry {
	return Entry{Result: quiz.Result{
		ID:             id,
		Topic:          "Topic " + id,
		Difficulty:     d,
		Score:          score,
		CorrectAnswers: score / 10,
		TotalQuestions: 10,
		TimeTaken:      timeTaken,
		Timestamp:      base,
	}}
}

func newStore(backend storage.Store, opts StoreOptions) *Store {
	return NewStore(backend, zerolog.New(io.Discard), opts)
}

func ids(t *testing.T, s *Store, f Filter) []string {
	t.Helper()
	seq, err := s.List(context.Background(), f)
	require.NoError(t, err)
	var out []string
	for e := range seq {
		out = append(out, e.ID)
	}
	return out
}

type failingStore struct {
	storage.Store
	failSet bool
	failGet bool
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("disk unavailable")
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.Store.Set(ctx, key, value)
}

func TestRecordRanksByScoreThenTime(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()

	for _, e := range []Entry{
		entry("a", 80, 100, question.DifficultyEasy),
		entry("b", 90, 200, question.DifficultyHard),
		entry("c", 80, 50, question.DifficultyMedium),
		entry("d", 80, 100, question.DifficultyEasy),
	} {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}

	// d ties a exactly and was inserted later, so it stays behind a
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(t, s, Filter{}))
}

func TestRecordOrdersFasterTimeFirstOnEqualScore(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()

	for _, e := range []Entry{
		entry("x", 80, 30, question.DifficultyEasy),
		entry("y", 95, 40, question.DifficultyEasy),
		entry("z", 95, 20, question.DifficultyEasy),
	} {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}

	top, err := s.Top(ctx, Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	got := make([][2]int, len(top))
	for i, e := range top {
		got[i] = [2]int{e.Score, e.TimeTaken}
	}
	assert.Equal(t, [][2]int{{95, 20}, {95, 40}, {80, 30}}, got)
}

func TestRecordReturnsRank(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()

	pos, err := s.Record(ctx, entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = s.Record(ctx, entry("b", 70, 10, question.DifficultyEasy))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = s.Record(ctx, entry("c", 60, 10, question.DifficultyEasy))
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func TestRecordTruncatesToCapacity(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()

	for i := 0; i < 105; i++ {
		_, err := s.Record(ctx, entry(fmt.Sprintf("e%d", i), i%101, 30, question.DifficultyMedium))
		require.NoError(t, err)
	}
	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, n)

	// e0 fell off when e100 arrived; e101..e104 each tie or trail the
	// current tail and are dropped on arrival.
	kept := ids(t, s, Filter{})
	require.Len(t, kept, DefaultCapacity)
	assert.Equal(t, "e100", kept[0])
	assert.Equal(t, "e1", kept[len(kept)-1])
	for _, gone := range []string{"e0", "e101", "e102", "e103", "e104"} {
		assert.NotContains(t, kept, gone)
	}

	top, err := s.Top(ctx, Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, top[0].Score)

	pos, err := s.Record(ctx, entry("loser", 0, 999, question.DifficultyMedium))
	require.NoError(t, err)
	assert.Equal(t, 0, pos, "entry below the cut is dropped")
}

func TestListFiltersAndIsRestartable(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()
	for _, e := range []Entry{
		entry("e1", 90, 10, question.DifficultyEasy),
		entry("h1", 80, 10, question.DifficultyHard),
		entry("e2", 70, 10, question.DifficultyEasy),
	} {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}

	easy, err := ParseFilter("easy")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids(t, s, easy))

	seq, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())

	// a later write does not alter an existing sequence
	_, err = s.Record(ctx, entry("x", 10, 10, question.DifficultyEasy))
	require.NoError(t, err)
	assert.Equal(t, 3, count())

	// early break
	for e := range seq {
		assert.Equal(t, "e1", e.ID)
		break
	}
}

func TestListDoesNotAliasStoredEntries(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()
	e := entry("a", 50, 10, question.DifficultyEasy)
	e.UserAnswers = quiz.Answers{1}
	_, err := s.Record(ctx, e)
	require.NoError(t, err)

	e.UserAnswers[0] = 3
	top, err := s.Top(ctx, Filter{}, 0)
	require.NoError(t, err)
	top[0].UserAnswers[0] = 2

	again, err := s.Top(ctx, Filter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, quiz.Answers{1}, again[0].UserAnswers)
}

func TestParseFilter(t *testing.T) {
	for _, raw := range []string{"", "all", "ALL"} {
		f, err := ParseFilter(raw)
		require.NoError(t, err)
		assert.Equal(t, Filter{}, f)
	}
	f, err := ParseFilter("Hard")
	require.NoError(t, err)
	assert.Equal(t, question.DifficultyHard, f.Difficulty)

	_, err = ParseFilter("impossible")
	assert.ErrorIs(t, err, ErrUnknownFilter)
}

func TestPersistenceAndLazyLoad(t *testing.T) {
	backend := storage.NewMemoryStore()
	ctx := context.Background()

	first := newStore(backend, StoreOptions{})
	_, err := first.Record(ctx, entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)
	_, err = first.Record(ctx, entry("b", 60, 10, question.DifficultyEasy))
	require.NoError(t, err)

	raw, err := backend.Get(ctx, storage.KeyLeaderboard)
	require.NoError(t, err)
	var persisted []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 2)
	assert.Equal(t, "b", persisted[0]["id"])
	assert.EqualValues(t, 60, persisted[0]["score"])

	second := newStore(backend, StoreOptions{})
	assert.Equal(t, []string{"b", "a"}, ids(t, second, Filter{}))
}

func TestMissingKeyLoadsEmpty(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	n, err := s.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedPersistLeavesRankingUntouched(t *testing.T) {
	backend := &failingStore{Store: storage.NewMemoryStore()}
	s := newStore(backend, StoreOptions{})
	ctx := context.Background()

	_, err := s.Record(ctx, entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)

	backend.failSet = true
	_, err = s.Record(ctx, entry("b", 90, 10, question.DifficultyEasy))
	assert.Error(t, err)
	assert.Error(t, s.Clear(ctx))
	found, err := s.AttachName(ctx, "a", "Sam")
	assert.Error(t, err)
	assert.False(t, found)

	assert.Equal(t, []string{"a"}, ids(t, s, Filter{}))
	top, _ := s.Top(ctx, Filter{}, 0)
	assert.Empty(t, top[0].PlayerName)
}

func TestLoadFailureSurfaces(t *testing.T) {
	s := newStore(&failingStore{Store: storage.NewMemoryStore(), failGet: true}, StoreOptions{})
	_, err := s.List(context.Background(), Filter{})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	backend := storage.NewMemoryStore()
	s := newStore(backend, StoreOptions{})
	ctx := context.Background()
	_, err := s.Record(ctx, entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, ids(t, s, Filter{}))

	raw, err := backend.Get(ctx, storage.KeyLeaderboard)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestAttachName(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()
	_, err := s.Record(ctx, entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)

	found, err := s.AttachName(ctx, "a", "Robin")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.AttachName(ctx, "missing", "Robin")
	require.NoError(t, err)
	assert.False(t, found)

	top, err := s.Top(ctx, Filter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Robin", top[0].PlayerName)
}

func TestStoreOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	backend := storage.NewRedisStore(client, "lbtest", 0)

	s := newStore(backend, StoreOptions{})
	_, err := s.Record(context.Background(), entry("a", 70, 12, question.DifficultyHard))
	require.NoError(t, err)

	raw, err := mr.Get("lbtest:leaderboard")
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"a"`)

	reloaded := newStore(backend, StoreOptions{})
	assert.Equal(t, []string{"a"}, ids(t, reloaded, Filter{}))
}

func TestConcurrentRecords(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Record(ctx, entry(fmt.Sprintf("c%d", i), i, 10, question.DifficultyEasy))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	top, _ := s.Top(ctx, Filter{}, 1)
	assert.Equal(t, "c49", top[0].ID)
}

type recordingHub struct {
	mu   sync.Mutex
	msgs []ws.Message
	got  chan struct{}
}

func (h *recordingHub) BroadcastAll(msg ws.Message) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
	select {
	case h.got <- struct{}{}:
	default:
	}
	return nil
}

func TestBroadcasterForwardsUpdates(t *testing.T) {
	hub := &recordingHub{got: make(chan struct{}, 4)}
	b := NewBroadcaster(hub, 2, zerolog.New(io.Discard))
	s := newStore(storage.NewMemoryStore(), StoreOptions{Notifier: b})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	for _, e := range []Entry{
		entry("a", 50, 10, question.DifficultyEasy),
		entry("b", 60, 10, question.DifficultyEasy),
		entry("c", 70, 10, question.DifficultyEasy),
	} {
		_, err := s.Record(context.Background(), e)
		require.NoError(t, err)
	}

	deadline := time.After(2 * time.Second)
	for {
		hub.mu.Lock()
		var last ws.LeaderboardUpdatePayload
		var n int
		if len(hub.msgs) > 0 {
			require.NoError(t, json.Unmarshal(hub.msgs[len(hub.msgs)-1].Payload, &last))
			n = len(last.Top)
		}
		hub.mu.Unlock()
		if n == 2 && last.Top[0].ResultID == "c" {
			assert.Equal(t, "🥇", last.Top[0].Medal)
			assert.Equal(t, "b", last.Top[1].ResultID)
			return
		}
		select {
		case <-hub.got:
		case <-deadline:
			t.Fatal("no leaderboard update for final state")
		}
	}
}

func TestHandleGet(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	ctx := context.Background()
	for _, e := range []Entry{
		entry("e1", 90, 10, question.DifficultyEasy),
		entry("h1", 80, 10, question.DifficultyHard),
		entry("e2", 70, 10, question.DifficultyEasy),
		entry("e3", 60, 10, question.DifficultyEasy),
	} {
		_, err := s.Record(ctx, e)
		require.NoError(t, err)
	}
	h := NewHTTPHandler(s, zerolog.New(io.Discard))

	rec := httptest.NewRecorder()
	h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?difficulty=easy", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Filter string                `json:"filter"`
		Top    []ws.LeaderboardEntry `json:"top"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "easy", body.Filter)
	require.Len(t, body.Top, 3)
	assert.Equal(t, "e1", body.Top[0].ResultID)
	assert.Equal(t, "🥉", body.Top[2].Medal)
	assert.Equal(t, 3, body.Top[2].Rank)

	rec = httptest.NewRecorder()
	h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?limit=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "all", body.Filter)
	assert.Len(t, body.Top, 1)

	rec = httptest.NewRecorder()
	h.HandleGet(rec, httptest.NewRequest(http.MethodGet, "/v1/leaderboard?difficulty=nightmare", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClearRequiresConfirmation(t *testing.T) {
	s := newStore(storage.NewMemoryStore(), StoreOptions{})
	_, err := s.Record(context.Background(), entry("a", 50, 10, question.DifficultyEasy))
	require.NoError(t, err)
	h := NewHTTPHandler(s, zerolog.New(io.Discard))

	rec := httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodDelete, "/v1/leaderboard", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	n, _ := s.Len(context.Background())
	assert.Equal(t, 1, n)

	rec = httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodDelete, "/v1/leaderboard?confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	n, _ = s.Len(context.Background())
	assert.Zero(t, n)
}

func TestRemoteClientSubmit(t *testing.T) {
	var got remoteSubmission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second, zerolog.New(io.Discard))
	require.NoError(t, c.Submit(context.Background(), "Robin", 85))
	assert.Equal(t, remoteSubmission{Name: "Robin", Score: 85}, got)
}

func TestRemoteClientFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, time.Second, zerolog.New(io.Discard))
	assert.Error(t, c.Submit(context.Background(), "Robin", 85))

	disabled := NewRemoteClient("", time.Second, zerolog.New(io.Discard))
	assert.False(t, disabled.Enabled())
	assert.ErrorIs(t, disabled.Submit(context.Background(), "Robin", 85), ErrRemoteDisabled)
}
