package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/metrics"
	"github.com/gokatarajesh/quizgen/internal/question"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/storage"
)

// DefaultCapacity bounds the number of ranked entries kept.
const DefaultCapacity = 100

// FilterAll selects every difficulty.
const FilterAll = "all"

// ErrUnknownFilter rejects filters other than "all" or a difficulty.
var ErrUnknownFilter = errors.New("unknown leaderboard filter")

// Entry is a ranked copy of a quiz result.
type Entry struct {
	quiz.Result
}

// Filter selects entries by difficulty; the zero value matches all.
type Filter struct {
	Difficulty question.Difficulty
}

// ParseFilter accepts "all", "" or a difficulty name.
func ParseFilter(raw string) (Filter, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == FilterAll {
		return Filter{}, nil
	}
	d, err := question.ParseDifficulty(raw)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownFilter, raw)
	}
	return Filter{Difficulty: d}, nil
}

func (f Filter) match(e Entry) bool {
	return f.Difficulty == "" || e.Difficulty == f.Difficulty
}

// Notifier is told about every committed change to the ranking.
type Notifier interface {
	Notify(entries []Entry)
}

// StoreOptions configures the leaderboard store.
type StoreOptions struct {
	Capacity int
	Notifier Notifier
	Metrics  *metrics.Metrics
}

// Store is the ranked, bounded, persisted history of results. Every mutation
// is written through to the backing store before it becomes visible; a failed
// write leaves the previous ranking in place.
type Store struct {
	mu       sync.RWMutex
	backend  storage.Store
	capacity int
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	loaded  bool
	entries []Entry
}

func NewStore(backend storage.Store, logger zerolog.Logger, opts StoreOptions) *Store {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		backend:  backend,
		capacity: capacity,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger.With().Str("component", "leaderboard").Logger(),
	}
}

// load reads persisted entries on first access. Callers hold s.mu for writing.
func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var entries []Entry
	err := storage.GetJSON(ctx, s.backend, storage.KeyLeaderboard, &entries)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		entries = nil
	case err != nil:
		return fmt.Errorf("load leaderboard: %w", err)
	}
	rank(entries)
	if len(entries) > s.capacity {
		entries = entries[:s.capacity]
	}
	s.entries = entries
	s.loaded = true
	s.metrics.SetLeaderboardSize(len(entries))
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// commit persists next and swaps it in. Callers hold s.mu for writing.
func (s *Store) commit(ctx context.Context, next []Entry) error {
	if err := storage.SetJSON(ctx, s.backend, storage.KeyLeaderboard, next); err != nil {
		return fmt.Errorf("persist leaderboard: %w", err)
	}
	s.entries = next
	s.metrics.SetLeaderboardSize(len(next))
	if s.notifier != nil {
		s.notifier.Notify(cloneEntries(next))
	}
	return nil
}

// rank orders by score descending then time taken ascending. The sort is
// stable, so earlier entries win exact ties.
func rank(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TimeTaken < entries[j].TimeTaken
	})
}

// Record inserts a copy of e, re-ranks and truncates to capacity. It returns
// the 1-based rank of the new entry, or 0 if it did not make the cut.
func (s *Store) Record(ctx context.Context, e Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return 0, err
	}

	next := make([]Entry, 0, len(s.entries)+1)
	next = append(next, cloneEntries(s.entries)...)
	next = append(next, Entry{Result: e.Result.Clone()})
	rank(next)
	if len(next) > s.capacity {
		next = next[:s.capacity]
	}

	if err := s.commit(ctx, next); err != nil {
		return 0, err
	}

	position := 0
	for i, existing := range next {
		if existing.ID == e.ID {
			position = i + 1
			break
		}
	}
	s.logger.Info().
		Str("result_id", e.ID).
		Int("score", e.Score).
		Int("rank", position).
		Int("size", len(next)).
		Msg("leaderboard entry recorded")
	return position, nil
}

// List yields entries matching f in rank order. The sequence reads from a
// snapshot taken at call time and can be ranged over any number of times.
func (s *Store) List(ctx context.Context, f Filter) (iter.Seq[Entry], error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	snapshot := s.entries
	s.mu.RUnlock()

	// committed slices are never mutated in place, so sharing is safe
	return func(yield func(Entry) bool) {
		for _, e := range snapshot {
			if !f.match(e) {
				continue
			}
			if !yield(Entry{Result: e.Result.Clone()}) {
				return
			}
		}
	}, nil
}

// Top collects up to limit ranked entries matching f; limit <= 0 means all.
func (s *Store) Top(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	seq, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for e := range seq {
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Clear empties the leaderboard.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return err
	}
	if err := s.commit(ctx, []Entry{}); err != nil {
		return err
	}
	s.logger.Info().Msg("leaderboard cleared")
	return nil
}

// AttachName sets the player name on the entry recorded for resultID. A
// missing entry is not an error; found reports whether one was updated.
func (s *Store) AttachName(ctx context.Context, resultID, name string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return false, err
	}

	idx := -1
	for i, e := range s.entries {
		if e.ID == resultID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	next := cloneEntries(s.entries)
	next[idx].PlayerName = name
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Len reports the number of ranked entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Result: e.Result.Clone()}
	}
	return out
}
