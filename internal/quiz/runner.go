package quiz

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/question"
)

// ErrRunnerStopped is returned for intents sent to an abandoned runner.
var ErrRunnerStopped = errors.New("quiz runner stopped")

// CompletionReason records why a quiz finished.
type CompletionReason string

const (
	ReasonSubmitted CompletionReason = "submitted"
	ReasonTimeout   CompletionReason = "timeout"
)

// RunnerOptions wires callbacks and timing into a Runner.
type RunnerOptions struct {
	TickInterval time.Duration
	Clock        func() time.Time
	// OnUpdate receives a snapshot after every processed intent and tick.
	OnUpdate func(Status)
	// OnComplete fires exactly once, on the runner goroutine.
	OnComplete func(Result, CompletionReason)
}

type command struct {
	apply func(s *Session, now time.Time) error
	reply chan error
}

// Runner owns a Session on a single goroutine. Intents and timer ticks are
// queued on one channel and applied strictly one at a time.
type Runner struct {
	session *Session
	tick    time.Duration
	clock   func() time.Time
	update  func(Status)
	done    func(Result, CompletionReason)
	logger  zerolog.Logger

	cmds      chan command
	stopped   chan struct{}
	stopOnce  sync.Once
	cancel    chan struct{}
	mu        sync.Mutex // guards session after the loop exits
	completed bool
	abandoned bool
}

func NewRunner(session *Session, logger zerolog.Logger, opts RunnerOptions) *Runner {
	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		session: session,
		tick:    tick,
		clock:   clock,
		update:  opts.OnUpdate,
		done:    opts.OnComplete,
		logger:  logger.With().Str("component", "quiz_runner").Logger(),
		cmds:    make(chan command),
		stopped: make(chan struct{}),
		cancel:  make(chan struct{}),
	}
}

// Start begins the quiz and runs the event loop until completion, Abandon or
// ctx cancellation. The loop goroutine is started before Start returns.
func (r *Runner) Start(ctx context.Context, set question.Set, backdrop Backdrop) error {
	if err := r.session.Start(set, backdrop, r.clock()); err != nil {
		return err
	}
	go r.loop(ctx)
	return nil
}

// Done is closed once the loop has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.stopped
}

// Abandon stops the loop without producing a result.
func (r *Runner) Abandon() {
	r.stopOnce.Do(func() { close(r.cancel) })
	<-r.stopped
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	defer close(r.stopped)

	r.publish(r.clock())

	for {
		select {
		case <-ctx.Done():
			r.markAbandoned()
			return
		case <-r.cancel:
			r.markAbandoned()
			return
		case cmd := <-r.cmds:
			now := r.clock()
			r.expire(now)
			err := cmd.apply(r.session, now)
			cmd.reply <- err
			if r.session.State() == StateCompleted && !r.completed {
				res, _ := r.session.Result()
				r.finish(res, ReasonSubmitted)
			}
			r.publish(now)
		case <-ticker.C:
			now := r.clock()
			r.expire(now)
			r.publish(now)
		}

		if r.completed {
			return
		}
	}
}

// expire force-submits when the deadline has passed, so intents that arrive
// late never change the outcome.
func (r *Runner) expire(now time.Time) {
	if _, res, submitted := r.session.Tick(now); submitted {
		r.finish(res, ReasonTimeout)
	}
}

func (r *Runner) finish(res Result, reason CompletionReason) {
	r.mu.Lock()
	r.completed = true
	r.mu.Unlock()

	r.logger.Info().
		Str("result_id", res.ID).
		Str("reason", string(reason)).
		Int("score", res.Score).
		Int("time_taken", res.TimeTaken).
		Msg("quiz completed")

	if r.done != nil {
		r.done(res.Clone(), reason)
	}
}

func (r *Runner) markAbandoned() {
	r.mu.Lock()
	r.abandoned = true
	r.mu.Unlock()
	r.logger.Info().Msg("quiz abandoned")
}

func (r *Runner) publish(now time.Time) {
	if r.update != nil {
		r.update(r.session.Snapshot(now))
	}
}

func (r *Runner) do(ctx context.Context, apply func(s *Session, now time.Time) error) error {
	cmd := command{apply: apply, reply: make(chan error, 1)}
	select {
	case r.cmds <- cmd:
		return <-cmd.reply
	case <-r.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Loop has exited: a completed session is read-only, so serve it directly.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned {
		return ErrRunnerStopped
	}
	return apply(r.session, r.clock())
}

// SelectAnswer records an answer for question q.
func (r *Runner) SelectAnswer(ctx context.Context, q, option int) error {
	return r.do(ctx, func(s *Session, _ time.Time) error {
		return s.SelectAnswer(q, option)
	})
}

func (r *Runner) Advance(ctx context.Context) error {
	return r.do(ctx, func(s *Session, _ time.Time) error {
		s.Advance()
		return nil
	})
}

func (r *Runner) Retreat(ctx context.Context) error {
	return r.do(ctx, func(s *Session, _ time.Time) error {
		s.Retreat()
		return nil
	})
}

// Submit completes the quiz, or returns the stored result if it already finished.
func (r *Runner) Submit(ctx context.Context) (Result, error) {
	var res Result
	err := r.do(ctx, func(s *Session, now time.Time) error {
		var err error
		res, _, err = s.Submit(now)
		return err
	})
	return res, err
}

// SetBackdrop patches the background of a quiz still in progress.
func (r *Runner) SetBackdrop(ctx context.Context, b Backdrop) error {
	return r.do(ctx, func(s *Session, _ time.Time) error {
		return s.SetBackdrop(b)
	})
}

// Status snapshots the session.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	var st Status
	err := r.do(ctx, func(s *Session, now time.Time) error {
		st = s.Snapshot(now)
		return nil
	})
	return st, err
}
