package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizgen/internal/metrics"
)

const defaultGenerateTimeout = 60 * time.Second

// TextGenerator turns a prompt into raw model text. Implementations live in
// the ai subpackage.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ServiceOptions configures the generation service.
type ServiceOptions struct {
	Provider string
	Timeout  time.Duration
	Metrics  *metrics.Metrics
}

// Service validates requests, calls the text generator once and validates its output.
type Service struct {
	generator TextGenerator
	provider  string
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(generator TextGenerator, logger zerolog.Logger, opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	provider := opts.Provider
	if provider == "" {
		provider = "unknown"
	}
	return &Service{
		generator: generator,
		provider:  provider,
		timeout:   timeout,
		metrics:   opts.Metrics,
		logger:    logger.With().Str("component", "question_generator").Logger(),
	}
}

// Generate produces exactly req.Count validated questions or one of
// ErrMissingInput, ErrTimeout, ErrInvalidShape, ErrNetwork.
func (s *Service) Generate(ctx context.Context, req Request) (Set, error) {
	norm, err := req.Normalize()
	if err != nil {
		s.metrics.ObserveGeneration(s.provider, outcomeOf(err), 0)
		return Set{}, err
	}

	started := time.Now()
	questions, err := s.generate(ctx, norm)
	s.metrics.ObserveGeneration(s.provider, outcomeOf(err), time.Since(started))
	if err != nil {
		s.logger.Warn().Err(err).
			Str("topic", norm.Topic).
			Str("difficulty", string(norm.Difficulty)).
			Int("count", norm.Count).
			Msg("question generation failed")
		return Set{}, err
	}

	s.logger.Info().
		Str("topic", norm.Topic).
		Str("difficulty", string(norm.Difficulty)).
		Int("count", len(questions)).
		Dur("took", time.Since(started)).
		Msg("questions generated")

	return Set{Topic: norm.Topic, Difficulty: norm.Difficulty, Questions: questions}, nil
}

func (s *Service) generate(ctx context.Context, req Request) ([]Question, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("%w: no text generator configured", ErrNetwork)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	// Buffered: the provider may answer after the deadline with nobody receiving.
	replies := make(chan reply, 1)
	prompt := BuildPrompt(req)
	go func() {
		text, err := s.generator.Generate(callCtx, prompt)
		replies <- reply{text: text, err: err}
	}()

	var text string
	select {
	case r := <-replies:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
			}
			return nil, fmt.Errorf("%w: %v", ErrNetwork, r.err)
		}
		text = r.text
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, callCtx.Err())
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		return nil, err
	}
	if len(questions) != req.Count {
		return nil, &ValidationError{Errors: []string{
			fmt.Sprintf("expected %d questions, got %d", req.Count, len(questions)),
		}}
	}
	return questions, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInvalidShape):
		return "invalid_shape"
	default:
		return "network"
	}
}
