package game

import (
	"slices"
	"time"

	"github.com/gokatarajesh/quizgen/internal/background"
	"github.com/gokatarajesh/quizgen/internal/quiz"
	"github.com/gokatarajesh/quizgen/internal/view"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

// publishUpdate runs on the runner goroutine. Snapshots that change answers,
// position or background go out as full state; the rest as ticks.
func (s *Service) publishUpdate(q *activeQuiz, st quiz.Status) {
	if s.opts.Publisher == nil {
		return
	}
	changed := !q.published ||
		q.lastCurrent != st.CurrentIndex ||
		!slices.Equal(q.lastAnswers, st.Answers) ||
		q.lastBackdrop.Image != st.Image

	if changed {
		q.published = true
		q.lastCurrent = st.CurrentIndex
		q.lastAnswers = st.Answers.Clone()
		if q.lastBackdrop.Image != st.Image && st.Image != "" {
			s.publish(ws.TypeBackgroundUpdate, backgroundPayload(st.Backdrop))
		}
		q.lastBackdrop = st.Backdrop
		s.publish(ws.TypeState, st)
		return
	}
	if st.State == quiz.StateInProgress {
		s.publish(ws.TypeTick, tickPayload(st))
	}
}

func (s *Service) publish(msgType string, payload interface{}) {
	if s.opts.Publisher == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("failed to marshal quiz event")
		return
	}
	if err := s.opts.Publisher.BroadcastAll(msg); err != nil {
		s.logger.Debug().Err(err).Str("type", msgType).Msg("quiz event not delivered")
	}
}

func tickPayload(st quiz.Status) ws.TickPayload {
	remaining := time.Duration(st.RemainingSeconds) * time.Second
	return ws.TickPayload{
		RemainingSeconds: st.RemainingSeconds,
		Clock:            view.FormatClock(remaining),
		Warning:          view.TimerWarning(remaining),
		CurrentQuestion:  st.CurrentIndex,
		Progress:         view.Progress(st.CurrentIndex, st.TotalQuestions),
	}
}

func completedPayload(res quiz.Result, reason quiz.CompletionReason) ws.CompletedPayload {
	return ws.CompletedPayload{
		ResultID:       res.ID,
		Reason:         string(reason),
		Score:          res.Score,
		CorrectAnswers: res.CorrectAnswers,
		TotalQuestions: res.TotalQuestions,
		TimeTaken:      view.FormatDuration(res.TimeTaken),
		Message:        quiz.ScoreMessage(res.Score),
		Tier:           string(quiz.ScoreTier(res.Score)),
	}
}

func backgroundPayload(b quiz.Backdrop) ws.BackgroundUpdatePayload {
	p := ws.BackgroundUpdatePayload{ImageURL: b.Image, ImageURLBlur: b.ImageBlur}
	if hues, err := background.ParseGradient(b.Image); err == nil {
		p.CSS = hues.CSS()
	}
	return p
}
