package leaderboard

import (
	"context"

	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

// Broadcaster implements Notifier. Changes are queued and forwarded to
// every websocket client from Run, so recording never waits on sockets.
type Broadcaster struct {
	hub     broadcastHub
	updates chan []Entry
	topN    int
	logger  zerolog.Logger
}

type broadcastHub interface {
	BroadcastAll(msg ws.Message) error
}

// NewBroadcaster creates a leaderboard broadcaster publishing the top topN entries.
func NewBroadcaster(hub broadcastHub, topN int, logger zerolog.Logger) *Broadcaster {
	if topN <= 0 {
		topN = 10
	}
	return &Broadcaster{
		hub:     hub,
		updates: make(chan []Entry, 1),
		topN:    topN,
		logger:  logger.With().Str("component", "leaderboard_broadcaster").Logger(),
	}
}

// Notify keeps only the newest pending update.
func (b *Broadcaster) Notify(entries []Entry) {
	for {
		select {
		case b.updates <- entries:
			return
		default:
		}
		select {
		case <-b.updates:
		default:
		}
	}
}

// Run forwards updates and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.hub == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entries := <-b.updates:
			b.forward(entries)
		}
	}
}

func (b *Broadcaster) forward(entries []Entry) {
	if len(entries) > b.topN {
		entries = entries[:b.topN]
	}
	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{Top: toWSEntries(entries)})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal leaderboard WS payload")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Msg("failed to broadcast leaderboard update")
	}
}
