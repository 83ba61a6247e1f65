package leaderboard

import (
	"time"

	"github.com/gokatarajesh/quizgen/internal/view"
	ws "github.com/gokatarajesh/quizgen/pkg/http/ws"
)

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:           i + 1,
			Medal:          view.Medal(i + 1),
			ResultID:       e.ID,
			PlayerName:     e.PlayerName,
			Topic:          e.Topic,
			Difficulty:     string(e.Difficulty),
			Score:          e.Score,
			CorrectAnswers: e.CorrectAnswers,
			TotalQuestions: e.TotalQuestions,
			TimeTaken:      e.TimeTaken,
			Timestamp:      e.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return result
}
