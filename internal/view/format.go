// Package view holds pure formatting helpers shared by the HTTP, websocket
// and CLI surfaces.
package view

import (
	"fmt"
	"math"
	"time"
)

// TimerWarningThreshold is when the countdown switches to its warning style.
const TimerWarningThreshold = 60 * time.Second

// FormatClock renders a countdown as m:ss. Negative durations render as 0:00.
func FormatClock(d time.Duration) string {
	secs := wholeSeconds(d)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatDuration renders elapsed seconds as "Xm Ys".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// Progress is the percentage of the way through a quiz when viewing question
// current (0-based) of total.
func Progress(current, total int) int {
	if total <= 0 {
		return 0
	}
	if current < 0 {
		current = 0
	}
	if current >= total {
		current = total - 1
	}
	return int(math.Round(float64(current+1) * 100 / float64(total)))
}

// Medal labels a 1-based leaderboard rank.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("#%d", rank)
	}
}

// TimerWarning reports whether the remaining time should be highlighted.
func TimerWarning(remaining time.Duration) bool {
	return remaining < TimerWarningThreshold
}

func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
