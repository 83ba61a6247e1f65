package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrRemoteDisabled means no submission endpoint is configured.
var ErrRemoteDisabled = errors.New("remote leaderboard not configured")

// RemoteClient shares a score with an external leaderboard service.
type RemoteClient struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewRemoteClient(url string, timeout time.Duration, logger zerolog.Logger) *RemoteClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteClient{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "leaderboard_remote").Logger(),
	}
}

// Enabled reports whether a submission endpoint is configured.
func (c *RemoteClient) Enabled() bool {
	return c != nil && c.url != ""
}

type remoteSubmission struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Submit posts {name, score} once. Any non-2xx status is a failure.
func (c *RemoteClient) Submit(ctx context.Context, name string, score int) error {
	if !c.Enabled() {
		return ErrRemoteDisabled
	}

	body, err := json.Marshal(remoteSubmission{Name: name, Score: score})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote leaderboard returned status %d", resp.StatusCode)
	}
	c.logger.Info().Str("name", name).Int("score", score).Msg("score shared")
	return nil
}
