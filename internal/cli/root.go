package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizgen/internal/config"
	"github.com/gokatarajesh/quizgen/internal/logging"
)

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "quizgen",
		Short:         "AI-generated timed quizzes with a persistent leaderboard",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.AddCommand(newServeCmd(&addr))
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newLeaderboardCmd())
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(ctx context.Context, addr string) (*config.App, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	return cfg, nil
}

// commandLogger keeps logs on stderr so stdout stays machine readable.
func commandLogger(cmd *cobra.Command, cfg *config.App) zerolog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Name, cfg.Env, cfg.LogLevel)
}
