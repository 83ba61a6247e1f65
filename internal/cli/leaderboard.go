package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizgen/internal/app"
	"github.com/gokatarajesh/quizgen/internal/leaderboard"
	"github.com/gokatarajesh/quizgen/internal/view"
)

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Inspect or reset the stored leaderboard",
	}
	cmd.AddCommand(newLeaderboardListCmd(), newLeaderboardClearCmd())
	return cmd
}

func newLeaderboardListCmd() *cobra.Command {
	var (
		difficulty string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print ranked entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := leaderboard.ParseFilter(difficulty)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd.Context(), "")
			if err != nil {
				return err
			}
			components, err := app.NewComponents(cmd.Context(), cfg, commandLogger(cmd, cfg), nil)
			if err != nil {
				return err
			}
			defer components.Close()

			entries, err := components.Leaderboard.Top(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "No entries yet.")
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tNAME\tTOPIC\tDIFFICULTY\tSCORE\tTIME")
			for i, e := range entries {
				name := e.PlayerName
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\n",
					view.Medal(i+1), name, e.Topic, e.Difficulty, e.Score, view.FormatDuration(e.TimeTaken))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&difficulty, "difficulty", leaderboard.FilterAll, "all, easy, medium or hard")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to print (0 for all)")
	return cmd
}

func newLeaderboardClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every leaderboard entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the leaderboard without --yes")
			}
			cfg, err := loadConfig(cmd.Context(), "")
			if err != nil {
				return err
			}
			components, err := app.NewComponents(cmd.Context(), cfg, commandLogger(cmd, cfg), nil)
			if err != nil {
				return err
			}
			defer components.Close()

			if err := components.Leaderboard.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Leaderboard cleared.")
			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing")
	return cmd
}
