package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizgen/internal/app"
	"github.com/gokatarajesh/quizgen/internal/question"
)

func newGenerateCmd() *cobra.Command {
	var (
		topic      string
		difficulty string
		count      int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one question set and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), "")
			if err != nil {
				return err
			}
			components, err := app.NewComponents(cmd.Context(), cfg, commandLogger(cmd, cfg), nil)
			if err != nil {
				return err
			}
			defer components.Close()

			set, err := components.Questions.Generate(cmd.Context(), question.Request{
				Topic:      topic,
				Difficulty: question.Difficulty(difficulty),
				Count:      count,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "quiz topic")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(question.DifficultyMedium), "easy, medium or hard")
	cmd.Flags().IntVar(&count, "count", 5, "number of questions")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
