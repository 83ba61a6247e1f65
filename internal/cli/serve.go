package cli

import (
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizgen/internal/app"
)

func newServeCmd(addr *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), *addr)
			if err != nil {
				return err
			}
			instance, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return instance.Run(cmd.Context())
		},
	}
}
