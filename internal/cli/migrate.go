package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penline/penline/internal/migrations"
	"github.com/penline/penline/internal/server"
)

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			server.InitLogger(cfg.Logging.Level)

			direction := migrations.Direction(args[0])
			if err := migrations.Run(cfg, direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s completed\n", direction)
			return nil
		},
	}
}
