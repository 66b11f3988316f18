// Package cli holds the penline command tree
package cli

import (
	"github.com/spf13/cobra"

	"github.com/penline/penline/internal/config"
)

// NewRootCommand builds the penline command with all subcommands attached
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "penline",
		Short:         "Penline blogging backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH)")

	load := func() (*config.Config, *config.Environment, error) {
		return config.LoadAll(configPath)
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newKeysCommand(load),
		newAdminCommand(load),
	)
	return root
}

type configLoader func() (*config.Config, *config.Environment, error)
