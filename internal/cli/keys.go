package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penline/penline/internal/domain/auth"
)

func newKeysCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage token signing keys",
	}

	var path string
	keysPath := func() (string, string, error) {
		cfg, _, err := load()
		if err != nil && path == "" {
			return "", "", err
		}
		if path != "" {
			activeKID := ""
			if cfg != nil {
				activeKID = cfg.Auth.ActiveKID
			}
			return path, activeKID, nil
		}
		return cfg.Auth.KeysPath, cfg.Auth.ActiveKID, nil
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "keys directory (overrides auth.keys_path)")

	var kid string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new HS256 secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kid == "" {
				return errors.New("--kid is required")
			}
			dir, _, err := keysPath()
			if err != nil {
				return err
			}
			if dir == "" {
				return errors.New("no keys directory: set auth.keys_path or --path")
			}

			secret, err := auth.GenerateSecret()
			if err != nil {
				return err
			}
			file, err := auth.WriteKeyFile(dir, kid, secret)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key generated successfully\n")
			fmt.Fprintf(out, "  Key ID: %s\n", kid)
			fmt.Fprintf(out, "  File:   %s\n", file)
			fmt.Fprintf(out, "Set auth.active_kid to %q to sign new tokens with it.\n", kid)
			return nil
		},
	}
	generate.Flags().StringVar(&kid, "kid", "", "key ID (required)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List keys in the keys directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, activeKID, err := keysPath()
			if err != nil {
				return err
			}

			ks, err := auth.LoadKeys(dir, activeKID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			kids := ks.KIDs()
			if len(kids) == 0 {
				fmt.Fprintf(out, "No keys found in %s\n", dir)
				return nil
			}

			fmt.Fprintf(out, "Keys in %s:\n", dir)
			for _, k := range kids {
				marker := " "
				if k == activeKID {
					marker = "*"
				}
				fmt.Fprintf(out, " %s %s\n", marker, k)
			}
			return nil
		},
	}

	cmd.AddCommand(generate, list)
	return cmd
}
