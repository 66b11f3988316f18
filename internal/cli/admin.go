package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/penline/penline/internal/database"
	"github.com/penline/penline/internal/domain/user"
	"github.com/penline/penline/internal/migrations"
	"github.com/penline/penline/internal/server"
)

type adminOptions struct {
	username string
	email    string
	password string
	name     string
	age      int
}

func newAdminCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administration tasks",
	}

	var opts adminOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN account, or promote an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			server.InitLogger(cfg.Logging.Level)

			if err := database.ConnectDB(cfg); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if err := migrations.RunMigrations(cfg); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			repo := user.NewRepository(database.DB)
			u, created, err := ensureAdmin(cmd.Context(), repo, opts)
			if err != nil {
				return err
			}

			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s: %s (%s)\n", verb, u.Username, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&opts.username, "username", "admin", "username")
	create.Flags().StringVar(&opts.email, "email", "", "email (required for a new account)")
	create.Flags().StringVar(&opts.password, "password", "", "password (required for a new account)")
	create.Flags().StringVar(&opts.name, "name", "Administrator", "display name")
	create.Flags().IntVar(&opts.age, "age", 18, "age")

	cmd.AddCommand(create)
	return cmd
}

// ensureAdmin promotes and reactivates the user named in opts, or registers a new account with
// the ADMIN role when there is none. The bool reports whether an account was created.
func ensureAdmin(ctx context.Context, repo user.Repository, opts adminOptions) (*user.User, bool, error) {
	existing, err := repo.FindByUsername(ctx, opts.username)
	switch {
	case err == nil:
		if err := repo.UpdateRole(ctx, existing.ID, user.RoleAdmin); err != nil {
			return nil, false, err
		}
		if err := repo.UpdateStatus(ctx, existing.ID, user.StatusActive); err != nil {
			return nil, false, err
		}
		existing.Role = user.RoleAdmin
		existing.Status = user.StatusActive
		return existing, false, nil
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, false, err
	}

	u, err := user.NewService(repo).Register(ctx, user.RegisterRequest{
		Name:     opts.name,
		Username: opts.username,
		Email:    opts.email,
		Password: opts.password,
		Age:      opts.age,
	})
	if err != nil {
		return nil, false, err
	}
	if err := repo.UpdateRole(ctx, u.ID, user.RoleAdmin); err != nil {
		return nil, false, err
	}
	u.Role = user.RoleAdmin
	return u, true, nil
}
