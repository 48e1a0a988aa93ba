package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"seatwise/internal/api"
	"seatwise/internal/middleware"
	"seatwise/internal/models"
	"seatwise/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ErrDriftFound is returned by audit --fail-on-drift so scripts get a non-zero exit.
var ErrDriftFound = errors.New("ledger drift found")

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackends(cmd.Context(), func(b *api.Backends) error {
				if b.DB == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "store has no schema, nothing to migrate")
					return nil
				}
				if err := b.DB.RunMigrations(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newAuditCommand(opts *RootOptions) *cobra.Command {
	var failOnDrift bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare every event's available spots with its confirmed reservations",
		Long: `Compare every event's available spots with its confirmed reservations.

The audit only reports. It never changes counts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackends(cmd.Context(), func(b *api.Backends) error {
				drift, err := service.NewAuditor(b.Store, b.Metrics).Run(cmd.Context())
				if err != nil {
					return err
				}

				err = opts.print(cmd.OutOrStdout(), drift, func(w io.Writer) {
					if len(drift) == 0 {
						fmt.Fprintln(w, "ledger is consistent")
						return
					}
					fmt.Fprintf(w, "%-36s  %8s  %9s  %9s  %8s  %s\n", "EVENT", "MAX", "AVAILABLE", "CONFIRMED", "EXPECTED", "OVERBOOKED")
					for _, d := range drift {
						fmt.Fprintf(w, "%-36s  %8d  %9d  %9d  %8d  %t\n",
							d.EventID, d.MaxCapacity, d.AvailableSpots, d.Confirmed, d.Expected(), d.Overbooked())
					}
				})
				if err != nil {
					return err
				}

				if failOnDrift && len(drift) > 0 {
					return fmt.Errorf("%w in %d event(s)", ErrDriftFound, len(drift))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "exit non-zero when drift is found")
	return cmd
}

func newReindexCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every event into the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackends(cmd.Context(), func(b *api.Backends) error {
				n, err := b.Services().Events.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), map[string]int{"indexed": n}, func(w io.Writer) {
					fmt.Fprintf(w, "indexed %d event(s)\n", n)
				})
			})
		},
	}
}

type addUserResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

func newUsersCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	var (
		input    models.CreateUserInput
		role     string
		tokenTTL time.Duration
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user and print a bearer token for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Role = models.Role(role)
			user, err := input.Validate(uuid.NewString())
			if err != nil {
				return err
			}

			return opts.withBackends(cmd.Context(), func(b *api.Backends) error {
				if err := b.Store.CreateUser(cmd.Context(), user); err != nil {
					return err
				}

				result := addUserResult{User: user}
				if tokenTTL > 0 {
					result.Token, err = middleware.IssueToken(opts.Config.Auth.Secret, opts.Config.Auth.Issuer,
						user.ID, user.Role, tokenTTL)
					if err != nil {
						return fmt.Errorf("failed to issue token: %w", err)
					}
				}

				return opts.print(cmd.OutOrStdout(), result, func(w io.Writer) {
					fmt.Fprintf(w, "created %s user %s (%s)\n", user.Role, user.ID, user.Email)
					if result.Token != "" {
						fmt.Fprintf(w, "token: %s\n", result.Token)
					}
				})
			})
		},
	}
	add.Flags().StringVar(&input.Name, "name", "", "display name")
	add.Flags().StringVar(&input.Email, "email", "", "unique email address")
	add.Flags().StringVar(&role, "role", string(models.RoleUser), "USER or ADMIN")
	add.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed token, 0 to skip")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("email")

	cmd.AddCommand(add)
	return cmd
}
