package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"seatwise/internal/api"
	"seatwise/internal/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedNames = []string{"Keynote", "Workshop", "Concert", "Meetup", "Screening", "Panel", "Hackathon", "Masterclass"}

type seedOptions struct {
	events      int
	users       int
	maxCapacity int
	onlineShare float64
	seed        int64
}

type seedResult struct {
	AdminID string   `json:"adminId"`
	Events  []string `json:"events"`
	Users   []string `json:"users"`
}

func newSeedCommand(opts *RootOptions) *cobra.Command {
	so := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo events and users for local runs and load tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if so.events < 0 || so.users < 0 || so.maxCapacity < 1 {
				return fmt.Errorf("--events and --users must be >= 0, --max-capacity must be >= 1")
			}
			return opts.withBackends(cmd.Context(), func(b *api.Backends) error {
				result, err := seed(cmd.Context(), b, so)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), result, func(w io.Writer) {
					fmt.Fprintf(w, "created %d event(s) and %d user(s) as admin %s\n",
						len(result.Events), len(result.Users), result.AdminID)
				})
			})
		},
	}

	cmd.Flags().IntVar(&so.events, "events", 10, "number of events to create")
	cmd.Flags().IntVar(&so.users, "users", 50, "number of USER accounts to create")
	cmd.Flags().IntVar(&so.maxCapacity, "max-capacity", 200, "upper bound for a random event capacity")
	cmd.Flags().Float64Var(&so.onlineShare, "online-share", 0.3, "fraction of events with an online link instead of a location")
	cmd.Flags().Int64Var(&so.seed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

// seed creates a fresh admin and then goes through the services, so events
// get the same validation, indexing and change events as API-created ones.
func seed(ctx context.Context, b *api.Backends, so *seedOptions) (*seedResult, error) {
	rng := rand.New(rand.NewSource(so.seed))
	suffix := uuid.NewString()[:8]

	admin, err := models.CreateUserInput{
		Name:  "Seed Admin",
		Email: "seed-admin-" + suffix + "@seatwise.local",
		Role:  models.RoleAdmin,
	}.Validate(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := b.Store.CreateUser(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create seed admin: %w", err)
	}

	result := &seedResult{AdminID: admin.ID, Events: []string{}, Users: []string{}}
	principal := models.Principal{UserID: admin.ID, Role: models.RoleAdmin}
	events := b.Services().Events

	for i := 0; i < so.events; i++ {
		event, err := events.Create(ctx, principal, randomEvent(rng, so, i))
		if err != nil {
			return result, fmt.Errorf("failed to create event %d: %w", i, err)
		}
		result.Events = append(result.Events, event.ID)
	}

	for i := 0; i < so.users; i++ {
		user, err := models.CreateUserInput{
			Name:  fmt.Sprintf("Seed User %d", i+1),
			Email: fmt.Sprintf("seed-user-%d-%s@seatwise.local", i+1, suffix),
			Role:  models.RoleUser,
		}.Validate(uuid.NewString())
		if err != nil {
			return result, err
		}
		if err := b.Store.CreateUser(ctx, user); err != nil {
			return result, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		result.Users = append(result.Users, user.ID)
	}

	return result, nil
}

func randomEvent(rng *rand.Rand, so *seedOptions, i int) models.CreateEventInput {
	name := seedNames[rng.Intn(len(seedNames))]
	in := models.CreateEventInput{
		Name:        fmt.Sprintf("%s #%d", name, i+1),
		Description: fmt.Sprintf("Generated %s for testing", name),
		EventDate:   time.Now().UTC().Add(time.Duration(1+rng.Intn(90*24)) * time.Hour).Format(time.RFC3339),
		MaxCapacity: 1 + rng.Intn(so.maxCapacity),
	}
	if rng.Float64() < so.onlineShare {
		in.OnlineLink = fmt.Sprintf("https://stream.seatwise.local/%d", i+1)
	} else {
		in.Location = fmt.Sprintf("Hall %c", 'A'+rng.Intn(6))
	}
	return in
}
