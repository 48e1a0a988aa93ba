package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"seatwise/internal/api"
	"seatwise/internal/config"
	"seatwise/internal/logger"
	"seatwise/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Opener connects the backends a command needs.
type Opener func(ctx context.Context, cfg *config.Config) (*api.Backends, error)

// RootOptions holds global flags and shared dependencies for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	Config *config.Config
	Open   Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func defaultOpener(ctx context.Context, cfg *config.Config) (*api.Backends, error) {
	return api.OpenBackends(ctx, cfg, metrics.New(prometheus.NewRegistry()))
}

// NewRootCommand creates the seatctl command tree over the environment configuration.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Open: defaultOpener})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seatctl",
		Short: "Administer a seatwise deployment",
		Long:  "Operational commands for the seatwise reservation engine: schema migrations, ledger audits, search reindexing, users and demo data.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Config == nil {
				opts.Config = config.Load()
			}
			logger.InitWriter(cmd.ErrOrStderr(), opts.Config.LogLevel, "text")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newReindexCommand(opts))
	cmd.AddCommand(newUsersCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

// withBackends opens the backends for the duration of fn.
func (o *RootOptions) withBackends(ctx context.Context, fn func(b *api.Backends) error) error {
	b, err := o.Open(ctx, o.Config)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// print writes v as JSON, or calls text for the text format.
func (o *RootOptions) print(w io.Writer, v any, text func(w io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
