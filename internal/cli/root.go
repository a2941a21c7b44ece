package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/transport"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // journal path, overrides CLUBSYNC_JOURNAL
	Host     string // overrides CLUBSYNC_HOST
	Mandant  string // overrides CLUBSYNC_MANDANT

	// Env replaces the process environment when non-nil.
	Env map[string]string

	// Transport, Tokens, RunIDs and Boundaries replace the network-facing
	// defaults. Tests set them; the binary never does.
	Transport  transport.Transport
	Tokens     client.TokenSource
	RunIDs     engine.RunIDGenerator
	Boundaries batch.BoundaryGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the clubsync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clubsync",
		Short: "clubsync - push club records into the accounting system",
		Long: `Synchronize member records and submit sales documents against the
entity API of an accounting system, one $batch round trip per phase.

Connection settings come from CLUBSYNC_* environment variables.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Host, "host", "", "accounting system URL (overrides CLUBSYNC_HOST)")
	cmd.PersistentFlags().StringVar(&opts.Mandant, "mandant", "", "mandant ID (overrides CLUBSYNC_MANDANT)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "journal database path (overrides CLUBSYNC_JOURNAL)")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
