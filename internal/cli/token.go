package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// TokenResult is the JSON payload of the token command. The token value
// itself is never printed.
type TokenResult struct {
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Check that the client credentials are accepted",
		Long: `Discover the token endpoint of the accounting system and run a
client-credentials exchange with CLUBSYNC_CLIENT_ID and
CLUBSYNC_CLIENT_SECRET. Prints the token type and expiry, never the
token.

Exit codes:
  0 - A token was issued
  2 - Configuration error or the exchange failed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runToken(opts *RootOptions, _ []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, opts.Tokens == nil)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	logger := newLogger(opts, cmd.ErrOrStderr())
	out.VerboseLog("Requesting token from %s", cfg.Host)
	tok, err := newTokens(opts, cfg, logger).Token(cmd.Context())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeAuth, "token request failed", err)
	}

	result := TokenResult{Type: tok.Type, ExpiresAt: tok.ExpiresAt.UTC()}
	return out.Render(result, nil, "", func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s token, expires %s\n", result.Type, result.ExpiresAt.Format(time.RFC3339))
	})
}
