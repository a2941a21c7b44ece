package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/auth"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/config"
	"github.com/roach88/clubsync/internal/store"
	"github.com/roach88/clubsync/internal/transport"
)

// readConfig reads the environment (or opts.Env) and applies the --host
// and --mandant overrides.
func readConfig(opts *RootOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.Env != nil {
		cfg, err = config.LoadFrom(opts.Env)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}
	if opts.Host != "" {
		cfg.Host = strings.TrimRight(opts.Host, "/")
	}
	if opts.Mandant != "" {
		cfg.Mandant = opts.Mandant
	}
	return cfg, nil
}

// loadConfig is readConfig plus validation of the connection settings.
func loadConfig(opts *RootOptions, needCredentials bool) (config.Config, error) {
	cfg, err := readConfig(opts)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(needCredentials); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes text logs to w. Debug output needs --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newFormatter builds the formatter for cmd's output streams.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newTokens returns opts.Tokens, or an OAuth provider for cfg.
func newTokens(opts *RootOptions, cfg config.Config, logger *slog.Logger) client.TokenSource {
	if opts.Tokens != nil {
		return opts.Tokens
	}
	return auth.New(auth.Config{
		Host:         cfg.Host,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Skew:         cfg.TokenSkew,
	},
		auth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		auth.WithLogger(logger))
}

// newClient wires tokens, transport and boundaries into an API client.
func newClient(opts *RootOptions, cfg config.Config, logger *slog.Logger) *client.Client {
	tr := opts.Transport
	if tr == nil {
		tr = transport.NewHTTP(&http.Client{Timeout: cfg.HTTPTimeout})
	}
	return client.New(
		client.Config{Host: cfg.Host, Mandant: cfg.Mandant},
		newTokens(opts, cfg, logger),
		tr,
		client.WithBoundaries(opts.Boundaries),
		client.WithLogger(logger),
	)
}

// openJournal opens the journal at --db, or at fallback when the flag is
// empty. It returns nil when neither is set.
func openJournal(path, fallback string) (*store.Store, error) {
	if path == "" {
		path = fallback
	}
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return st, nil
}
