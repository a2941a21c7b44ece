// Package config loads connection settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrInvalid marks a configuration that cannot be used to connect.
var ErrInvalid = errors.New("config: invalid")

// Config holds everything needed to reach one mandant of the accounting
// system.
type Config struct {
	Host         string        `env:"CLUBSYNC_HOST"`
	Mandant      string        `env:"CLUBSYNC_MANDANT"`
	ClientID     string        `env:"CLUBSYNC_CLIENT_ID"`
	ClientSecret string        `env:"CLUBSYNC_CLIENT_SECRET"`
	Scopes       []string      `env:"CLUBSYNC_SCOPES"       envSeparator:","`
	HTTPTimeout  time.Duration `env:"CLUBSYNC_HTTP_TIMEOUT" envDefault:"60s"`
	TokenSkew    time.Duration `env:"CLUBSYNC_TOKEN_SKEW"   envDefault:"30s"`

	// Journal is an optional SQLite path for the run journal.
	Journal string `env:"CLUBSYNC_JOURNAL"`

	// Mode is the document submission mode, "sequence" or "batch".
	Mode string `env:"CLUBSYNC_DOCUMENT_MODE" envDefault:"sequence"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	cfg.Scopes = compact(cfg.Scopes)
	return cfg, nil
}

// Validate checks the settings needed for a connection. Credentials are
// only required when needCredentials is set; validating input files works
// offline.
func (c Config) Validate(needCredentials bool) error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "CLUBSYNC_HOST")
	}
	if c.Mandant == "" {
		missing = append(missing, "CLUBSYNC_MANDANT")
	}
	if needCredentials {
		if c.ClientID == "" {
			missing = append(missing, "CLUBSYNC_CLIENT_ID")
		}
		if c.ClientSecret == "" {
			missing = append(missing, "CLUBSYNC_CLIENT_SECRET")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if !strings.HasPrefix(c.Host, "https://") && !strings.HasPrefix(c.Host, "http://") {
		return fmt.Errorf("%w: host %q must be an http(s) URL", ErrInvalid, c.Host)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", ErrInvalid)
	}
	if c.TokenSkew < 0 {
		return fmt.Errorf("%w: token skew must not be negative", ErrInvalid)
	}
	return nil
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
