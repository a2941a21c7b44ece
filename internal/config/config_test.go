package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.TokenSkew)
	assert.Equal(t, "sequence", cfg.Mode)
	assert.Empty(t, cfg.Scopes)
}

func TestLoadFromValues(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CLUBSYNC_HOST":          " https://erp.example.com/ ",
		"CLUBSYNC_MANDANT":       "club",
		"CLUBSYNC_CLIENT_ID":     "id",
		"CLUBSYNC_CLIENT_SECRET": "secret",
		"CLUBSYNC_SCOPES":        "entity, ,read",
		"CLUBSYNC_HTTP_TIMEOUT":  "5s",
		"CLUBSYNC_JOURNAL":       "/tmp/journal.db",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://erp.example.com", cfg.Host)
	assert.Equal(t, []string{"entity", "read"}, cfg.Scopes)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoadFromBadDuration(t *testing.T) {
	_, err := LoadFrom(map[string]string{"CLUBSYNC_TOKEN_SKEW": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Host:         "https://erp.example.com",
		Mandant:      "club",
		ClientID:     "id",
		ClientSecret: "secret",
		HTTPTimeout:  time.Minute,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		creds   bool
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}, creds: true},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, creds: true, wantErr: "CLUBSYNC_HOST"},
		{name: "missing secret", mutate: func(c *Config) { c.ClientSecret = "" }, creds: true, wantErr: "CLUBSYNC_CLIENT_SECRET"},
		{name: "offline ignores secret", mutate: func(c *Config) { c.ClientSecret = "" }, creds: false},
		{name: "host without scheme", mutate: func(c *Config) { c.Host = "erp.example.com" }, wantErr: "http(s) URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTPTimeout = 0 }, wantErr: "timeout"},
		{name: "negative skew", mutate: func(c *Config) { c.TokenSkew = -time.Second }, wantErr: "skew"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate(tt.creds)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
