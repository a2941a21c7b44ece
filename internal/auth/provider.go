package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// WellKnownPath is the discovery document location relative to the host.
const WellKnownPath = "/.well-known/openid-configuration"

// DefaultLifetime applies when the token response carries no expires_in.
const DefaultLifetime = 5 * time.Minute

var (
	// ErrDiscovery means the metadata document could not be fetched or has
	// no token endpoint.
	ErrDiscovery = errors.New("auth: discovery failed")

	// ErrExchange means the token endpoint rejected the grant or answered
	// with something that is not a token.
	ErrExchange = errors.New("auth: token exchange failed")
)

// Config identifies the client to the authorization server.
type Config struct {
	Host         string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// Skew makes cached tokens expire early so they never lapse in flight.
	Skew time.Duration
}

// Provider hands out cached bearer tokens.
//
// Thread-safety: Token is safe for concurrent use; concurrent callers that
// find the cache empty wait for a single exchange.
type Provider struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	token *Token
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for discovery and exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Provider. No network call is made until Token.
func New(cfg Config, opts ...Option) *Provider {
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	p := &Provider{
		cfg:    cfg,
		client: http.DefaultClient,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns the cached token, or discovers the token endpoint and runs
// a fresh client-credentials exchange when the cache is empty or expired.
func (p *Provider) Token(ctx context.Context) (*Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid(p.now(), p.cfg.Skew) {
		return p.token, nil
	}

	endpoint, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := p.exchange(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	p.token = tok
	p.logger.Debug("token acquired",
		"token_endpoint", endpoint,
		"type", tok.Type,
		"expires_at", tok.ExpiresAt.Format(time.RFC3339))
	return tok, nil
}

// Cached returns the cached token without touching the network, or nil.
func (p *Provider) Cached() *Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

type discoveryDocument struct {
	TokenEndpoint string `json:"token_endpoint"`
}

func (p *Provider) discover(ctx context.Context) (string, error) {
	url := p.cfg.Host + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrDiscovery, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDiscovery, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrDiscovery, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrDiscovery, url, resp.Status)
	}

	var doc discoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("%w: decode metadata: %v", ErrDiscovery, err)
	}
	if doc.TokenEndpoint == "" {
		return "", fmt.Errorf("%w: metadata has no token_endpoint", ErrDiscovery)
	}
	return doc.TokenEndpoint, nil
}

func (p *Provider) exchange(ctx context.Context, endpoint string) (*Token, error) {
	// oauth2's header style form-encodes id and secret before base64; the
	// server expects them verbatim, so the header is set by basicAuth and
	// oauth2 is told to put nothing in the body.
	cc := clientcredentials.Config{
		TokenURL:  endpoint,
		Scopes:    p.cfg.Scopes,
		AuthStyle: oauth2.AuthStyleInParams,
	}

	// Read the clock before the exchange so latency only shortens the
	// usable window.
	issued := p.now()
	client := *p.client
	client.Transport = &basicAuth{id: p.cfg.ClientID, secret: p.cfg.ClientSecret, base: p.client.Transport}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &client)
	raw, err := cc.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, fmt.Errorf("%w: %s returned %s", ErrExchange, endpoint, re.Response.Status)
		}
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	lifetime, ok := expiresIn(raw)
	if !ok {
		lifetime = DefaultLifetime
	}
	return &Token{
		Value:     raw.AccessToken,
		Type:      raw.Type(),
		ExpiresAt: issued.Add(lifetime),
	}, nil
}

// expiresIn reads expires_in from the raw token response. The oauth2
// package computes Expiry from the wall clock, which an injected clock
// cannot follow.
func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var seconds int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		seconds = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		seconds = n
	default:
		return 0, false
	}
	if seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// basicAuth sets client credentials on token requests as
// base64(id:secret), without form-encoding either part.
type basicAuth struct {
	id, secret string
	base       http.RoundTripper
}

func (b *basicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	base := b.base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.SetBasicAuth(b.id, b.secret)
	return base.RoundTrip(req)
}
