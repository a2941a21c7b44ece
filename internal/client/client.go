// Package client talks to the accounting system's entity API.
//
// A Client knows the mandant service root, attaches a bearer token to every
// call, and runs $batch round trips. Anything that prevents attributing
// results to requests (transport errors, auth failures, a rejected batch,
// an unparseable envelope) is returned as an error; per-part failures are
// left in the decoded results for the caller to classify.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roach88/clubsync/internal/auth"
	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/transport"
)

var (
	// ErrAuth wraps token acquisition failures.
	ErrAuth = errors.New("client: authentication failed")

	// ErrTransport wraps failures of the HTTP exchange itself.
	ErrTransport = errors.New("client: transport failed")
)

// StatusError is a whole-call rejection: the batch endpoint answered with
// something other than 200/202, or a single-entity call was sent through a
// path that requires success.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("client: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("client: unexpected status %d: %s", e.Status, body)
}

// Unauthorized reports a 401 or 403.
func (e *StatusError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// TokenSource supplies bearer tokens. *auth.Provider implements it.
type TokenSource interface {
	Token(ctx context.Context) (*auth.Token, error)
}

// Config locates the mandant service root.
type Config struct {
	Host    string
	Mandant string
}

// APIPath is the entity API prefix below the host.
const APIPath = "/api/entity/v1/mandants/"

// Client runs requests against one mandant.
type Client struct {
	base    string
	tokens  TokenSource
	tr      transport.Transport
	encoder *batch.Encoder
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBoundaries sets the boundary generator for request envelopes.
func WithBoundaries(gen batch.BoundaryGenerator) Option {
	return func(c *Client) {
		if gen != nil {
			c.encoder = batch.NewEncoder(gen)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client.
func New(cfg Config, tokens TokenSource, tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(cfg.Host, "/") + APIPath + cfg.Mandant,
		tokens:  tokens,
		tr:      tr,
		encoder: batch.NewEncoder(nil),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the mandant service root.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) authorize(ctx context.Context, header http.Header) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	header.Set("Authorization", tok.Authorization())
	return nil
}

// Batch sends reqs as one $batch call and returns one result per request,
// in order, each bound to its request.
func (c *Client) Batch(ctx context.Context, reqs []*batch.Request) ([]*batch.Result, error) {
	env, err := c.encoder.Encode(reqs)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", env.ContentType())
	header.Set("Accept", "multipart/mixed")
	if err := c.authorize(ctx, header); err != nil {
		return nil, err
	}

	url := c.base + "/$batch"
	c.logger.Debug("batch request", "url", url, "requests", len(reqs), "boundary", env.Boundary)
	resp, err := c.tr.Execute(ctx, http.MethodPost, url, header, env.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.Status != http.StatusAccepted && resp.Status != http.StatusOK {
		return nil, rejected(resp)
	}

	boundary, err := batch.ParseContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	results, err := batch.Decode(resp.Body, boundary)
	if err != nil {
		return nil, err
	}
	if err := batch.Bind(reqs, results); err != nil {
		return nil, err
	}
	c.logger.Debug("batch response", "status", resp.Status, "results", len(results))
	return results, nil
}

// Do sends one request outside a batch. The answer is returned as a Result
// bound to req, whatever its status; only transport and auth failures are
// errors.
func (c *Client) Do(ctx context.Context, req *batch.Request) (*batch.Result, error) {
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: method %q", batch.ErrInvalidRequest, req.Method)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	var body []byte
	if req.Method != batch.MethodGet {
		data, err := ir.Marshal(req.Fields)
		if err != nil {
			return nil, fmt.Errorf("%w: body: %v", batch.ErrInvalidRequest, err)
		}
		body = data
		header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, header); err != nil {
		return nil, err
	}

	url := c.base + "/" + strings.TrimLeft(req.Path, "/")
	resp, err := c.tr.Execute(ctx, string(req.Method), url, header, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, rejected(resp)
	}

	res := &batch.Result{
		Status:  resp.Status,
		Reason:  http.StatusText(resp.Status),
		Header:  resp.Header,
		Body:    resp.Body,
		Request: req,
	}
	if parsed, err := ir.ParseJSON(resp.Body); err == nil {
		res.Parsed = parsed
	}
	c.logger.Debug("entity request", "method", req.Method, "path", req.Path, "status", resp.Status)
	return res, nil
}

// rejected turns a whole-call rejection into an error. A 401 means the
// token was refused and is reported as an auth failure.
func rejected(resp *transport.Response) error {
	err := &StatusError{Status: resp.Status, Body: resp.Body}
	if resp.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return err
}
