// Package transport is the seam between the sync client and the network.
//
// Everything above this package talks to a Transport. Production code uses
// HTTP; tests use a scripted fake so no global HTTP state is touched.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport executes one HTTP exchange. A returned error means the exchange
// itself failed (connection refused, timeout); any HTTP status, including
// 5xx, is a Response.
type Transport interface {
	Execute(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error)
}

// HTTP is a Transport backed by *http.Client.
type HTTP struct {
	client *http.Client
}

// DefaultTimeout bounds a whole exchange when no client is supplied.
const DefaultTimeout = 60 * time.Second

// NewHTTP wraps client. A nil client gets a fresh one with DefaultTimeout.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTP{client: client}
}

// Client returns the underlying *http.Client.
func (h *HTTP) Client() *http.Client {
	return h.client
}

// Execute sends the request and reads the full response body.
func (h *HTTP) Execute(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, url, err)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}
