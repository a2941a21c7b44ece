package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	tr := NewHTTP(srv.Client())
	resp, err := tr.Execute(context.Background(), http.MethodPost, srv.URL+"/x",
		http.Header{"Authorization": {"Bearer tok"}}, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "accepted", string(resp.Body))
}

func TestHTTPExecuteServerErrorIsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := NewHTTP(nil).Execute(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestHTTPExecuteConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(nil).Execute(context.Background(), http.MethodGet, url, nil, nil)
	require.Error(t, err)
}

func TestNewHTTPDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewHTTP(nil).Client().Timeout)
}
