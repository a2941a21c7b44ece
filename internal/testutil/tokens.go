package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/roach88/clubsync/internal/auth"
)

// StaticTokens is a token source that never expires and never touches the
// network. A non-nil Err is returned instead of a token.
type StaticTokens struct {
	Value string
	Err   error

	calls atomic.Int32
}

// Token implements client.TokenSource.
func (s *StaticTokens) Token(context.Context) (*auth.Token, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	value := s.Value
	if value == "" {
		value = "test-token"
	}
	return &auth.Token{Value: value, Type: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// Calls returns how many tokens were requested.
func (s *StaticTokens) Calls() int {
	return int(s.calls.Load())
}
