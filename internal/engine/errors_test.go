package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/correlate"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code RunErrorCode
	}{
		{"auth", fmt.Errorf("%w: discovery down", client.ErrAuth), ErrCodeAuth},
		{"transport", fmt.Errorf("%w: reset", client.ErrTransport), ErrCodeTransport},
		{"deadline", context.DeadlineExceeded, ErrCodeTransport},
		{"structural", fmt.Errorf("%w: 2 vs 3", batch.ErrStructural), ErrCodeStructural},
		{"unbound", correlate.ErrUnbound, ErrCodeStructural},
		{"status", &client.StatusError{Status: http.StatusBadGateway}, ErrCodeProtocol},
		{"forbidden status", &client.StatusError{Status: http.StatusForbidden}, ErrCodeAuth},
		{"unknown", errors.New("?"), ErrCodeProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := classify("run-1", PhaseFetch, tt.err)
			assert.Equal(t, tt.code, re.Code)
			assert.ErrorIs(t, re, tt.err)
		})
	}
}

func TestRunErrorString(t *testing.T) {
	err := &RunError{Code: ErrCodeStructural, Phase: PhaseCreate, RunID: "r1", Message: "count mismatch"}
	assert.Equal(t, "STRUCTURAL: count mismatch (run=r1, phase=create)", err.Error())

	err.RunID = ""
	assert.Equal(t, "STRUCTURAL: count mismatch (phase=create)", err.Error())
}

func TestErrorHelpersUnwrap(t *testing.T) {
	err := fmt.Errorf("sync: %w", &RunError{Code: ErrCodeTransport})

	assert.True(t, IsTransportError(err))
	assert.False(t, IsStructuralError(err))
	assert.False(t, IsAuthError(errors.New("plain")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "needs_create", StateNeedsCreate.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.True(t, StateUpToDate.Final())
	assert.False(t, StateNeedsUpdate.Final())
}
