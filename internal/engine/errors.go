package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/correlate"
)

// RunError is a failure that stopped a run.
//
// Run errors mean the integration itself is broken, as opposed to a single
// bad record:
//   - Transport: the HTTP exchange failed
//   - Auth: no token, or the token was refused
//   - Structural: the response cannot be attributed to the requests
//   - Protocol: the batch endpoint rejected the whole call
//   - Quota: a phase needs more parts than one batch may carry
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Phase is where the run stopped.
	Phase Phase

	// RunID identifies the affected run.
	RunID string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeTransport indicates the exchange itself failed.
	ErrCodeTransport RunErrorCode = "TRANSPORT"

	// ErrCodeAuth indicates token acquisition failed or the token was refused.
	ErrCodeAuth RunErrorCode = "AUTH"

	// ErrCodeStructural indicates results cannot be attributed by position.
	ErrCodeStructural RunErrorCode = "STRUCTURAL"

	// ErrCodeProtocol indicates the batch call was rejected as a whole.
	ErrCodeProtocol RunErrorCode = "PROTOCOL"

	// ErrCodeQuotaExceeded indicates a phase exceeds the batch size limit.
	ErrCodeQuotaExceeded RunErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s, phase=%s)", e.Code, e.Message, e.RunID, e.Phase)
	}
	return fmt.Sprintf("%s: %s (phase=%s)", e.Code, e.Message, e.Phase)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RunErrorCode) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsStructuralError returns true if the run stopped on an unattributable
// response. Uses errors.As to handle wrapped errors.
func IsStructuralError(err error) bool { return hasCode(err, ErrCodeStructural) }

// IsTransportError returns true if the run stopped on a transport failure.
func IsTransportError(err error) bool { return hasCode(err, ErrCodeTransport) }

// IsAuthError returns true if the run stopped on an auth failure.
func IsAuthError(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsQuotaError returns true if the run stopped before sending an oversized
// batch.
func IsQuotaError(err error) bool { return hasCode(err, ErrCodeQuotaExceeded) }

// classify wraps a failed round trip.
func classify(runID string, phase Phase, err error) *RunError {
	re := &RunError{Phase: phase, RunID: runID, Message: err.Error(), Err: err}
	var se *client.StatusError
	switch {
	case errors.Is(err, client.ErrAuth):
		re.Code = ErrCodeAuth
	case errors.Is(err, client.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		re.Code = ErrCodeTransport
	case errors.Is(err, batch.ErrStructural), errors.Is(err, correlate.ErrUnbound):
		re.Code = ErrCodeStructural
	case errors.As(err, &se):
		re.Code = ErrCodeProtocol
		if se.Unauthorized() {
			re.Code = ErrCodeAuth
		}
	default:
		re.Code = ErrCodeProtocol
	}
	return re
}
