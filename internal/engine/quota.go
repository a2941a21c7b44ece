package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxParts is the default maximum number of parts in one batch.
const DefaultMaxParts = 1000

// QuotaEnforcer checks that a phase fits in one batch.
//
// Phases are never split across round trips: splitting would make a phase
// partially applied when a later chunk fails on transport. An oversized
// phase stops the run before anything is sent.
type QuotaEnforcer struct {
	maxParts int
	sent     int
}

// NewQuotaEnforcer creates a quota enforcer. maxParts <= 0 disables the
// limit.
func NewQuotaEnforcer(maxParts int) *QuotaEnforcer {
	return &QuotaEnforcer{maxParts: maxParts}
}

// Check validates the part count of the next batch and counts it as sent.
//
// Returns PartsExceededError if the batch is too large.
func (q *QuotaEnforcer) Check(runID string, parts int) error {
	if q.maxParts > 0 && parts > q.maxParts {
		return &PartsExceededError{RunID: runID, Parts: parts, Limit: q.maxParts}
	}
	q.sent += parts
	return nil
}

// Sent returns how many parts passed the check so far.
// Used for logging and diagnostics.
func (q *QuotaEnforcer) Sent() int {
	return q.sent
}

// MaxParts returns the limit.
func (q *QuotaEnforcer) MaxParts() int {
	return q.maxParts
}

// PartsExceededError is returned when a phase needs more parts than the
// limit.
type PartsExceededError struct {
	RunID string
	Parts int
	Limit int
}

// Error implements the error interface.
func (e *PartsExceededError) Error() string {
	return fmt.Sprintf("run %s: batch of %d parts exceeds limit of %d", e.RunID, e.Parts, e.Limit)
}

// IsPartsExceededError returns true if the error is a PartsExceededError.
// Uses errors.As to handle wrapped errors.
func IsPartsExceededError(err error) bool {
	var pe *PartsExceededError
	return errors.As(err, &pe)
}
