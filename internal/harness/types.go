package harness

import (
	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/store"
	"github.com/roach88/clubsync/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string

	// Report is the engine report of a records scenario.
	Report *engine.Report

	// Submission is the result of a document scenario.
	Submission *document.Submission

	// RunErr is the error that stopped the run, if any.
	RunErr error

	// Calls is every call the remote system received, in order.
	Calls []*testutil.Call

	// Journal holds the outcomes the run journaled, failed or not.
	Journal []store.OutcomeRow
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
