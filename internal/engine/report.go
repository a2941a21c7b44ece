package engine

import (
	"fmt"
	"time"

	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/outcome"
)

// State is where a record stands in a run.
type State int

// Record states. UpToDate, Done and Failed are final.
const (
	StateUnknown State = iota
	StateFetched
	StateUpToDate
	StateNeedsCreate
	StateNeedsUpdate
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateUnknown:     "unknown",
	StateFetched:     "fetched",
	StateUpToDate:    "up_to_date",
	StateNeedsCreate: "needs_create",
	StateNeedsUpdate: "needs_update",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Final reports whether no further phase changes s.
func (s State) Final() bool {
	return s == StateUpToDate || s == StateDone || s == StateFailed
}

// Phase names a step of a run.
type Phase string

// Phases, in execution order.
const (
	PhaseValidate  Phase = "validate"
	PhaseFetch     Phase = "fetch"
	PhaseCreate    Phase = "create"
	PhaseAssociate Phase = "associate"
)

// Attempt is one request issued for a record and its outcome.
type Attempt struct {
	// Seq orders attempts across the whole run.
	Seq   int64
	Phase Phase
	Kind  entity.Kind
	Op    entity.Operation

	// Label names the target, e.g. "Subject" or "Communication[Email]".
	Label string

	Outcome outcome.Outcome

	// Tolerated marks a failure that is part of normal control flow: a
	// fetch answered 404 because the subject does not exist yet.
	Tolerated bool
}

// Failed reports a failure that counts against the record.
func (a Attempt) Failed() bool {
	return !a.Outcome.Success && !a.Tolerated
}

// RecordReport is the result of one subject.
type RecordReport struct {
	// Ref is the caller's reference from entity.Subject.Ref.
	Ref any

	// Key is the key the subject came in with.
	Key entity.Key

	// RemoteKey is the subject's key in the remote system after the run,
	// empty if it has none.
	RemoteKey entity.Key

	State    State
	Attempts []Attempt
}

// Failures returns the attempts that failed, in order.
func (r *RecordReport) Failures() []Attempt {
	var out []Attempt
	for _, a := range r.Attempts {
		if a.Failed() {
			out = append(out, a)
		}
	}
	return out
}

// Outcomes returns every attached outcome, in order.
func (r *RecordReport) Outcomes() []outcome.Outcome {
	out := make([]outcome.Outcome, len(r.Attempts))
	for i, a := range r.Attempts {
		out[i] = a.Outcome
	}
	return out
}

// Report is the result of a run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Records are in input order.
	Records []*RecordReport

	// RoundTrips counts $batch calls made.
	RoundTrips int

	// Error is the run error message, empty for a completed run.
	Error string
}

// Count returns how many records ended in state s.
func (r *Report) Count(s State) int {
	n := 0
	for _, rec := range r.Records {
		if rec.State == s {
			n++
		}
	}
	return n
}

// Failed returns the records that ended Failed.
func (r *Report) Failed() []*RecordReport {
	var out []*RecordReport
	for _, rec := range r.Records {
		if rec.State == StateFailed {
			out = append(out, rec)
		}
	}
	return out
}

// Complete reports whether the run finished without a run error.
func (r *Report) Complete() bool {
	return r.Error == ""
}
