// Package correlate attributes batch results to the domain objects that
// issued the requests.
//
// The wire protocol has no request ids; attribution relies on each result
// having been bound to its request by position (batch.Bind). The request's
// Ref is the domain object. One object may issue several requests in the
// same batch and so accumulates several outcomes.
package correlate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/outcome"
)

// Target is implemented by domain objects that want outcomes pushed to
// them as they are attributed.
type Target interface {
	Attach(o outcome.Outcome)
}

// ErrUnbound means a result carries no request back-reference.
var ErrUnbound = errors.New("correlate: result is not bound to a request")

// Correlator accumulates outcomes per Ref.
//
// Refs must be comparable (pointers, ids); a nil Ref is allowed and simply
// not tracked.
type Correlator struct {
	order []any
	byRef map[any][]outcome.Outcome
}

// New creates an empty Correlator.
func New() *Correlator {
	return &Correlator{byRef: make(map[any][]outcome.Outcome)}
}

// Attach normalizes every result and records the outcome against its
// request's Ref. Refs implementing Target also receive the outcome.
//
// Attach checks all results before recording any, so an error leaves the
// Correlator unchanged.
func (c *Correlator) Attach(results []*batch.Result) error {
	for i, res := range results {
		if res == nil || res.Request == nil {
			return fmt.Errorf("%w: position %d", ErrUnbound, i)
		}
		if ref := res.Request.Ref; ref != nil && !reflect.TypeOf(ref).Comparable() {
			return fmt.Errorf("correlate: position %d: ref of type %T is not comparable", i, ref)
		}
	}
	for _, res := range results {
		c.Record(res.Request.Ref, outcome.Normalize(res))
	}
	return nil
}

// Record attributes an outcome that did not come from a batch result, such
// as a request rejected before sending.
func (c *Correlator) Record(ref any, o outcome.Outcome) {
	if t, ok := ref.(Target); ok {
		t.Attach(o)
	}
	if ref == nil {
		return
	}
	if _, seen := c.byRef[ref]; !seen {
		c.order = append(c.order, ref)
	}
	c.byRef[ref] = append(c.byRef[ref], o)
}

// Outcomes returns the outcomes recorded for ref, in attachment order.
func (c *Correlator) Outcomes(ref any) []outcome.Outcome {
	return c.byRef[ref]
}

// Succeeded reports whether ref has at least one outcome and all of them
// succeeded.
func (c *Correlator) Succeeded(ref any) bool {
	outs := c.byRef[ref]
	return len(outs) > 0 && AllSucceeded(outs)
}

// Refs returns every ref that received an outcome, in first-seen order.
func (c *Correlator) Refs() []any {
	return append([]any(nil), c.order...)
}

// Failed returns the refs with at least one failed outcome.
func (c *Correlator) Failed() []any {
	var out []any
	for _, ref := range c.order {
		if !AllSucceeded(c.byRef[ref]) {
			out = append(out, ref)
		}
	}
	return out
}

// AllSucceeded reduces a list of outcomes. An empty list succeeds.
func AllSucceeded(outs []outcome.Outcome) bool {
	for _, o := range outs {
		if !o.Success {
			return false
		}
	}
	return true
}

// Failures returns the errors of the failed outcomes.
func Failures(outs []outcome.Outcome) []outcome.RemoteError {
	var errs []outcome.RemoteError
	for _, o := range outs {
		if !o.Success && o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}
