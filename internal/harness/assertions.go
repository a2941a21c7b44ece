package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/outcome"
	"github.com/roach88/clubsync/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Calls    []*testutil.Call // Every call the remote received
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCalls:\n")
		for i, c := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, c.Method, c.URL)
			for _, line := range requestLines(c) {
				fmt.Fprintf(&buf, "      %s\n", line)
			}
		}
	}

	return buf.String()
}

// requestLines lists the logical requests of a call as "METHOD path". A
// batch call lists its parts; a single call lists itself, relative to the
// mandant root.
func requestLines(c *testutil.Call) []string {
	if c.Requests != nil {
		lines := make([]string, len(c.Requests))
		for i, r := range c.Requests {
			lines[i] = string(r.Method) + " " + r.Path
		}
		return lines
	}
	base := Host + "/api/entity/v1/mandants/" + Mandant + "/"
	return []string{c.Method + " " + strings.TrimPrefix(c.URL, base)}
}

func findRecord(result *Result, ref string) (*engine.RecordReport, error) {
	if result.Report == nil {
		return nil, fmt.Errorf("no engine report (not a records scenario)")
	}
	for _, rec := range result.Report.Records {
		if s, ok := rec.Ref.(string); ok && s == ref {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no record with ref %q", ref)
}

// assertRecordState checks the final state and, optionally, the remote key
// of one record.
func assertRecordState(result *Result, a Assertion) error {
	rec, err := findRecord(result, a.Ref)
	if err != nil {
		return &AssertionError{Type: AssertRecordState, Expected: "record " + a.Ref, Actual: err.Error(), Calls: result.Calls}
	}
	if rec.State.String() != a.State {
		return &AssertionError{
			Type:     AssertRecordState,
			Expected: fmt.Sprintf("%s in state %s", a.Ref, a.State),
			Actual:   fmt.Sprintf("state %s", rec.State),
			Calls:    result.Calls,
		}
	}
	if a.RemoteKey != "" && string(rec.RemoteKey) != a.RemoteKey {
		return &AssertionError{
			Type:     AssertRecordState,
			Expected: fmt.Sprintf("%s with remote key %s", a.Ref, a.RemoteKey),
			Actual:   fmt.Sprintf("remote key %q", rec.RemoteKey),
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertFailure checks that a record has a failed attempt for a target and
// that its error matches every given detail.
func assertFailure(result *Result, a Assertion) error {
	rec, err := findRecord(result, a.Ref)
	if err != nil {
		return &AssertionError{Type: AssertFailure, Expected: "record " + a.Ref, Actual: err.Error(), Calls: result.Calls}
	}

	var seen []string
	for _, att := range rec.Failures() {
		if att.Label != a.Label {
			seen = append(seen, att.Label)
			continue
		}
		if msg := mismatch(att.Outcome, a); msg != "" {
			return &AssertionError{
				Type:     AssertFailure,
				Expected: describeFailure(a),
				Actual:   msg,
				Calls:    result.Calls,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertFailure,
		Expected: describeFailure(a),
		Actual:   fmt.Sprintf("failures for %v", seen),
		Calls:    result.Calls,
	}
}

func describeFailure(a Assertion) string {
	parts := []string{a.Ref, a.Label}
	if a.Status != 0 {
		parts = append(parts, fmt.Sprintf("status %d", a.Status))
	}
	if a.Error != "" {
		parts = append(parts, a.Error+" error")
	}
	if a.Message != "" {
		parts = append(parts, fmt.Sprintf("message containing %q", a.Message))
	}
	return "failure of " + strings.Join(parts, " ")
}

// mismatch returns a description of how o differs from the assertion, or
// "" if it matches.
func mismatch(o outcome.Outcome, a Assertion) string {
	if a.Status != 0 && o.Status != a.Status {
		return fmt.Sprintf("status %d", o.Status)
	}
	switch a.Error {
	case "structured":
		var se *outcome.StructuredError
		if !errors.As(o.Err, &se) {
			return fmt.Sprintf("error is %T", o.Err)
		}
	case "raw":
		var re *outcome.RawError
		if !errors.As(o.Err, &re) {
			return fmt.Sprintf("error is %T", o.Err)
		}
	}
	if a.Message != "" {
		if o.Err == nil {
			return "no error"
		}
		if !strings.Contains(o.Err.Error(), a.Message) {
			return fmt.Sprintf("error %q", o.Err.Error())
		}
	}
	return ""
}

// assertRoundTrips checks the number of calls that reached the remote
// system, batch or single.
func assertRoundTrips(result *Result, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("round_trips: count is required")
	}
	if len(result.Calls) != *a.Count {
		return &AssertionError{
			Type:     AssertRoundTrips,
			Expected: fmt.Sprintf("%d calls", *a.Count),
			Actual:   fmt.Sprintf("%d calls", len(result.Calls)),
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertRequestOrder checks the exact request list of one call.
func assertRequestOrder(result *Result, a Assertion) error {
	if a.Call > len(result.Calls) {
		return &AssertionError{
			Type:     AssertRequestOrder,
			Expected: fmt.Sprintf("call %d", a.Call),
			Actual:   fmt.Sprintf("only %d calls", len(result.Calls)),
			Calls:    result.Calls,
		}
	}
	got := requestLines(result.Calls[a.Call-1])
	if strings.Join(got, "\n") != strings.Join(a.Requests, "\n") {
		return &AssertionError{
			Type:     AssertRequestOrder,
			Expected: fmt.Sprintf("call %d sends %v", a.Call, a.Requests),
			Actual:   fmt.Sprintf("%v", got),
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertRunError checks the code of the error that stopped the run. The
// code "none" asserts that nothing did.
func assertRunError(result *Result, a Assertion) error {
	got := "none"
	if result.RunErr != nil {
		got = "unclassified"
		var re *engine.RunError
		if errors.As(result.RunErr, &re) {
			got = string(re.Code)
		}
	}
	if got != a.Code {
		actual := got
		if result.RunErr != nil {
			actual = fmt.Sprintf("%s (%v)", got, result.RunErr)
		}
		return &AssertionError{
			Type:     AssertRunError,
			Expected: a.Code,
			Actual:   actual,
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertDocument checks the submission's key, finalization and total.
func assertDocument(result *Result, a Assertion) error {
	sub := result.Submission
	if sub == nil {
		actual := "no submission"
		if result.RunErr != nil {
			actual = fmt.Sprintf("no submission: %v", result.RunErr)
		}
		return &AssertionError{Type: AssertDocument, Expected: "a submission", Actual: actual, Calls: result.Calls}
	}
	if a.Key != "" && string(sub.Key) != a.Key {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: "key " + a.Key,
			Actual:   fmt.Sprintf("key %q", sub.Key),
			Calls:    result.Calls,
		}
	}
	if a.Finalized != nil && sub.Finalized != *a.Finalized {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: fmt.Sprintf("finalized=%t", *a.Finalized),
			Actual:   fmt.Sprintf("finalized=%t", sub.Finalized),
			Calls:    result.Calls,
		}
	}
	if a.Total != "" && sub.Total.String() != a.Total {
		return &AssertionError{
			Type:     AssertDocument,
			Expected: "total " + a.Total,
			Actual:   "total " + sub.Total.String(),
			Calls:    result.Calls,
		}
	}
	return nil
}

// assertJournal checks how many failed outcomes the run journaled.
func assertJournal(result *Result, a Assertion) error {
	if a.Count == nil {
		return fmt.Errorf("journal: count is required")
	}
	failed := 0
	for _, row := range result.Journal {
		if !row.Success && !row.Tolerated {
			failed++
		}
	}
	if failed != *a.Count {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("%d failed outcomes journaled", *a.Count),
			Actual:   fmt.Sprintf("%d of %d", failed, len(result.Journal)),
			Calls:    result.Calls,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordState:
			err = assertRecordState(result, assertion)
		case AssertFailure:
			err = assertFailure(result, assertion)
		case AssertRoundTrips:
			err = assertRoundTrips(result, assertion)
		case AssertRequestOrder:
			err = assertRequestOrder(result, assertion)
		case AssertRunError:
			err = assertRunError(result, assertion)
		case AssertDocument:
			err = assertDocument(result, assertion)
		case AssertJournal:
			err = assertJournal(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
