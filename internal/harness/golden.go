package harness

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/outcome"
)

// Transcript renders a result as the golden text: every call exactly as
// sent, envelope bytes included, followed by a summary of what the run
// made of the answers.
//
// Call bodies are written verbatim, so multipart envelopes keep their CRLF
// line endings. Everything the harness adds uses LF.
func Transcript(result *Result) []byte {
	var buf bytes.Buffer
	for i, c := range result.Calls {
		fmt.Fprintf(&buf, "=== call %d\n", i+1)
		fmt.Fprintf(&buf, "%s %s\n", c.Method, c.URL)
		if ct := c.Header.Get("Content-Type"); ct != "" {
			fmt.Fprintf(&buf, "Content-Type: %s\n", ct)
		}
		buf.WriteString("\n")
		if len(c.Body) > 0 {
			buf.Write(c.Body)
			buf.WriteString("\n")
		}
	}

	if result.Report != nil {
		writeReport(&buf, result.Report)
	}
	if sub := result.Submission; sub != nil {
		fmt.Fprintf(&buf, "=== submission key=%s total=%s finalized=%t\n", sub.Key, sub.Total.String(), sub.Finalized)
		for _, so := range sub.Outcomes {
			fmt.Fprintf(&buf, "  %s %d %s\n", so.Step, so.Outcome.Status, verdict(so.Outcome, false))
		}
	}
	if result.RunErr != nil {
		fmt.Fprintf(&buf, "=== run error %s\n", runErrorCode(result.RunErr))
	}
	return buf.Bytes()
}

func writeReport(buf *bytes.Buffer, r *engine.Report) {
	fmt.Fprintf(buf, "=== report run=%s round_trips=%d\n", r.RunID, r.RoundTrips)
	for _, rec := range r.Records {
		fmt.Fprintf(buf, "%v %s remote_key=%s\n", rec.Ref, rec.State, rec.RemoteKey)
		for _, a := range rec.Attempts {
			fmt.Fprintf(buf, "  %d %s %s %s %d %s\n", a.Seq, a.Phase, a.Op, a.Label, a.Outcome.Status, verdict(a.Outcome, a.Tolerated))
		}
	}
}

func verdict(o outcome.Outcome, tolerated bool) string {
	switch {
	case o.Success:
		return "ok"
	case tolerated:
		return "tolerated"
	}
	var se *outcome.StructuredError
	if errors.As(o.Err, &se) {
		return "failed structured"
	}
	return "failed raw"
}

func runErrorCode(err error) string {
	var re *engine.RunError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "unclassified"
}

// RunWithGolden executes a scenario and compares its transcript against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the transcript doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already computed result against its golden
// file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Transcript(result))
}
