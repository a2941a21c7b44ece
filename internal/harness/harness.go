package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/input"
	"github.com/roach88/clubsync/internal/store"
	"github.com/roach88/clubsync/internal/testutil"
)

// Fixed environment every scenario runs against. Golden transcripts depend
// on these values.
const (
	Host     = "https://erp.test"
	Mandant  = "m1"
	Boundary = "batch_test"
	Token    = "test-token"
)

// Epoch is the report timestamp of every scenario run.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Harness holds the fakes one scenario runs against.
type Harness struct {
	store  *store.Store
	remote *testutil.ScriptedTransport
	client *client.Client
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh scripted remote and a fresh in-memory
// journal. Boundaries, run IDs and timestamps are fixed, so two runs of the
// same scenario send byte-identical requests.
//
// Execution flow:
// 1. Build the scripted remote from the scenario's exchanges
// 2. Run the engine over the records, or submit the document
// 3. Collect calls and journaled outcomes
// 4. Evaluate assertions
//
// A run error is part of the result, not an error of Run; Run fails only
// when the scenario cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	remote := testutil.NewScriptedTransport(steps(scenario.Remote)...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		store:  st,
		remote: remote,
		client: client.New(
			client.Config{Host: Host, Mandant: Mandant},
			&testutil.StaticTokens{Value: Token},
			remote,
			client.WithBoundaries(batch.NewFixedBoundary(Boundary)),
			client.WithLogger(logger),
		),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()
	if scenario.Document != nil {
		err = h.submit(ctx, scenario, result)
	} else {
		err = h.sync(ctx, scenario, result)
	}
	if err != nil {
		return nil, err
	}
	result.Calls = remote.Calls()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) sync(ctx context.Context, scenario *Scenario, result *Result) error {
	subjects, err := input.Subjects(scenario.Records)
	if err != nil {
		return err
	}

	runIDs := testutil.NewFixedRunID(scenario.RunID)
	opts := []engine.EngineOption{
		engine.WithRunIDs(runIDs),
		engine.WithNow(func() time.Time { return Epoch }),
		engine.WithJournal(h.store),
		engine.WithLogger(h.logger),
	}
	if scenario.MaxParts > 0 {
		opts = append(opts, engine.WithMaxParts(scenario.MaxParts))
	}
	eng := engine.New(h.client, opts...)

	report, runErr := eng.Sync(ctx, subjects)
	result.Report = report
	result.RunErr = runErr

	if report != nil {
		journal, err := h.store.ListOutcomes(ctx, report.RunID, false)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		result.Journal = journal
	}
	return nil
}

func (h *Harness) submit(ctx context.Context, scenario *Scenario, result *Result) error {
	doc, err := scenario.Document.Document()
	if err != nil {
		return fmt.Errorf("document: %w", err)
	}
	mode, err := document.ParseMode(scenario.Mode)
	if err != nil {
		return err
	}
	sub := document.NewSubmitter(h.client, document.WithMode(mode), document.WithLogger(h.logger))
	result.Submission, result.RunErr = sub.Submit(ctx, doc)
	return nil
}

// steps turns scripted exchanges into transport answers.
func steps(exchanges []Exchange) []testutil.Step {
	out := make([]testutil.Step, len(exchanges))
	for i, ex := range exchanges {
		switch {
		case ex.Error != "":
			out[i] = testutil.Fail(errors.New(ex.Error))
		case len(ex.Parts) > 0:
			parts := make([]*batch.Result, len(ex.Parts))
			for j, p := range ex.Parts {
				parts[j] = part(p.Status, p.Body, p.ContentType)
			}
			out[i] = testutil.Reply(parts...)
		default:
			out[i] = testutil.Single(part(ex.Status, ex.Body, ex.ContentType))
		}
	}
	return out
}

func part(status int, body, contentType string) *batch.Result {
	switch {
	case body == "":
		return testutil.Empty(status)
	case contentType == "":
		return testutil.JSON(status, body)
	}
	return &batch.Result{
		Status: status,
		Header: http.Header{"Content-Type": {contentType}},
		Body:   []byte(body),
	}
}
