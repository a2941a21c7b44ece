package store

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/outcome"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestReport builds a two-record report: one record updated, one
// whose association create was rejected.
func createTestReport(runID string, start time.Time) *engine.Report {
	fields := ir.NewObject(ir.O("Type", ir.String("Email")), ir.O("Value", ir.String("a@example.com")))
	return &engine.Report{
		RunID:      runID,
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		RoundTrips: 2,
		Records: []*engine.RecordReport{
			{
				Ref:       "member-1",
				Key:       "7",
				RemoteKey: "7",
				State:     engine.StateDone,
				Attempts: []engine.Attempt{
					{
						Seq: 1, Phase: engine.PhaseFetch, Kind: entity.KindSubject, Op: entity.OpRead, Label: "Subject",
						Outcome: outcome.Outcome{Success: true, Status: http.StatusOK, Request: outcome.Echo{Method: "GET", Path: "Subjects(Id=7)"}},
					},
				},
			},
			{
				Ref:       "member-2",
				Key:       "8",
				RemoteKey: "8",
				State:     engine.StateFailed,
				Attempts: []engine.Attempt{
					{
						Seq: 2, Phase: engine.PhaseFetch, Kind: entity.KindSubject, Op: entity.OpRead, Label: "Subject",
						Outcome: outcome.Outcome{Status: http.StatusNotFound, Request: outcome.Echo{Method: "GET", Path: "Subjects(Id=8)"},
							Err: &outcome.RawError{StatusCode: http.StatusNotFound}},
						Tolerated: true,
					},
					{
						Seq: 3, Phase: engine.PhaseAssociate, Kind: entity.KindCommunication, Op: entity.OpCreate, Label: "Communication[Email]",
						Outcome: outcome.Outcome{
							Status:  http.StatusBadRequest,
							Request: outcome.Echo{Method: "POST", Path: "Communications", Fields: fields},
							Err:     &outcome.StructuredError{Message: "invalid email", Code: "ValidationFailed", StatusCode: http.StatusBadRequest},
						},
					},
				},
			},
		},
	}
}
