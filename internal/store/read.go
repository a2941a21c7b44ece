package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/clubsync/internal/ir"
)

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	RoundTrips int
	Records    int
	Failed     int
	Error      string
}

// RecordRow is the final state of one input record of a run.
type RecordRow struct {
	RunID     string
	Index     int
	Ref       string
	Key       string
	RemoteKey string
	State     string
}

// OutcomeRow is one journaled outcome.
type OutcomeRow struct {
	RunID       string
	RecordIndex int
	Ref         string
	Seq         int64
	Phase       string
	Label       string
	Method      string
	Path        string
	Status      int
	Success     bool
	Tolerated   bool
	Message     string
	Body        string
	Fields      *ir.Object
	Fingerprint string
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, started_at, finished_at, round_trips, records, failed, error
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r                 RunSummary
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.RoundTrips, &r.Records, &r.Failed, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. The boolean is false if the run is unknown.
func (s *Store) GetRun(ctx context.Context, runID string) (RunSummary, bool, error) {
	var (
		r                 RunSummary
		started, finished string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, round_trips, records, failed, error
		FROM runs
		WHERE id = ?
	`, runID).Scan(&r.ID, &started, &finished, &r.RoundTrips, &r.Records, &r.Failed, &r.Error)
	if err == sql.ErrNoRows {
		return RunSummary{}, false, nil
	}
	if err != nil {
		return RunSummary{}, false, fmt.Errorf("query run: %w", err)
	}
	if r.StartedAt, err = parseTime(started); err != nil {
		return RunSummary{}, false, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return RunSummary{}, false, err
	}
	return r, true, nil
}

// ListRecords returns the records of a run in input order.
func (s *Store) ListRecords(ctx context.Context, runID string) ([]RecordRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, ref, key, remote_key, state
		FROM records
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []RecordRow{}
	for rows.Next() {
		var r RecordRow
		if err := rows.Scan(&r.RunID, &r.Index, &r.Ref, &r.Key, &r.RemoteKey, &r.State); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ListOutcomes returns the outcomes of a run ordered by seq. With
// failedOnly, successes and tolerated failures are skipped.
func (s *Store) ListOutcomes(ctx context.Context, runID string, failedOnly bool) ([]OutcomeRow, error) {
	query := `
		SELECT o.run_id, o.record_idx, r.ref, o.seq, o.phase, o.label, o.method, o.path,
		       o.status, o.success, o.tolerated, o.message, o.body, o.fields, o.fingerprint
		FROM outcomes o
		JOIN records r ON r.run_id = o.run_id AND r.idx = o.record_idx
		WHERE o.run_id = ?
	`
	if failedOnly {
		query += ` AND o.success = 0 AND o.tolerated = 0`
	}
	query += ` ORDER BY o.seq ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []OutcomeRow{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// FindByFingerprint returns every journaled outcome whose request body had
// the given fingerprint, across runs, oldest run first.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]OutcomeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.run_id, o.record_idx, r.ref, o.seq, o.phase, o.label, o.method, o.path,
		       o.status, o.success, o.tolerated, o.message, o.body, o.fields, o.fingerprint
		FROM outcomes o
		JOIN records r ON r.run_id = o.run_id AND r.idx = o.record_idx
		JOIN runs ON runs.id = o.run_id
		WHERE o.fingerprint = ?
		ORDER BY runs.started_at ASC, o.run_id COLLATE BINARY ASC, o.seq ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query outcomes by fingerprint: %w", err)
	}
	defer rows.Close()

	outcomes := []OutcomeRow{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

func scanOutcome(rows *sql.Rows) (OutcomeRow, error) {
	var (
		o                  OutcomeRow
		success, tolerated int
		fields             string
	)
	err := rows.Scan(&o.RunID, &o.RecordIndex, &o.Ref, &o.Seq, &o.Phase, &o.Label, &o.Method, &o.Path,
		&o.Status, &success, &tolerated, &o.Message, &o.Body, &fields, &o.Fingerprint)
	if err != nil {
		return OutcomeRow{}, fmt.Errorf("scan outcome: %w", err)
	}
	o.Success = success != 0
	o.Tolerated = tolerated != 0
	if o.Fields, err = unmarshalFields(fields); err != nil {
		return OutcomeRow{}, err
	}
	return o, nil
}
