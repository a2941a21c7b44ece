package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/clubsync/internal/engine"
)

// WriteReport stores a run report in one transaction. Writing the same run
// id twice replaces the earlier entry.
func (s *Store) WriteReport(ctx context.Context, report *engine.Report) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("write report: missing run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// ON DELETE CASCADE clears records and outcomes of a previous write.
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, report.RunID); err != nil {
		return fmt.Errorf("write report: clear run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, kind, started_at, finished_at, round_trips, records, failed, error)
		VALUES (?, 'sync', ?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		report.RoundTrips,
		len(report.Records),
		len(report.Failed()),
		report.Error,
	)
	if err != nil {
		return fmt.Errorf("write report: insert run: %w", err)
	}

	for idx, rec := range report.Records {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records
			(run_id, idx, ref, key, remote_key, state)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			report.RunID,
			idx,
			refText(rec.Ref),
			string(rec.Key),
			string(rec.RemoteKey),
			rec.State.String(),
		)
		if err != nil {
			return fmt.Errorf("write report: insert record %d: %w", idx, err)
		}

		for _, a := range rec.Attempts {
			if err := writeAttempt(ctx, tx, report.RunID, idx, a); err != nil {
				return fmt.Errorf("write report: record %d: %w", idx, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report: commit: %w", err)
	}
	return nil
}

func writeAttempt(ctx context.Context, tx *sql.Tx, runID string, idx int, a engine.Attempt) error {
	fields, fingerprint, err := marshalFields(a.Outcome.Request.Fields)
	if err != nil {
		return err
	}
	message, body := errorText(a.Outcome)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes
		(run_id, record_idx, seq, phase, label, method, path, status, success, tolerated, message, body, fields, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		idx,
		a.Seq,
		string(a.Phase),
		a.Label,
		a.Outcome.Request.Method,
		a.Outcome.Request.Path,
		a.Outcome.Status,
		boolInt(a.Outcome.Success),
		boolInt(a.Tolerated),
		message,
		body,
		fields,
		fingerprint,
	)
	if err != nil {
		return fmt.Errorf("insert outcome seq=%d: %w", a.Seq, err)
	}
	return nil
}

func refText(ref any) string {
	if ref == nil {
		return ""
	}
	return fmt.Sprint(ref)
}
