// Package store is the SQLite run journal.
//
// Every finished run (completed or aborted) is written as one transaction:
//   - runs: run id, wall-clock bounds, round trips, counts, run error
//   - records: final state and remote key of each input record
//   - outcomes: every attached outcome, ordered by the run's logical seq
//
// Request bodies are stored as deterministic JSON alongside a domain-separated
// fingerprint (ir.FieldsFingerprint), so the same logical request can be
// found across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
