// Package engine runs subject synchronization against the accounting
// system.
//
// A run takes a list of subjects and moves each one through a small state
// machine:
//
//	Unknown -> Fetched -> UpToDate | NeedsCreate | NeedsUpdate -> Done | Failed
//
// PHASES:
//
// Every phase is at most one $batch round trip and blocks until its
// response is decoded, because later phases need earlier results:
//
//  1. fetch: one expanded read per subject that has a key. 404 means the
//     subject is absent and needs creating; a payload is diffed.
//  2. create: one create per absent subject. A failed create marks the
//     subject Failed and removes it from the next phase.
//  3. associate: primary updates plus association creates and updates for
//     every subject that is known remotely, all in one batch.
//
// Subjects without any difference are UpToDate and cost no request beyond
// the fetch.
//
// FAILURE MODEL:
//
// A non-2xx part is a per-request outcome, attached to the subject that
// issued it. It never stops the batch or the run. Transport, auth and
// envelope failures stop the run with a *RunError; the partial Report is
// returned alongside it. Nothing is retried.
//
// Outcomes are stamped with a logical sequence number from Clock so a
// report lists attempts in the order they were attributed.
package engine
