// Package harness runs scripted synchronization scenarios against a fake
// remote system and checks what was sent and what the run made of the
// answers.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: partial_create_failure
//	description: "What this scenario validates"
//	run_id: run-partial
//	records:
//	  - ref: member-101
//	    key: "101"
//	    fields: {Name: Muster}
//	    associations:
//	      - kind: Communication
//	        fields: {Type: Email, Value: anna@example.com}
//	remote:
//	  - parts:
//	      - {status: 404, body: '{"error":{"message":"not found"}}'}
//	  - parts:
//	      - {status: 201, body: '{"Id":101}'}
//	assertions:
//	  - type: record_state
//	    ref: member-101
//	    state: done
//
// A document scenario replaces records with a document and a mode:
//
//	document:
//	  key: "900"
//	  lines:
//	    - {article: FEE, name: Course fee, quantity: "2", price: "6.25"}
//	mode: batch
//
// Each remote entry answers one call in order. Parts answer a $batch call;
// status and body alone answer a single call or reject a batch as a whole;
// error makes the exchange itself fail.
//
// # Assertion Types
//
//   - record_state: a record ended in a state, optionally with a remote key
//   - failure: a record has a failed attempt for a target (status, error shape, message)
//   - round_trips: the number of calls the remote received
//   - request_order: the exact "METHOD path" list of one call
//   - run_error: the run error code, or "none"
//   - document: key, finalization and total of a submission
//   - journal: the number of failed outcomes written to the journal
//
// # Deterministic Testing
//
// Every scenario runs with a fixed boundary, run ID, token and report
// timestamp, against a fresh in-memory journal. The same scenario always
// sends the same bytes, which RunWithGolden compares against
// testdata/golden/{name}.golden.
package harness
