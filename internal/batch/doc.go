// Package batch encodes logical requests into a multipart/mixed $batch
// envelope and decodes the multipart response back into logical results.
//
// # Wire format
//
// Each request becomes one part:
//
//	--{boundary}
//	Content-Type: application/http
//	Content-Transfer-Encoding: binary
//
//	POST Subjects HTTP/1.1
//	Content-Type: application/json
//	Accept: application/json
//
//	{"Id":"7","Name":"Muster"}
//	--{boundary}--
//
// All line ends are CRLF. GET parts end after the blank line that closes
// the sub-headers; they carry no body line at all.
//
// # Ordering
//
// The protocol has no request ids. The n-th part of the response answers the
// n-th part of the request, so Decode preserves part order and Bind refuses
// to pair lists of different length (ErrStructural). Everything downstream
// (correlation, per-record outcomes) depends on this positional invariant.
//
// # Boundaries
//
// Request boundaries come from a BoundaryGenerator. RandomBoundary derives a
// fresh token from a random UUID for every envelope; bodies are never scanned
// for collisions. FixedBoundary exists for byte-exact tests.
package batch
