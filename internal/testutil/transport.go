package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/transport"
)

// ResponseBoundary is the boundary the scripted remote uses for every
// response envelope. It deliberately differs from request boundaries.
const ResponseBoundary = "batchresponse_test"

// Call is one exchange seen by a ScriptedTransport.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Boundary and Requests are set when Body is a multipart request
	// envelope that decodes cleanly.
	Boundary string
	Requests []*batch.Request
}

// Step answers one exchange.
type Step func(call *Call) (*transport.Response, error)

// ErrScriptExhausted is returned when more exchanges happen than steps
// were scripted.
var ErrScriptExhausted = errors.New("testutil: scripted transport has no more steps")

// ScriptedTransport plays back a fixed sequence of steps, one per Execute,
// and records every call.
//
// Thread-safety: safe for concurrent use via internal mutex.
type ScriptedTransport struct {
	mu    sync.Mutex
	steps []Step
	calls []*Call
}

// NewScriptedTransport creates a transport that answers with steps in order.
func NewScriptedTransport(steps ...Step) *ScriptedTransport {
	return &ScriptedTransport{steps: steps}
}

// Then appends more steps.
func (s *ScriptedTransport) Then(steps ...Step) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
	return s
}

// Execute implements transport.Transport.
func (s *ScriptedTransport) Execute(_ context.Context, method, url string, header http.Header, body []byte) (*transport.Response, error) {
	call := &Call{Method: method, URL: url, Header: header.Clone(), Body: append([]byte(nil), body...)}
	if boundary, err := batch.ParseContentType(header.Get("Content-Type")); err == nil {
		call.Boundary = boundary
		if reqs, err := batch.DecodeRequests(body, boundary); err == nil {
			call.Requests = reqs
		}
	}

	s.mu.Lock()
	idx := len(s.calls)
	s.calls = append(s.calls, call)
	var step Step
	if idx < len(s.steps) {
		step = s.steps[idx]
	}
	s.mu.Unlock()

	if step == nil {
		return nil, fmt.Errorf("%w (call %d: %s %s)", ErrScriptExhausted, idx+1, method, url)
	}
	return step(call)
}

// Calls returns the recorded calls in order.
func (s *ScriptedTransport) Calls() []*Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Call(nil), s.calls...)
}

// BatchCalls returns only the $batch calls.
func (s *ScriptedTransport) BatchCalls() []*Call {
	var out []*Call
	for _, c := range s.Calls() {
		if strings.HasSuffix(c.URL, "/$batch") {
			out = append(out, c)
		}
	}
	return out
}

// Reply answers a batch call with the given parts, in order, whatever was
// asked. Use it to script count mismatches as well as normal answers.
func Reply(parts ...*batch.Result) Step {
	return func(*Call) (*transport.Response, error) {
		return MultipartResponse(parts...)
	}
}

// Respond answers a batch call by computing one part per decoded request.
func Respond(fn func(i int, req *batch.Request) *batch.Result) Step {
	return func(call *Call) (*transport.Response, error) {
		if call.Requests == nil {
			return nil, fmt.Errorf("testutil: %s %s is not a decodable batch", call.Method, call.URL)
		}
		parts := make([]*batch.Result, len(call.Requests))
		for i, req := range call.Requests {
			parts[i] = fn(i, req)
		}
		return MultipartResponse(parts...)
	}
}

// Single answers a non-batch call with one plain response.
func Single(part *batch.Result) Step {
	return func(*Call) (*transport.Response, error) {
		header := part.Header.Clone()
		if header == nil {
			header = http.Header{}
		}
		return &transport.Response{Status: part.Status, Header: header, Body: part.Body}, nil
	}
}

// Status answers with a bare status and body, no multipart envelope.
func Status(code int, body string) Step {
	return func(*Call) (*transport.Response, error) {
		return &transport.Response{Status: code, Header: http.Header{}, Body: []byte(body)}, nil
	}
}

// Fail makes the exchange itself fail.
func Fail(err error) Step {
	return func(*Call) (*transport.Response, error) {
		return nil, err
	}
}

// MultipartResponse builds a 202 batch response carrying parts.
func MultipartResponse(parts ...*batch.Result) (*transport.Response, error) {
	body, err := batch.EncodeResponses(parts, ResponseBoundary)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Content-Type", batch.ContentType(ResponseBoundary))
	return &transport.Response{Status: http.StatusAccepted, Header: header, Body: body}, nil
}

// JSON is a part with a JSON body.
func JSON(status int, body string) *batch.Result {
	return &batch.Result{
		Status: status,
		Header: http.Header{"Content-Type": {"application/json; charset=utf-8"}},
		Body:   []byte(body),
	}
}

// Empty is a part with a status line and no body.
func Empty(status int) *batch.Result {
	return &batch.Result{Status: status}
}

// HTML is a part carrying an HTML error page.
func HTML(status int, page string) *batch.Result {
	return &batch.Result{
		Status: status,
		Header: http.Header{"Content-Type": {"text/html"}},
		Body:   []byte(page),
	}
}

// ValidationError is a 400 part in the remote system's structured error
// shape.
func ValidationError(message string) *batch.Result {
	return JSON(http.StatusBadRequest, fmt.Sprintf(`{"error":{"code":"ValidationFailed","message":%q}}`, message))
}
