package batch

import (
	"net/http"

	"github.com/roach88/clubsync/internal/ir"
)

// Method is an HTTP method allowed inside a batch part.
type Method string

// Methods supported by the accounting API's batch endpoint.
const (
	MethodGet   Method = http.MethodGet
	MethodPost  Method = http.MethodPost
	MethodPatch Method = http.MethodPatch
)

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPatch:
		return true
	}
	return false
}

// Request is one logical sub-request of a batch.
type Request struct {
	// Method is GET, POST or PATCH.
	Method Method

	// Path is relative to the mandant service root, e.g.
	// "Subjects(Id=7)?$expand=Addresses".
	Path string

	// Fields is the JSON body. Ignored for GET. A nil map on POST/PATCH
	// encodes as {}.
	Fields *ir.Object

	// Ref points back at whatever produced the request. It is never
	// serialized; it only exists so results can be attributed locally.
	Ref any
}

// Result is the decoded answer to one Request.
type Result struct {
	// Status is the nested HTTP status code of the part.
	Status int

	// Reason is the reason phrase of the nested status line.
	Reason string

	// Header holds the nested response headers.
	Header http.Header

	// Body is the raw nested body, possibly empty.
	Body []byte

	// Parsed is the body decoded as JSON, or nil when the body is empty or
	// not valid JSON (HTML error pages, plain text).
	Parsed ir.Value

	// Request is the request this result answers. Set by Bind.
	Request *Request
}

// OK reports a 2xx status.
func (r *Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// NotFound reports a 404 status.
func (r *Result) NotFound() bool {
	return r.Status == http.StatusNotFound
}

// Object returns Parsed as an object, if it is one.
func (r *Result) Object() (*ir.Object, bool) {
	obj, ok := r.Parsed.(*ir.Object)
	return obj, ok && obj != nil
}
