// Package outcome turns decoded batch results into per-request outcomes.
//
// A failed result becomes one of two error shapes. StructuredError when the
// body carries a recognisable message, RawError when it does not (HTML
// pages, empty bodies, JSON without a message). Callers switch on the type;
// a message is never guaranteed.
package outcome

import (
	"fmt"
	"strings"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/ir"
)

// Echo identifies the request an outcome answers, without the local
// context reference.
type Echo struct {
	Method string
	Path   string
	Fields *ir.Object
}

// EchoOf copies the wire-visible parts of req.
func EchoOf(req *batch.Request) Echo {
	if req == nil {
		return Echo{}
	}
	return Echo{Method: string(req.Method), Path: req.Path, Fields: req.Fields}
}

func (e Echo) String() string {
	return e.Method + " " + e.Path
}

// RemoteError is either *StructuredError or *RawError.
type RemoteError interface {
	error
	Status() int
	Echo() Echo
	remoteError()
}

// StructuredError is a failure whose body carried a message.
type StructuredError struct {
	Message    string
	Code       string
	StatusCode int
	Request    Echo

	// Details holds the remainder of the error envelope (inner errors,
	// per-field details) when present.
	Details ir.Value
}

func (*StructuredError) remoteError() {}

// Status returns the HTTP status, 0 for failures detected locally.
func (e *StructuredError) Status() int { return e.StatusCode }

// Echo returns the failed request.
func (e *StructuredError) Echo() Echo { return e.Request }

func (e *StructuredError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Request, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %d: %s", e.Request, e.StatusCode, e.Message)
}

// RawError is a failure whose body could not be read as a structured
// error. Body may be empty.
type RawError struct {
	StatusCode int
	Request    Echo
	Body       []byte
}

func (*RawError) remoteError() {}

// Status returns the HTTP status.
func (e *RawError) Status() int { return e.StatusCode }

// Echo returns the failed request.
func (e *RawError) Echo() Echo { return e.Request }

func (e *RawError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 120 {
		body = body[:120] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: %d (empty body)", e.Request, e.StatusCode)
	}
	return fmt.Sprintf("%s: %d: %s", e.Request, e.StatusCode, body)
}

// Outcome is the result of one request as seen by the domain object that
// issued it.
type Outcome struct {
	Success bool
	Status  int
	Request Echo

	// Body is the parsed response body of a success, if any.
	Body ir.Value

	// Err is set iff Success is false.
	Err RemoteError
}

// Message returns the structured error message, if there is one.
func (o Outcome) Message() (string, bool) {
	se, ok := o.Err.(*StructuredError)
	if !ok {
		return "", false
	}
	return se.Message, true
}

// Normalize classifies a decoded result.
func Normalize(res *batch.Result) Outcome {
	out := Outcome{
		Success: res.OK(),
		Status:  res.Status,
		Request: EchoOf(res.Request),
	}
	if out.Success {
		out.Body = res.Parsed
		return out
	}
	if se := structured(res.Parsed); se != nil {
		se.StatusCode = res.Status
		se.Request = out.Request
		out.Err = se
		return out
	}
	out.Err = &RawError{StatusCode: res.Status, Request: out.Request, Body: res.Body}
	return out
}

// Local builds a failed outcome for a request that was never sent, such as
// a record missing a required field.
func Local(req *batch.Request, err error) Outcome {
	echo := EchoOf(req)
	return Outcome{
		Request: echo,
		Err: &StructuredError{
			Message: err.Error(),
			Code:    CodeLocal,
			Request: echo,
		},
	}
}

// CodeLocal marks errors raised before a request reached the remote system.
const CodeLocal = "LOCAL"

// Envelope keys the remote system has used for its error object over time.
var envelopeKeys = []string{"error", "odata.error"}

// structured extracts a message from the error envelopes the accounting
// system is known to produce:
//
//	{"error": {"code": "...", "message": "..."}}
//	{"odata.error": {"code": "...", "message": {"lang": "de", "value": "..."}}}
//	{"Error": {"Code": "...", "Message": "..."}}
//	{"error": "...", "error_description": "..."}
//	{"Message": "..."}
//
// Keys match case-insensitively. Returns nil when no message is found.
func structured(v ir.Value) *StructuredError {
	obj, ok := v.(*ir.Object)
	if !ok || obj == nil {
		return nil
	}

	for _, key := range envelopeKeys {
		inner, ok := obj.GetFold(key)
		if !ok {
			continue
		}
		switch env := inner.(type) {
		case *ir.Object:
			if se := fromObject(env); se != nil {
				return se
			}
		case ir.String:
			msg := string(env)
			if desc, ok := obj.GetFold("error_description"); ok && !ir.IsBlank(desc) {
				return &StructuredError{Message: ir.Text(desc), Code: msg}
			}
			if strings.TrimSpace(msg) != "" {
				return &StructuredError{Message: msg}
			}
		}
	}
	return fromObject(obj)
}

func fromObject(obj *ir.Object) *StructuredError {
	raw, ok := obj.GetFold("message")
	if !ok {
		return nil
	}
	msg := messageText(raw)
	if strings.TrimSpace(msg) == "" {
		return nil
	}

	se := &StructuredError{Message: msg}
	if code, ok := obj.GetFold("code"); ok {
		se.Code = ir.Text(code)
	}
	rest := obj.Clone()
	for _, k := range rest.Keys() {
		if strings.EqualFold(k, "message") || strings.EqualFold(k, "code") {
			rest.Delete(k)
		}
	}
	if rest.Len() > 0 {
		se.Details = rest
	}
	return se
}

func messageText(v ir.Value) string {
	if obj, ok := v.(*ir.Object); ok {
		if inner, ok := obj.GetFold("value"); ok {
			return ir.Text(inner)
		}
		return ""
	}
	return ir.Text(v)
}
