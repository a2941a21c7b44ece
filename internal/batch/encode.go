package batch

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/roach88/clubsync/internal/ir"
)

const crlf = "\r\n"

// Envelope is an encoded request batch ready to POST.
type Envelope struct {
	Boundary string
	Body     []byte
}

// ContentType returns the Content-Type header value for the envelope.
func (e Envelope) ContentType() string {
	return ContentType(e.Boundary)
}

// ContentType formats a multipart/mixed content type for boundary.
func ContentType(boundary string) string {
	return "multipart/mixed;boundary=" + boundary
}

// ParseContentType extracts the boundary from a multipart/mixed
// Content-Type header value.
func ParseContentType(value string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return "", fmt.Errorf("%w: content type %q: %v", ErrStructural, value, err)
	}
	if mediaType != "multipart/mixed" {
		return "", fmt.Errorf("%w: content type %q is not multipart/mixed", ErrStructural, value)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", fmt.Errorf("%w: content type %q has no boundary", ErrStructural, value)
	}
	return boundary, nil
}

// Encoder packs requests into envelopes with boundaries from gen.
type Encoder struct {
	gen BoundaryGenerator
}

// NewEncoder creates an Encoder. A nil gen defaults to RandomBoundary.
func NewEncoder(gen BoundaryGenerator) *Encoder {
	if gen == nil {
		gen = RandomBoundary{}
	}
	return &Encoder{gen: gen}
}

// Encode packs reqs under a fresh boundary.
func (e *Encoder) Encode(reqs []*Request) (Envelope, error) {
	boundary := e.gen.Generate()
	body, err := Encode(reqs, boundary)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Boundary: boundary, Body: body}, nil
}

// Encode writes one part per request, in order, and closes the envelope.
// The output is byte-identical for identical input.
func Encode(reqs []*Request, boundary string) ([]byte, error) {
	if boundary == "" || strings.ContainsAny(boundary, "\r\n") {
		return nil, fmt.Errorf("%w: boundary %q", ErrInvalidRequest, boundary)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidRequest)
	}

	var buf bytes.Buffer
	for i, req := range reqs {
		if err := writePart(&buf, boundary, req); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
	}
	buf.WriteString("--" + boundary + "--" + crlf)
	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, boundary string, req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if !req.Method.Valid() {
		return fmt.Errorf("%w: method %q", ErrInvalidRequest, req.Method)
	}
	if req.Path == "" || strings.ContainsAny(req.Path, " \r\n") {
		return fmt.Errorf("%w: path %q", ErrInvalidRequest, req.Path)
	}

	buf.WriteString("--" + boundary + crlf)
	buf.WriteString("Content-Type: application/http" + crlf)
	buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
	buf.WriteString(crlf)

	buf.WriteString(string(req.Method) + " " + req.Path + " HTTP/1.1" + crlf)
	buf.WriteString("Content-Type: application/json" + crlf)
	buf.WriteString("Accept: application/json" + crlf)
	buf.WriteString(crlf)

	if req.Method == MethodGet {
		return nil
	}
	body, err := ir.Marshal(req.Fields)
	if err != nil {
		return fmt.Errorf("%w: body: %v", ErrInvalidRequest, err)
	}
	buf.Write(body)
	buf.WriteString(crlf)
	return nil
}
