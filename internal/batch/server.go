package batch

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/roach88/clubsync/internal/ir"
)

// The functions in this file implement the remote side of the envelope.
// The client never calls them; test doubles standing in for the accounting
// system do.

// DecodeRequests parses a request envelope back into requests, in order.
// Ref is always nil on the returned requests.
func DecodeRequests(body []byte, boundary string) ([]*Request, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: empty boundary", ErrStructural)
	}
	parts, err := splitParts(body, []byte("--"+boundary))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	reqs := make([]*Request, 0, len(parts))
	for i, part := range parts {
		req, err := decodeRequestPart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrStructural, i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func decodeRequestPart(part []byte) (*Request, error) {
	_, nested, ok := splitHead(part)
	if !ok {
		return nil, errors.New("part has no header terminator")
	}
	head, body, _ := splitHead(nested)
	lines := splitLines(head)
	if len(lines) == 0 {
		return nil, errors.New("empty nested request")
	}
	fields := strings.Fields(lines[0])
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return nil, fmt.Errorf("malformed request line %q", lines[0])
	}
	req := &Request{Method: Method(fields[0]), Path: fields[1]}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("unsupported method %q", fields[0])
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		v, err := ir.ParseJSON(trimmed)
		if err != nil {
			return nil, fmt.Errorf("request body: %w", err)
		}
		obj, ok := v.(*ir.Object)
		if !ok {
			return nil, fmt.Errorf("request body is %T, want object", v)
		}
		req.Fields = obj
	}
	return req, nil
}

// EncodeResponses writes results as a response envelope, one part per
// result, in order. Only Status, Reason, Header and Body are used. Headers
// are written in sorted key order so the output is reproducible.
func EncodeResponses(results []*Result, boundary string) ([]byte, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: empty boundary", ErrInvalidRequest)
	}

	var buf bytes.Buffer
	for _, res := range results {
		buf.WriteString("--" + boundary + crlf)
		buf.WriteString("Content-Type: application/http" + crlf)
		buf.WriteString("Content-Transfer-Encoding: binary" + crlf)
		buf.WriteString(crlf)

		reason := res.Reason
		if reason == "" {
			reason = http.StatusText(res.Status)
		}
		fmt.Fprintf(&buf, "HTTP/1.1 %d %s%s", res.Status, reason, crlf)

		keys := make([]string, 0, len(res.Header))
		for k := range res.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range res.Header[k] {
				buf.WriteString(k + ": " + v + crlf)
			}
		}
		buf.WriteString(crlf)
		if len(res.Body) > 0 {
			buf.Write(res.Body)
			buf.WriteString(crlf)
		}
	}
	buf.WriteString("--" + boundary + "--" + crlf)
	return buf.Bytes(), nil
}
