package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/roach88/clubsync/internal/ir"
)

// Decode splits a multipart response body on boundary and parses each part
// as an HTTP response. Results come back in part order with Request unset;
// use Bind to pair them with the submitted requests.
//
// Parts without a body (404s, 204s) and parts whose body is not JSON (HTML
// error pages) decode fine; only their Parsed field stays nil.
func Decode(body []byte, boundary string) ([]*Result, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: empty boundary", ErrStructural)
	}
	parts, err := splitParts(body, []byte("--"+boundary))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}

	results := make([]*Result, 0, len(parts))
	for i, part := range parts {
		res, err := decodePart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %v", ErrStructural, i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Bind pairs results with the requests that produced them, by position.
// A count mismatch means positional attribution is impossible.
func Bind(reqs []*Request, results []*Result) error {
	if len(reqs) != len(results) {
		return fmt.Errorf("%w: submitted %d requests, received %d results", ErrStructural, len(reqs), len(results))
	}
	for i := range results {
		results[i].Request = reqs[i]
	}
	return nil
}

// splitParts returns the content of every body part between the first
// delimiter and the close delimiter. A delimiter only counts at the start of
// a line. The CRLF preceding a delimiter belongs to the delimiter and is
// stripped from the part.
func splitParts(body, delim []byte) ([][]byte, error) {
	pos := indexDelimiter(body, delim, 0)
	if pos < 0 {
		return nil, errors.New("no opening delimiter")
	}

	var parts [][]byte
	for {
		after := pos + len(delim)
		if bytes.HasPrefix(body[after:], []byte("--")) {
			return parts, nil
		}
		nl := bytes.IndexByte(body[after:], '\n')
		if nl < 0 {
			return nil, errors.New("unterminated delimiter line")
		}
		start := after + nl + 1

		next := indexDelimiter(body, delim, start)
		if next < 0 {
			return nil, errors.New("missing close delimiter")
		}
		parts = append(parts, trimLineEnd(body[start:next]))
		pos = next
	}
}

func indexDelimiter(body, delim []byte, from int) int {
	for i := from; i <= len(body)-len(delim); {
		j := bytes.Index(body[i:], delim)
		if j < 0 {
			return -1
		}
		at := i + j
		if (at == 0 || body[at-1] == '\n') && delimiterEnds(body[at+len(delim):]) {
			return at
		}
		i = at + 1
	}
	return -1
}

// delimiterEnds reports whether the bytes after a candidate delimiter end
// it: the close marker, transport padding or the line break.
func delimiterEnds(rest []byte) bool {
	if len(rest) == 0 {
		return true
	}
	switch rest[0] {
	case '-', '\r', '\n', ' ', '\t':
		return true
	}
	return false
}

func trimLineEnd(b []byte) []byte {
	if bytes.HasSuffix(b, []byte("\r\n")) {
		return b[:len(b)-2]
	}
	return bytes.TrimSuffix(b, []byte("\n"))
}

// splitHead separates a header block from what follows the first blank
// line. ok is false when there is no blank line.
func splitHead(b []byte) (head, rest []byte, ok bool) {
	// A leading blank line means an empty header block.
	if bytes.HasPrefix(b, []byte("\r\n")) {
		return nil, b[2:], true
	}
	if bytes.HasPrefix(b, []byte("\n")) {
		return nil, b[1:], true
	}
	crlfAt := bytes.Index(b, []byte("\r\n\r\n"))
	lfAt := bytes.Index(b, []byte("\n\n"))
	switch {
	case crlfAt >= 0 && (lfAt < 0 || crlfAt < lfAt):
		return b[:crlfAt], b[crlfAt+4:], true
	case lfAt >= 0:
		return b[:lfAt], b[lfAt+2:], true
	}
	return b, nil, false
}

func decodePart(part []byte) (*Result, error) {
	outerHead, nested, ok := splitHead(part)
	if !ok {
		return nil, errors.New("part has no header terminator")
	}
	outer, err := parseHeaderLines(splitLines(outerHead))
	if err != nil {
		return nil, fmt.Errorf("part headers: %w", err)
	}
	if ct := outer.Get("Content-Type"); strings.HasPrefix(strings.ToLower(ct), "multipart/") {
		return nil, fmt.Errorf("nested multipart part (%s) is not supported", ct)
	}

	// The nested response may lack the blank line when it has neither
	// headers nor body; treat everything as head in that case.
	head, body, _ := splitHead(nested)
	lines := splitLines(head)
	if len(lines) == 0 {
		return nil, errors.New("empty nested response")
	}
	status, reason, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}
	header, err := parseHeaderLines(lines[1:])
	if err != nil {
		return nil, fmt.Errorf("nested headers: %w", err)
	}

	res := &Result{
		Status: status,
		Reason: reason,
		Header: header,
		Body:   body,
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && json.Valid(trimmed) {
		if parsed, err := ir.ParseJSON(trimmed); err == nil {
			res.Parsed = parsed
		}
	}
	return res, nil
}

func splitLines(head []byte) []string {
	text := strings.ReplaceAll(string(head), "\r\n", "\n")
	text = strings.TrimLeft(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func parseStatusLine(line string) (int, string, error) {
	proto, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return 0, "", fmt.Errorf("malformed status line %q", line)
	}
	codeText, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeText)
	if err != nil || code < 100 || code > 999 {
		return 0, "", fmt.Errorf("malformed status code in %q", line)
	}
	return code, reason, nil
}

func parseHeaderLines(lines []string) (http.Header, error) {
	header := make(http.Header, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		header.Add(textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
	return header, nil
}
