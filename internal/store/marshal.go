package store

import (
	"fmt"
	"time"

	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/outcome"
)

// timeLayout is used for the wall-clock columns. Fixed width, so the text
// sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// marshalFields converts a request body to deterministic JSON TEXT and its
// fingerprint.
func marshalFields(fields *ir.Object) (text, fingerprint string, err error) {
	data, err := ir.Marshal(fields)
	if err != nil {
		return "", "", fmt.Errorf("marshal fields: %w", err)
	}
	fingerprint, err = ir.FieldsFingerprint(fields)
	if err != nil {
		return "", "", err
	}
	return string(data), fingerprint, nil
}

// unmarshalFields parses stored JSON TEXT back into an ordered object.
func unmarshalFields(data string) (*ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.NewObject(), nil
	}
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	obj, ok := v.(*ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal fields: stored %T, want object", v)
	}
	return obj, nil
}

// errorText extracts what the journal keeps of a failure: the structured
// message if there is one, otherwise the raw body.
func errorText(o outcome.Outcome) (message, body string) {
	switch err := o.Err.(type) {
	case *outcome.StructuredError:
		return err.Message, ""
	case *outcome.RawError:
		return "", string(err.Body)
	}
	return "", ""
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
