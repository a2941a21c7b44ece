package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces the wire JSON for a value.
//
// Key differences from standard json.Marshal:
//  1. Object keys keep insertion order (not sorted, not map order)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Decimals are written from their digits, never via float64
//
// The same value always marshals to the same bytes.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return marshalString(buf, string(val))
	case Int:
		fmt.Fprintf(buf, "%d", int64(val))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Decimal:
		buf.WriteString(val.String())
	case Date:
		buf.WriteString(`"` + val.String() + `"`)
	case Array:
		return marshalArray(buf, val)
	case *Object:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("unsupported value type: %T", v)
	}
	return nil
}

// marshalString writes a JSON string with NFC normalization and without
// HTML escaping.
func marshalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func marshalArray(buf *bytes.Buffer, arr Array) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalValue(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj *Object) error {
	buf.WriteByte('{')
	for i, p := range obj.Pairs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, p.Key); err != nil {
			return fmt.Errorf("key %q: %w", p.Key, err)
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, p.Value); err != nil {
			return fmt.Errorf("value for key %q: %w", p.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}
