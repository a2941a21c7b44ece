package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseJSON decodes a JSON document into a Value.
//
// Object key order is preserved. Integral numbers become Int; numbers with a
// fraction or exponent (or outside the int64 range) become Decimal. JSON
// strings stay String even when they look like dates; Equal knows how to
// compare a String against a Date.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	// Reject trailing garbage such as `{}{}`.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return parseNumber(t)
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

func parseObject(dec *json.Decoder) (*Object, error) {
	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, want string", tok)
		}
		val, err := parseValue(dec)
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", key, err)
		}
		obj.Set(key, val)
	}
	// consume '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Array, error) {
	arr := Array{}
	for dec.More() {
		val, err := parseValue(dec)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", len(arr), err)
		}
		arr = append(arr, val)
	}
	// consume ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func parseNumber(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	return ParseDecimal(s)
}
