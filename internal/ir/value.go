package ir

import (
	"fmt"
	"strings"
)

// Value is a sealed interface representing the field types the accounting
// API accepts. Only Null, String, Int, Bool, Decimal, Date, Array and *Object
// implement it.
// There is deliberately no float type: amounts travel as Decimal.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a JSON null value.
type Null struct{}

func (Null) irValue() {}

// String represents a string value.
type String string

func (String) irValue() {}

// Int represents an integer value.
// Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Pair is a key-value pair for ordered Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair for ergonomic construction.
// Example: NewObject(O("Name", String("Muster")), O("Zip", String("8000")))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// IsBlank reports whether v carries no usable content: nil, Null, or a
// string that is empty after trimming spaces.
func IsBlank(v Value) bool {
	if IsNull(v) {
		return true
	}
	if s, ok := v.(String); ok {
		return strings.TrimSpace(string(s)) == ""
	}
	return false
}

// Text renders a scalar value as plain text (no JSON quoting).
// Used for key literals and log output.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return ""
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case Decimal:
		return val.String()
	case Date:
		return val.String()
	default:
		b, err := Marshal(v)
		if err != nil {
			return fmt.Sprintf("%T", v)
		}
		return string(b)
	}
}
