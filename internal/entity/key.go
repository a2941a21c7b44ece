package entity

import (
	"net/url"
	"strings"

	"github.com/roach88/clubsync/internal/ir"
)

// IDField is the key field of every entity.
const IDField = "Id"

// Key is a record key as the remote system knows it. The empty Key means
// "no key yet".
type Key string

// IsZero reports an empty key.
func (k Key) IsZero() bool { return k == "" }

// Literal formats k for a key predicate: digit-only keys bare, everything
// else single-quoted with quotes doubled and unsafe bytes escaped.
func (k Key) Literal() string {
	s := string(k)
	if isDigits(s) {
		return s
	}
	parts := strings.Split(s, "'")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return "'" + strings.Join(parts, "''") + "'"
}

// Value returns k as a field value: Int for digit-only keys that fit,
// String otherwise.
func (k Key) Value() ir.Value {
	if isDigits(string(k)) {
		if v, err := ir.ParseJSON([]byte(k)); err == nil {
			if i, ok := v.(ir.Int); ok {
				return i
			}
		}
	}
	return ir.String(k)
}

// KeyOf reads the Id field of obj.
func KeyOf(obj *ir.Object) Key {
	v, ok := obj.GetFold(IDField)
	if !ok || ir.IsBlank(v) {
		return ""
	}
	return Key(ir.Text(v))
}

func isDigits(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Path addresses one record of kind k.
func Path(k Kind, key Key) string {
	return k.EntitySet() + "(" + IDField + "=" + key.Literal() + ")"
}
