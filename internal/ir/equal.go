package ir

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// plainNumber matches numbers written without sign noise, exponent or
// leading zeros. "08000" is a code, not a number.
var plainNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)

// Equal reports whether two values carry the same content as far as the
// remote system is concerned.
//
// Comparison rules:
//   - nil, Null and a missing value are equal to each other, and to a blank string
//   - strings compare after NFC normalization
//   - Int and Decimal compare numerically (5 == 5.00)
//   - a number equals a String spelling it plainly ("8000" == 8000, "08000" != 8000)
//   - a Date equals a String holding the same date, with or without time part
//   - arrays compare element-wise, objects key-wise ignoring key order
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsBlank(a) && IsBlank(b)
	}

	switch av := a.(type) {
	case String:
		switch bv := b.(type) {
		case String:
			return norm.NFC.String(string(av)) == norm.NFC.String(string(bv))
		case Date:
			return dateEqualsString(bv, string(av))
		case Int, Decimal:
			return numberEqualsString(b, string(av))
		}
		return false
	case Date:
		switch bv := b.(type) {
		case Date:
			return av == bv
		case String:
			return dateEqualsString(av, string(bv))
		}
		return false
	case Int, Decimal:
		if bv, ok := b.(String); ok {
			return numberEqualsString(a, string(bv))
		}
		ad, ok := asDecimal(a)
		if !ok {
			return false
		}
		bd, ok := asDecimal(b)
		if !ok {
			return false
		}
		return ad.Cmp(bd) == 0
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, p := range av.Pairs() {
			other, ok := bv.Get(p.Key)
			if !ok || !Equal(p.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

func asDecimal(v Value) (Decimal, bool) {
	switch val := v.(type) {
	case Int:
		return DecimalFromInt(int64(val)), true
	case Decimal:
		return val, true
	}
	return Decimal{}, false
}

func dateEqualsString(d Date, s string) bool {
	parsed, err := ParseDate(s)
	if err != nil {
		return false
	}
	return parsed == d
}

func numberEqualsString(n Value, s string) bool {
	if !plainNumber.MatchString(s) {
		return false
	}
	parsed, err := ParseDecimal(s)
	if err != nil {
		return false
	}
	d, ok := asDecimal(n)
	return ok && d.Cmp(parsed) == 0
}
