package ir

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Scales used for money on the wire.
const (
	// AmountScale is the number of fractional digits for currency amounts.
	AmountScale = 2

	// QuantityScale is the number of fractional digits for quantities.
	QuantityScale = 3
)

// decimalContext rounds half-up, the commercial rounding rule the
// accounting system applies to amounts.
var decimalContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// Decimal is an immutable fixed-point number.
//
// The zero value is 0. Decimal serializes as a JSON number literal built from
// its digits (e.g. 12.50), never through float64, so client and remote agree
// on every digit.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) irValue() {}

// ParseDecimal parses a decimal string such as "12.5" or "-0.05".
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("parse decimal %q: not a finite number", s)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is like ParseDecimal but panics on error. Intended for tests
// and constants.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromInt converts an integer to a Decimal with exponent 0.
func DecimalFromInt(n int64) Decimal {
	return Decimal{d: apd.New(n, 0)}
}

func (d Decimal) raw() *apd.Decimal {
	if d.d == nil {
		return apd.New(0, 0)
	}
	return d.d
}

// Quantize rounds d half-up to exactly scale fractional digits.
func (d Decimal) Quantize(scale int32) (Decimal, error) {
	out := new(apd.Decimal)
	if _, err := decimalContext.Quantize(out, d.raw(), -scale); err != nil {
		return Decimal{}, fmt.Errorf("quantize %s to %d places: %w", d, scale, err)
	}
	if out.IsZero() {
		// -0.00 and 0.00 are the same amount on the wire.
		out.Negative = false
	}
	return Decimal{d: out}, nil
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) (Decimal, error) {
	out := new(apd.Decimal)
	if _, err := decimalContext.Add(out, d.raw(), other.raw()); err != nil {
		return Decimal{}, fmt.Errorf("add %s + %s: %w", d, other, err)
	}
	return Decimal{d: out}, nil
}

// Mul returns d * other.
func (d Decimal) Mul(other Decimal) (Decimal, error) {
	out := new(apd.Decimal)
	if _, err := decimalContext.Mul(out, d.raw(), other.raw()); err != nil {
		return Decimal{}, fmt.Errorf("mul %s * %s: %w", d, other, err)
	}
	return Decimal{d: out}, nil
}

// Cmp compares numerically: -1, 0 or +1. 1.5 and 1.50 compare equal.
func (d Decimal) Cmp(other Decimal) int {
	return d.raw().Cmp(other.raw())
}

// IsZero reports whether d is numerically zero.
func (d Decimal) IsZero() bool {
	return d.raw().IsZero()
}

// String returns the plain (non-exponent) representation, keeping trailing
// zeros: Quantize(2) of 12.5 prints "12.50".
func (d Decimal) String() string {
	return d.raw().Text('f')
}

// MarshalJSON emits the decimal digits as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}
