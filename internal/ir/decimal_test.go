package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal("12.345")
	require.NoError(t, err)
	assert.Equal(t, "12.345", d.String())

	_, err = ParseDecimal("twelve")
	assert.Error(t, err)

	_, err = ParseDecimal("NaN")
	assert.Error(t, err)
}

func TestDecimalQuantizeRoundsHalfUp(t *testing.T) {
	tests := []struct {
		in    string
		scale int32
		want  string
	}{
		{"12.345", 2, "12.35"},
		{"12.344", 2, "12.34"},
		{"12.5", 2, "12.50"},
		{"7", 2, "7.00"},
		{"-0.004", 2, "0.00"},
		{"-1.005", 2, "-1.01"},
		{"1.0005", 3, "1.001"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := MustDecimal(tt.in).Quantize(tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestDecimalArithmetic(t *testing.T) {
	sum, err := MustDecimal("0.10").Add(MustDecimal("0.20"))
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Cmp(MustDecimal("0.3")))

	prod, err := MustDecimal("3").Mul(MustDecimal("19.95"))
	require.NoError(t, err)
	assert.Equal(t, "59.85", prod.String())
}

func TestDecimalZeroValue(t *testing.T) {
	var d Decimal

	assert.True(t, d.IsZero())
	assert.Equal(t, "0", d.String())
	assert.Equal(t, 0, d.Cmp(DecimalFromInt(0)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: 3, Day: 1}, d)

	withTime, err := ParseDate("2024-03-01T00:00:00")
	require.NoError(t, err)
	assert.Equal(t, d, withTime)

	_, err = ParseDate("01.03.2024")
	assert.Error(t, err)
}
