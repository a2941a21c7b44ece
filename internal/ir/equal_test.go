package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("x"), String("x"), true},
		{"different string", String("x"), String("y"), false},
		{"nfc vs nfd", String("\u00e9"), String("e\u0301"), true},
		{"int vs decimal", Int(5), MustDecimal("5.00"), true},
		{"decimal scale", MustDecimal("1.5"), MustDecimal("1.50"), true},
		{"decimal differs", MustDecimal("1.5"), MustDecimal("1.51"), false},
		{"null vs nil", Null{}, nil, true},
		{"null vs blank", Null{}, String(""), true},
		{"null vs value", Null{}, String("x"), false},
		{"date vs string", Date{Year: 2024, Month: 3, Day: 1}, String("2024-03-01T00:00:00"), true},
		{"string vs date", String("2024-03-02"), Date{Year: 2024, Month: 3, Day: 1}, false},
		{"int vs numeric string", Int(8000), String("8000"), true},
		{"decimal vs numeric string", MustDecimal("19.90"), String("19.9"), true},
		{"int vs other number string", Int(8000), String("8001"), false},
		{"leading zero string is not a number", Int(8000), String("08000"), false},
		{"exponent string is not a number", Int(8000), String("8e3"), false},
		{"padded string is not a number", Int(8000), String(" 8000"), false},
		{"bool", Bool(true), Bool(true), true},
		{"bool vs string", Bool(true), String("true"), false},
		{"arrays", Array{Int(1), String("a")}, Array{Int(1), String("a")}, true},
		{"array length", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{
			"objects ignore key order",
			NewObject(O("a", Int(1)), O("b", Int(2))),
			NewObject(O("b", Int(2)), O("a", Int(1))),
			true,
		},
		{
			"objects differ",
			NewObject(O("a", Int(1))),
			NewObject(O("a", Int(2))),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}
