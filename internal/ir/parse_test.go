package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONPreservesKeyOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z":1,"a":2,"m":{"y":true,"b":null}}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	nested, ok := obj.Object("m")
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, nested.Keys())
}

func TestParseJSONNumbers(t *testing.T) {
	v, err := ParseJSON([]byte(`[1, 1.50, 2e3, 99999999999999999999]`))
	require.NoError(t, err)

	arr, ok := v.(Array)
	require.True(t, ok)
	require.Len(t, arr, 4)

	assert.Equal(t, Int(1), arr[0])
	assert.IsType(t, Decimal{}, arr[1])
	assert.Equal(t, "1.50", arr[1].(Decimal).String())
	assert.IsType(t, Decimal{}, arr[2])
	assert.IsType(t, Decimal{}, arr[3])
}

func TestParseJSONRoundTrip(t *testing.T) {
	in := `{"Name":"Muster","Amount":12.50,"Tags":["a","b"],"Active":false,"Note":null}`

	v, err := ParseJSON([]byte(in))
	require.NoError(t, err)
	out, err := Marshal(v)
	require.NoError(t, err)

	assert.Equal(t, in, string(out))
}

func TestParseJSONRejectsInvalid(t *testing.T) {
	for _, in := range []string{``, `{`, `<html></html>`, `{}{}`, `{"a":}`} {
		_, err := ParseJSON([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}
