package outcome

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/ir"
)

func result(t *testing.T, status int, body string) *batch.Result {
	t.Helper()
	res := &batch.Result{
		Status:  status,
		Body:    []byte(body),
		Request: &batch.Request{Method: batch.MethodPost, Path: "Subjects", Ref: "local"},
	}
	if v, err := ir.ParseJSON([]byte(body)); err == nil {
		res.Parsed = v
	}
	return res
}

func TestNormalizeSuccess(t *testing.T) {
	out := Normalize(result(t, http.StatusCreated, `{"Id":5}`))

	assert.True(t, out.Success)
	assert.Equal(t, http.StatusCreated, out.Status)
	assert.Nil(t, out.Err)
	assert.Equal(t, Echo{Method: "POST", Path: "Subjects"}, out.Request)
	_, ok := out.Message()
	assert.False(t, ok)
	assert.NotNil(t, out.Body)
}

func TestNormalizeStructuredShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		code    string
	}{
		{"lowercase error envelope", `{"error":{"code":"E1","message":"Name is required"}}`, "Name is required", "E1"},
		{"capitalised error envelope", `{"Error":{"Code":"E2","Message":"Zip invalid"}}`, "Zip invalid", "E2"},
		{"odata envelope with localized message", `{"odata.error":{"code":"E3","message":{"lang":"de-CH","value":"Ungültige PLZ"}}}`, "Ungültige PLZ", "E3"},
		{"flat message", `{"Message":"Internal failure"}`, "Internal failure", ""},
		{"oauth style", `{"error":"invalid_request","error_description":"bad key"}`, "bad key", "invalid_request"},
		{"bare error string", `{"error":"something broke"}`, "something broke", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(result(t, http.StatusBadRequest, tt.body))

			require.False(t, out.Success)
			se, ok := out.Err.(*StructuredError)
			require.True(t, ok, "want StructuredError, got %T", out.Err)
			assert.Equal(t, tt.message, se.Message)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, http.StatusBadRequest, se.Status())
			assert.Equal(t, "Subjects", se.Echo().Path)

			msg, ok := out.Message()
			assert.True(t, ok)
			assert.Equal(t, tt.message, msg)
		})
	}
}

func TestNormalizeKeepsDetails(t *testing.T) {
	out := Normalize(result(t, http.StatusBadRequest,
		`{"error":{"code":"V","message":"invalid","details":[{"target":"Zip"}]}}`))

	se, ok := out.Err.(*StructuredError)
	require.True(t, ok)
	details, ok := se.Details.(*ir.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"details"}, details.Keys())
}

func TestNormalizeRawFallback(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"html page", http.StatusInternalServerError, "<html><body>Server Error</body></html>"},
		{"empty body", http.StatusNotFound, ""},
		{"json without message", http.StatusConflict, `{"status":"conflict"}`},
		{"blank message", http.StatusBadRequest, `{"error":{"message":"  "}}`},
		{"json array", http.StatusBadRequest, `["x"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize(result(t, tt.status, tt.body))

			require.False(t, out.Success)
			raw, ok := out.Err.(*RawError)
			require.True(t, ok, "want RawError, got %T", out.Err)
			assert.Equal(t, tt.status, raw.Status())
			assert.Equal(t, tt.body, string(raw.Body))
			_, ok = out.Message()
			assert.False(t, ok)
		})
	}
}

func TestRawErrorMessageTruncates(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	err := &RawError{StatusCode: 500, Request: Echo{Method: "GET", Path: "A"}, Body: long}

	assert.Less(t, len(err.Error()), 200)
	assert.Equal(t, "GET A: 404 (empty body)", (&RawError{StatusCode: 404, Request: Echo{Method: "GET", Path: "A"}}).Error())
}

func TestLocal(t *testing.T) {
	req := &batch.Request{Method: batch.MethodPost, Path: "Addresses"}

	out := Local(req, errors.New("missing field City"))

	assert.False(t, out.Success)
	se, ok := out.Err.(*StructuredError)
	require.True(t, ok)
	assert.Equal(t, CodeLocal, se.Code)
	assert.Equal(t, 0, se.Status())
	assert.Equal(t, "missing field City", se.Message)
	assert.Equal(t, "POST Addresses", se.Echo().String())
}

func TestStructuredErrorString(t *testing.T) {
	err := &StructuredError{Message: "bad", Code: "X", StatusCode: 400, Request: Echo{Method: "PATCH", Path: "Subjects(Id=1)"}}
	assert.Equal(t, "PATCH Subjects(Id=1): 400 X: bad", err.Error())
}
