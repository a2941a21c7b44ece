package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
)

const sampleRecords = `
records:
  - ref: member-7
    key: "7"
    fields:
      Name: Muster
      FirstName: Max
      Active: true
      Fee: 19.90
      JoinedAt: 2024-03-01
      Note: ~
    associations:
      - kind: communication
        fields: {Type: Email, Value: max@example.com}
      - kind: Address
        fields:
          Street: Hauptstrasse 1
          Zip: "8000"
          City: Zurich
          Country: CH
  - fields:
      Name: Neu
`

func TestParseRecords(t *testing.T) {
	subjects, err := ParseRecords([]byte(sampleRecords))
	require.NoError(t, err)
	require.Len(t, subjects, 2)

	s := subjects[0]
	assert.Equal(t, "member-7", s.Ref)
	assert.Equal(t, entity.Key("7"), s.Key)
	assert.Equal(t, []string{"Name", "FirstName", "Active", "Fee", "JoinedAt", "Note"}, s.Fields.Keys())

	data, err := ir.Marshal(s.Fields)
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"Muster","FirstName":"Max","Active":true,"Fee":19.90,"JoinedAt":"2024-03-01","Note":null}`, string(data))

	require.Len(t, s.Associations, 2)
	assert.Equal(t, entity.KindCommunication, s.Associations[0].Kind)
	assert.Equal(t, "Communication[Email]", s.Associations[0].Label())
	zip, ok := s.Associations[1].Fields.Get("Zip")
	require.True(t, ok)
	assert.Equal(t, ir.String("8000"), zip)

	assert.Equal(t, "records[1]", subjects[1].Ref)
	assert.True(t, subjects[1].Key.IsZero())
}

func TestParseRecordsRejectsUnknownKeys(t *testing.T) {
	_, err := ParseRecords([]byte("records:\n  - ref: a\n    feilds: {Name: x}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feilds")
}

func TestParseRecordsRejectsBadKind(t *testing.T) {
	_, err := ParseRecords([]byte("records:\n  - associations:\n      - kind: Invoice\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invoice")

	_, err = ParseRecords([]byte("records:\n  - associations:\n      - kind: Subject\n"))
	require.Error(t, err)
}

func TestParseRecordsEmpty(t *testing.T) {
	subjects, err := ParseRecords(nil)
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestLoadRecordsMissingFile(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRecords), 0o644))

	subjects, err := LoadRecords(path)
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
}

func TestFromNodeScalars(t *testing.T) {
	tests := []struct {
		yaml string
		want ir.Value
	}{
		{"42", ir.Int(42)},
		{"-3", ir.Int(-3)},
		{"true", ir.Bool(true)},
		{"null", ir.Null{}},
		{"plain", ir.String("plain")},
		{`"12"`, ir.String("12")},
		{"2024-01-05", ir.Date{Year: 2024, Month: 1, Day: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			var n yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &n))

			got, err := FromNode(&n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromNodeDecimalKeepsScale(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("6.250"), &n))

	got, err := FromNode(&n)
	require.NoError(t, err)
	assert.Equal(t, "6.250", ir.Text(got))
}

func TestFromNodeRejectsInfinity(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(".inf"), &n))

	_, err := FromNode(&n)
	assert.Error(t, err)
}

func TestFromNodeAliases(t *testing.T) {
	var n yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte("base: &b {Country: CH}\ncopy: *b\n"), &n))

	got, err := FromNode(&n)
	require.NoError(t, err)
	obj := got.(*ir.Object)
	copied, ok := obj.Object("copy")
	require.True(t, ok)
	country, _ := copied.Get("Country")
	assert.Equal(t, ir.String("CH"), country)
}
