package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/ir"
)

const expandedSubject = `{
	"Id": 7,
	"Name": "Muster",
	"FirstName": "Hans",
	"Addresses": [{"Id": 70, "Street": "Bahnhofstrasse 1", "Zip": "8001", "City": "Zürich", "Country": "CH"}],
	"Communications": [
		{"Id": 71, "Type": "Email", "Value": "hans@example.com"},
		{"Id": 72, "Type": "Phone", "Value": "+41 44 000 00 00"}
	],
	"Customer": null
}`

func parseSnapshot(t *testing.T, payload string) *Snapshot {
	t.Helper()
	v, err := ir.ParseJSON([]byte(payload))
	require.NoError(t, err)
	snap, err := ParseSnapshot(v)
	require.NoError(t, err)
	return snap
}

func TestParseSnapshot(t *testing.T) {
	snap := parseSnapshot(t, expandedSubject)

	assert.Equal(t, Key("7"), snap.Key)
	assert.Equal(t, []string{"Id", "Name", "FirstName"}, snap.Fields.Keys())
	assert.Len(t, snap.Associations(KindAddress), 1)
	assert.Len(t, snap.Associations(KindCommunication), 2)
	assert.Empty(t, snap.Associations(KindCustomerLink))
}

func TestParseSnapshotSingleObjectNavigation(t *testing.T) {
	snap := parseSnapshot(t, `{"Id":1,"Customer":{"Id":5,"Number":"K-5"}}`)

	require.Len(t, snap.Associations(KindCustomerLink), 1)
	assert.Equal(t, Key("5"), KeyOf(snap.Associations(KindCustomerLink)[0]))
}

func TestParseSnapshotRejectsMalformed(t *testing.T) {
	for _, payload := range []string{`[]`, `{"Addresses":"x"}`, `{"Addresses":[1]}`} {
		v, err := ir.ParseJSON([]byte(payload))
		require.NoError(t, err)
		_, err = ParseSnapshot(v)
		assert.Error(t, err, payload)
	}
}

func localSubject() *Subject {
	return &Subject{
		Key: "7",
		Fields: ir.NewObject(
			ir.O("Name", ir.String("Muster")),
			ir.O("FirstName", ir.String("Hans")),
		),
		Associations: []Association{
			{Kind: KindAddress, Fields: ir.NewObject(
				ir.O("Street", ir.String("Bahnhofstrasse 1")),
				ir.O("Zip", ir.String("8001")),
				ir.O("City", ir.String("Zürich")),
				ir.O("Country", ir.String("CH")),
			)},
			{Kind: KindCommunication, Fields: ir.NewObject(
				ir.O("Type", ir.String("Email")),
				ir.O("Value", ir.String("hans@example.com")),
			)},
		},
	}
}

func TestPlanUpToDate(t *testing.T) {
	changed, decisions := Plan(localSubject(), parseSnapshot(t, expandedSubject))

	assert.False(t, changed)
	assert.Empty(t, decisions)
}

func TestPlanPrimaryChangeOnly(t *testing.T) {
	s := localSubject()
	s.Fields.Set("Name", ir.String("Meier"))

	changed, decisions := Plan(s, parseSnapshot(t, expandedSubject))

	assert.True(t, changed)
	assert.Empty(t, decisions, "unchanged communication schedules nothing")
}

func TestPlanAssociationsIndependently(t *testing.T) {
	s := localSubject()
	s.Associations[0].Fields.Set("City", ir.String("Bern"))
	s.Associations = append(s.Associations,
		Association{Kind: KindCommunication, Fields: ir.NewObject(
			ir.O("Type", ir.String("Mobile")),
			ir.O("Value", ir.String("+41 79 000 00 00")),
		)},
		Association{Kind: KindCustomerLink, Fields: ir.NewObject(ir.O("Number", ir.String("K-7")))},
	)

	changed, decisions := Plan(s, parseSnapshot(t, expandedSubject))

	assert.False(t, changed)
	require.Len(t, decisions, 3)
	assert.Equal(t, OpUpdate, decisions[0].Op)
	assert.Equal(t, Key("70"), decisions[0].Key)
	assert.Equal(t, "Address", decisions[0].Association.Label())
	assert.Equal(t, OpCreate, decisions[1].Op)
	assert.Equal(t, "Communication[Mobile]", decisions[1].Association.Label())
	assert.Equal(t, OpCreate, decisions[2].Op)
	assert.Equal(t, KindCustomerLink, decisions[2].Association.Kind)
}

func TestDiffIsIdempotentAfterApply(t *testing.T) {
	snap := parseSnapshot(t, expandedSubject)
	local := ir.NewObject(
		ir.O("Name", ir.String("Meier")),
		ir.O("FirstName", ir.String("Hans")),
		ir.O("Remark", ir.String("new")),
	)

	first := Diff(KindSubject, local, snap.Fields)
	require.Equal(t, []string{"Name", "Remark"}, first.Keys())

	second := Diff(KindSubject, local, Apply(snap.Fields, first))
	assert.Equal(t, 0, second.Len())
	assert.Equal(t, 3, snap.Fields.Len(), "Apply does not modify its input")
}

func TestDiffNormalizesComparison(t *testing.T) {
	local := ir.NewObject(
		ir.O("Fee", ir.MustDecimal("50")),
		ir.O("City", ir.String("Zürich")),
		ir.O("Remark", ir.Null{}),
		ir.O("Title", ir.String("")),
		ir.O("id", ir.Int(1)),
	)
	remote := ir.NewObject(
		ir.O("Fee", ir.MustDecimal("50.00")),
		ir.O("City", ir.String("Zu\u0308rich")),
		ir.O("Title", ir.Null{}),
		ir.O("ID", ir.Int(1)),
	)

	assert.Equal(t, 0, Diff(KindSubject, local, remote).Len())
}

func TestDiffUnquotedNumberMatchesRemoteString(t *testing.T) {
	local := ir.NewObject(ir.O("Zip", ir.Int(8000)), ir.O("Street", ir.String("Hauptstr. 1")))
	remote := ir.NewObject(ir.O("Zip", ir.String("8000")), ir.O("Street", ir.String("Hauptstr. 1")))

	assert.Equal(t, 0, Diff(KindAddress, local, remote).Len())

	remote.Set("Zip", ir.String("08000"))
	diff := Diff(KindAddress, local, remote)
	assert.Equal(t, []string{"Zip"}, diff.Keys())
}

func TestSubjectValidate(t *testing.T) {
	s := localSubject()
	require.NoError(t, s.Validate())

	s.Associations = append(s.Associations, Association{Kind: KindAddress, Fields: ir.NewObject()})
	assert.ErrorIs(t, s.Validate(), ErrDuplicateAssociation)

	s = localSubject()
	s.Associations = append(s.Associations, Association{Kind: KindSubject})
	assert.Error(t, s.Validate())
}
