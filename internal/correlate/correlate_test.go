package correlate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/outcome"
)

type subject struct {
	name     string
	outcomes []outcome.Outcome
}

func (s *subject) Attach(o outcome.Outcome) {
	s.outcomes = append(s.outcomes, o)
}

func bound(ref any, path string, status int) *batch.Result {
	return &batch.Result{
		Status:  status,
		Request: &batch.Request{Method: batch.MethodPost, Path: path, Ref: ref},
	}
}

func TestAttachManyToOne(t *testing.T) {
	alice := &subject{name: "alice"}
	bob := &subject{name: "bob"}
	c := New()

	err := c.Attach([]*batch.Result{
		bound(alice, "Addresses", http.StatusCreated),
		bound(bob, "Addresses", http.StatusCreated),
		bound(alice, "Communications", http.StatusBadRequest),
	})
	require.NoError(t, err)

	require.Len(t, alice.outcomes, 2)
	assert.True(t, alice.outcomes[0].Success)
	assert.False(t, alice.outcomes[1].Success)
	assert.Equal(t, "Communications", alice.outcomes[1].Request.Path)
	require.Len(t, bob.outcomes, 1)

	assert.Len(t, c.Outcomes(alice), 2)
	assert.False(t, c.Succeeded(alice))
	assert.True(t, c.Succeeded(bob))
	assert.Equal(t, []any{alice, bob}, c.Refs())
	assert.Equal(t, []any{alice}, c.Failed())
}

func TestAttachPlainRefs(t *testing.T) {
	c := New()

	require.NoError(t, c.Attach([]*batch.Result{
		bound("key-1", "Subjects", http.StatusOK),
		bound(nil, "Subjects", http.StatusOK),
	}))

	assert.True(t, c.Succeeded("key-1"))
	assert.Equal(t, []any{"key-1"}, c.Refs())
	assert.False(t, c.Succeeded("unknown"), "no outcomes is not success")
}

func TestAttachUnboundResult(t *testing.T) {
	alice := &subject{}
	c := New()

	err := c.Attach([]*batch.Result{
		bound(alice, "Subjects", http.StatusOK),
		{Status: http.StatusOK},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnbound)
	assert.Empty(t, alice.outcomes, "nothing recorded on error")
	assert.Empty(t, c.Refs())
}

func TestAttachRejectsNonComparableRef(t *testing.T) {
	c := New()

	err := c.Attach([]*batch.Result{bound([]string{"x"}, "Subjects", http.StatusOK)})
	assert.Error(t, err)
}

func TestRecordLocalOutcome(t *testing.T) {
	alice := &subject{}
	c := New()
	req := &batch.Request{Method: batch.MethodPost, Path: "Addresses", Ref: alice}

	c.Record(alice, outcome.Local(req, errors.New("missing City")))

	require.Len(t, alice.outcomes, 1)
	assert.False(t, c.Succeeded(alice))
	failures := Failures(c.Outcomes(alice))
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "missing City")
}

func TestAllSucceeded(t *testing.T) {
	assert.True(t, AllSucceeded(nil))
	assert.True(t, AllSucceeded([]outcome.Outcome{{Success: true}}))
	assert.False(t, AllSucceeded([]outcome.Outcome{{Success: true}, {Success: false}}))
}
