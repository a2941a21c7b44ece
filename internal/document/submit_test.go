package document

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/client"
	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/outcome"
	"github.com/roach88/clubsync/internal/testutil"
)

func newTestSubmitter(tr *testutil.ScriptedTransport, mode Mode) *Submitter {
	c := client.New(client.Config{Host: "https://api.example.com", Mandant: "m1"},
		&testutil.StaticTokens{Value: "tok"}, tr,
		client.WithBoundaries(batch.NewFixedBoundary("batch_doc")))
	return NewSubmitter(c, WithMode(mode))
}

func twoLineDoc() *Document {
	return &Document{
		Number:   "SO-1",
		Customer: "42",
		Date:     ir.Date{Year: 2024, Month: 3, Day: 1},
		Lines: []Line{
			line("FEE", "2", "6.25"),
			line("BALL", "1", "19.9"),
		},
	}
}

func TestSubmitBatchTwoLines(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Respond(func(i int, req *batch.Request) *batch.Result {
			if i == 0 {
				return testutil.JSON(http.StatusCreated, `{"Id":900,"Number":"SO-1"}`)
			}
			return testutil.JSON(http.StatusCreated, `{"Id":1000}`)
		}),
		testutil.Reply(testutil.Empty(http.StatusNoContent)),
	)
	doc := twoLineDoc()
	doc.Key = "900"

	sub, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, sub.Success())
	assert.True(t, sub.Finalized)
	assert.Equal(t, "900", string(sub.Key))
	assert.Equal(t, "32.40", sub.Total.String())

	calls := tr.BatchCalls()
	require.Len(t, calls, 2)

	first := calls[0].Requests
	require.Len(t, first, 3)
	assert.Equal(t, "SalesOrders", first[0].Path)
	assert.Equal(t, "SalesOrderPositions", first[1].Path)
	assert.Equal(t, "SalesOrderPositions", first[2].Path)

	body := string(calls[0].Body)
	header := strings.Index(body, "POST SalesOrders HTTP/1.1")
	pos := strings.Index(body, "POST SalesOrderPositions HTTP/1.1")
	require.GreaterOrEqual(t, header, 0)
	require.Greater(t, pos, header)
	assert.Contains(t, body, `{"SalesOrderId":900,"Position":1,"ArticleNumber":"FEE","Name":"FEE","Quantity":2.000,"UnitPrice":6.25,"Amount":12.50}`)
	assert.Contains(t, body, `{"SalesOrderId":900,"Position":2,"ArticleNumber":"BALL","Name":"BALL","Quantity":1.000,"UnitPrice":19.90,"Amount":19.90}`)

	second := calls[1].Requests
	require.Len(t, second, 1)
	assert.Equal(t, batch.MethodPost, second[0].Method)
	assert.Equal(t, "SalesOrders(Id=900)/NextStep", second[0].Path)

	require.Len(t, sub.Outcomes, 4)
	assert.Equal(t, "header", sub.Outcomes[0].Step.String())
	assert.Equal(t, "position 2", sub.Outcomes[2].Step.String())
	assert.Equal(t, "finalize", sub.Outcomes[3].Step.String())
}

func TestSubmitBatchEchoedKeyWins(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Respond(func(i int, _ *batch.Request) *batch.Result {
			if i == 0 {
				return testutil.JSON(http.StatusCreated, `{"Id":901}`)
			}
			return testutil.Empty(http.StatusCreated)
		}),
		testutil.Reply(testutil.Empty(http.StatusOK)),
	)
	doc := twoLineDoc()
	doc.Key = "900"

	sub, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "901", string(sub.Key))
	assert.Equal(t, "SalesOrders(Id=901)/NextStep", tr.BatchCalls()[1].Requests[0].Path)
}

func TestSubmitBatchRequiresKey(t *testing.T) {
	tr := testutil.NewScriptedTransport()

	_, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), twoLineDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Empty(t, tr.Calls())
}

func TestSubmitBatchLineFailureSkipsFinalize(t *testing.T) {
	tr := testutil.NewScriptedTransport(testutil.Reply(
		testutil.JSON(http.StatusCreated, `{"Id":900}`),
		testutil.Empty(http.StatusCreated),
		testutil.ValidationError("article unknown"),
	))
	doc := twoLineDoc()
	doc.Key = "900"

	sub, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, sub.Success())
	assert.False(t, sub.Finalized)
	assert.Len(t, tr.Calls(), 1)

	failures := sub.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Step.Position)
	var se *outcome.StructuredError
	require.ErrorAs(t, failures[0].Outcome.Err, &se)
	assert.Equal(t, "article unknown", se.Message)
}

func TestSubmitBatchHeaderFailure(t *testing.T) {
	tr := testutil.NewScriptedTransport(testutil.Reply(
		testutil.HTML(http.StatusInternalServerError, "<html>oops</html>"),
		testutil.Empty(http.StatusCreated),
		testutil.Empty(http.StatusCreated),
	))
	doc := twoLineDoc()
	doc.Key = "900"

	sub, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, sub.Key.IsZero())
	assert.False(t, sub.Finalized)

	var raw *outcome.RawError
	require.ErrorAs(t, sub.Outcomes[0].Outcome.Err, &raw)
	assert.Equal(t, http.StatusInternalServerError, raw.Status())
}

func TestSubmitBatchEnvelopeFailure(t *testing.T) {
	tr := testutil.NewScriptedTransport(testutil.Reply(testutil.Empty(http.StatusCreated)))
	doc := twoLineDoc()
	doc.Key = "900"

	_, err := newTestSubmitter(tr, ModeBatch).Submit(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, batch.ErrStructural)
}

func TestSubmitSequence(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Single(testutil.JSON(http.StatusCreated, `{"Id":"SO'7"}`)),
		testutil.Single(testutil.Empty(http.StatusCreated)),
		testutil.Single(testutil.Empty(http.StatusCreated)),
		testutil.Single(testutil.Empty(http.StatusOK)),
	)

	sub, err := newTestSubmitter(tr, ModeSequence).Submit(context.Background(), twoLineDoc())
	require.NoError(t, err)
	assert.True(t, sub.Success())
	assert.Equal(t, "SO'7", string(sub.Key))

	calls := tr.Calls()
	require.Len(t, calls, 4)
	base := "https://api.example.com/api/entity/v1/mandants/m1/"
	assert.Equal(t, base+"SalesOrders", calls[0].URL)
	assert.Equal(t, base+"SalesOrderPositions", calls[1].URL)
	assert.Contains(t, string(calls[1].Body), `"SalesOrderId":"SO'7","Position":1`)
	assert.Contains(t, string(calls[2].Body), `"Position":2`)
	assert.Equal(t, base+"SalesOrders(Id='SO''7')/NextStep", calls[3].URL)
	assert.Equal(t, `{}`, string(calls[3].Body))
	assert.Empty(t, tr.BatchCalls())
}

func TestSubmitSequenceHeaderWithoutKey(t *testing.T) {
	tr := testutil.NewScriptedTransport(testutil.Single(testutil.Empty(http.StatusCreated)))

	_, err := newTestSubmitter(tr, ModeSequence).Submit(context.Background(), twoLineDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Len(t, tr.Calls(), 1)
}

func TestSubmitSequenceLineFailureSkipsFinalize(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Single(testutil.JSON(http.StatusCreated, `{"Id":900}`)),
		testutil.Single(testutil.ValidationError("bad line")),
		testutil.Single(testutil.Empty(http.StatusCreated)),
	)

	sub, err := newTestSubmitter(tr, ModeSequence).Submit(context.Background(), twoLineDoc())
	require.NoError(t, err)
	assert.False(t, sub.Finalized)
	assert.Len(t, sub.Outcomes, 3)
	assert.Len(t, tr.Calls(), 3)
}

func TestSubmitSequenceTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	tr := testutil.NewScriptedTransport(testutil.Fail(boom))

	_, err := newTestSubmitter(tr, ModeSequence).Submit(context.Background(), twoLineDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestSubmitNoLines(t *testing.T) {
	tr := testutil.NewScriptedTransport()
	doc := twoLineDoc()
	doc.Lines = []Line{line("X", "0", "1")}

	_, err := newTestSubmitter(tr, ModeSequence).Submit(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNoLines)
	assert.Empty(t, tr.Calls())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("batch")
	require.NoError(t, err)
	assert.Equal(t, ModeBatch, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSequence, m)

	_, err = ParseMode("parallel")
	assert.Error(t, err)
}
