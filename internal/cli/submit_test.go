package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/testutil"
)

const salesOrder = `
number: SO-1
customer: "42"
date: "2024-03-01"
lines:
  - {article: FEE, name: Course fee, quantity: "2", price: "6.25"}
  - {article: FREE, name: Voucher, quantity: "1", price: "0"}
  - {article: BALL, name: Ball, quantity: "1", price: "19.90"}
`

func TestSubmitSequence(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Single(testutil.JSON(http.StatusCreated, `{"Id":900}`)),
		testutil.Single(testutil.Empty(http.StatusCreated)),
		testutil.Single(testutil.Empty(http.StatusCreated)),
		testutil.Single(testutil.Empty(http.StatusOK)),
	)
	path := writeFile(t, "order.yaml", salesOrder)

	stdout, _, err := execute(t, scriptedOptions(tr), "submit", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ Document 900: 2 position(s), total 32.40, finalized=true (sequence mode)")
	calls := tr.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, testBase+"/SalesOrders", calls[0].URL)
	assert.Equal(t, testBase+"/SalesOrders(Id=900)/NextStep", calls[3].URL)
}

func TestSubmitBatchModeFromEnvironment(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Reply(
			testutil.JSON(http.StatusCreated, `{"Id":900}`),
			testutil.Empty(http.StatusCreated),
			testutil.Empty(http.StatusCreated),
		),
		testutil.Reply(testutil.Empty(http.StatusOK)),
	)
	opts := scriptedOptions(tr)
	opts.Env["CLUBSYNC_DOCUMENT_MODE"] = "batch"
	path := writeFile(t, "order.yaml", "key: \"900\"\n"+salesOrder)

	stdout, _, err := execute(t, opts, "submit", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SubmitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "batch", resp.Data.Mode)
	assert.True(t, resp.Data.Finalized)
	assert.Equal(t, []StepResult{
		{Step: "header", Status: 201, Success: true},
		{Step: "position 1", Status: 201, Success: true},
		{Step: "position 2", Status: 201, Success: true},
		{Step: "finalize", Status: 200, Success: true},
	}, resp.Data.Steps)
	assert.Len(t, tr.BatchCalls(), 2)
}

func TestSubmitModeFlagWins(t *testing.T) {
	tr := testutil.NewScriptedTransport()
	opts := scriptedOptions(tr)
	opts.Env["CLUBSYNC_DOCUMENT_MODE"] = "sequence"
	path := writeFile(t, "order.yaml", salesOrder)

	// batch mode needs a key up front, so nothing is sent
	_, _, err := execute(t, opts, "submit", path, "--mode", "batch")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "missing document key")
	assert.Empty(t, tr.Calls())
}

func TestSubmitRejectedPosition(t *testing.T) {
	tr := testutil.NewScriptedTransport(
		testutil.Single(testutil.JSON(http.StatusCreated, `{"Id":900}`)),
		testutil.Single(testutil.ValidationError("article FEE is inactive")),
		testutil.Single(testutil.Empty(http.StatusCreated)),
	)
	path := writeFile(t, "order.yaml", salesOrder)

	stdout, _, err := execute(t, scriptedOptions(tr), "submit", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Document 900")
	assert.Contains(t, stdout, "position 1: 400 article FEE is inactive")
	assert.Len(t, tr.Calls(), 3, "finalize must not be sent")
}

func TestSubmitTransportFailure(t *testing.T) {
	tr := testutil.NewScriptedTransport(testutil.Fail(errors.New("connection reset")))
	path := writeFile(t, "order.yaml", salesOrder)

	_, _, err := execute(t, scriptedOptions(tr), "submit", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSubmitNothingToSend(t *testing.T) {
	tr := testutil.NewScriptedTransport()
	path := writeFile(t, "order.yaml", `
number: SO-2
lines:
  - {article: FREE, quantity: "1", price: "0"}
`)

	_, _, err := execute(t, scriptedOptions(tr), "submit", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Empty(t, tr.Calls())
}

func TestSubmitUnknownMode(t *testing.T) {
	path := writeFile(t, "order.yaml", salesOrder)

	_, _, err := execute(t, scriptedOptions(testutil.NewScriptedTransport()), "submit", path, "--mode", "parallel")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
