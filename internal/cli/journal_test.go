package cli

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/testutil"
)

// journaledRun syncs twoNewMembers into a fresh journal, with member-b
// rejected, and returns the journal path.
func journaledRun(t *testing.T) string {
	t.Helper()
	tr := testutil.NewScriptedTransport(testutil.Reply(
		testutil.JSON(http.StatusCreated, `{"Id":1}`),
		testutil.ValidationError("Name Beispiel is reserved"),
	))
	db := filepath.Join(t.TempDir(), "journal.db")
	_, _, err := execute(t, scriptedOptions(tr), "sync", writeFile(t, "members.yaml", twoNewMembers), "--db", db)
	require.Equal(t, ExitFailure, GetExitCode(err))
	return db
}

func TestJournalListRuns(t *testing.T) {
	db := journaledRun(t)

	stdout, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, testRunID)
	assert.Contains(t, stdout, "2 record(s), 1 failed, 1 round trip(s)")
}

func TestJournalShowRun(t *testing.T) {
	db := journaledRun(t)

	stdout, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal", testRunID, "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, testRunID, resp.RunID)
	assert.Equal(t, 2, resp.Data.Run.Records)
	require.Len(t, resp.Data.Records, 2)
	assert.Equal(t, "member-a", resp.Data.Records[0].Ref)
	assert.Equal(t, "done", resp.Data.Records[0].State)
	assert.Equal(t, "failed", resp.Data.Records[1].State)
	require.Len(t, resp.Data.Outcomes, 2)
	assert.Equal(t, "Subjects", resp.Data.Outcomes[0].Path)
	assert.NotEmpty(t, resp.Data.Outcomes[0].Fingerprint)
}

func TestJournalFailedOnly(t *testing.T) {
	db := journaledRun(t)

	stdout, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal", testRunID, "--db", db, "--failed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "400 failed: Name Beispiel is reserved")
	assert.NotContains(t, stdout, "201 ok")
}

func TestJournalFingerprint(t *testing.T) {
	db := journaledRun(t)

	stdout, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal", testRunID, "--db", db, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotEmpty(t, resp.Data.Outcomes)
	fp := resp.Data.Outcomes[1].Fingerprint

	stdout, _, err = execute(t, &RootOptions{Env: map[string]string{}}, "journal", "--db", db, "--fingerprint", fp)
	require.NoError(t, err)
	assert.Contains(t, stdout, testRunID)
	assert.Contains(t, stdout, "Name Beispiel is reserved")
}

func TestJournalUnknownRun(t *testing.T) {
	db := journaledRun(t)

	_, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal", "run-missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), `run "run-missing" not found`)
}

func TestJournalFromEnvironment(t *testing.T) {
	db := journaledRun(t)

	stdout, _, err := execute(t, &RootOptions{Env: map[string]string{"CLUBSYNC_JOURNAL": db}}, "journal")
	require.NoError(t, err)
	assert.Contains(t, stdout, testRunID)
}

func TestJournalNotConfigured(t *testing.T) {
	_, _, err := execute(t, &RootOptions{Env: map[string]string{}}, "journal")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no journal configured")
}
