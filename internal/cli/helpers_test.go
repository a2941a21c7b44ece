package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/testutil"
)

const (
	testHost    = "https://erp.test"
	testMandant = "m1"
	testRunID   = "run-cli"
	testBase    = testHost + "/api/entity/v1/mandants/" + testMandant
)

func testEnv() map[string]string {
	return map[string]string{
		"CLUBSYNC_HOST":    testHost,
		"CLUBSYNC_MANDANT": testMandant,
	}
}

// scriptedOptions returns options that route every call to tr with a
// static token, fixed run ID and fixed boundary.
func scriptedOptions(tr *testutil.ScriptedTransport) *RootOptions {
	return &RootOptions{
		Env:        testEnv(),
		Transport:  tr,
		Tokens:     &testutil.StaticTokens{},
		RunIDs:     testutil.NewFixedRunID(testRunID),
		Boundaries: batch.NewFixedBoundary("batch_cli"),
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes content to name in a fresh temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
