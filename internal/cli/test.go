package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (substring of the file name)
	GoldenDir string // golden directory, default <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "missing"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scripted scenarios",
		Long: `Run scenario files against a scripted fake of the accounting system.

Each scenario feeds records or a document through the real client, engine
and submitter, answers every call from its remote script and checks its
assertions. When a golden transcript exists, the exact bytes sent and the
resulting report must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  clubsync test ./scenarios
  clubsync test ./scenarios --filter document
  clubsync test ./scenarios --update
  clubsync test ./scenarios --golden ./golden --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose file name contains this")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, args []string, cmd *cobra.Command) error {
	scenariosDir := args[0]
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}

	files, err := harness.Discover(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	out := newFormatter(opts.RootOptions, cmd)
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(file, goldenDir, opts.Update)
		out.VerboseLog("%s: pass=%t golden=%s", sr.Name, sr.Pass, sr.Golden)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var failure *CLIError
	if result.Failed > 0 {
		failure = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := out.Render(result, failure, "", func(w io.Writer) {
		writeTestText(w, result)
	}); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// runScenario executes a single scenario file and checks or updates its
// golden transcript.
func runScenario(file, goldenDir string, update bool) ScenarioResult {
	name := scenarioName(file)

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}}
	}
	if scenario.Name != "" {
		name = scenario.Name
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}
	}

	sr := ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}
	transcript := harness.Transcript(result)
	goldenPath := goldenFilePath(goldenDir, file)

	if update {
		if err := writeGolden(goldenPath, transcript); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return sr
		}
		sr.Golden = "updated"
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file - assertions alone decide
		sr.Golden = "missing"
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(want, transcript):
		sr.Pass = false
		sr.Errors = append(sr.Errors, "transcript does not match golden file (run with --update to regenerate)")
	default:
		sr.Golden = "match"
	}
	return sr
}

func scenarioName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns the golden file of a scenario file.
func goldenFilePath(goldenDir, scenarioFile string) string {
	return filepath.Join(goldenDir, scenarioName(scenarioFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func writeTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, sr := range result.Scenarios {
		if sr.Pass {
			if sr.Golden == "updated" {
				fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
			} else {
				fmt.Fprintf(w, "✓ %s\n", sr.Name)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
