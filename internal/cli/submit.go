package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/input"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Mode string // "sequence" | "batch", empty for CLUBSYNC_DOCUMENT_MODE
}

// SubmitResult is the JSON payload of the submit command.
type SubmitResult struct {
	Mode      string          `json:"mode"`
	Key       string          `json:"key,omitempty"`
	Total     string          `json:"total"`
	Positions int             `json:"positions"`
	Finalized bool            `json:"finalized"`
	Steps     []StepResult    `json:"steps"`
	Failures  []FailureResult `json:"failures,omitempty"`
}

// StepResult is one request of a submission.
type StepResult struct {
	Step    string `json:"step"`
	Status  int    `json:"status"`
	Success bool   `json:"success"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <document.yaml>",
		Short: "Submit a sales document",
		Long: `Submit a sales document: header, numbered positions, then the
finalize action.

Lines with a zero quantity or price are dropped before numbering. In
sequence mode each request is its own call and positions use the key the
header create returned. In batch mode header and positions share one
$batch call and the document needs a key up front.

Exit codes:
  0 - Document submitted and finalized
  1 - Invalid document, or a step was rejected
  2 - Command error (configuration, authentication, transport)

Examples:
  clubsync submit order.yaml
  clubsync submit order.yaml --mode batch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "submission mode (sequence|batch, default from CLUBSYNC_DOCUMENT_MODE)")

	return cmd
}

func runSubmit(opts *SubmitOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	doc, err := input.LoadDocument(args[0])
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInput, "failed to load document", err)
	}

	cfg, err := loadConfig(opts.RootOptions, opts.Tokens == nil)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	modeName := opts.Mode
	if modeName == "" {
		modeName = cfg.Mode
	}
	mode, err := document.ParseMode(modeName)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid mode", err)
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	submitter := document.NewSubmitter(newClient(opts.RootOptions, cfg, logger),
		document.WithMode(mode),
		document.WithLogger(logger))

	out.VerboseLog("Submitting document %q in %s mode", doc.Number, mode)
	sub, err := submitter.Submit(cmd.Context(), doc)
	if errors.Is(err, document.ErrNoLines) || errors.Is(err, document.ErrMissingKey) {
		return out.Fail(ExitFailure, ErrCodeInput, "document cannot be submitted", err)
	}
	if sub == nil {
		return out.Fail(ExitCommandError, ErrCodeRun, "submission failed", err)
	}

	result := submitResult(mode, sub)
	var failure *CLIError
	switch {
	case err != nil:
		failure = &CLIError{Code: ErrCodeRun, Message: err.Error()}
	case !sub.Success():
		failure = &CLIError{Code: ErrCodeRun, Message: "document not finalized"}
	}

	if rerr := out.Render(result, failure, "", func(w io.Writer) {
		writeSubmitText(w, result)
	}); rerr != nil {
		return rerr
	}

	if err != nil {
		return WrapExitError(ExitCommandError, "submission aborted", err)
	}
	if !sub.Success() {
		return NewExitError(ExitFailure, "document not finalized")
	}
	return nil
}

func submitResult(mode document.Mode, sub *document.Submission) SubmitResult {
	result := SubmitResult{
		Mode:      mode.String(),
		Key:       string(sub.Key),
		Total:     sub.Total.String(),
		Positions: len(sub.Positions),
		Finalized: sub.Finalized,
		Steps:     make([]StepResult, 0, len(sub.Outcomes)),
	}
	for _, so := range sub.Outcomes {
		result.Steps = append(result.Steps, StepResult{
			Step:    so.Step.String(),
			Status:  so.Outcome.Status,
			Success: so.Outcome.Success,
		})
	}
	for _, f := range sub.Failures() {
		result.Failures = append(result.Failures, failureResult("", f.Step.String(), f.Outcome))
	}
	return result
}

func writeSubmitText(w io.Writer, r SubmitResult) {
	key := r.Key
	if key == "" {
		key = "(none)"
	}
	mark := "✓"
	if !r.Finalized {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Document %s: %d position(s), total %s, finalized=%t (%s mode)\n",
		mark, key, r.Positions, r.Total, r.Finalized, r.Mode)
	for _, f := range r.Failures {
		writeFailure(w, f)
	}
}
