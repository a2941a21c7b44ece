package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/engine"
	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/input"
	"github.com/roach88/clubsync/internal/outcome"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	MaxParts   int  // parts per $batch call, 0 disables the limit
	SkipChecks bool // skip the offline field check
}

// SyncResult is the JSON payload of the sync command.
type SyncResult struct {
	RunID      string         `json:"run_id"`
	RoundTrips int            `json:"round_trips"`
	Done       int            `json:"done"`
	UpToDate   int            `json:"up_to_date"`
	Failed     int            `json:"failed"`
	Records    []RecordResult `json:"records"`
	Error      string         `json:"error,omitempty"`
}

// RecordResult is one record of a SyncResult.
type RecordResult struct {
	Ref       string          `json:"ref"`
	Key       string          `json:"key,omitempty"`
	RemoteKey string          `json:"remote_key,omitempty"`
	State     string          `json:"state"`
	Failures  []FailureResult `json:"failures,omitempty"`
}

// FailureResult is one failed request of a record or document.
type FailureResult struct {
	Phase   string `json:"phase,omitempty"`
	Target  string `json:"target"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <records.yaml>",
		Short: "Synchronize member records",
		Long: `Synchronize member records and their associations with the
accounting system.

Records are checked offline first; a record missing a required field
stops the command before anything is sent. The run then fetches existing
subjects, creates the missing ones and writes associations, one $batch
call per phase. With --db (or CLUBSYNC_JOURNAL) every outcome is written
to the journal.

Exit codes:
  0 - All records done or up to date
  1 - Invalid input, or one or more records failed
  2 - Command error (configuration, authentication, transport)

Examples:
  clubsync sync members.yaml
  clubsync sync members.yaml --db clubsync.db
  clubsync sync members.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxParts, "max-parts", engine.DefaultMaxParts, "maximum parts per $batch call (0 disables the limit)")
	cmd.Flags().BoolVar(&opts.SkipChecks, "skip-checks", false, "skip the offline required-field check")

	return cmd
}

func runSync(opts *SyncOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	subjects, err := input.LoadRecords(args[0])
	if err != nil {
		return out.Fail(ExitFailure, ErrCodeInput, "failed to load records", err)
	}
	if !opts.SkipChecks {
		if err := checkRecords(out, subjects); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(opts.RootOptions, opts.Tokens == nil)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	journal, err := openJournal(opts.Database, cfg.Journal)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	if journal != nil {
		defer journal.Close()
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithMaxParts(opts.MaxParts),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDs(opts.RunIDs))
	}
	if journal != nil {
		engineOpts = append(engineOpts, engine.WithJournal(journal))
	}

	out.VerboseLog("Syncing %d record(s) to %s (mandant %s)", len(subjects), cfg.Host, cfg.Mandant)
	eng := engine.New(newClient(opts.RootOptions, cfg, logger), engineOpts...)
	report, runErr := eng.Sync(cmd.Context(), subjects)

	result := syncResult(report)
	var failure *CLIError
	switch {
	case runErr != nil:
		failure = &CLIError{Code: ErrCodeRun, Message: runErr.Error(), Details: runErrorCode(runErr)}
	case result.Failed > 0:
		failure = &CLIError{Code: ErrCodeRun, Message: fmt.Sprintf("%d record(s) failed", result.Failed)}
	}

	if err := out.Render(result, failure, result.RunID, func(w io.Writer) {
		writeSyncText(w, result)
	}); err != nil {
		return err
	}

	if runErr != nil {
		return WrapExitError(ExitCommandError, "sync aborted", runErr)
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) failed", result.Failed))
	}
	return nil
}

// checkRecords runs the offline field check and reports every problem.
func checkRecords(out *OutputFormatter, subjects []*entity.Subject) error {
	v, err := input.NewValidator()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInvalid, "failed to build record schema", err)
	}
	problems := v.Validate(subjects)
	if len(problems) == 0 {
		return nil
	}
	if err := out.Render(problems, &CLIError{
		Code:    ErrCodeInvalid,
		Message: fmt.Sprintf("%d problem(s) found", len(problems)),
	}, "", func(w io.Writer) {
		writeProblems(w, problems)
	}); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(problems)))
}

func writeProblems(w io.Writer, problems []input.Problem) {
	fmt.Fprintf(w, "✗ %d problem(s) found\n", len(problems))
	for _, p := range problems {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func syncResult(report *engine.Report) SyncResult {
	result := SyncResult{
		RunID:      report.RunID,
		RoundTrips: report.RoundTrips,
		Done:       report.Count(engine.StateDone),
		UpToDate:   report.Count(engine.StateUpToDate),
		Failed:     report.Count(engine.StateFailed),
		Records:    make([]RecordResult, 0, len(report.Records)),
		Error:      report.Error,
	}
	for _, rec := range report.Records {
		rr := RecordResult{
			Ref:       fmt.Sprint(rec.Ref),
			Key:       string(rec.Key),
			RemoteKey: string(rec.RemoteKey),
			State:     rec.State.String(),
		}
		for _, a := range rec.Failures() {
			rr.Failures = append(rr.Failures, failureResult(string(a.Phase), a.Label, a.Outcome))
		}
		result.Records = append(result.Records, rr)
	}
	return result
}

func failureResult(phase, target string, o outcome.Outcome) FailureResult {
	f := FailureResult{Phase: phase, Target: target, Status: o.Status}
	if msg, ok := o.Message(); ok {
		f.Message = msg
	} else if o.Err != nil {
		f.Message = o.Err.Error()
	}
	return f
}

func runErrorCode(err error) string {
	var re *engine.RunError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return ""
}

func writeSyncText(w io.Writer, r SyncResult) {
	fmt.Fprintf(w, "Run %s: %d record(s), %d done, %d up to date, %d failed (%d round trip(s))\n",
		r.RunID, len(r.Records), r.Done, r.UpToDate, r.Failed, r.RoundTrips)
	for _, rec := range r.Records {
		if len(rec.Failures) == 0 {
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", rec.Ref)
		for _, f := range rec.Failures {
			writeFailure(w, f)
		}
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Run aborted: %s\n", r.Error)
	}
}

func writeFailure(w io.Writer, f FailureResult) {
	target := f.Target
	if f.Phase != "" {
		target = f.Phase + " " + target
	}
	if f.Status == 0 {
		fmt.Fprintf(w, "  %s: %s\n", target, f.Message)
		return
	}
	fmt.Fprintf(w, "  %s: %d %s\n", target, f.Status, f.Message)
}
