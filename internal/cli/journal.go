package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Failed      bool   // only failed outcomes
	Limit       int    // runs to list
	Fingerprint string // find outcomes by request body fingerprint
}

// RunView is a journaled run.
type RunView struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	RoundTrips int       `json:"round_trips"`
	Records    int       `json:"records"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
}

// RecordView is the final state of one journaled record.
type RecordView struct {
	Index     int    `json:"index"`
	Ref       string `json:"ref"`
	Key       string `json:"key,omitempty"`
	RemoteKey string `json:"remote_key,omitempty"`
	State     string `json:"state"`
}

// OutcomeView is one journaled outcome.
type OutcomeView struct {
	RunID       string     `json:"run_id"`
	Seq         int64      `json:"seq"`
	Ref         string     `json:"ref"`
	Phase       string     `json:"phase"`
	Label       string     `json:"label"`
	Method      string     `json:"method"`
	Path        string     `json:"path"`
	Status      int        `json:"status"`
	Success     bool       `json:"success"`
	Tolerated   bool       `json:"tolerated,omitempty"`
	Message     string     `json:"message,omitempty"`
	Fields      *ir.Object `json:"fields,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// RunDetail is the JSON payload of "journal <run-id>".
type RunDetail struct {
	Run      RunView       `json:"run"`
	Records  []RecordView  `json:"records"`
	Outcomes []OutcomeView `json:"outcomes"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal [run-id]",
		Short: "Inspect the run journal",
		Long: `Inspect runs written to the journal by sync.

Without arguments, lists recent runs newest first. With a run ID, shows
the final state of every record and the outcome of every request of that
run. With --fingerprint, lists every outcome whose request body had that
fingerprint, across runs.

Examples:
  clubsync journal --db clubsync.db
  clubsync journal 0190a6b2-... --failed
  clubsync journal --fingerprint 3f2a... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "show failed outcomes only")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "find outcomes by request body fingerprint")

	return cmd
}

func runJournal(opts *JournalOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	cfg, err := readConfig(opts.RootOptions)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	st, err := openJournal(opts.Database, cfg.Journal)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	if st == nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "no journal configured (use --db or CLUBSYNC_JOURNAL)", nil)
	}
	defer st.Close()

	switch {
	case opts.Fingerprint != "":
		return showFingerprint(opts, st, out, cmd)
	case len(args) == 1:
		return showRun(opts, st, args[0], out, cmd)
	default:
		return listRuns(opts, st, out, cmd)
	}
}

func listRuns(opts *JournalOptions, st *store.Store, out *OutputFormatter, cmd *cobra.Command) error {
	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to list runs", err)
	}

	views := make([]RunView, len(runs))
	for i, r := range runs {
		views[i] = runView(r)
	}
	return out.Render(views, nil, "", func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No runs journaled.")
			return
		}
		for _, v := range views {
			writeRunLine(w, v)
		}
	})
}

func showRun(opts *JournalOptions, st *store.Store, runID string, out *OutputFormatter, cmd *cobra.Command) error {
	ctx := cmd.Context()
	run, ok, err := st.GetRun(ctx, runID)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to read run", err)
	}
	if !ok {
		return out.Fail(ExitFailure, ErrCodeJournal, fmt.Sprintf("run %q not found", runID), nil)
	}
	records, err := st.ListRecords(ctx, runID)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to read records", err)
	}
	outcomes, err := st.ListOutcomes(ctx, runID, opts.Failed)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to read outcomes", err)
	}

	detail := RunDetail{
		Run:      runView(run),
		Records:  make([]RecordView, len(records)),
		Outcomes: outcomeViews(outcomes),
	}
	for i, r := range records {
		detail.Records[i] = RecordView{Index: r.Index, Ref: r.Ref, Key: r.Key, RemoteKey: r.RemoteKey, State: r.State}
	}

	return out.Render(detail, nil, runID, func(w io.Writer) {
		writeRunLine(w, detail.Run)
		fmt.Fprintln(w)
		for _, r := range detail.Records {
			fmt.Fprintf(w, "  %-20s %-12s remote_key=%s\n", r.Ref, r.State, r.RemoteKey)
		}
		if len(detail.Outcomes) > 0 {
			fmt.Fprintln(w)
			for _, o := range detail.Outcomes {
				writeOutcomeLine(w, o)
			}
		}
	})
}

func showFingerprint(opts *JournalOptions, st *store.Store, out *OutputFormatter, cmd *cobra.Command) error {
	outcomes, err := st.FindByFingerprint(cmd.Context(), opts.Fingerprint)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeJournal, "failed to search outcomes", err)
	}
	views := outcomeViews(outcomes)
	return out.Render(views, nil, "", func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintf(w, "No outcomes with fingerprint %s.\n", opts.Fingerprint)
			return
		}
		for _, o := range views {
			fmt.Fprintf(w, "%s ", o.RunID)
			writeOutcomeLine(w, o)
		}
	})
}

func runView(r store.RunSummary) RunView {
	return RunView{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		RoundTrips: r.RoundTrips,
		Records:    r.Records,
		Failed:     r.Failed,
		Error:      r.Error,
	}
}

func outcomeViews(rows []store.OutcomeRow) []OutcomeView {
	views := make([]OutcomeView, len(rows))
	for i, o := range rows {
		views[i] = OutcomeView{
			RunID:       o.RunID,
			Seq:         o.Seq,
			Ref:         o.Ref,
			Phase:       o.Phase,
			Label:       o.Label,
			Method:      o.Method,
			Path:        o.Path,
			Status:      o.Status,
			Success:     o.Success,
			Tolerated:   o.Tolerated,
			Message:     o.Message,
			Fields:      o.Fields,
			Fingerprint: o.Fingerprint,
		}
	}
	return views
}

func writeRunLine(w io.Writer, r RunView) {
	fmt.Fprintf(w, "%s  %s  %d record(s), %d failed, %d round trip(s)",
		r.ID, r.StartedAt.Format(time.RFC3339), r.Records, r.Failed, r.RoundTrips)
	if r.Error != "" {
		fmt.Fprintf(w, "  aborted: %s", r.Error)
	}
	fmt.Fprintln(w)
}

func writeOutcomeLine(w io.Writer, o OutcomeView) {
	verdict := "ok"
	switch {
	case o.Tolerated:
		verdict = "tolerated"
	case !o.Success:
		verdict = "failed"
	}
	fmt.Fprintf(w, "  %3d %-9s %-6s %s %d %s", o.Seq, o.Phase, o.Method, o.Path, o.Status, verdict)
	if o.Message != "" {
		fmt.Fprintf(w, ": %s", o.Message)
	}
	fmt.Fprintln(w)
}
