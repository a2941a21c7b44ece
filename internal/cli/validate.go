package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/clubsync/internal/document"
	"github.com/roach88/clubsync/internal/input"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Document bool // treat the file as a sales document
	Schema   bool // print the record schema and exit
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool            `json:"valid"`
	Records   int             `json:"records,omitempty"`
	Positions int             `json:"positions,omitempty"`
	Total     string          `json:"total,omitempty"`
	Problems  []input.Problem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check an input file offline",
		Long: `Check a records file (or, with --document, a sales document)
without contacting the accounting system.

Records are checked for required fields per subject and association
kind. Documents are parsed and their lines numbered, so the output shows
the positions and total that submit would send.

Exit codes:
  0 - Input is valid
  1 - Input is invalid

Examples:
  clubsync validate members.yaml
  clubsync validate order.yaml --document
  clubsync validate --schema`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Document, "document", false, "validate a sales document instead of records")
	cmd.Flags().BoolVar(&opts.Schema, "schema", false, "print the record schema")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Schema {
		fmt.Fprint(cmd.OutOrStdout(), input.Schema())
		return nil
	}
	if len(args) == 0 {
		return NewExitError(ExitCommandError, "validate needs a file (or --schema)")
	}

	if opts.Document {
		return validateDocument(formatter, args[0])
	}
	return validateRecords(formatter, args[0])
}

func validateRecords(formatter *OutputFormatter, path string) error {
	subjects, err := input.LoadRecords(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, "failed to load records", err)
	}
	formatter.VerboseLog("Checking %d record(s) from %s", len(subjects), path)

	v, err := input.NewValidator()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalid, "failed to build record schema", err)
	}
	problems := v.Validate(subjects)
	result := ValidationResult{
		Valid:    len(problems) == 0,
		Records:  len(subjects),
		Problems: problems,
	}

	var failure *CLIError
	if !result.Valid {
		failure = &CLIError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%d problem(s) found", len(problems))}
	}
	if err := formatter.Render(result, failure, "", func(w io.Writer) {
		if result.Valid {
			fmt.Fprintf(w, "✓ %d record(s) valid\n", result.Records)
			return
		}
		writeProblems(w, problems)
	}); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) found", len(problems)))
	}
	return nil
}

func validateDocument(formatter *OutputFormatter, path string) error {
	doc, err := input.LoadDocument(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, "failed to load document", err)
	}

	positions, total, err := document.Number(doc.Lines)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "invalid document lines", err)
	}
	if len(positions) == 0 {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "document has nothing to submit", document.ErrNoLines)
	}
	formatter.VerboseLog("Dropped %d zero-value line(s)", len(doc.Lines)-len(positions))

	result := ValidationResult{
		Valid:     true,
		Positions: len(positions),
		Total:     total.String(),
	}
	return formatter.Render(result, nil, "", func(w io.Writer) {
		fmt.Fprintf(w, "✓ Document valid: %d position(s), total %s\n", result.Positions, result.Total)
		for _, p := range positions {
			fmt.Fprintf(w, "  %d %s %s x %s = %s\n",
				p.Number, p.Line.Article, p.Quantity.String(), p.UnitPrice.String(), p.Amount.String())
		}
	})
}
