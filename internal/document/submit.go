package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/correlate"
	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/outcome"
)

// API is what the Submitter needs from the client. *client.Client
// implements it.
type API interface {
	Batch(ctx context.Context, reqs []*batch.Request) ([]*batch.Result, error)
	Do(ctx context.Context, req *batch.Request) (*batch.Result, error)
}

// Mode selects how a document is sent.
type Mode int

const (
	// ModeSequence sends the header, then each line against the key the
	// header create returned, then the finalize action, one call at a time.
	ModeSequence Mode = iota

	// ModeBatch sends header and lines in one envelope and the finalize
	// action in a second one. The document key must be known up front.
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "sequence"
}

// ParseMode accepts "sequence" or "batch".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequence", "":
		return ModeSequence, nil
	case "batch":
		return ModeBatch, nil
	}
	return 0, fmt.Errorf("document: unknown mode %q", s)
}

// Step identifies which request of a submission an outcome belongs to.
type Step struct {
	// Kind is "header", "position" or "finalize".
	Kind string

	// Position is the 1-based line number for positions, 0 otherwise.
	Position int
}

func (s Step) String() string {
	if s.Kind == "position" {
		return fmt.Sprintf("position %d", s.Position)
	}
	return s.Kind
}

// StepOutcome pairs a step with its outcome.
type StepOutcome struct {
	Step    Step
	Outcome outcome.Outcome
}

// Attach implements correlate.Target.
func (so *StepOutcome) Attach(o outcome.Outcome) {
	so.Outcome = o
}

// Submission is the result of submitting one document.
type Submission struct {
	// Key is the remote document key, empty if the header failed.
	Key entity.Key

	// Total is the sum of the submitted line amounts.
	Total ir.Decimal

	Positions []Position

	// Outcomes are in request order: header, positions, finalize.
	Outcomes []*StepOutcome

	// Finalized reports whether the finalize action succeeded.
	Finalized bool
}

// Success reports whether every request succeeded and the document was
// finalized.
func (s *Submission) Success() bool {
	if !s.Finalized {
		return false
	}
	for _, so := range s.Outcomes {
		if !so.Outcome.Success {
			return false
		}
	}
	return true
}

// Failures returns the failed steps.
func (s *Submission) Failures() []*StepOutcome {
	var out []*StepOutcome
	for _, so := range s.Outcomes {
		if !so.Outcome.Success {
			out = append(out, so)
		}
	}
	return out
}

// Submitter sends documents.
type Submitter struct {
	api    API
	mode   Mode
	logger *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithMode sets the submission mode. Default: ModeSequence.
func WithMode(m Mode) Option {
	return func(s *Submitter) {
		s.mode = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = l
	}
}

// NewSubmitter creates a Submitter.
func NewSubmitter(api API, opts ...Option) *Submitter {
	s := &Submitter{api: api, mode: ModeSequence, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends doc. A rejected request is reported in the Submission, not
// as an error; errors are transport, auth and envelope failures, an empty
// document, or a missing document key.
func (s *Submitter) Submit(ctx context.Context, doc *Document) (*Submission, error) {
	positions, total, err := Number(doc.Lines)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return nil, ErrNoLines
	}
	sub := &Submission{Total: total, Positions: positions}

	log := s.logger.With("document", doc.Number, "mode", s.mode.String(), "positions", len(positions))
	if s.mode == ModeBatch {
		err = s.submitBatch(ctx, doc, sub)
	} else {
		err = s.submitSequence(ctx, doc, sub)
	}
	if err != nil {
		log.Error("document submission aborted", "error", err)
		return sub, err
	}

	if sub.Success() {
		log.Info("document submitted", "key", string(sub.Key), "total", sub.Total.String())
	} else {
		for _, f := range sub.Failures() {
			log.Warn("document step failed", "step", f.Step.String(), "status", f.Outcome.Status, "error", f.Outcome.Err)
		}
	}
	return sub, nil
}

func (s *Submitter) submitSequence(ctx context.Context, doc *Document, sub *Submission) error {
	header := &batch.Request{Method: batch.MethodPost, Path: HeaderSet, Fields: headerFields(doc)}
	ho, err := s.do(ctx, header, Step{Kind: "header"}, sub)
	if err != nil {
		return err
	}
	if !ho.Success {
		return nil
	}
	key := keyOf(ho, doc.Key)
	if key.IsZero() {
		return fmt.Errorf("%w: header create returned no Id", ErrMissingKey)
	}
	sub.Key = key

	allOK := true
	for _, p := range sub.Positions {
		req := &batch.Request{Method: batch.MethodPost, Path: PositionSet, Fields: positionFields(key, p)}
		po, err := s.do(ctx, req, Step{Kind: "position", Position: p.Number}, sub)
		if err != nil {
			return err
		}
		allOK = allOK && po.Success
	}
	if !allOK {
		return nil
	}

	fo, err := s.do(ctx, finalizeRequest(key), Step{Kind: "finalize"}, sub)
	if err != nil {
		return err
	}
	sub.Finalized = fo.Success
	return nil
}

func (s *Submitter) submitBatch(ctx context.Context, doc *Document, sub *Submission) error {
	if doc.Key.IsZero() {
		return fmt.Errorf("%w: batched submission needs a caller-supplied key", ErrMissingKey)
	}

	steps := []*StepOutcome{{Step: Step{Kind: "header"}}}
	reqs := []*batch.Request{{Method: batch.MethodPost, Path: HeaderSet, Fields: headerFields(doc), Ref: steps[0]}}
	for _, p := range sub.Positions {
		so := &StepOutcome{Step: Step{Kind: "position", Position: p.Number}}
		steps = append(steps, so)
		reqs = append(reqs, &batch.Request{Method: batch.MethodPost, Path: PositionSet, Fields: positionFields(doc.Key, p), Ref: so})
	}
	if err := s.roundTrip(ctx, reqs); err != nil {
		return err
	}
	sub.Outcomes = append(sub.Outcomes, steps...)

	if !steps[0].Outcome.Success {
		return nil
	}
	key := keyOf(steps[0].Outcome, doc.Key)
	sub.Key = key
	for _, so := range steps[1:] {
		if !so.Outcome.Success {
			return nil
		}
	}

	fin := &StepOutcome{Step: Step{Kind: "finalize"}}
	req := finalizeRequest(key)
	req.Ref = fin
	if err := s.roundTrip(ctx, []*batch.Request{req}); err != nil {
		return err
	}
	sub.Outcomes = append(sub.Outcomes, fin)
	sub.Finalized = fin.Outcome.Success
	return nil
}

func (s *Submitter) roundTrip(ctx context.Context, reqs []*batch.Request) error {
	results, err := s.api.Batch(ctx, reqs)
	if err != nil {
		return err
	}
	if err := batch.Bind(reqs, results); err != nil {
		return err
	}
	return correlate.New().Attach(results)
}

func (s *Submitter) do(ctx context.Context, req *batch.Request, step Step, sub *Submission) (outcome.Outcome, error) {
	res, err := s.api.Do(ctx, req)
	if err != nil {
		return outcome.Outcome{}, err
	}
	res.Request = req
	o := outcome.Normalize(res)
	sub.Outcomes = append(sub.Outcomes, &StepOutcome{Step: step, Outcome: o})
	return o, nil
}

func finalizeRequest(key entity.Key) *batch.Request {
	return &batch.Request{Method: batch.MethodPost, Path: FinalizePath(key), Fields: ir.NewObject()}
}

// keyOf prefers the key echoed by a header create over the fallback.
func keyOf(o outcome.Outcome, fallback entity.Key) entity.Key {
	if obj, ok := o.Body.(*ir.Object); ok {
		if k := entity.KeyOf(obj); !k.IsZero() {
			return k
		}
	}
	return fallback
}
