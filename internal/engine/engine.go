package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/entity"
)

// Batcher runs one $batch round trip. *client.Client implements it.
//
// Results must be bound to reqs by position. Errors are run-level failures.
type Batcher interface {
	Batch(ctx context.Context, reqs []*batch.Request) ([]*batch.Result, error)
}

// Journal persists finished reports. *store.Store implements it.
type Journal interface {
	WriteReport(ctx context.Context, report *Report) error
}

// Engine runs synchronizations. An Engine holds no per-run state and may
// be reused; runs themselves are sequential.
type Engine struct {
	batcher  Batcher
	builder  *entity.Builder
	runIDs   RunIDGenerator
	now      func() time.Time
	journal  Journal
	logger   *slog.Logger
	maxParts int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithRunIDs sets the run ID generator.
// Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = gen
	}
}

// WithNow replaces time.Now for report timestamps.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithJournal makes every run write its report to j. Journal failures are
// logged and do not fail the run.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxParts sets the maximum parts per batch.
//
// Default: 1000 parts (DefaultMaxParts). Zero disables the check.
func WithMaxParts(n int) EngineOption {
	return func(e *Engine) {
		e.maxParts = n
	}
}

// New creates an Engine that sends batches through b.
func New(b Batcher, opts ...EngineOption) *Engine {
	e := &Engine{
		batcher:  b,
		builder:  entity.NewBuilder(),
		runIDs:   UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
		maxParts: DefaultMaxParts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync synchronizes subjects and reports the state each one ended in.
//
// The report is returned even when err is non-nil; records the run did not
// get to keep the state they had when it stopped. err is always a
// *RunError.
func (e *Engine) Sync(ctx context.Context, subjects []*entity.Subject) (*Report, error) {
	r := e.newRun(subjects)
	log := e.logger.With("run_id", r.id)
	log.Info("sync started", "records", len(subjects))

	err := r.execute(ctx)
	r.report.FinishedAt = e.now()
	if err != nil {
		r.report.Error = err.Error()
		log.Error("sync aborted", "error", err, "round_trips", r.report.RoundTrips)
	} else {
		log.Info("sync finished",
			"round_trips", r.report.RoundTrips,
			"done", r.report.Count(StateDone),
			"up_to_date", r.report.Count(StateUpToDate),
			"failed", r.report.Count(StateFailed))
	}

	if e.journal != nil {
		if jerr := e.journal.WriteReport(ctx, r.report); jerr != nil {
			log.Error("journal write failed", "error", jerr)
		}
	}
	return r.report, err
}
