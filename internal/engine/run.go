package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/correlate"
	"github.com/roach88/clubsync/internal/entity"
	"github.com/roach88/clubsync/internal/ir"
	"github.com/roach88/clubsync/internal/outcome"
)

// ErrNoRemoteKey means a subject was created but neither the caller nor
// the remote system supplied a key to attach associations to.
var ErrNoRemoteKey = errors.New("engine: created subject has no key")

// run is the state of one Sync call.
type run struct {
	e       *Engine
	id      string
	clock   *Clock
	quota   *QuotaEnforcer
	log     *slog.Logger
	report  *Report
	records []*record
}

// record tracks one subject through the phases.
type record struct {
	subject *entity.Subject
	report  *RecordReport

	snapshot       *entity.Snapshot
	primaryChanged bool
	decisions      []entity.Decision
	created        bool
}

func (rec *record) state() State              { return rec.report.State }
func (rec *record) setState(s State)          { rec.report.State = s }
func (rec *record) remoteKey() entity.Key     { return rec.report.RemoteKey }
func (rec *record) setRemoteKey(k entity.Key) { rec.report.RemoteKey = k }

// attempt is the Ref of every request the engine sends. The correlator
// pushes the outcome into it.
type attempt struct {
	rec   *record
	phase Phase
	kind  entity.Kind
	op    entity.Operation
	label string
	req   *batch.Request

	out      outcome.Outcome
	attached bool
}

// Attach implements correlate.Target.
func (a *attempt) Attach(o outcome.Outcome) {
	a.out = o
	a.attached = true
}

func (e *Engine) newRun(subjects []*entity.Subject) *run {
	id := e.runIDs.Generate()
	r := &run{
		e:     e,
		id:    id,
		clock: NewClock(),
		quota: NewQuotaEnforcer(e.maxParts),
		log:   e.logger.With("run_id", id),
		report: &Report{
			RunID:     id,
			StartedAt: e.now(),
			Records:   make([]*RecordReport, 0, len(subjects)),
		},
	}
	for _, s := range subjects {
		rr := &RecordReport{Ref: s.Ref, Key: s.Key, State: StateUnknown}
		r.report.Records = append(r.report.Records, rr)
		r.records = append(r.records, &record{subject: s, report: rr})
	}
	return r
}

func (r *run) execute(ctx context.Context) error {
	r.validate()
	if err := r.fetch(ctx); err != nil {
		return err
	}
	if err := r.create(ctx); err != nil {
		return err
	}
	if err := r.associate(ctx); err != nil {
		return err
	}
	r.finish()
	return nil
}

// validate fails subjects whose associations are malformed before anything
// is sent for them.
func (r *run) validate() {
	for _, rec := range r.records {
		if err := rec.subject.Validate(); err != nil {
			r.fail(rec, PhaseValidate, entity.KindSubject, entity.OpRead, "Subject", nil, err)
		}
	}
}

// fetch reads every keyed subject with its associations expanded and
// decides create vs. update vs. nothing.
func (r *run) fetch(ctx context.Context) error {
	var attempts []*attempt
	for _, rec := range r.records {
		if rec.state() != StateUnknown {
			continue
		}
		if rec.subject.Key.IsZero() {
			rec.setState(StateNeedsCreate)
			continue
		}
		a := &attempt{rec: rec, phase: PhaseFetch, kind: entity.KindSubject, op: entity.OpRead, label: "Subject"}
		req, err := r.e.builder.Build(entity.KindSubject, entity.OpRead, entity.Record{Key: rec.subject.Key, Ref: a})
		if err != nil {
			r.fail(rec, PhaseFetch, entity.KindSubject, entity.OpRead, "Subject", nil, err)
			continue
		}
		a.req = req
		attempts = append(attempts, a)
	}

	if err := r.roundTrip(ctx, PhaseFetch, attempts); err != nil {
		return err
	}

	for _, a := range attempts {
		rec := a.rec
		switch {
		case a.out.Success:
			r.record(a, false)
			rec.setState(StateFetched)
			r.diff(a)
		case a.out.Status == http.StatusNotFound:
			r.record(a, true)
			rec.setState(StateNeedsCreate)
		default:
			r.record(a, false)
			rec.setState(StateFailed)
		}
	}
	return nil
}

// diff turns a fetched payload into an UpToDate or NeedsUpdate decision.
func (r *run) diff(a *attempt) {
	rec := a.rec
	snap, err := entity.ParseSnapshot(a.out.Body)
	if err != nil {
		r.fail(rec, PhaseFetch, entity.KindSubject, entity.OpRead, "Subject", a.req, err)
		return
	}
	rec.snapshot = snap
	if !snap.Key.IsZero() {
		rec.setRemoteKey(snap.Key)
	} else {
		rec.setRemoteKey(rec.subject.Key)
	}

	rec.primaryChanged, rec.decisions = entity.Plan(rec.subject, snap)
	if !rec.primaryChanged && len(rec.decisions) == 0 {
		rec.setState(StateUpToDate)
		return
	}
	rec.setState(StateNeedsUpdate)
}

// create creates every absent subject. Failures are final for the run.
func (r *run) create(ctx context.Context) error {
	var attempts []*attempt
	for _, rec := range r.records {
		if rec.state() != StateNeedsCreate {
			continue
		}
		a := &attempt{rec: rec, phase: PhaseCreate, kind: entity.KindSubject, op: entity.OpCreate, label: "Subject"}
		req, err := r.e.builder.Build(entity.KindSubject, entity.OpCreate, entity.Record{
			Key:    rec.subject.Key,
			Fields: rec.subject.Fields,
			Ref:    a,
		})
		if err != nil {
			r.fail(rec, PhaseCreate, entity.KindSubject, entity.OpCreate, "Subject", nil, err)
			continue
		}
		a.req = req
		attempts = append(attempts, a)
	}

	if err := r.roundTrip(ctx, PhaseCreate, attempts); err != nil {
		return err
	}

	for _, a := range attempts {
		rec := a.rec
		r.record(a, false)
		if !a.out.Success {
			rec.setState(StateFailed)
			continue
		}

		key := rec.subject.Key
		if echoed := createdKey(a.out); !echoed.IsZero() {
			key = echoed
		}
		rec.setRemoteKey(key)
		rec.created = true

		if key.IsZero() && len(rec.subject.Associations) > 0 {
			r.fail(rec, PhaseCreate, entity.KindSubject, entity.OpCreate, "Subject", a.req, ErrNoRemoteKey)
			continue
		}
		for _, assoc := range rec.subject.Associations {
			rec.decisions = append(rec.decisions, entity.Decision{Association: assoc, Op: entity.OpCreate})
		}
	}
	return nil
}

// associate sends primary updates and every association create or update
// in one batch.
func (r *run) associate(ctx context.Context) error {
	var attempts []*attempt
	for _, rec := range r.records {
		eligible := rec.state() == StateNeedsUpdate ||
			(rec.state() == StateNeedsCreate && rec.created)
		if !eligible {
			continue
		}

		if rec.primaryChanged {
			a := &attempt{rec: rec, phase: PhaseAssociate, kind: entity.KindSubject, op: entity.OpUpdate, label: "Subject"}
			r.schedule(&attempts, a, entity.Record{
				Key:    rec.remoteKey(),
				Fields: rec.subject.Fields,
				Remote: rec.snapshot.Fields,
			})
		}
		for _, d := range rec.decisions {
			a := &attempt{rec: rec, phase: PhaseAssociate, kind: d.Association.Kind, op: d.Op, label: d.Association.Label()}
			target := entity.Record{Fields: d.Association.Fields}
			if d.Op == entity.OpCreate {
				target.Parent = rec.remoteKey()
			} else {
				target.Key = d.Key
				target.Remote = d.Remote
			}
			r.schedule(&attempts, a, target)
		}
	}

	if err := r.roundTrip(ctx, PhaseAssociate, attempts); err != nil {
		return err
	}
	for _, a := range attempts {
		r.record(a, false)
	}
	return nil
}

// schedule builds the request for a and queues it, or records the build
// failure against the record without affecting its other requests.
func (r *run) schedule(attempts *[]*attempt, a *attempt, target entity.Record) {
	target.Ref = a
	req, err := r.e.builder.Build(a.kind, a.op, target)
	if err != nil {
		r.fail(a.rec, a.phase, a.kind, a.op, a.label, nil, err)
		return
	}
	a.req = req
	*attempts = append(*attempts, a)
}

// finish reduces each record that is still in flight: Done iff every
// attempt succeeded.
func (r *run) finish() {
	for _, rec := range r.records {
		if rec.state().Final() {
			continue
		}
		if len(rec.report.Failures()) > 0 {
			rec.setState(StateFailed)
			continue
		}
		rec.setState(StateDone)
	}
}

// roundTrip sends one batch for attempts and attaches every outcome.
func (r *run) roundTrip(ctx context.Context, phase Phase, attempts []*attempt) error {
	if len(attempts) == 0 {
		r.log.Debug("phase skipped", "phase", phase)
		return nil
	}
	if err := r.quota.Check(r.id, len(attempts)); err != nil {
		return &RunError{Code: ErrCodeQuotaExceeded, Phase: phase, RunID: r.id, Message: err.Error(), Err: err}
	}

	reqs := make([]*batch.Request, len(attempts))
	for i, a := range attempts {
		reqs[i] = a.req
	}
	r.log.Debug("phase batch", "phase", phase, "requests", len(reqs))

	results, err := r.e.batcher.Batch(ctx, reqs)
	if err != nil {
		return classify(r.id, phase, err)
	}
	r.report.RoundTrips++

	// Batchers are expected to bind; check anyway, attribution depends on it.
	if err := batch.Bind(reqs, results); err != nil {
		return classify(r.id, phase, err)
	}
	if err := correlate.New().Attach(results); err != nil {
		return classify(r.id, phase, err)
	}
	for i, a := range attempts {
		if !a.attached {
			return classify(r.id, phase, fmt.Errorf("%w: request %d has no outcome", batch.ErrStructural, i))
		}
	}
	return nil
}

// record appends an attributed outcome to its record's report.
func (r *run) record(a *attempt, tolerated bool) {
	att := Attempt{
		Seq:       r.clock.Next(),
		Phase:     a.phase,
		Kind:      a.kind,
		Op:        a.op,
		Label:     a.label,
		Outcome:   a.out,
		Tolerated: tolerated,
	}
	a.rec.report.Attempts = append(a.rec.report.Attempts, att)
	if att.Failed() {
		r.log.Warn("request failed",
			"phase", a.phase,
			"record", string(a.rec.subject.Key),
			"target", a.label,
			"status", a.out.Status,
			"error", a.out.Err)
	}
}

// fail records a failure detected locally and marks the record Failed when
// nothing about it can proceed.
func (r *run) fail(rec *record, phase Phase, kind entity.Kind, op entity.Operation, label string, req *batch.Request, err error) {
	a := &attempt{rec: rec, phase: phase, kind: kind, op: op, label: label, out: outcome.Local(req, err)}
	r.record(a, false)
	if phase != PhaseAssociate {
		rec.setState(StateFailed)
	}
}

// createdKey reads the key a create response echoed back, if any.
func createdKey(o outcome.Outcome) entity.Key {
	obj, ok := o.Body.(*ir.Object)
	if !ok {
		return ""
	}
	return entity.KeyOf(obj)
}
