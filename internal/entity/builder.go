package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/clubsync/internal/batch"
	"github.com/roach88/clubsync/internal/ir"
)

var (
	// ErrMissingField means a create lacks a required field.
	ErrMissingField = errors.New("entity: missing required field")

	// ErrMissingKey means a read or update has no key to address.
	ErrMissingKey = errors.New("entity: missing key")

	// ErrUnchanged means an update would send no fields.
	ErrUnchanged = errors.New("entity: nothing to update")

	// ErrDuplicateAssociation means a subject holds the same association
	// twice.
	ErrDuplicateAssociation = errors.New("entity: duplicate association")
)

// Builder turns records into logical requests.
//
// Output is stable: the same input always yields the same method, path and
// field order, so encoded envelopes are byte-identical.
type Builder struct {
	expand []Kind
}

// NewBuilder creates a Builder whose subject reads expand every
// association kind.
func NewBuilder() *Builder {
	return &Builder{expand: Associations}
}

// Build produces the request for op on rec.
func (b *Builder) Build(kind Kind, op Operation, rec Record) (*batch.Request, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("entity: build: unknown kind %d", int(kind))
	}
	switch op {
	case OpRead:
		return b.read(kind, rec)
	case OpCreate:
		return b.create(kind, rec)
	case OpUpdate:
		return b.update(kind, rec)
	}
	return nil, fmt.Errorf("entity: build: unknown operation %d", int(op))
}

// ExpandQuery is the $expand option of subject reads.
func (b *Builder) ExpandQuery() string {
	names := make([]string, len(b.expand))
	for i, k := range b.expand {
		names[i] = k.ExpandName()
	}
	return "$expand=" + strings.Join(names, ",")
}

func (b *Builder) read(kind Kind, rec Record) (*batch.Request, error) {
	if rec.Key.IsZero() {
		return nil, fmt.Errorf("%w: read %s", ErrMissingKey, kind)
	}
	path := Path(kind, rec.Key)
	if kind == KindSubject && len(b.expand) > 0 {
		path += "?" + b.ExpandQuery()
	}
	return &batch.Request{Method: batch.MethodGet, Path: path, Ref: rec.Ref}, nil
}

func (b *Builder) create(kind Kind, rec Record) (*batch.Request, error) {
	if err := CheckRequired(kind, rec.Fields); err != nil {
		return nil, err
	}

	fields := ir.NewObject()
	if !rec.Key.IsZero() {
		fields.Set(IDField, rec.Key.Value())
	}
	if parent := kind.ParentField(); parent != "" {
		if rec.Parent.IsZero() {
			return nil, fmt.Errorf("%w: create %s without subject key", ErrMissingKey, kind)
		}
		fields.Set(parent, rec.Parent.Value())
	}
	for _, p := range rec.Fields.Pairs() {
		if p.Key == IDField || p.Key == kind.ParentField() {
			continue
		}
		fields.Set(p.Key, p.Value)
	}
	return &batch.Request{Method: batch.MethodPost, Path: kind.EntitySet(), Fields: fields, Ref: rec.Ref}, nil
}

func (b *Builder) update(kind Kind, rec Record) (*batch.Request, error) {
	if rec.Key.IsZero() {
		return nil, fmt.Errorf("%w: update %s", ErrMissingKey, kind)
	}
	changed := Diff(kind, rec.Fields, rec.Remote)
	if changed.Len() == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrUnchanged, kind, rec.Key)
	}
	return &batch.Request{Method: batch.MethodPatch, Path: Path(kind, rec.Key), Fields: changed, Ref: rec.Ref}, nil
}

// CheckRequired reports the first required field of kind that is blank in
// fields.
func CheckRequired(kind Kind, fields *ir.Object) error {
	for _, name := range kind.RequiredFields() {
		v, ok := fields.Get(name)
		if !ok || ir.IsBlank(v) {
			return fmt.Errorf("%w: %s.%s", ErrMissingField, kind, name)
		}
	}
	return nil
}
