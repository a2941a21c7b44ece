package entity

import (
	"fmt"

	"github.com/roach88/clubsync/internal/ir"
)

// Record is the input to Build: one record of some kind, its desired local
// state and, for updates, the last-known remote state.
type Record struct {
	// Key is the remote key. Required for read and update; on create it is
	// sent as the caller-supplied identity when set.
	Key Key

	// Parent is the owning subject's key. Required for association creates.
	Parent Key

	// Fields is the desired state. Only these keys are managed; remote
	// fields missing here are left alone.
	Fields *ir.Object

	// Remote is the last-known remote state, used to compute updates.
	Remote *ir.Object

	// Ref is copied onto the built request for correlation.
	Ref any
}

// Subject is a person to synchronize, with the associations it should own.
type Subject struct {
	Key          Key
	Fields       *ir.Object
	Associations []Association

	// Ref identifies the subject to the caller. It is never sent.
	Ref any
}

// Association is one desired association of a subject.
type Association struct {
	Kind   Kind
	Fields *ir.Object
}

// Identity returns the value that matches this association against remote
// ones of the same kind. Empty for single kinds.
func (a Association) Identity() string {
	field := a.Kind.IdentityField()
	if field == "" {
		return ""
	}
	v, _ := a.Fields.GetFold(field)
	return ir.Text(v)
}

// Label names the association for logs and reports, e.g. "Communication[Email]".
func (a Association) Label() string {
	if id := a.Identity(); id != "" {
		return fmt.Sprintf("%s[%s]", a.Kind, id)
	}
	return a.Kind.String()
}

// Validate checks that every association kind is known and that a subject
// holds at most one association per identity.
func (s *Subject) Validate() error {
	seen := make(map[string]bool)
	for _, a := range s.Associations {
		if a.Kind == KindSubject || !a.Kind.Valid() {
			return fmt.Errorf("entity: subject %s: %v is not an association kind", s.Key, a.Kind)
		}
		label := a.Label()
		if seen[label] {
			return fmt.Errorf("%w: subject %s has %s twice", ErrDuplicateAssociation, s.Key, label)
		}
		seen[label] = true
	}
	return nil
}
