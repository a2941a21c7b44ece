// Package entity builds the logical requests for subjects and their
// associations, and decides what has to change by diffing local records
// against fetched remote state.
package entity

import (
	"fmt"
	"strings"
)

// Kind is a remote record kind.
type Kind int

// Record kinds. A Subject is the primary record; the rest are associations
// owned by a subject.
const (
	KindSubject Kind = iota + 1
	KindAddress
	KindCommunication
	KindCustomerLink
)

// Associations lists the association kinds in expand order.
var Associations = []Kind{KindAddress, KindCommunication, KindCustomerLink}

type kindInfo struct {
	name     string
	set      string
	expand   string
	required []string
	identity string
	single   bool
}

var kinds = map[Kind]kindInfo{
	KindSubject: {
		name:     "Subject",
		set:      "Subjects",
		required: []string{"Name"},
		single:   true,
	},
	KindAddress: {
		name:     "Address",
		set:      "Addresses",
		expand:   "Addresses",
		required: []string{"Street", "Zip", "City", "Country"},
		single:   true,
	},
	KindCommunication: {
		name:     "Communication",
		set:      "Communications",
		expand:   "Communications",
		required: []string{"Type", "Value"},
		identity: "Type",
	},
	KindCustomerLink: {
		name:     "CustomerLink",
		set:      "Customers",
		expand:   "Customer",
		required: []string{"Number"},
		single:   true,
	},
}

func (k Kind) info() kindInfo {
	info, ok := kinds[k]
	if !ok {
		panic(fmt.Sprintf("entity: unknown kind %d", int(k)))
	}
	return info
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return k.info().name
}

// EntitySet is the remote collection name, e.g. "Addresses".
func (k Kind) EntitySet() string { return k.info().set }

// ExpandName is the navigation property on a subject, empty for subjects.
func (k Kind) ExpandName() string { return k.info().expand }

// RequiredFields returns the fields that must be non-blank on create.
func (k Kind) RequiredFields() []string {
	return append([]string(nil), k.info().required...)
}

// IdentityField names the field that tells two associations of the same
// kind apart under one subject. Empty for kinds a subject has at most one
// of.
func (k Kind) IdentityField() string { return k.info().identity }

// Single reports whether a subject owns at most one record of this kind.
func (k Kind) Single() bool { return k.info().single }

// ParentField is the foreign key field associations carry.
func (k Kind) ParentField() string {
	if k == KindSubject {
		return ""
	}
	return ParentField
}

// ParentField is the subject foreign key on every association.
const ParentField = "SubjectId"

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k, info := range kinds {
		if strings.EqualFold(s, info.name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("entity: unknown kind %q", s)
}

// Operation is what a request does to a record.
type Operation int

// Operations.
const (
	OpRead Operation = iota + 1
	OpCreate
	OpUpdate
)

func (op Operation) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	}
	return fmt.Sprintf("Operation(%d)", int(op))
}
