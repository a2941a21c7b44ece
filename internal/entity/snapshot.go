package entity

import (
	"fmt"

	"github.com/roach88/clubsync/internal/ir"
)

// Snapshot is a subject as fetched with its associations expanded.
type Snapshot struct {
	Key    Key
	Fields *ir.Object

	associations map[Kind][]*ir.Object
}

// ParseSnapshot splits an expanded subject payload into the primary
// fields and the associations of each kind. A navigation property that is
// missing or null means no associations of that kind.
func ParseSnapshot(v ir.Value) (*Snapshot, error) {
	obj, ok := v.(*ir.Object)
	if !ok || obj == nil {
		return nil, fmt.Errorf("entity: subject payload is %T, want object", v)
	}

	snap := &Snapshot{
		Key:          KeyOf(obj),
		Fields:       ir.NewObject(),
		associations: make(map[Kind][]*ir.Object),
	}
	expanded := make(map[string]Kind, len(Associations))
	for _, k := range Associations {
		expanded[k.ExpandName()] = k
	}

	for _, p := range obj.Pairs() {
		kind, isNav := expanded[p.Key]
		if !isNav {
			snap.Fields.Set(p.Key, p.Value)
			continue
		}
		switch nav := p.Value.(type) {
		case ir.Null:
		case *ir.Object:
			snap.associations[kind] = []*ir.Object{nav}
		case ir.Array:
			for i, elem := range nav {
				child, ok := elem.(*ir.Object)
				if !ok {
					return nil, fmt.Errorf("entity: %s[%d] is %T, want object", p.Key, i, elem)
				}
				snap.associations[kind] = append(snap.associations[kind], child)
			}
		default:
			return nil, fmt.Errorf("entity: %s is %T, want object or array", p.Key, p.Value)
		}
	}
	return snap, nil
}

// Associations returns the fetched associations of kind, in payload order.
func (s *Snapshot) Associations(kind Kind) []*ir.Object {
	return s.associations[kind]
}

// Find returns the remote association matching a: for single kinds the
// first one fetched, otherwise the one whose identity field is equal.
func (s *Snapshot) Find(a Association) (*ir.Object, bool) {
	candidates := s.associations[a.Kind]
	field := a.Kind.IdentityField()
	if field == "" {
		if len(candidates) == 0 {
			return nil, false
		}
		return candidates[0], true
	}
	want, _ := a.Fields.GetFold(field)
	for _, c := range candidates {
		got, _ := c.GetFold(field)
		if ir.Equal(want, got) {
			return c, true
		}
	}
	return nil, false
}

// Decision is what the diff phase decided for one association.
type Decision struct {
	Association Association
	Op          Operation

	// Key and Remote are set for updates.
	Key    Key
	Remote *ir.Object
}

// Plan compares a subject against its snapshot. It reports whether the
// primary record needs an update, and one decision per association that is
// missing or differs. Matching associations produce nothing.
func Plan(s *Subject, snap *Snapshot) (primaryChanged bool, decisions []Decision) {
	primaryChanged = Diff(KindSubject, s.Fields, snap.Fields).Len() > 0
	for _, a := range s.Associations {
		remote, ok := snap.Find(a)
		if !ok {
			decisions = append(decisions, Decision{Association: a, Op: OpCreate})
			continue
		}
		if Diff(a.Kind, a.Fields, remote).Len() == 0 {
			continue
		}
		decisions = append(decisions, Decision{
			Association: a,
			Op:          OpUpdate,
			Key:         KeyOf(remote),
			Remote:      remote,
		})
	}
	return primaryChanged, decisions
}
