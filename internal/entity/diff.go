package entity

import "github.com/roach88/clubsync/internal/ir"

// Diff returns the local fields whose value differs from remote, in local
// order. Keys absent locally are not managed and never appear. The key and
// parent fields are never part of a diff.
func Diff(kind Kind, local, remote *ir.Object) *ir.Object {
	out := ir.NewObject()
	for _, p := range local.Pairs() {
		if p.Key == IDField || (kind.ParentField() != "" && p.Key == kind.ParentField()) {
			continue
		}
		rv, ok := remote.Get(p.Key)
		if !ok {
			rv, _ = remote.GetFold(p.Key)
		}
		if !ir.Equal(p.Value, rv) {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}

// Apply returns a copy of remote with diff applied, the state the remote
// record has after a successful update.
func Apply(remote, diff *ir.Object) *ir.Object {
	out := remote.Clone()
	out.Merge(diff)
	return out
}
