package eval

import "github.com/gyunamister/goproq/internal/model"

// wildcardState tracks WC*-prefixed object type bindings for one Φ call.
// First reference binds to the object types of its satisfying objects;
// every later reference intersects with that set. State never outlives
// one Evaluate call (spec.md §3: "local to one query execution and reset
// per query").
type wildcardState struct {
	bound map[model.ObjectType]map[model.ObjectType]bool
}

func newWildcardState() *wildcardState {
	return &wildcardState{bound: make(map[model.ObjectType]map[model.ObjectType]bool)}
}

// candidates returns the object types a reference to ot should range
// over: ot itself when concrete, the full log type list when ot is an
// unbound wildcard, or the current narrowed binding otherwise.
func (w *wildcardState) candidates(ot model.ObjectType, allTypes []model.ObjectType) []model.ObjectType {
	if !ot.IsWildcard() {
		return []model.ObjectType{ot}
	}
	bound, ok := w.bound[ot]
	if !ok {
		return allTypes
	}
	var out []model.ObjectType
	for _, t := range allTypes {
		if bound[t] {
			out = append(out, t)
		}
	}
	return out
}

// bind narrows (or sets, if unbound) ot's binding to succeeding, the
// object types whose objects actually satisfied the predicate. No-op for
// non-wildcard types.
func (w *wildcardState) bind(ot model.ObjectType, succeeding []model.ObjectType) {
	if !ot.IsWildcard() {
		return
	}
	newSet := make(map[model.ObjectType]bool, len(succeeding))
	existing, ok := w.bound[ot]
	for _, t := range succeeding {
		if ok && !existing[t] {
			continue
		}
		newSet[t] = true
	}
	w.bound[ot] = newSet
}
