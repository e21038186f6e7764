package model

import "slices"

// State is an immutable set of facts. A fact that is not present is false.
//
// States are values: Transition and Clone build new maps, and nothing hands
// out the internal storage for writing, so a state returned to a caller
// never aliases the state it was derived from.
type State struct {
	facts  map[string]Fact
	byPred map[string][]Fact
}

// NewState builds a state from facts. Duplicates collapse.
func NewState(facts ...Fact) State {
	s := State{
		facts:  make(map[string]Fact, len(facts)),
		byPred: make(map[string][]Fact),
	}
	for _, f := range facts {
		s.insert(f)
	}
	return s
}

func (s State) insert(f Fact) {
	k := f.Key()
	if _, ok := s.facts[k]; ok {
		return
	}
	f.Args = f.Args.Clone()
	s.facts[k] = f
	s.byPred[f.Predicate] = append(s.byPred[f.Predicate], f)
}

// Len returns the number of facts.
func (s State) Len() int { return len(s.facts) }

// Has reports whether f is true in s.
func (s State) Has(f Fact) bool {
	_, ok := s.facts[f.Key()]
	return ok
}

// Facts returns a sorted copy of every fact.
func (s State) Facts() []Fact {
	out := make([]Fact, 0, len(s.facts))
	for _, f := range s.facts {
		out = append(out, Fact{Predicate: f.Predicate, Args: f.Args.Clone()})
	}
	slices.SortFunc(out, CompareFacts)
	return out
}

// WithPredicate returns the facts of predicate p in insertion order. The
// slice and the fact arguments are shared with s and must not be modified.
func (s State) WithPredicate(p string) []Fact { return s.byPred[p] }

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		facts:  make(map[string]Fact, len(s.facts)),
		byPred: make(map[string][]Fact, len(s.byPred)),
	}
	for _, f := range s.Facts() {
		out.insert(f)
	}
	return out
}

// Equal reports whether both states hold the same facts.
func (s State) Equal(other State) bool {
	if len(s.facts) != len(other.facts) {
		return false
	}
	for k := range s.facts {
		if _, ok := other.facts[k]; !ok {
			return false
		}
	}
	return true
}

// Transition returns a new state: s without deletes, then with adds. Adding
// a present fact or deleting an absent one is a no-op, and a fact in both
// lists ends up present.
func (s State) Transition(deletes, adds []Fact) State {
	gone := make(map[string]struct{}, len(deletes))
	for _, f := range deletes {
		gone[f.Key()] = struct{}{}
	}
	out := State{
		facts:  make(map[string]Fact, len(s.facts)+len(adds)),
		byPred: make(map[string][]Fact, len(s.byPred)),
	}
	for _, f := range s.Facts() {
		if _, ok := gone[f.Key()]; ok {
			continue
		}
		out.insert(f)
	}
	for _, f := range adds {
		out.insert(f)
	}
	return out
}

// Diff returns the facts of s missing from before (added) and the facts of
// before missing from s (removed), both sorted.
func (s State) Diff(before State) (added, removed []Fact) {
	for _, f := range s.Facts() {
		if !before.Has(f) {
			added = append(added, f)
		}
	}
	for _, f := range before.Facts() {
		if !s.Has(f) {
			removed = append(removed, f)
		}
	}
	return added, removed
}
