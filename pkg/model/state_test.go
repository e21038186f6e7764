package model

import "testing"

func TestState_DuplicatesCollapse(t *testing.T) {
	s := NewState(NewFact("at", 0, 1), NewFact("at", 0, 1), NewFact("handempty"))
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if !s.Has(NewFact("handempty")) {
		t.Fatal("nullary fact missing")
	}
	if s.Has(NewFact("at", 1, 0)) {
		t.Fatal("closed world: (at 1 0) should be false")
	}
}

func TestState_FactsSortedAndDetached(t *testing.T) {
	s := NewState(NewFact("in-city", 2, 3), NewFact("at", 0, 1))
	facts := s.Facts()
	if facts[0].Predicate != "at" || facts[1].Predicate != "in-city" {
		t.Fatalf("Facts not sorted: %v", facts)
	}
	facts[0].Args[0] = 9
	if !s.Has(NewFact("at", 0, 1)) {
		t.Fatal("mutating Facts() result changed the state")
	}
}

func TestState_NewStateCopiesArgs(t *testing.T) {
	args := Tuple{0, 1}
	s := NewState(Fact{Predicate: "at", Args: args})
	args[1] = 5
	if !s.Has(NewFact("at", 0, 1)) {
		t.Fatal("state aliases caller's args")
	}
}

func TestState_Transition(t *testing.T) {
	before := NewState(NewFact("at", 0, 1), NewFact("in-city", 1, 3))
	after := before.Transition(
		[]Fact{NewFact("at", 0, 1)},
		[]Fact{NewFact("at", 0, 2)},
	)
	if !after.Has(NewFact("at", 0, 2)) || after.Has(NewFact("at", 0, 1)) {
		t.Fatalf("Transition result wrong: %v", after.Facts())
	}
	if !before.Has(NewFact("at", 0, 1)) || before.Has(NewFact("at", 0, 2)) {
		t.Fatal("Transition mutated the original state")
	}
	if !after.Has(NewFact("in-city", 1, 3)) {
		t.Fatal("frame fact lost")
	}
}

func TestState_TransitionIdempotent(t *testing.T) {
	s := NewState(NewFact("at", 0, 1))
	got := s.Transition([]Fact{NewFact("at", 5, 5)}, []Fact{NewFact("at", 0, 1)})
	if got.Len() != s.Len() || !got.Equal(s) {
		t.Fatalf("idempotent effects changed the state: %v", got.Facts())
	}
}

func TestState_TransitionAddWinsOverDelete(t *testing.T) {
	f := NewFact("clear", 3)
	got := NewState().Transition([]Fact{f}, []Fact{f})
	if !got.Has(f) {
		t.Fatal("fact both added and deleted should end up present")
	}
}

func TestState_CloneAndEqual(t *testing.T) {
	s := NewState(NewFact("at", 0, 1), NewFact("handempty"))
	c := s.Clone()
	if !c.Equal(s) || !s.Equal(c) {
		t.Fatal("clone should equal original")
	}
	if s.Equal(NewState(NewFact("at", 0, 1))) {
		t.Fatal("states of different size reported equal")
	}
	if !NewState().Equal(State{}) {
		t.Fatal("empty state should equal zero state")
	}
}

func TestState_WithPredicate(t *testing.T) {
	s := NewState(NewFact("at", 0, 1), NewFact("at", 0, 2), NewFact("in-city", 1, 3))
	if got := len(s.WithPredicate("at")); got != 2 {
		t.Fatalf("WithPredicate(at) = %d facts, want 2", got)
	}
	if got := len(s.WithPredicate("none")); got != 0 {
		t.Fatalf("WithPredicate(none) = %d facts, want 0", got)
	}
}

func TestState_Diff(t *testing.T) {
	before := NewState(NewFact("at", 0, 1), NewFact("in-city", 1, 3))
	after := NewState(NewFact("at", 0, 2), NewFact("in-city", 1, 3))
	added, removed := after.Diff(before)
	if len(added) != 1 || added[0].Key() != NewFact("at", 0, 2).Key() {
		t.Fatalf("added = %v", added)
	}
	if len(removed) != 1 || removed[0].Key() != NewFact("at", 0, 1).Key() {
		t.Fatalf("removed = %v", removed)
	}
}
