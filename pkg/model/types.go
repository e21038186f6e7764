// Package model defines the core data types for liftplan.
//
// A planning task is described by two layers:
//
//   - A domain: a closed type hierarchy, predicate signatures, constants and
//     a library of action schemas. Schemas are lifted: their preconditions
//     and effects mention typed variables, not objects.
//
//   - A problem: the ordered object table (constants first), the initial
//     state and the goal. An object's identity is its position in the table
//     and stays stable for the lifetime of the loaded problem.
//
// States are immutable sets of ground facts under the closed-world
// assumption. Every operation that produces a state builds a fresh value.
package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ObjectID is the position of an object in the problem's object table.
type ObjectID int

// Object is a named, typed constant of a problem. Type is the object's most
// specific declared type.
type Object struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// ObjectTable stores objects as two parallel ordered sequences (names and
// types) plus a name index built once at construction.
type ObjectTable struct {
	names []string
	types []string
	index map[string]ObjectID
}

// NewObjectTable builds a table from objects in order. Names must be unique.
func NewObjectTable(objects []Object) (*ObjectTable, error) {
	t := &ObjectTable{
		names: make([]string, len(objects)),
		types: make([]string, len(objects)),
		index: make(map[string]ObjectID, len(objects)),
	}
	for i, o := range objects {
		if _, dup := t.index[o.Name]; dup {
			return nil, fmt.Errorf("%w: object %q", ErrDuplicateName, o.Name)
		}
		t.names[i] = o.Name
		t.types[i] = o.Type
		t.index[o.Name] = ObjectID(i)
	}
	return t, nil
}

// Len returns the number of objects.
func (t *ObjectTable) Len() int { return len(t.names) }

// Valid reports whether id refers to an object of the table.
func (t *ObjectTable) Valid(id ObjectID) bool {
	return id >= 0 && int(id) < len(t.names)
}

// Check fails with ErrInvalidObjectReference on the first id out of range.
func (t *ObjectTable) Check(ids ...ObjectID) error {
	for _, id := range ids {
		if !t.Valid(id) {
			return fmt.Errorf("%w: %d (table has %d objects)", ErrInvalidObjectReference, id, len(t.names))
		}
	}
	return nil
}

// Name returns the name of a valid object.
func (t *ObjectTable) Name(id ObjectID) string { return t.names[id] }

// Type returns the declared type of a valid object.
func (t *ObjectTable) Type(id ObjectID) string { return t.types[id] }

// Lookup resolves an object name.
func (t *ObjectTable) Lookup(name string) (ObjectID, bool) {
	id, ok := t.index[name]
	return id, ok
}

// Objects returns a copy of the table in index order.
func (t *ObjectTable) Objects() []Object {
	out := make([]Object, len(t.names))
	for i := range t.names {
		out[i] = Object{Name: t.names[i], Type: t.types[i]}
	}
	return out
}

// OfType returns, in index order, every object whose type is declared or
// one of its subtypes.
func (t *ObjectTable) OfType(h TypeHierarchy, declared string) ([]ObjectID, error) {
	accepted, err := h.Closure(declared)
	if err != nil {
		return nil, err
	}
	var out []ObjectID
	for i, typ := range t.types {
		if _, ok := accepted[typ]; ok {
			out = append(out, ObjectID(i))
		}
	}
	return out, nil
}

// Tuple is an ordered list of object ids: the arguments of a fact or the
// parameter values of a ground action.
type Tuple []ObjectID

// Key returns a string usable as a map key; equal tuples have equal keys.
func (t Tuple) Key() string {
	var b strings.Builder
	for i, id := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

// Equal reports element-wise equality.
func (t Tuple) Equal(other Tuple) bool { return slices.Equal(t, other) }

// Clone returns a copy that shares no storage with t.
func (t Tuple) Clone() Tuple {
	if t == nil {
		return nil
	}
	return slices.Clone(t)
}

// CompareTuples orders tuples lexicographically, shorter first on a tie.
func CompareTuples(a, b Tuple) int { return slices.Compare(a, b) }

// Fact is a ground atom: a predicate applied to objects.
type Fact struct {
	Predicate string `json:"predicate"`
	Args      Tuple  `json:"args"`
}

// NewFact builds a fact, copying args.
func NewFact(predicate string, args ...ObjectID) Fact {
	return Fact{Predicate: predicate, Args: Tuple(args).Clone()}
}

// Key identifies the fact inside a State.
func (f Fact) Key() string { return f.Predicate + "(" + f.Args.Key() + ")" }

// String returns the index form, e.g. at(0,1).
func (f Fact) String() string { return f.Key() }

// CompareFacts orders facts by predicate, then arguments.
func CompareFacts(a, b Fact) int {
	if c := strings.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return CompareTuples(a.Args, b.Args)
}

// Slot is one entry of an Assignment: either unbound or bound to an object.
// The zero value is unbound, so index 0 never doubles as a placeholder.
type Slot struct {
	id    ObjectID
	bound bool
}

// Unbound returns an empty slot.
func Unbound() Slot { return Slot{} }

// Bound returns a slot holding id.
func Bound(id ObjectID) Slot { return Slot{id: id, bound: true} }

// Get returns the bound object, if any.
func (s Slot) Get() (ObjectID, bool) { return s.id, s.bound }

// IsBound reports whether the slot holds an object.
func (s Slot) IsBound() bool { return s.bound }

func (s Slot) String() string {
	if !s.bound {
		return "_"
	}
	return strconv.Itoa(int(s.id))
}

// Assignment maps each schema variable, by position, to a slot. An
// assignment is copied, never edited in place, once it has been handed to
// another step of a query.
type Assignment []Slot

// NewAssignment returns n unbound slots.
func NewAssignment(n int) Assignment { return make(Assignment, n) }

// Seed returns an assignment of length n whose leading slots are bound to
// params and whose remaining slots are unbound.
func Seed(params Tuple, n int) Assignment {
	a := NewAssignment(n)
	for i, id := range params {
		a[i] = Bound(id)
	}
	return a
}

// Clone returns an independent copy.
func (a Assignment) Clone() Assignment { return slices.Clone(a) }

// Tuple returns the bound values of the first n slots. ok is false if any
// of them is unbound.
func (a Assignment) Tuple(n int) (Tuple, bool) {
	out := make(Tuple, n)
	for i := 0; i < n; i++ {
		id, ok := a[i].Get()
		if !ok {
			return nil, false
		}
		out[i] = id
	}
	return out, true
}

func (a Assignment) String() string {
	parts := make([]string, len(a))
	for i, s := range a {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// GroundAction is a schema instantiated on concrete parameter values.
type GroundAction struct {
	Schema string `json:"schema"`
	Args   Tuple  `json:"args"`
}

// Run is a persisted trajectory: a sequence of state generations starting
// from a problem's initial state.
type Run struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	Problem     string    `json:"problem"`
	DomainFile  string    `json:"domain_file,omitempty"`
	ProblemFile string    `json:"problem_file,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Snapshot is one persisted state generation of a run. Facts are stored in
// bracket notation so they survive reloading the problem.
type Snapshot struct {
	RunID      string    `json:"run_id"`
	Generation int64     `json:"generation"`
	Action     string    `json:"action,omitempty"`
	Facts      []string  `json:"facts"`
	CreatedAt  time.Time `json:"created_at"`
}
