package model

import (
	"fmt"
	"sort"
)

// RootType is the implicit ancestor of every declared type.
const RootType = "object"

// TypeHierarchy maps each declared type T to the set of types that are T or
// a transitive subtype of T. The table is reflexive and transitively closed,
// and every type used by predicates, objects or variables is a key.
type TypeHierarchy map[string]map[string]struct{}

// IsSubtype reports whether objectType is declaredType or one of its
// subtypes. It fails with ErrUnknownType if declaredType is not in the table.
func (h TypeHierarchy) IsSubtype(objectType, declaredType string) (bool, error) {
	accepted, err := h.Closure(declaredType)
	if err != nil {
		return false, err
	}
	_, ok := accepted[objectType]
	return ok, nil
}

// Closure returns the set of types accepted where declaredType is expected.
// The returned set is shared with the table and must not be modified.
func (h TypeHierarchy) Closure(declaredType string) (map[string]struct{}, error) {
	accepted, ok := h[declaredType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, declaredType)
	}
	return accepted, nil
}

// Has reports whether t is a declared type.
func (h TypeHierarchy) Has(t string) bool {
	_, ok := h[t]
	return ok
}

// Types returns every declared type, sorted.
func (h TypeHierarchy) Types() []string {
	out := make([]string, 0, len(h))
	for t := range h {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Subtypes returns the closure of t as a sorted slice.
func (h TypeHierarchy) Subtypes(t string) []string {
	out := make([]string, 0, len(h[t]))
	for s := range h[t] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Validate checks the closure invariants: every member is itself a key
// (ErrUnknownType), every entry contains its own key, and membership is
// transitive. Membership is checked for the whole table first, so a dangling
// member is always reported as ErrUnknownType.
func (h TypeHierarchy) Validate() error {
	types := h.Types()
	for _, parent := range types {
		for _, child := range h.Subtypes(parent) {
			if _, ok := h[child]; !ok {
				return fmt.Errorf("%w: %q (subtype of %q)", ErrUnknownType, child, parent)
			}
		}
	}
	for _, parent := range types {
		members := h[parent]
		if _, ok := members[parent]; !ok {
			return fmt.Errorf("type hierarchy: %q is not reflexive", parent)
		}
		for _, child := range h.Subtypes(parent) {
			for grandchild := range h[child] {
				if _, ok := members[grandchild]; !ok {
					return fmt.Errorf("type hierarchy: %q contains %q but not its subtype %q",
						parent, child, grandchild)
				}
			}
		}
	}
	return nil
}
