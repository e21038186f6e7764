// Package encode renders ground facts and actions in bracket notation,
// e.g. "(at t1 l1)" or "(drive t1 l1 l2 c1)", and parses them back.
package encode

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/daviddao/liftplan/pkg/model"
)

// ErrMalformed is returned for text that is not a bracketed, space
// separated name followed by object names.
var ErrMalformed = errors.New("malformed ground atom")

// Ground renders name applied to args. A nullary atom has no trailing space.
func Ground(name string, args model.Tuple, objects *model.ObjectTable) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(name)
	for _, id := range args {
		b.WriteByte(' ')
		b.WriteString(objects.Name(id))
	}
	b.WriteByte(')')
	return b.String()
}

// Fact renders a fact.
func Fact(f model.Fact, objects *model.ObjectTable) string {
	return Ground(f.Predicate, f.Args, objects)
}

// Action renders a ground action.
func Action(name string, args model.Tuple, objects *model.ObjectTable) string {
	return Ground(name, args, objects)
}

// Actions renders every ground action of an applicability map, sorted.
func Actions(actions map[string][]model.Tuple, objects *model.ObjectTable) []string {
	var out []string
	for name, ts := range actions {
		for _, t := range ts {
			out = append(out, Action(name, t, objects))
		}
	}
	sort.Strings(out)
	return out
}

// State renders every fact of s, sorted.
func State(s model.State, objects *model.ObjectTable) []string {
	facts := s.Facts()
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = Fact(f, objects)
	}
	sort.Strings(out)
	return out
}

// ParseGround parses "(name obj...)" into the name and object ids.
func ParseGround(text string, objects *model.ObjectTable) (string, model.Tuple, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	fields := strings.Fields(s[1 : len(s)-1])
	if len(fields) == 0 || strings.ContainsAny(s[1:len(s)-1], "()") {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	args := make(model.Tuple, 0, len(fields)-1)
	for _, name := range fields[1:] {
		id, ok := objects.Lookup(name)
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown object %q", model.ErrInvalidObjectReference, name)
		}
		args = append(args, id)
	}
	return fields[0], args, nil
}

// ParseFact parses a bracketed fact.
func ParseFact(text string, objects *model.ObjectTable) (model.Fact, error) {
	name, args, err := ParseGround(text, objects)
	if err != nil {
		return model.Fact{}, err
	}
	return model.Fact{Predicate: name, Args: args}, nil
}

// ParseState parses one bracketed fact per entry.
func ParseState(lines []string, objects *model.ObjectTable) (model.State, error) {
	facts := make([]model.Fact, 0, len(lines))
	for _, l := range lines {
		f, err := ParseFact(l, objects)
		if err != nil {
			return model.State{}, err
		}
		facts = append(facts, f)
	}
	return model.NewState(facts...), nil
}
