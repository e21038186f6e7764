package model

import "fmt"

// VarClass tags a schema variable as an action parameter or as an
// existentially quantified precondition variable.
type VarClass int

const (
	Parameter VarClass = iota
	Existential
)

func (c VarClass) String() string {
	switch c {
	case Parameter:
		return "parameter"
	case Existential:
		return "existential"
	default:
		return fmt.Sprintf("VarClass(%d)", int(c))
	}
}

// Variable is a typed schema variable.
type Variable struct {
	Name  string   `json:"name"`
	Type  string   `json:"type"`
	Class VarClass `json:"class"`
}

// Sign is the polarity of a precondition literal.
type Sign int

const (
	Positive Sign = iota
	Negative
)

func (s Sign) String() string {
	switch s {
	case Positive:
		return "+"
	case Negative:
		return "-"
	default:
		return fmt.Sprintf("Sign(%d)", int(s))
	}
}

// Literal is a precondition: a possibly negated predicate over schema
// variables, referenced by index.
type Literal struct {
	Sign      Sign   `json:"sign"`
	Predicate string `json:"predicate"`
	Vars      []int  `json:"vars"`
}

// EffectKind says whether an effect adds or deletes its atom.
type EffectKind int

const (
	Add EffectKind = iota
	Delete
)

func (k EffectKind) String() string {
	switch k {
	case Add:
		return "add"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("EffectKind(%d)", int(k))
	}
}

// Effect is an add or delete of a predicate over parameter variables.
type Effect struct {
	Kind      EffectKind `json:"kind"`
	Predicate string     `json:"predicate"`
	Vars      []int      `json:"vars"`
}

// Schema is a lifted action. Vars lists parameters first, then existential
// variables. Schemas are read-only once published in a Domain.
type Schema struct {
	Name    string     `json:"name"`
	Vars    []Variable `json:"vars"`
	Pre     []Literal  `json:"preconditions"`
	Effects []Effect   `json:"effects"`
}

// NumParams returns the number of parameter variables.
func (s *Schema) NumParams() int {
	n := 0
	for _, v := range s.Vars {
		if v.Class == Parameter {
			n++
		}
	}
	return n
}

// Params returns the parameter variables.
func (s *Schema) Params() []Variable { return s.Vars[:s.NumParams()] }

// Existentials returns the existential variables.
func (s *Schema) Existentials() []Variable { return s.Vars[s.NumParams():] }

// Ground substitutes params into every effect and returns the delete and add
// facts, each in declaration order.
func (s *Schema) Ground(params Tuple) (deletes, adds []Fact) {
	for _, e := range s.Effects {
		args := make(Tuple, len(e.Vars))
		for i, v := range e.Vars {
			args[i] = params[v]
		}
		f := Fact{Predicate: e.Predicate, Args: args}
		switch e.Kind {
		case Add:
			adds = append(adds, f)
		case Delete:
			deletes = append(deletes, f)
		}
	}
	return deletes, adds
}

// Formula is a precondition tree as produced by a domain reader. Only
// conjunctions of atoms, negated atoms and existential quantifiers compile
// into a Schema; the other forms exist so they can be rejected explicitly.
type Formula interface {
	formula()
}

// Atom is a predicate applied to variable names.
type Atom struct {
	Predicate string
	Args      []string
}

// And is a conjunction.
type And []Formula

// Or is a disjunction.
type Or []Formula

// Not negates its operand.
type Not struct{ Inner Formula }

// Imply is a material implication.
type Imply struct{ If, Then Formula }

// Exists introduces existentially quantified variables.
type Exists struct {
	Vars []VarDecl
	Body Formula
}

// ForAll introduces universally quantified variables.
type ForAll struct {
	Vars []VarDecl
	Body Formula
}

func (Atom) formula()   {}
func (And) formula()    {}
func (Or) formula()     {}
func (Not) formula()    {}
func (Imply) formula()  {}
func (Exists) formula() {}
func (ForAll) formula() {}

// VarDecl names a typed variable.
type VarDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// EffectDef is an add or delete effect over parameter names.
type EffectDef struct {
	Kind EffectKind
	Atom Atom
}

// ActionDef is an action as written in a domain description.
type ActionDef struct {
	Name         string
	Params       []VarDecl
	Precondition Formula
	Effects      []EffectDef
}

// CompileSchema turns an action definition into a Schema. Existential
// variables are appended after the parameters in the order they are met.
// Negation is only accepted directly over an atom; disjunction, implication,
// universal quantification and negated compound formulas fail with
// ErrUnsupportedPreconditionForm.
func CompileSchema(def ActionDef) (*Schema, error) {
	c := &schemaCompiler{
		schema: &Schema{Name: def.Name},
		scope:  make(map[string]int),
	}
	for _, p := range def.Params {
		if err := c.declare(p, Parameter); err != nil {
			return nil, fmt.Errorf("action %s: %w", def.Name, err)
		}
	}
	if err := c.flatten(def.Precondition); err != nil {
		return nil, fmt.Errorf("action %s: %w", def.Name, err)
	}
	for _, e := range def.Effects {
		vars, err := c.resolve(e.Atom, true)
		if err != nil {
			return nil, fmt.Errorf("action %s: effect %s: %w", def.Name, e.Atom.Predicate, err)
		}
		c.schema.Effects = append(c.schema.Effects, Effect{
			Kind:      e.Kind,
			Predicate: e.Atom.Predicate,
			Vars:      vars,
		})
	}
	return c.schema, nil
}

type schemaCompiler struct {
	schema *Schema
	scope  map[string]int
}

func (c *schemaCompiler) declare(d VarDecl, class VarClass) error {
	if _, dup := c.scope[d.Name]; dup {
		return fmt.Errorf("%w: variable %q", ErrDuplicateName, d.Name)
	}
	c.scope[d.Name] = len(c.schema.Vars)
	c.schema.Vars = append(c.schema.Vars, Variable{Name: d.Name, Type: d.Type, Class: class})
	return nil
}

func (c *schemaCompiler) resolve(a Atom, paramsOnly bool) ([]int, error) {
	vars := make([]int, len(a.Args))
	for i, name := range a.Args {
		idx, ok := c.scope[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		}
		if paramsOnly && c.schema.Vars[idx].Class != Parameter {
			return nil, fmt.Errorf("%w: %q is not a parameter", ErrUnknownVariable, name)
		}
		vars[i] = idx
	}
	return vars, nil
}

func (c *schemaCompiler) literal(sign Sign, a Atom) error {
	vars, err := c.resolve(a, false)
	if err != nil {
		return fmt.Errorf("precondition %s: %w", a.Predicate, err)
	}
	c.schema.Pre = append(c.schema.Pre, Literal{Sign: sign, Predicate: a.Predicate, Vars: vars})
	return nil
}

func (c *schemaCompiler) flatten(f Formula) error {
	switch f := f.(type) {
	case nil:
		return nil
	case Atom:
		return c.literal(Positive, f)
	case And:
		for _, part := range f {
			if err := c.flatten(part); err != nil {
				return err
			}
		}
		return nil
	case Exists:
		for _, d := range f.Vars {
			if err := c.declare(d, Existential); err != nil {
				return err
			}
		}
		return c.flatten(f.Body)
	case Not:
		a, ok := f.Inner.(Atom)
		if !ok {
			return fmt.Errorf("%w: negated %s", ErrUnsupportedPreconditionForm, formulaKind(f.Inner))
		}
		return c.literal(Negative, a)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedPreconditionForm, formulaKind(f))
	}
}

func formulaKind(f Formula) string {
	switch f.(type) {
	case Atom:
		return "atom"
	case And:
		return "conjunction"
	case Or:
		return "disjunction"
	case Not:
		return "negation"
	case Imply:
		return "implication"
	case Exists:
		return "existential"
	case ForAll:
		return "universal"
	default:
		return fmt.Sprintf("%T", f)
	}
}
