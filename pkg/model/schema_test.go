package model

import (
	"errors"
	"slices"
	"testing"
)

func driveDef() ActionDef {
	return ActionDef{
		Name: "drive",
		Params: []VarDecl{
			{Name: "t", Type: "truck"},
			{Name: "from", Type: "location"},
			{Name: "to", Type: "location"},
			{Name: "c", Type: "city"},
		},
		Precondition: And{
			Atom{Predicate: "at", Args: []string{"t", "from"}},
			Atom{Predicate: "in-city", Args: []string{"from", "c"}},
			Atom{Predicate: "in-city", Args: []string{"to", "c"}},
		},
		Effects: []EffectDef{
			{Kind: Delete, Atom: Atom{Predicate: "at", Args: []string{"t", "from"}}},
			{Kind: Add, Atom: Atom{Predicate: "at", Args: []string{"t", "to"}}},
		},
	}
}

func TestCompileSchema_Drive(t *testing.T) {
	s, err := CompileSchema(driveDef())
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	if s.NumParams() != 4 || len(s.Existentials()) != 0 {
		t.Fatalf("params=%d existentials=%d", s.NumParams(), len(s.Existentials()))
	}
	want := [][]int{{0, 1}, {1, 3}, {2, 3}}
	for i, l := range s.Pre {
		if l.Sign != Positive || !slices.Equal(l.Vars, want[i]) {
			t.Fatalf("pre[%d] = %+v, want +%v", i, l, want[i])
		}
	}
	if s.Effects[0].Kind != Delete || !slices.Equal(s.Effects[0].Vars, []int{0, 1}) {
		t.Fatalf("effect 0 = %+v", s.Effects[0])
	}
}

func TestCompileSchema_ExistentialAfterParams(t *testing.T) {
	def := driveDef()
	def.Params = def.Params[:3]
	def.Precondition = And{
		Atom{Predicate: "at", Args: []string{"t", "from"}},
		Exists{
			Vars: []VarDecl{{Name: "c", Type: "city"}},
			Body: And{
				Atom{Predicate: "in-city", Args: []string{"from", "c"}},
				Atom{Predicate: "in-city", Args: []string{"to", "c"}},
			},
		},
		Not{Inner: Atom{Predicate: "at", Args: []string{"t", "to"}}},
	}
	s, err := CompileSchema(def)
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	if s.NumParams() != 3 {
		t.Fatalf("NumParams = %d, want 3", s.NumParams())
	}
	if ex := s.Existentials(); len(ex) != 1 || ex[0].Name != "c" || ex[0].Class != Existential {
		t.Fatalf("existentials = %+v", ex)
	}
	last := s.Pre[len(s.Pre)-1]
	if last.Sign != Negative || !slices.Equal(last.Vars, []int{0, 2}) {
		t.Fatalf("negated literal = %+v", last)
	}
}

func TestCompileSchema_Unsupported(t *testing.T) {
	a := Atom{Predicate: "at", Args: []string{"t", "from"}}
	b := Atom{Predicate: "at", Args: []string{"t", "to"}}
	cases := []struct {
		name string
		pre  Formula
	}{
		{"disjunction", Or{a, b}},
		{"negated conjunction", Not{Inner: And{a, b}}},
		{"negated disjunction", Not{Inner: Or{a, b}}},
		{"negated existential", Not{Inner: Exists{Vars: []VarDecl{{Name: "x", Type: "city"}}, Body: a}}},
		{"double negation", Not{Inner: Not{Inner: a}}},
		{"implication", Imply{If: a, Then: b}},
		{"universal", ForAll{Vars: []VarDecl{{Name: "x", Type: "city"}}, Body: a}},
		{"nested in conjunction", And{a, Or{a, b}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := driveDef()
			def.Precondition = tc.pre
			s, err := CompileSchema(def)
			if !errors.Is(err, ErrUnsupportedPreconditionForm) {
				t.Fatalf("got %v, want ErrUnsupportedPreconditionForm", err)
			}
			if s != nil {
				t.Fatal("a partial schema was returned")
			}
		})
	}
}

func TestCompileSchema_VariableErrors(t *testing.T) {
	unknown := driveDef()
	unknown.Precondition = Atom{Predicate: "at", Args: []string{"t", "nowhere"}}
	if _, err := CompileSchema(unknown); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("unknown variable: got %v", err)
	}

	shadow := driveDef()
	shadow.Precondition = Exists{Vars: []VarDecl{{Name: "t", Type: "truck"}}, Body: nil}
	if _, err := CompileSchema(shadow); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("shadowed variable: got %v", err)
	}

	existentialEffect := driveDef()
	existentialEffect.Params = existentialEffect.Params[:3]
	existentialEffect.Precondition = Exists{Vars: []VarDecl{{Name: "c", Type: "city"}}, Body: nil}
	existentialEffect.Effects = []EffectDef{{Kind: Add, Atom: Atom{Predicate: "in-city", Args: []string{"to", "c"}}}}
	if _, err := CompileSchema(existentialEffect); !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("existential in effect: got %v", err)
	}
}

func TestSchemaGround(t *testing.T) {
	s, err := CompileSchema(driveDef())
	if err != nil {
		t.Fatal(err)
	}
	del, add := s.Ground(Tuple{0, 1, 2, 3})
	if len(del) != 1 || del[0].Key() != NewFact("at", 0, 1).Key() {
		t.Fatalf("deletes = %v", del)
	}
	if len(add) != 1 || add[0].Key() != NewFact("at", 0, 2).Key() {
		t.Fatalf("adds = %v", add)
	}
}
