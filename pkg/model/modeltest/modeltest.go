// Package modeltest builds small domains and problems for tests.
package modeltest

import (
	"testing"

	"github.com/daviddao/liftplan/pkg/model"
)

// Closure builds a TypeHierarchy from child→parent pairs. Every parent chain
// ends at model.RootType.
func Closure(parents map[string]string) model.TypeHierarchy {
	h := model.TypeHierarchy{model.RootType: {model.RootType: {}}}
	for child := range parents {
		h[child] = map[string]struct{}{child: {}}
	}
	for child := range parents {
		for p := parents[child]; ; p = parents[p] {
			if h[p] == nil {
				h[p] = map[string]struct{}{p: {}}
			}
			h[p][child] = struct{}{}
			if p == model.RootType {
				break
			}
		}
	}
	return h
}

func atom(pred string, args ...string) model.Atom {
	return model.Atom{Predicate: pred, Args: args}
}

func mustCompile(t testing.TB, def model.ActionDef) *model.Schema {
	t.Helper()
	s, err := model.CompileSchema(def)
	if err != nil {
		t.Fatalf("compile %s: %v", def.Name, err)
	}
	return s
}

// Logistics returns the four-object drive scenario: truck t1 at l1, and
// l1, l2 both in city c1. Objects are t1(0) l1(1) l2(2) c1(3).
func Logistics(t testing.TB) *model.Problem {
	t.Helper()
	h := Closure(map[string]string{
		"vehicle":  model.RootType,
		"truck":    "vehicle",
		"location": model.RootType,
		"city":     model.RootType,
	})
	drive := mustCompile(t, model.ActionDef{
		Name: "drive",
		Params: []model.VarDecl{
			{Name: "t", Type: "truck"},
			{Name: "from", Type: "location"},
			{Name: "to", Type: "location"},
			{Name: "c", Type: "city"},
		},
		Precondition: model.And{
			atom("at", "t", "from"),
			atom("in-city", "from", "c"),
			atom("in-city", "to", "c"),
		},
		Effects: []model.EffectDef{
			{Kind: model.Delete, Atom: atom("at", "t", "from")},
			{Kind: model.Add, Atom: atom("at", "t", "to")},
		},
	})
	preds := []model.Predicate{
		{Name: "at", Params: []string{"vehicle", "location"}},
		{Name: "in-city", Params: []string{"location", "city"}},
	}
	d, err := model.NewDomain("logistics", h, preds, nil, []*model.Schema{drive})
	if err != nil {
		t.Fatalf("logistics domain: %v", err)
	}
	p, err := model.NewProblem(d, "logistics-1", []model.Object{
		{Name: "t1", Type: "truck"},
		{Name: "l1", Type: "location"},
		{Name: "l2", Type: "location"},
		{Name: "c1", Type: "city"},
	}, []model.Fact{
		model.NewFact("at", 0, 1),
		model.NewFact("in-city", 1, 3),
		model.NewFact("in-city", 2, 3),
	}, []model.GoalLiteral{
		{Sign: model.Positive, Fact: model.NewFact("at", 0, 2)},
	})
	if err != nil {
		t.Fatalf("logistics problem: %v", err)
	}
	return p
}

// Transport object ids.
const (
	T1 model.ObjectID = iota
	T2
	A1
	L1
	L2
	L3
	AP1
	C1
	C2
	P1
	P2
)

// Transport returns a richer domain covering subtypes, existential
// variables, negative and nullary preconditions, free variables and a
// zero-parameter action.
//
// Types: truck, plane < vehicle; airport < location; city; package.
// l1, l2 and ap1 are in c1; l3 is in c2. t1 is at l1, t2 at l3, a1 at ap1.
// p1 is at l1, p2 is in t2. handempty holds.
func Transport(t testing.TB) *model.Problem {
	t.Helper()
	h := Closure(map[string]string{
		"vehicle":  model.RootType,
		"truck":    "vehicle",
		"plane":    "vehicle",
		"location": model.RootType,
		"airport":  "location",
		"city":     model.RootType,
		"package":  model.RootType,
	})
	preds := []model.Predicate{
		{Name: "at", Params: []string{"vehicle", "location"}},
		{Name: "pkg-at", Params: []string{"package", "location"}},
		{Name: "in", Params: []string{"package", "vehicle"}},
		{Name: "in-city", Params: []string{"location", "city"}},
		{Name: "handempty"},
		{Name: "fuel-low"},
	}
	schemas := []*model.Schema{
		mustCompile(t, model.ActionDef{
			Name: "drive",
			Params: []model.VarDecl{
				{Name: "t", Type: "truck"},
				{Name: "from", Type: "location"},
				{Name: "to", Type: "location"},
			},
			Precondition: model.And{
				atom("at", "t", "from"),
				model.Exists{
					Vars: []model.VarDecl{{Name: "c", Type: "city"}},
					Body: model.And{atom("in-city", "from", "c"), atom("in-city", "to", "c")},
				},
				model.Not{Inner: atom("at", "t", "to")},
			},
			Effects: []model.EffectDef{
				{Kind: model.Delete, Atom: atom("at", "t", "from")},
				{Kind: model.Add, Atom: atom("at", "t", "to")},
			},
		}),
		mustCompile(t, model.ActionDef{
			Name: "load",
			Params: []model.VarDecl{
				{Name: "p", Type: "package"},
				{Name: "v", Type: "vehicle"},
				{Name: "l", Type: "location"},
			},
			Precondition: model.And{atom("pkg-at", "p", "l"), atom("at", "v", "l")},
			Effects: []model.EffectDef{
				{Kind: model.Delete, Atom: atom("pkg-at", "p", "l")},
				{Kind: model.Add, Atom: atom("in", "p", "v")},
			},
		}),
		mustCompile(t, model.ActionDef{
			Name: "unload",
			Params: []model.VarDecl{
				{Name: "p", Type: "package"},
				{Name: "v", Type: "vehicle"},
				{Name: "l", Type: "location"},
			},
			Precondition: model.And{atom("in", "p", "v"), atom("at", "v", "l")},
			Effects: []model.EffectDef{
				{Kind: model.Delete, Atom: atom("in", "p", "v")},
				{Kind: model.Add, Atom: atom("pkg-at", "p", "l")},
			},
		}),
		mustCompile(t, model.ActionDef{
			Name:   "refuel",
			Params: []model.VarDecl{{Name: "v", Type: "vehicle"}},
			Precondition: model.And{
				atom("handempty"),
				model.Not{Inner: atom("fuel-low")},
			},
			Effects: []model.EffectDef{
				{Kind: model.Delete, Atom: atom("handempty")},
				{Kind: model.Add, Atom: atom("fuel-low")},
			},
		}),
		mustCompile(t, model.ActionDef{
			Name: "inspect",
			Params: []model.VarDecl{
				{Name: "v", Type: "plane"},
				{Name: "l", Type: "airport"},
			},
			Precondition: model.Not{Inner: atom("at", "v", "l")},
		}),
		mustCompile(t, model.ActionDef{
			Name:         "wait",
			Precondition: atom("handempty"),
		}),
	}
	d, err := model.NewDomain("transport", h, preds, nil, schemas)
	if err != nil {
		t.Fatalf("transport domain: %v", err)
	}
	p, err := model.NewProblem(d, "transport-1", []model.Object{
		{Name: "t1", Type: "truck"},
		{Name: "t2", Type: "truck"},
		{Name: "a1", Type: "plane"},
		{Name: "l1", Type: "location"},
		{Name: "l2", Type: "location"},
		{Name: "l3", Type: "location"},
		{Name: "ap1", Type: "airport"},
		{Name: "c1", Type: "city"},
		{Name: "c2", Type: "city"},
		{Name: "p1", Type: "package"},
		{Name: "p2", Type: "package"},
	}, []model.Fact{
		model.NewFact("at", T1, L1),
		model.NewFact("at", T2, L3),
		model.NewFact("at", A1, AP1),
		model.NewFact("in-city", L1, C1),
		model.NewFact("in-city", L2, C1),
		model.NewFact("in-city", AP1, C1),
		model.NewFact("in-city", L3, C2),
		model.NewFact("pkg-at", P1, L1),
		model.NewFact("in", P2, T2),
		model.NewFact("handempty"),
	}, nil)
	if err != nil {
		t.Fatalf("transport problem: %v", err)
	}
	return p
}
