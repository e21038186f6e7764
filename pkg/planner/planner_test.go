package planner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/daviddao/liftplan/pkg/model"
	"github.com/daviddao/liftplan/pkg/model/modeltest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTask(t *testing.T, p *model.Problem, opts ...Option) *Task {
	t.Helper()
	task := New(opts...)
	task.LoadDomain(p.Domain)
	if err := task.LoadProblem(p); err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	return task
}

func TestLogisticsScenario(t *testing.T) {
	p := modeltest.Logistics(t)
	task := newTask(t, p)

	ok, err := task.IsApplicable("drive", model.Tuple{0, 1, 2, 3})
	if err != nil || !ok {
		t.Fatalf("IsApplicable(drive 0 1 2 3): got %v, %v; want true", ok, err)
	}
	ok, err = task.IsApplicable("drive", model.Tuple{0, 2, 1, 3})
	if err != nil || ok {
		t.Fatalf("IsApplicable(drive 0 2 1 3): got %v, %v; want false", ok, err)
	}

	all, err := task.ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("ApplicableActions: %v", err)
	}
	want := []model.Tuple{{0, 1, 1, 3}, {0, 1, 2, 3}}
	if diff := cmp.Diff(want, all["drive"]); diff != "" {
		t.Fatalf("drive (-want +got):\n%s", diff)
	}

	next, err := task.NextState("drive", model.Tuple{0, 1, 2, 3}, true)
	if err != nil {
		t.Fatalf("NextState: %v", err)
	}
	wantState := model.NewState(
		model.NewFact("at", 0, 2),
		model.NewFact("in-city", 1, 3),
		model.NewFact("in-city", 2, 3),
	)
	if !next.Equal(wantState) {
		t.Fatalf("NextState: got %v, want %v", next.Facts(), wantState.Facts())
	}
	if !task.State().Equal(p.Init) {
		t.Fatalf("NextState changed the current state: %v", task.State().Facts())
	}
}

func TestQueryErrors(t *testing.T) {
	task := newTask(t, modeltest.Logistics(t))
	tests := []struct {
		name   string
		action string
		params model.Tuple
		want   error
	}{
		{"unknown schema", "fly", model.Tuple{0}, model.ErrUnknownActionSchema},
		{"too few params", "drive", model.Tuple{0, 1}, model.ErrArityMismatch},
		{"too many params", "drive", model.Tuple{0, 1, 2, 3, 0}, model.ErrArityMismatch},
		{"object out of range", "drive", model.Tuple{0, 1, 2, 4}, model.ErrInvalidObjectReference},
		{"negative object", "drive", model.Tuple{-1, 1, 2, 3}, model.ErrInvalidObjectReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := task.IsApplicable(tt.action, tt.params); !errors.Is(err, tt.want) {
				t.Fatalf("IsApplicable: got %v, want %v", err, tt.want)
			}
			for _, check := range []bool{true, false} {
				if _, err := task.NextState(tt.action, tt.params, check); !errors.Is(err, tt.want) {
					t.Fatalf("NextState(check=%v): got %v, want %v", check, err, tt.want)
				}
			}
		})
	}
}

func TestLoadOrder(t *testing.T) {
	p := modeltest.Logistics(t)
	task := New()

	if err := task.LoadProblem(p); !errors.Is(err, model.ErrNoDomain) {
		t.Fatalf("LoadProblem without domain: got %v, want ErrNoDomain", err)
	}
	if _, err := task.IsApplicable("drive", model.Tuple{0, 1, 2, 3}); !errors.Is(err, model.ErrNoDomain) {
		t.Fatalf("IsApplicable without domain: got %v, want ErrNoDomain", err)
	}

	task.LoadDomain(modeltest.Transport(t).Domain)
	if err := task.LoadProblem(p); !errors.Is(err, model.ErrDomainMismatch) {
		t.Fatalf("LoadProblem on another domain: got %v, want ErrDomainMismatch", err)
	}
	if _, err := task.ApplicableActions(context.Background()); !errors.Is(err, model.ErrNoProblem) {
		t.Fatalf("ApplicableActions without problem: got %v, want ErrNoProblem", err)
	}
	if _, err := task.ReplaceState(p.Init); !errors.Is(err, model.ErrNoProblem) {
		t.Fatalf("ReplaceState without problem: got %v, want ErrNoProblem", err)
	}
}

func TestIllTypedParamsNotApplicable(t *testing.T) {
	task := newTask(t, modeltest.Transport(t))
	// a1 is a plane, drive wants a truck.
	ok, err := task.IsApplicable("drive", model.Tuple{modeltest.A1, modeltest.L1, modeltest.L2})
	if err != nil || ok {
		t.Fatalf("got %v, %v; want false, nil", ok, err)
	}
}

func TestWellTyped(t *testing.T) {
	p := modeltest.Transport(t)
	drive, err := p.Domain.Schema("drive")
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := wellTyped(p, drive, model.Tuple{modeltest.T1, modeltest.L1, modeltest.AP1}); err != nil || !ok {
		t.Fatalf("truck, location, airport: got %v, %v; want true, nil", ok, err)
	}
	if ok, err := wellTyped(p, drive, model.Tuple{modeltest.A1, modeltest.L1, modeltest.L2}); err != nil || ok {
		t.Fatalf("plane as truck: got %v, %v; want false, nil", ok, err)
	}

	ghost := &model.Schema{
		Name: "ghost",
		Vars: []model.Variable{{Name: "g", Type: "ghost", Class: model.Parameter}},
	}
	if _, err := wellTyped(p, ghost, model.Tuple{modeltest.T1}); !errors.Is(err, model.ErrUnknownType) {
		t.Fatalf("undeclared parameter type: got %v, want ErrUnknownType", err)
	}
}

// bruteForce enumerates every well-typed assignment of all schema variables
// and checks each literal directly.
func bruteForce(p *model.Problem, s *model.Schema, state model.State) []model.Tuple {
	n := len(s.Vars)
	var out []model.Tuple
	seen := map[string]bool{}
	assign := make(model.Tuple, n)
	var rec func(i int)
	rec = func(i int) {
		if i == n {
			for _, l := range s.Pre {
				args := make(model.Tuple, len(l.Vars))
				for k, v := range l.Vars {
					args[k] = assign[v]
				}
				if state.Has(model.Fact{Predicate: l.Predicate, Args: args}) != (l.Sign == model.Positive) {
					return
				}
			}
			params := assign[:s.NumParams()].Clone()
			if !seen[params.Key()] {
				seen[params.Key()] = true
				out = append(out, params)
			}
			return
		}
		for id := 0; id < p.Objects.Len(); id++ {
			if ok, _ := p.Domain.Hierarchy.IsSubtype(p.Objects.Type(model.ObjectID(id)), s.Vars[i].Type); ok {
				assign[i] = model.ObjectID(id)
				rec(i + 1)
			}
		}
	}
	rec(0)
	return out
}

func sortTuples(ts []model.Tuple) []model.Tuple {
	out := append([]model.Tuple{}, ts...)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if model.CompareTuples(out[j], out[i]) < 0 {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func TestApplicableActionsMatchesBruteForce(t *testing.T) {
	p := modeltest.Transport(t)
	task := newTask(t, p)
	states := []model.State{
		p.Init,
		p.Init.Transition([]model.Fact{model.NewFact("handempty")}, []model.Fact{model.NewFact("fuel-low")}),
		p.Init.Transition([]model.Fact{model.NewFact("at", modeltest.A1, modeltest.AP1)}, []model.Fact{
			model.NewFact("at", modeltest.T1, modeltest.L2),
			model.NewFact("pkg-at", modeltest.P2, modeltest.L2),
		}),
	}
	for i, st := range states {
		if _, err := task.ReplaceState(st); err != nil {
			t.Fatalf("state %d: ReplaceState: %v", i, err)
		}
		got, err := task.ApplicableActions(context.Background())
		if err != nil {
			t.Fatalf("state %d: ApplicableActions: %v", i, err)
		}
		if len(got) != len(p.Domain.Schemas) {
			t.Fatalf("state %d: got %d schemas, want %d", i, len(got), len(p.Domain.Schemas))
		}
		for _, s := range p.Domain.Schemas {
			want := sortTuples(bruteForce(p, s, st))
			if diff := cmp.Diff(want, got[s.Name], cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("state %d: %s (-want +got):\n%s", i, s.Name, diff)
			}
		}
	}
}

func TestIsApplicableAgreesWithEnumeration(t *testing.T) {
	p := modeltest.Transport(t)
	task := newTask(t, p)
	all, err := task.ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("ApplicableActions: %v", err)
	}
	n := p.Objects.Len()
	for _, s := range p.Domain.Schemas {
		member := map[string]bool{}
		for _, tup := range all[s.Name] {
			member[tup.Key()] = true
		}
		params := make(model.Tuple, s.NumParams())
		var rec func(i int)
		rec = func(i int) {
			if i == len(params) {
				ok, err := task.IsApplicable(s.Name, params)
				if err != nil {
					t.Fatalf("IsApplicable(%s %v): %v", s.Name, params, err)
				}
				if ok != member[params.Key()] {
					t.Fatalf("IsApplicable(%s %v): got %v, enumeration says %v", s.Name, params, ok, member[params.Key()])
				}
				return
			}
			for id := 0; id < n; id++ {
				params[i] = model.ObjectID(id)
				rec(i + 1)
			}
		}
		rec(0)
	}
}

func TestParallelEnumerationMatchesSequential(t *testing.T) {
	p := modeltest.Transport(t)
	seq, err := newTask(t, p).ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := newTask(t, p, WithWorkers(4)).ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if diff := cmp.Diff(seq, par); diff != "" {
		t.Fatalf("(-sequential +parallel):\n%s", diff)
	}
}

func TestApplicableActionsCancelled(t *testing.T) {
	task := newTask(t, modeltest.Transport(t), WithWorkers(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := task.ApplicableActions(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestEveryApplicableActionHasSuccessor(t *testing.T) {
	p := modeltest.Transport(t)
	task := newTask(t, p)
	all, err := task.ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("ApplicableActions: %v", err)
	}
	for name, ts := range all {
		s, _ := p.Domain.Schema(name)
		for _, params := range ts {
			checked, err := task.NextState(name, params, true)
			if err != nil {
				t.Fatalf("NextState(%s %v): %v", name, params, err)
			}
			unchecked, err := task.NextState(name, params, false)
			if err != nil {
				t.Fatalf("NextState(%s %v, unchecked): %v", name, params, err)
			}
			if !checked.Equal(unchecked) {
				t.Fatalf("%s %v: checked and unchecked successors differ", name, params)
			}
			deletes, adds := s.Ground(params)
			want := p.Init.Transition(deletes, adds)
			if !checked.Equal(want) {
				t.Fatalf("%s %v: got %v, want %v", name, params, checked.Facts(), want.Facts())
			}
		}
	}
}

func TestNextStateInapplicable(t *testing.T) {
	p := modeltest.Logistics(t)
	task := newTask(t, p)
	params := model.Tuple{0, 2, 1, 3}

	checked, err := task.NextState("drive", params, true)
	if err != nil {
		t.Fatalf("NextState: %v", err)
	}
	if !checked.Equal(p.Init) {
		t.Fatalf("checked: got %v, want the current state", checked.Facts())
	}

	unchecked, err := task.NextState("drive", params, false)
	if err != nil {
		t.Fatalf("NextState unchecked: %v", err)
	}
	// at(t1,l2) is deleted (absent anyway), at(t1,l1) is added (present).
	if !unchecked.Equal(p.Init) {
		t.Fatalf("unchecked: got %v", unchecked.Facts())
	}

	swapped, err := task.NextState("drive", model.Tuple{0, 2, 2, 3}, false)
	if err != nil {
		t.Fatalf("NextState unchecked: %v", err)
	}
	if !swapped.Has(model.NewFact("at", 0, 2)) || !swapped.Has(model.NewFact("at", 0, 1)) {
		t.Fatalf("unchecked effects not applied: %v", swapped.Facts())
	}
}

func conflictProblem(t *testing.T) *model.Problem {
	t.Helper()
	h := modeltest.Closure(map[string]string{"truck": model.RootType, "location": model.RootType})
	touch, err := model.CompileSchema(model.ActionDef{
		Name:   "touch",
		Params: []model.VarDecl{{Name: "t", Type: "truck"}, {Name: "l", Type: "location"}},
		Effects: []model.EffectDef{
			{Kind: model.Add, Atom: model.Atom{Predicate: "at", Args: []string{"t", "l"}}},
			{Kind: model.Delete, Atom: model.Atom{Predicate: "at", Args: []string{"t", "l"}}},
		},
	})
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	d, err := model.NewDomain("conflict", h,
		[]model.Predicate{{Name: "at", Params: []string{"truck", "location"}}}, nil, []*model.Schema{touch})
	if err != nil {
		t.Fatalf("NewDomain: %v", err)
	}
	p, err := model.NewProblem(d, "conflict-1",
		[]model.Object{{Name: "t1", Type: "truck"}, {Name: "l1", Type: "location"}}, nil, nil)
	if err != nil {
		t.Fatalf("NewProblem: %v", err)
	}
	return p
}

func TestAddWinsOverDelete(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	task := newTask(t, conflictProblem(t), WithLogger(zap.New(core)))

	next, err := task.NextState("touch", model.Tuple{0, 1}, true)
	if err != nil {
		t.Fatalf("NextState: %v", err)
	}
	if !next.Has(model.NewFact("at", 0, 1)) {
		t.Fatalf("fact both added and deleted: got %v, want present", next.Facts())
	}
	if n := logs.FilterMessageSnippet("add wins").Len(); n != 1 {
		t.Fatalf("conflict log entries: got %d, want 1", n)
	}
}

func TestReplaceState(t *testing.T) {
	p := modeltest.Logistics(t)
	task := newTask(t, p)
	if g := task.Generation(); g != 0 {
		t.Fatalf("initial generation: got %d, want 0", g)
	}

	moved := p.Init.Transition([]model.Fact{model.NewFact("at", 0, 1)}, []model.Fact{model.NewFact("at", 0, 2)})
	gen, err := task.ReplaceState(moved)
	if err != nil {
		t.Fatalf("ReplaceState: %v", err)
	}
	if gen != 1 || task.Generation() != 1 {
		t.Fatalf("generation: got %d/%d, want 1", gen, task.Generation())
	}
	ok, err := task.IsApplicable("drive", model.Tuple{0, 2, 1, 3})
	if err != nil || !ok {
		t.Fatalf("drive back after replace: got %v, %v; want true", ok, err)
	}

	bad := []model.State{
		model.NewState(model.NewFact("fly", 0)),
		model.NewState(model.NewFact("at", 0)),
		model.NewState(model.NewFact("at", 0, 7)),
	}
	for _, s := range bad {
		if _, err := task.ReplaceState(s); err == nil {
			t.Fatalf("ReplaceState(%v): want error", s.Facts())
		}
	}
	if task.Generation() != 1 || !task.State().Equal(moved) {
		t.Fatalf("rejected replace changed the task")
	}
}

func TestApply(t *testing.T) {
	p := modeltest.Logistics(t)
	task := newTask(t, p)

	ok, gen, err := task.Apply("drive", model.Tuple{0, 2, 1, 3})
	if err != nil || ok || gen != 0 {
		t.Fatalf("inapplicable Apply: got %v, %d, %v", ok, gen, err)
	}
	ok, gen, err = task.Apply("drive", model.Tuple{0, 1, 2, 3})
	if err != nil || !ok || gen != 1 {
		t.Fatalf("Apply: got %v, %d, %v", ok, gen, err)
	}
	if !task.State().Has(model.NewFact("at", 0, 2)) {
		t.Fatalf("Apply did not install the successor: %v", task.State().Facts())
	}
	if _, _, err := task.Apply("drive", model.Tuple{0}); !errors.Is(err, model.ErrArityMismatch) {
		t.Fatalf("Apply bad arity: got %v", err)
	}
}

func TestResume(t *testing.T) {
	p := modeltest.Logistics(t)
	task := newTask(t, p)
	moved := model.NewState(model.NewFact("at", 0, 2))
	if err := task.Resume(moved, 7); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if task.Generation() != 7 || !task.State().Equal(moved) {
		t.Fatalf("Resume: got generation %d state %v", task.Generation(), task.State().Facts())
	}
	if gen, _ := task.ReplaceState(p.Init); gen != 8 {
		t.Fatalf("after Resume(7): got generation %d, want 8", gen)
	}
}

func TestConcurrentReadersAndReplace(t *testing.T) {
	p := modeltest.Transport(t)
	task := newTask(t, p, WithWorkers(3))
	alt := p.Init.Transition([]model.Fact{model.NewFact("handempty")}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				all, err := task.ApplicableActions(context.Background())
				if err != nil {
					t.Errorf("ApplicableActions: %v", err)
					return
				}
				if len(all) != len(p.Domain.Schemas) {
					t.Errorf("got %d schemas", len(all))
					return
				}
			}
		}()
	}
	for j := 0; j < 20; j++ {
		s := p.Init
		if j%2 == 0 {
			s = alt
		}
		if _, err := task.ReplaceState(s); err != nil {
			t.Fatalf("ReplaceState: %v", err)
		}
	}
	wg.Wait()
	if g := task.Generation(); g != 20 {
		t.Fatalf("generation: got %d, want 20", g)
	}
}
