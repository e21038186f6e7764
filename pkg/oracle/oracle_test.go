package oracle

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/daviddao/liftplan/pkg/descriptor"
	"github.com/daviddao/liftplan/pkg/model"
	"github.com/daviddao/liftplan/pkg/model/modeltest"
	"github.com/daviddao/liftplan/pkg/planner"
)

func joinResults(t *testing.T, p *model.Problem, state model.State) map[string][]model.Tuple {
	t.Helper()
	task := planner.New()
	task.LoadDomain(p.Domain)
	if err := task.LoadProblem(p); err != nil {
		t.Fatalf("LoadProblem: %v", err)
	}
	if _, err := task.ReplaceState(state); err != nil {
		t.Fatalf("ReplaceState: %v", err)
	}
	got, err := task.ApplicableActions(context.Background())
	if err != nil {
		t.Fatalf("ApplicableActions: %v", err)
	}
	return got
}

func TestProgramShape(t *testing.T) {
	p := modeltest.Logistics(t)
	src := Program(p, p.Init)
	for _, want := range []string{
		"Decl pred0(X0, X1).",
		"Decl act0(X0, X1, X2, X3).",
		"pred0(0, 1).",
		"act0(V0, V1, V2, V3) :- ",
		"pred1(V1, V3)",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("program missing %q:\n%s", want, src)
		}
	}
}

func TestOracleLogistics(t *testing.T) {
	p := modeltest.Logistics(t)
	got, err := ApplicableActions(p, p.Init)
	if err != nil {
		t.Fatalf("ApplicableActions: %v", err)
	}
	want := map[string][]model.Tuple{"drive": {{0, 1, 1, 3}, {0, 1, 2, 3}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestOracleAgreesWithJoin(t *testing.T) {
	tr := modeltest.Transport(t)
	_, example, err := descriptor.Example()
	if err != nil {
		t.Fatalf("Example: %v", err)
	}
	cases := []struct {
		name  string
		p     *model.Problem
		state model.State
	}{
		{"transport init", tr, tr.Init},
		{"transport no handempty", tr, tr.Init.Transition([]model.Fact{model.NewFact("handempty")}, nil)},
		{"transport fuel low", tr, tr.Init.Transition(nil, []model.Fact{model.NewFact("fuel-low")})},
		{"transport moved", tr, tr.Init.Transition(
			[]model.Fact{model.NewFact("at", modeltest.A1, modeltest.AP1)},
			[]model.Fact{model.NewFact("at", modeltest.T2, modeltest.L1), model.NewFact("pkg-at", modeltest.P2, modeltest.AP1)},
		)},
		{"transport empty", tr, model.NewState()},
		{"example init", example, example.Init},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := ApplicableActions(tc.p, tc.state)
			if err != nil {
				t.Fatalf("oracle: %v", err)
			}
			got := joinResults(t, tc.p, tc.state)
			if m := Diff(got, want); len(m) > 0 {
				t.Fatalf("join disagrees with oracle: %+v", m)
			}
		})
	}
}

func TestDiff(t *testing.T) {
	got := map[string][]model.Tuple{
		"a": {{0}, {1}},
		"b": {},
		"c": {{2}},
	}
	want := map[string][]model.Tuple{
		"a": {{1}, {2}},
		"b": nil,
		"d": {{3}},
	}
	m := Diff(got, want)
	wantM := []Mismatch{
		{Schema: "a", Missing: []model.Tuple{{2}}, Extra: []model.Tuple{{0}}},
		{Schema: "c", Extra: []model.Tuple{{2}}},
		{Schema: "d", Missing: []model.Tuple{{3}}},
	}
	if diff := cmp.Diff(wantM, m); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if m := Diff(got, got); len(m) != 0 {
		t.Fatalf("Diff(x, x): got %+v, want none", m)
	}
}
