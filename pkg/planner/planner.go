// Package planner holds the current state of a planning task and answers
// successor queries over it: which ground actions are applicable, whether
// a given one is, and what state applying it yields.
package planner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daviddao/liftplan/pkg/clock"
	"github.com/daviddao/liftplan/pkg/join"
	"github.com/daviddao/liftplan/pkg/model"
)

// Task is a loaded domain and problem plus the current state. Queries take a
// read lock and run against the state current when they start;
// ReplaceState serializes against them.
type Task struct {
	log     *zap.Logger
	workers int

	mu      sync.RWMutex
	domain  *model.Domain
	problem *model.Problem
	state   model.State
	gen     clock.Generation
}

// Option configures a Task.
type Option func(*Task)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(t *Task) { t.log = l }
}

// WithWorkers bounds how many schemas ApplicableActions joins at once.
// Values below 2 keep enumeration sequential.
func WithWorkers(n int) Option {
	return func(t *Task) { t.workers = n }
}

// New returns an empty task. Load a domain and a problem before querying it.
func New(opts ...Option) *Task {
	t := &Task{log: zap.NewNop(), workers: 1}
	for _, o := range opts {
		o(t)
	}
	return t
}

// LoadDomain installs d and drops any loaded problem. A nil d unloads both.
func (t *Task) LoadDomain(d *model.Domain) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.domain = d
	t.problem = nil
	t.state = model.State{}
	t.gen.Set(0)
	if d == nil {
		return
	}
	t.log.Debug("domain loaded",
		zap.String("domain", d.Name),
		zap.Int("schemas", len(d.Schemas)),
		zap.Int("predicates", len(d.Predicates)))
}

// LoadProblem installs p and its initial state as generation 0. p must have
// been built against the loaded domain.
func (t *Task) LoadProblem(p *model.Problem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.domain == nil {
		return fmt.Errorf("load problem %s: %w", p.Name, model.ErrNoDomain)
	}
	if p.Domain != t.domain {
		return fmt.Errorf("load problem %s: %w: %s", p.Name, model.ErrDomainMismatch, p.Domain.Name)
	}
	t.problem = p
	t.state = p.Init.Clone()
	t.gen.Set(0)
	t.log.Debug("problem loaded",
		zap.String("problem", p.Name),
		zap.Int("objects", p.Objects.Len()),
		zap.Int("facts", p.Init.Len()))
	return nil
}

// Domain returns the loaded domain, or nil.
func (t *Task) Domain() *model.Domain {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.domain
}

// Problem returns the loaded problem, or nil.
func (t *Task) Problem() *model.Problem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.problem
}

// State returns a copy of the current state.
func (t *Task) State() model.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Clone()
}

// Generation returns the generation of the current state.
func (t *Task) Generation() int64 { return t.gen.Value() }

// Resume installs s as generation gen, e.g. a state reloaded from the store.
func (t *Task) Resume(s model.State, gen int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkState(s); err != nil {
		return err
	}
	t.state = s.Clone()
	t.gen.Set(gen)
	return nil
}

// ReplaceState replaces the current state wholesale and returns its
// generation. Every fact must reference declared predicates and objects.
func (t *Task) ReplaceState(s model.State) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkState(s); err != nil {
		return 0, err
	}
	t.state = s.Clone()
	gen := t.gen.Tick()
	t.log.Debug("state replaced", zap.Int64("generation", gen), zap.Int("facts", s.Len()))
	return gen, nil
}

func (t *Task) checkState(s model.State) error {
	if t.problem == nil {
		return fmt.Errorf("replace state: %w", model.ErrNoProblem)
	}
	for _, f := range s.Facts() {
		if err := t.problem.CheckFact(f); err != nil {
			return fmt.Errorf("replace state: %w", err)
		}
	}
	return nil
}

// snapshot returns the loaded problem and current state under the read lock.
func (t *Task) snapshot() (*model.Problem, model.State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.domain == nil {
		return nil, model.State{}, model.ErrNoDomain
	}
	if t.problem == nil {
		return nil, model.State{}, model.ErrNoProblem
	}
	return t.problem, t.state, nil
}

// resolve finds the schema and checks params against it: arity first, then
// object references.
func resolve(p *model.Problem, action string, params model.Tuple) (*model.Schema, error) {
	s, err := p.Domain.Schema(action)
	if err != nil {
		return nil, err
	}
	if len(params) != s.NumParams() {
		return nil, fmt.Errorf("%s: %w: got %d parameters, want %d", action, model.ErrArityMismatch, len(params), s.NumParams())
	}
	if err := p.Objects.Check(params...); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return s, nil
}

// wellTyped reports whether every parameter object is of its declared type
// or a subtype. A declared type missing from the hierarchy yields
// ErrUnknownType.
func wellTyped(p *model.Problem, s *model.Schema, params model.Tuple) (bool, error) {
	for i, v := range s.Params() {
		ok, err := p.Domain.Hierarchy.IsSubtype(p.Objects.Type(params[i]), v.Type)
		if err != nil {
			return false, fmt.Errorf("parameter %s: %w", v.Name, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func query(p *model.Problem, s *model.Schema, state model.State) join.Query {
	return join.Query{
		Schema:    s,
		Hierarchy: p.Domain.Hierarchy,
		Objects:   p.Objects,
		State:     state,
	}
}

// IsApplicable reports whether the ground action action(params) is
// applicable in the current state. Existential variables are left for the
// join to find.
func (t *Task) IsApplicable(action string, params model.Tuple) (bool, error) {
	p, state, err := t.snapshot()
	if err != nil {
		return false, fmt.Errorf("is applicable: %w", err)
	}
	return isApplicable(p, state, action, params)
}

func isApplicable(p *model.Problem, state model.State, action string, params model.Tuple) (bool, error) {
	s, err := resolve(p, action, params)
	if err != nil {
		return false, fmt.Errorf("is applicable: %w", err)
	}
	ok, err := wellTyped(p, s, params)
	if err != nil {
		return false, fmt.Errorf("is applicable: %w", err)
	}
	if !ok {
		return false, nil
	}
	q := query(p, s, state)
	q.Seed = model.Seed(params, len(s.Vars))
	out, err := join.Run(q)
	if err != nil {
		return false, fmt.Errorf("is applicable: %w", err)
	}
	return len(out) > 0, nil
}

// ApplicableActions returns, for every schema of the domain, the parameter
// tuples applicable in the current state, sorted. Every schema has an entry,
// empty when nothing applies.
func (t *Task) ApplicableActions(ctx context.Context) (map[string][]model.Tuple, error) {
	p, state, err := t.snapshot()
	if err != nil {
		return nil, fmt.Errorf("applicable actions: %w", err)
	}
	schemas := p.Domain.Schemas
	results := make([][]model.Tuple, len(schemas))

	run := func(i int) error {
		s := schemas[i]
		out, stats, err := join.RunWithStats(query(p, s, state))
		if err != nil {
			return err
		}
		t.log.Debug("schema joined",
			zap.String("schema", s.Name),
			zap.Int("steps", stats.Steps),
			zap.Int("peak_rows", stats.PeakRows),
			zap.Int("results", stats.Results))
		results[i] = out
		return nil
	}

	if t.workers < 2 {
		for i := range schemas {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("applicable actions: %w", err)
			}
			if err := run(i); err != nil {
				return nil, fmt.Errorf("applicable actions: %w", err)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(t.workers)
		for i := range schemas {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return run(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("applicable actions: %w", err)
		}
	}

	out := make(map[string][]model.Tuple, len(schemas))
	for i, s := range schemas {
		if results[i] == nil {
			results[i] = []model.Tuple{}
		}
		out[s.Name] = results[i]
	}
	return out, nil
}

// NextState returns the state reached by applying action(params) to the
// current state. With check set, an inapplicable action yields a copy of the
// current state. Without it the effects are applied unconditionally; the
// schema, arity and object references are still validated.
//
// Deletes are applied before adds, so a fact both deleted and added by the
// same action is present in the result.
func (t *Task) NextState(action string, params model.Tuple, check bool) (model.State, error) {
	p, state, err := t.snapshot()
	if err != nil {
		return model.State{}, fmt.Errorf("next state: %w", err)
	}
	return t.successor(p, state, action, params, check)
}

func (t *Task) successor(p *model.Problem, state model.State, action string, params model.Tuple, check bool) (model.State, error) {
	s, err := resolve(p, action, params)
	if err != nil {
		return model.State{}, fmt.Errorf("next state: %w", err)
	}
	if check {
		ok, err := isApplicable(p, state, action, params)
		if err != nil {
			return model.State{}, fmt.Errorf("next state: %w", err)
		}
		if !ok {
			return state.Clone(), nil
		}
	}
	deletes, adds := s.Ground(params)
	if t.log.Core().Enabled(zap.DebugLevel) {
		t.logConflicts(action, deletes, adds)
	}
	return state.Transition(deletes, adds), nil
}

func (t *Task) logConflicts(action string, deletes, adds []model.Fact) {
	gone := make(map[string]struct{}, len(deletes))
	for _, f := range deletes {
		gone[f.Key()] = struct{}{}
	}
	for _, f := range adds {
		if _, ok := gone[f.Key()]; ok {
			t.log.Debug("effect both deletes and adds a fact; add wins",
				zap.String("action", action),
				zap.Stringer("fact", f))
		}
	}
}

// Apply applies action(params) if it is applicable and installs the
// successor as the current state. It reports whether the action applied and
// the generation of the current state afterwards.
func (t *Task) Apply(action string, params model.Tuple) (bool, int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.problem == nil {
		return false, t.gen.Value(), fmt.Errorf("apply: %w", model.ErrNoProblem)
	}
	ok, err := isApplicable(t.problem, t.state, action, params)
	if err != nil {
		return false, t.gen.Value(), fmt.Errorf("apply: %w", err)
	}
	if !ok {
		return false, t.gen.Value(), nil
	}
	next, err := t.successor(t.problem, t.state, action, params, false)
	if err != nil {
		return false, t.gen.Value(), fmt.Errorf("apply: %w", err)
	}
	t.state = next
	gen := t.gen.Tick()
	t.log.Debug("action applied", zap.String("action", action), zap.Int64("generation", gen))
	return true, gen, nil
}
