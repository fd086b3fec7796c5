package csp

import (
	"context"
	"sort"

	"github.com/squares-synth/tyrellgo/internal/errs"
)

// Result is the outcome of a Check call.
type Result int

const (
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

type tracked struct {
	name string
	expr Expr
}

// Solver holds a set of declared variables, hard constraints, and named
// ("tracked") assumptions, and decides satisfiability by backtracking
// search over the variables' finite domains. It is not an industrial SAT
// solver: forward checking re-scans every constraint after each assignment,
// which is adequate for the small programs this synthesizer enumerates but
// would not scale to large CSPs.
type Solver struct {
	vars    map[string]*Var
	hard    []Expr
	tracked []tracked

	lastModel map[string]int
	lastCore  []string
}

func NewSolver() *Solver {
	return &Solver{vars: make(map[string]*Var)}
}

// DeclareVar registers v, if not already present.
func (s *Solver) DeclareVar(v *Var) {
	if _, ok := s.vars[v.Name]; !ok {
		s.vars[v.Name] = v
	}
}

// Add asserts e as a hard (always-required) constraint, auto-declaring any
// variables it references.
func (s *Solver) Add(e Expr) {
	s.declareFrom(e)
	s.hard = append(s.hard, e)
}

// AssertAndTrack asserts e under a name that UnsatCore can return if e (in
// combination with other tracked/hard constraints) is jointly unsatisfiable.
func (s *Solver) AssertAndTrack(name string, e Expr) {
	s.declareFrom(e)
	s.tracked = append(s.tracked, tracked{name: name, expr: e})
}

func (s *Solver) declareFrom(e Expr) {
	vs := map[string]*Var{}
	e.collectVars(vs)
	for _, v := range vs {
		s.DeclareVar(v)
	}
}

// Push returns a mark the enumerator/decider can later Pop back to,
// discarding any hard/tracked constraints asserted since.
func (s *Solver) Push() []int {
	return []int{len(s.hard), len(s.tracked)}
}

func (s *Solver) Pop(mark []int) {
	s.hard = s.hard[:mark[0]]
	s.tracked = s.tracked[:mark[1]]
}

// Check decides satisfiability of hard ∧ all tracked constraints.
func (s *Solver) Check(ctx context.Context) (Result, error) {
	return s.checkWith(ctx, s.allConstraints())
}

func (s *Solver) allConstraints() []Expr {
	out := append([]Expr{}, s.hard...)
	for _, t := range s.tracked {
		out = append(out, t.expr)
	}
	return out
}

func (s *Solver) checkWith(ctx context.Context, constraints []Expr) (Result, error) {
	names := s.sortedVarNames()
	assign := make(map[string]int, len(names))
	ok, err := backtrack(ctx, names, assign, constraints, s.vars)
	if err != nil {
		return Unknown, err
	}
	if ok {
		s.lastModel = assign
		return Sat, nil
	}
	return Unsat, nil
}

func (s *Solver) sortedVarNames() []string {
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Model returns the satisfying assignment found by the last Sat Check.
func (s *Solver) Model() map[string]int { return s.lastModel }

// UnsatCore returns a (deletion-minimal) subset of tracked-assumption names
// that are jointly unsatisfiable with the hard constraints, valid after the
// last Check returned Unsat. It works by repeatedly trying to drop one
// tracked assumption at a time and keeping the drop if the remainder is
// still unsat, iterating to a fixpoint — a simplified stand-in for a real
// solver's resolution-proof-derived core.
func (s *Solver) UnsatCore(ctx context.Context) ([]string, error) {
	core := make([]string, len(s.tracked))
	for i, t := range s.tracked {
		core[i] = t.name
	}
	changed := true
	for changed {
		changed = false
		for i := range core {
			trial := make([]string, 0, len(core)-1)
			trial = append(trial, core[:i]...)
			trial = append(trial, core[i+1:]...)
			res, err := s.checkWith(ctx, s.constraintsFor(trial))
			if err != nil {
				return nil, err
			}
			if res == Unsat {
				core = trial
				changed = true
				break
			}
		}
	}
	return core, nil
}

func (s *Solver) constraintsFor(names []string) []Expr {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := append([]Expr{}, s.hard...)
	for _, t := range s.tracked {
		if want[t.name] {
			out = append(out, t.expr)
		}
	}
	return out
}

func backtrack(ctx context.Context, names []string, assign map[string]int, constraints []Expr, vars map[string]*Var) (bool, error) {
	select {
	case <-ctx.Done():
		return false, errs.Newf(errs.SYN002, "csp search cancelled: %v", ctx.Err())
	default:
	}
	if len(names) == 0 {
		return allSatisfied(constraints, assign), nil
	}
	name, rest := names[0], names[1:]
	v := vars[name]
	for _, val := range v.Domain {
		assign[name] = val
		if partiallyConsistent(constraints, assign) {
			ok, err := backtrack(ctx, rest, assign, constraints, vars)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		delete(assign, name)
	}
	return false, nil
}

func allSatisfied(constraints []Expr, assign map[string]int) bool {
	for _, c := range constraints {
		if c.eval(assign) == 0 {
			return false
		}
	}
	return true
}

// partiallyConsistent checks only the constraints whose variables are
// already fully assigned, pruning the search as early as possible.
func partiallyConsistent(constraints []Expr, assign map[string]int) bool {
	for _, c := range constraints {
		vs := map[string]*Var{}
		c.collectVars(vs)
		ready := true
		for n := range vs {
			if _, ok := assign[n]; !ok {
				ready = false
				break
			}
		}
		if ready && c.eval(assign) == 0 {
			return false
		}
	}
	return true
}
