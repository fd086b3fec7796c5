package enumerator

import (
	"context"
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// hardWeight is the sentinel weight (mirroring tyrell/enumerator/optimizer.py's
// "if weight != 100" special case) that marks a predicate as a hard
// requirement rather than a soft, droppable preference.
const hardWeight = 100

type softConstraint struct {
	name   string
	expr   csp.Expr
	weight float64
}

// Optimizer accumulates the soft/hard constraints contributed by occurs/
// not_occurs/is_parent/is_not_parent predicates and searches for the
// cheapest-to-drop satisfying model, grounded on
// tyrell/enumerator/optimizer.py. It simplifies that file's relaxation-
// variable/binary-search LSU loop into repeated deletion of the single
// cheapest remaining soft constraint, whether or not that constraint takes
// part in the conflict — not a certified-optimal MaxSAT search.
type Optimizer struct {
	solver *csp.Solver
	spec   *spec.Spec
	vars   []*csp.Var
	nodes  []treeNode
	soft   []softConstraint
}

func NewOptimizer(solver *csp.Solver, sp *spec.Spec, vars []*csp.Var, nodes []treeNode) *Optimizer {
	return &Optimizer{solver: solver, spec: sp, vars: vars, nodes: nodes}
}

func (o *Optimizer) addWeighted(name string, e csp.Expr, weight float64) {
	if e == nil {
		return
	}
	if weight >= hardWeight {
		o.solver.Add(e)
		return
	}
	o.soft = append(o.soft, softConstraint{name: name, expr: e, weight: weight})
}

// MkOccurs requires prod to appear at least once across all nodes.
func (o *Optimizer) MkOccurs(prod spec.Production, weight float64) {
	var disj csp.Expr
	for _, v := range o.vars {
		e := csp.Eq(csp.VarExpr(v), csp.IntConst(prod.ID()))
		if disj == nil {
			disj = e
		} else {
			disj = csp.Or(disj, e)
		}
	}
	o.addWeighted(fmt.Sprintf("occurs(%s)", prod), disj, weight)
}

// MkNotOccurs requires prod to appear nowhere.
func (o *Optimizer) MkNotOccurs(prod spec.Production, weight float64) {
	var conj csp.Expr
	for _, v := range o.vars {
		e := csp.Ne(csp.VarExpr(v), csp.IntConst(prod.ID()))
		if conj == nil {
			conj = e
		} else {
			conj = csp.And(conj, e)
		}
	}
	o.addWeighted(fmt.Sprintf("not_occurs(%s)", prod), conj, weight)
}

func (o *Optimizer) matchingPositions(parent *spec.FunctionProduction, child spec.Production) []int {
	var positions []int
	for i, ty := range parent.RHS {
		if ty.Name() == child.LHS().Name() {
			positions = append(positions, i)
		}
	}
	return positions
}

// MkIsParent requires that whenever parent occurs, at least one of its
// type-compatible argument slots holds child.
func (o *Optimizer) MkIsParent(parent, child spec.Production, weight float64) {
	fp, ok := parent.(*spec.FunctionProduction)
	if !ok {
		return
	}
	positions := o.matchingPositions(fp, child)
	var conj csp.Expr
	for x, n := range o.nodes {
		if len(n.children) == 0 {
			continue
		}
		var childDisj csp.Expr
		for _, y := range positions {
			if y >= len(n.children) {
				continue
			}
			e := csp.Eq(csp.VarExpr(o.vars[n.children[y]]), csp.IntConst(child.ID()))
			if childDisj == nil {
				childDisj = e
			} else {
				childDisj = csp.Or(childDisj, e)
			}
		}
		if childDisj == nil {
			continue
		}
		cond := csp.Eq(csp.VarExpr(o.vars[x]), csp.IntConst(parent.ID()))
		e := csp.Implies(cond, childDisj)
		if conj == nil {
			conj = e
		} else {
			conj = csp.And(conj, e)
		}
	}
	o.addWeighted(fmt.Sprintf("is_parent(%s,%s)", parent, child), conj, weight)
}

// MkIsNotParent requires that whenever parent occurs, none of its
// type-compatible argument slots hold child.
func (o *Optimizer) MkIsNotParent(parent, child spec.Production, weight float64) {
	fp, ok := parent.(*spec.FunctionProduction)
	if !ok {
		return
	}
	positions := o.matchingPositions(fp, child)
	var conj csp.Expr
	for x, n := range o.nodes {
		if len(n.children) == 0 {
			continue
		}
		var childDisj csp.Expr
		for _, y := range positions {
			if y >= len(n.children) {
				continue
			}
			e := csp.Eq(csp.VarExpr(o.vars[n.children[y]]), csp.IntConst(child.ID()))
			if childDisj == nil {
				childDisj = e
			} else {
				childDisj = csp.Or(childDisj, e)
			}
		}
		if childDisj == nil {
			continue
		}
		cond := csp.Eq(csp.VarExpr(o.vars[x]), csp.IntConst(parent.ID()))
		e := csp.Implies(cond, csp.Not(childDisj))
		if conj == nil {
			conj = e
		} else {
			conj = csp.And(conj, e)
		}
	}
	o.addWeighted(fmt.Sprintf("is_not_parent(%s,%s)", parent, child), conj, weight)
}

// Optimize finds a model satisfying every hard constraint and the soft
// constraints still active: whenever the current set is unsatisfiable it
// drops the cheapest remaining soft constraint, whether or not that
// constraint takes part in the conflict, so the kept set is not guaranteed
// to have the greatest total weight.
// Returns (nil, nil) if even the hard constraints alone are unsatisfiable.
func (o *Optimizer) Optimize(ctx context.Context) (map[string]int, error) {
	active := append([]softConstraint{}, o.soft...)
	for {
		mark := o.solver.Push()
		for i, sc := range active {
			o.solver.AssertAndTrack(fmt.Sprintf("soft%d:%s", i, sc.name), sc.expr)
		}
		res, err := o.solver.Check(ctx)
		if err != nil {
			o.solver.Pop(mark)
			return nil, err
		}
		if res == csp.Sat {
			model := o.solver.Model()
			o.solver.Pop(mark)
			return model, nil
		}
		o.solver.Pop(mark)
		if len(active) == 0 {
			return nil, nil
		}
		cheapest := 0
		for i := 1; i < len(active); i++ {
			if active[i].weight < active[cheapest].weight {
				cheapest = i
			}
		}
		active = append(active[:cheapest], active[cheapest+1:]...)
	}
}
