// Package enumerator implements the k-tree (C4) and lines (C5) constraint
// enumerators from §4.4/§4.5, plus the exhaustive/from-iterator oracle
// enumerators supplemented in SPEC_FULL.md §3. All symbolic reasoning goes
// through internal/csp (no SMT library exists in the retrieved pack; see
// DESIGN.md), so the k-tree encoding below is a direct Go transliteration of
// tyrell/enumerator/smt.py's SmtEnumerator with z3 calls replaced by csp
// calls.
package enumerator

import (
	"context"
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Blame is one (node, excluded production) pair contributed by the decider
// after rejecting a candidate (§4.6's blame sets).
type Blame struct {
	NodeID int
	Prod   spec.Production
}

// Enumerator produces candidate programs on demand and accepts feedback
// about why the most recent candidate was rejected (§4 "Enumerator").
type Enumerator interface {
	// Next returns the next candidate, or (nil, nil) once the search space
	// is exhausted.
	Next(ctx context.Context) (dsl.Node, error)
	// Update narrows the remaining search space. Each element of cores is a
	// blame set: at least one of its (node, production) pairs must differ
	// in every future candidate. A nil/empty cores blocks the most recent
	// candidate outright.
	Update(ctx context.Context, cores [][]Blame) error
}

type treeNode struct {
	depth    int
	children []int
}

// KTree is the fixed-shape k-ary tree enumerator (§4.4 / C4).
type KTree struct {
	Spec  *spec.Spec
	Depth int
	Loc   int

	solver    *csp.Solver
	nodes     []treeNode
	vars      []*csp.Var
	funVars   []*csp.Var
	opt       *Optimizer
	lastModel map[string]int
	// builtIndex maps a built node's Canon() to the tree position it was
	// decoded at in the most recent buildProgram call. It lets a decider's
	// node-level blame (over the returned dsl.Node) translate back to the
	// SMT variable that produced it, per §4.4's "program→tree-node map".
	builtIndex map[string]int
}

// NewKTree builds a k-tree enumerator bounded to depth levels and exactly
// loc function-production occurrences.
func NewKTree(sp *spec.Spec, depth, loc int) (*KTree, error) {
	if depth <= 0 {
		return nil, errs.Newf(errs.SYN001, "depth must be positive, got %d", depth)
	}
	if loc <= 0 {
		return nil, errs.Newf(errs.SYN001, "loc must be positive, got %d", loc)
	}
	maxChildren := maxArity(sp)
	nodes := buildKTreeNodes(maxChildren, depth)

	solver := csp.NewSolver()
	numProd := sp.NumProductions()
	domain := intRange(0, numProd-1)
	vars := make([]*csp.Var, len(nodes))
	funVars := make([]*csp.Var, len(nodes))
	for i := range nodes {
		vars[i] = csp.NewIntVar(fmt.Sprintf("n%d", i), domain)
		funVars[i] = csp.NewBoolVar(fmt.Sprintf("h%d", i))
		solver.DeclareVar(vars[i])
		solver.DeclareVar(funVars[i])
	}

	kt := &KTree{
		Spec: sp, Depth: depth, Loc: loc,
		solver: solver, nodes: nodes, vars: vars, funVars: funVars,
	}
	kt.opt = NewOptimizer(solver, sp, vars, nodes)

	kt.createOutputConstraint()
	kt.createLocConstraint()
	kt.createInputConstraint()
	kt.createFunctionConstraint()
	kt.createLeafConstraint()
	kt.createChildrenConstraint()
	if err := kt.resolvePredicates(); err != nil {
		return nil, err
	}
	return kt, nil
}

func maxArity(sp *spec.Spec) int {
	max := 0
	for _, p := range sp.Productions() {
		if fp, ok := p.(*spec.FunctionProduction); ok && fp.Arity() > max {
			max = fp.Arity()
		}
	}
	return max
}

// buildKTreeNodes lays out a complete maxChildren-ary tree of the given
// depth in BFS order; nodes at the maximum depth are leaves (nil children).
func buildKTreeNodes(maxChildren, depth int) []treeNode {
	nodes := []treeNode{{depth: 1}}
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if nodes[cur].depth >= depth {
			continue
		}
		childIdxs := make([]int, 0, maxChildren)
		for i := 0; i < maxChildren; i++ {
			nodes = append(nodes, treeNode{depth: nodes[cur].depth + 1})
			idx := len(nodes) - 1
			childIdxs = append(childIdxs, idx)
			queue = append(queue, idx)
		}
		nodes[cur].children = childIdxs
	}
	return nodes
}

func intRange(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, hi-lo+1)
	for i := range out {
		out[i] = lo + i
	}
	return out
}

func leafProductionIDs(sp *spec.Spec) []int {
	var out []int
	for _, p := range sp.Productions() {
		if !p.IsFunction() || p.IsHole() {
			out = append(out, p.ID())
		}
	}
	return out
}

func holeProductionIDs(sp *spec.Spec) []int {
	var out []int
	for _, p := range sp.Productions() {
		if p.IsHole() {
			out = append(out, p.ID())
		}
	}
	return out
}

func nonHoleProductionIDsWithLHS(sp *spec.Spec, ty spec.Type) []int {
	var out []int
	for _, p := range sp.GetProductionsWithLHS(ty) {
		if !p.IsHole() {
			out = append(out, p.ID())
		}
	}
	return out
}

func orEqAny(v *csp.Var, ids []int) csp.Expr {
	var disj csp.Expr
	for _, id := range ids {
		e := csp.Eq(csp.VarExpr(v), csp.IntConst(id))
		if disj == nil {
			disj = e
		} else {
			disj = csp.Or(disj, e)
		}
	}
	return disj
}

// createOutputConstraint: the root's production's lhs matches the program's
// declared output type.
func (kt *KTree) createOutputConstraint() {
	ids := make([]int, 0)
	for _, p := range kt.Spec.GetProductionsWithLHS(kt.Spec.Output()) {
		ids = append(ids, p.ID())
	}
	if e := orEqAny(kt.vars[0], ids); e != nil {
		kt.solver.Add(e)
	}
}

// createLocConstraint: exactly Loc nodes are function applications.
func (kt *KTree) createLocConstraint() {
	sum := csp.Expr(csp.VarExpr(kt.funVars[0]))
	for i := 1; i < len(kt.funVars); i++ {
		sum = csp.Add(sum, csp.VarExpr(kt.funVars[i]))
	}
	kt.solver.Add(csp.Eq(sum, csp.IntConst(kt.Loc)))
}

// createInputConstraint: every program input is used at least once.
func (kt *KTree) createInputConstraint() {
	for _, pp := range kt.Spec.GetParamProductions() {
		var disj csp.Expr
		for _, v := range kt.vars {
			e := csp.Eq(csp.VarExpr(v), csp.IntConst(pp.ID()))
			if disj == nil {
				disj = e
			} else {
				disj = csp.Or(disj, e)
			}
		}
		kt.solver.Add(disj)
	}
}

// createFunctionConstraint ties each node's 0/1 "is a function" indicator
// to the production it resolves to.
func (kt *KTree) createFunctionConstraint() {
	for x, v := range kt.vars {
		for _, p := range kt.Spec.Productions() {
			want := 0
			if p.IsFunction() && !p.IsHole() {
				want = 1
			}
			cond := csp.Eq(csp.VarExpr(v), csp.IntConst(p.ID()))
			conseq := csp.Eq(csp.VarExpr(kt.funVars[x]), csp.IntConst(want))
			kt.solver.Add(csp.Implies(cond, conseq))
		}
	}
}

// createLeafConstraint: nodes with no k-tree children must resolve to a
// production that itself takes no children (enum, param, or hole).
func (kt *KTree) createLeafConstraint() {
	leaf := leafProductionIDs(kt.Spec)
	for x, n := range kt.nodes {
		if len(n.children) == 0 {
			if e := orEqAny(kt.vars[x], leaf); e != nil {
				kt.solver.Add(e)
			}
		}
	}
}

// createChildrenConstraint: if node x resolves to production p, then for
// each used argument slot y < p.Arity(), the corresponding k-tree child
// must resolve to a (non-hole) production typed p.RHS[y]; for every unused
// slot (y >= arity, or p is not a function), the child must resolve to some
// type's hole production.
func (kt *KTree) createChildrenConstraint() {
	holeIDs := holeProductionIDs(kt.Spec)
	for x, n := range kt.nodes {
		if len(n.children) == 0 {
			continue
		}
		for _, p := range kt.Spec.Productions() {
			for y, childIdx := range n.children {
				var domain []int
				if fp, ok := p.(*spec.FunctionProduction); ok && !fp.IsHole() && y < fp.Arity() {
					domain = nonHoleProductionIDsWithLHS(kt.Spec, fp.RHS[y])
				} else {
					domain = holeIDs
				}
				disj := orEqAny(kt.vars[childIdx], domain)
				if disj == nil {
					continue
				}
				cond := csp.Eq(csp.VarExpr(kt.vars[x]), csp.IntConst(p.ID()))
				kt.solver.Add(csp.Implies(cond, disj))
			}
		}
	}
}

func (kt *KTree) Next(ctx context.Context) (dsl.Node, error) {
	model, err := kt.opt.Optimize(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, nil
	}
	kt.lastModel = model
	return kt.buildProgram(model)
}

func (kt *KTree) Update(ctx context.Context, cores [][]Blame) error {
	if len(cores) == 0 {
		return kt.blockLastModel()
	}
	for _, core := range cores {
		var disj csp.Expr
		for _, b := range core {
			e := csp.Ne(csp.VarExpr(kt.vars[b.NodeID]), csp.IntConst(b.Prod.ID()))
			if disj == nil {
				disj = e
			} else {
				disj = csp.Or(disj, e)
			}
		}
		if disj != nil {
			kt.solver.Add(disj)
		}
	}
	return nil
}

func (kt *KTree) blockLastModel() error {
	if kt.lastModel == nil {
		return errs.Newf(errs.SYN001, "no prior model to block")
	}
	var disj csp.Expr
	for _, v := range kt.vars {
		e := csp.Ne(csp.VarExpr(v), csp.IntConst(kt.lastModel[v.Name]))
		if disj == nil {
			disj = e
		} else {
			disj = csp.Or(disj, e)
		}
	}
	kt.solver.Add(disj)
	return nil
}

// buildProgram reconstructs the AST bottom-up from a satisfying model,
// pruning hole-production nodes (tyrell/enumerator/smt.py's buildProgram).
func (kt *KTree) buildProgram(model map[string]int) (dsl.Node, error) {
	builder := dsl.NewBuilder(kt.Spec)
	built := make([]dsl.Node, len(kt.nodes))
	kt.builtIndex = make(map[string]int)
	for i := len(kt.nodes) - 1; i >= 0; i-- {
		prodID, ok := model[kt.vars[i].Name]
		if !ok {
			return nil, errs.Newf(errs.DEC002, "model missing assignment for node %d", i)
		}
		prod, err := kt.Spec.GetProductionOrRaise(prodID)
		if err != nil {
			return nil, err
		}
		if prod.IsHole() {
			continue
		}
		var children []dsl.Node
		if fp, ok := prod.(*spec.FunctionProduction); ok {
			children = make([]dsl.Node, fp.Arity())
			for y := 0; y < fp.Arity(); y++ {
				childIdx := kt.nodes[i].children[y]
				child := built[childIdx]
				if child == nil {
					return nil, errs.Newf(errs.BLD002, "child %d of node %d resolved to nil", y, i)
				}
				children[y] = child
			}
		}
		node, err := builder.MakeNode(prod, children)
		if err != nil {
			return nil, err
		}
		built[i] = node
		if _, seen := kt.builtIndex[node.Canon()]; !seen {
			kt.builtIndex[node.Canon()] = i
		}
	}
	if built[0] == nil {
		return nil, errs.Newf(errs.BLD002, "root resolved to a hole production")
	}
	return built[0], nil
}

// NodeTreeIndex returns the tree position (an index into kt.vars) that
// decoded to n in the most recent Next() call, for translating a decider's
// node-level blame into an enumerator.Blame. False if n was never produced
// by this enumerator's last model.
func (kt *KTree) NodeTreeIndex(n dsl.Node) (int, bool) {
	i, ok := kt.builtIndex[n.Canon()]
	return i, ok
}
