package enumerator

import (
	"context"
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Lines is the straight-line program enumerator (§4.5 / C5), grounded on
// tyrell/enumerator/lines.py's LinesEnumerator with z3 calls replaced by csp
// calls. Instead of one nested tree, a candidate is Loc independent function
// applications ("lines"); each line's argument slots hold either a leaf
// (an enum/param production) or a reference to an earlier line's result.
// The original represents "argument y references line j" with a dedicated
// 0/1 flag variable per (slot, earlier line) pair plus a separate line-id
// production table; this port folds that choice directly into the slot's
// own domain (leaf production ids, plus one sentinel value per reachable
// earlier line), which needs one variable per slot instead of one variable
// per (slot, earlier-line) pair.
//
// This port also does not reproduce the original's "every line is consumed
// by exactly one later reference" constraint: it only requires the final
// line to match the program's output type, and decodes a program by
// following references down from there. Lines that end up unreferenced
// simply do not appear in the decoded program, yet they (like slots pinned
// for unused arguments) still count toward createInputConstraint, so a
// decoded program is not guaranteed to use every input. Enforcing
// single-consumer use widens the search tree (more of it needs dead-code
// elimination after the fact), and the
// backtracking solver in internal/csp does not have the original's
// watched-literal propagation to absorb the extra cost.
type Lines struct {
	Spec        *spec.Spec
	Loc         int
	maxChildren int

	solver      *csp.Solver
	vars        []*csp.Var
	nodes       []treeNode
	typeVars    []*csp.Var
	typeIndex   map[string]int
	numTypes    int
	lineRefBase int

	opt        *Optimizer
	lastModel  map[string]int
	builtIndex map[string]int

	lattice *LatticeCache
}

// UseLattice attaches a lattice symmetry cache (see lattice.go) to the
// enumerator. Once attached, every blocked model also blocks every other
// model BuildLattice/findSymmetries can show is a dataflow-isomorphic
// renumbering of it, eliminating a whole symmetry class per Update call
// instead of one candidate at a time.
func (l *Lines) UseLattice(cache *LatticeCache) {
	l.lattice = cache
}

// NewLines builds a lines enumerator with exactly loc candidate lines.
func NewLines(sp *spec.Spec, loc int) (*Lines, error) {
	if loc <= 0 {
		return nil, errs.Newf(errs.SYN001, "loc must be positive, got %d", loc)
	}
	maxChildren := maxArity(sp)
	numProd := sp.NumProductions()
	types := sp.Types.Types()
	typeIndex := make(map[string]int, len(types))
	for i, ty := range types {
		typeIndex[ty.Name()] = i
	}

	l := &Lines{
		Spec:        sp,
		Loc:         loc,
		maxChildren: maxChildren,
		solver:      csp.NewSolver(),
		vars:        make([]*csp.Var, loc*(1+maxChildren)),
		nodes:       make([]treeNode, loc*(1+maxChildren)),
		typeVars:    make([]*csp.Var, loc),
		typeIndex:   typeIndex,
		numTypes:    len(types),
		lineRefBase: numProd,
	}

	funcIDs := nonHoleFunctionProductionIDs(sp)
	leafIDs := leafProductionIDs(sp)
	for i := 0; i < loc; i++ {
		rootIdx := l.rootIdx(i)
		l.vars[rootIdx] = csp.NewIntVar(fmt.Sprintf("r%d", i), funcIDs)
		childIdxs := make([]int, maxChildren)
		for y := 0; y < maxChildren; y++ {
			ci := l.childIdx(i, y)
			childIdxs[y] = ci
			domain := append(append([]int{}, leafIDs...), lineRefDomain(numProd, i)...)
			l.vars[ci] = csp.NewIntVar(fmt.Sprintf("c%d_%d", i, y), domain)
		}
		l.nodes[rootIdx] = treeNode{children: childIdxs}
		l.typeVars[i] = csp.NewIntVar(fmt.Sprintf("t%d", i), intRange(0, l.numTypes-1))
	}
	for _, v := range l.vars {
		l.solver.DeclareVar(v)
	}
	for _, v := range l.typeVars {
		l.solver.DeclareVar(v)
	}

	l.opt = NewOptimizer(l.solver, sp, l.vars, l.nodes)

	l.createTypeConstraint()
	l.createChildrenConstraint()
	l.createOutputConstraint()
	l.createInputConstraint()
	if err := l.resolvePredicates(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lines) rootIdx(line int) int     { return line * (1 + l.maxChildren) }
func (l *Lines) childIdx(line, y int) int { return l.rootIdx(line) + 1 + y }

func lineRefDomain(numProd, line int) []int {
	out := make([]int, 0, line)
	for j := 0; j < line; j++ {
		out = append(out, numProd+j)
	}
	return out
}

func nonHoleFunctionProductionIDs(sp *spec.Spec) []int {
	var out []int
	for _, p := range sp.Productions() {
		if fp, ok := p.(*spec.FunctionProduction); ok && !fp.IsHole() {
			out = append(out, p.ID())
		}
	}
	return out
}

func leafProductionIDsWithLHS(sp *spec.Spec, ty spec.Type) []int {
	var out []int
	for _, p := range sp.GetProductionsWithLHS(ty) {
		if p.IsEnum() || p.IsParam() {
			out = append(out, p.ID())
		}
	}
	return out
}

// createTypeConstraint ties each line's type var to the LHS of whichever
// production its root var resolves to.
func (l *Lines) createTypeConstraint() {
	for i := 0; i < l.Loc; i++ {
		rootIdx := l.rootIdx(i)
		for _, p := range l.Spec.Productions() {
			fp, ok := p.(*spec.FunctionProduction)
			if !ok || fp.IsHole() {
				continue
			}
			idx, ok := l.typeIndex[fp.LHS().Name()]
			if !ok {
				continue
			}
			cond := csp.Eq(csp.VarExpr(l.vars[rootIdx]), csp.IntConst(p.ID()))
			conseq := csp.Eq(csp.VarExpr(l.typeVars[i]), csp.IntConst(idx))
			l.solver.Add(csp.Implies(cond, conseq))
		}
	}
}

// createChildrenConstraint: if line i's root resolves to production p, then
// for each used argument slot y < p.Arity() the slot var must be a leaf
// production typed p.RHS[y], or a reference to an earlier line j whose type
// var matches p.RHS[y]; for every unused slot it is pinned to a fixed leaf
// sentinel.
func (l *Lines) createChildrenConstraint() {
	leafIDs := leafProductionIDs(l.Spec)
	var unused int
	if len(leafIDs) > 0 {
		unused = leafIDs[0]
	}
	for i := 0; i < l.Loc; i++ {
		rootIdx := l.rootIdx(i)
		for _, p := range l.Spec.Productions() {
			fp, ok := p.(*spec.FunctionProduction)
			if !ok || fp.IsHole() {
				continue
			}
			cond := csp.Eq(csp.VarExpr(l.vars[rootIdx]), csp.IntConst(p.ID()))
			for y := 0; y < l.maxChildren; y++ {
				childVar := l.vars[l.childIdx(i, y)]
				if y >= fp.Arity() {
					l.solver.Add(csp.Implies(cond, csp.Eq(csp.VarExpr(childVar), csp.IntConst(unused))))
					continue
				}
				ty := fp.RHS[y]
				disj := orEqAny(childVar, leafProductionIDsWithLHS(l.Spec, ty))
				tyIdx, hasTy := l.typeIndex[ty.Name()]
				for j := 0; j < i; j++ {
					refEq := csp.Eq(csp.VarExpr(childVar), csp.IntConst(l.lineRefBase+j))
					if disj == nil {
						disj = refEq
					} else {
						disj = csp.Or(disj, refEq)
					}
					if hasTy {
						guard := csp.And(cond, refEq)
						l.solver.Add(csp.Implies(guard, csp.Eq(csp.VarExpr(l.typeVars[j]), csp.IntConst(tyIdx))))
					}
				}
				if disj != nil {
					l.solver.Add(csp.Implies(cond, disj))
				} else {
					// No leaf production and no earlier line can fill this
					// slot's type, so p cannot legally appear at this line.
					l.solver.Add(csp.Not(cond))
				}
			}
		}
	}
}

// createOutputConstraint: the last line's production matches the program's
// declared output type.
func (l *Lines) createOutputConstraint() {
	var ids []int
	for _, p := range l.Spec.GetProductionsWithLHS(l.Spec.Output()) {
		if fp, ok := p.(*spec.FunctionProduction); ok && !fp.IsHole() {
			ids = append(ids, p.ID())
		}
	}
	lastRoot := l.rootIdx(l.Loc - 1)
	if e := orEqAny(l.vars[lastRoot], ids); e != nil {
		l.solver.Add(e)
	}
}

// createInputConstraint: every program input appears in at least one slot
// across all lines.
func (l *Lines) createInputConstraint() {
	for _, pp := range l.Spec.GetParamProductions() {
		var disj csp.Expr
		for i := 0; i < l.Loc; i++ {
			for y := 0; y < l.maxChildren; y++ {
				e := csp.Eq(csp.VarExpr(l.vars[l.childIdx(i, y)]), csp.IntConst(pp.ID()))
				if disj == nil {
					disj = e
				} else {
					disj = csp.Or(disj, e)
				}
			}
		}
		if disj != nil {
			l.solver.Add(disj)
		}
	}
}

func (l *Lines) Next(ctx context.Context) (dsl.Node, error) {
	model, err := l.opt.Optimize(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, nil
	}
	l.lastModel = model
	return l.buildProgram(model)
}

func (l *Lines) Update(ctx context.Context, cores [][]Blame) error {
	if len(cores) == 0 {
		return l.blockLastModel(ctx)
	}
	for _, core := range cores {
		var disj csp.Expr
		for _, b := range core {
			e := csp.Ne(csp.VarExpr(l.vars[b.NodeID]), csp.IntConst(b.Prod.ID()))
			if disj == nil {
				disj = e
			} else {
				disj = csp.Or(disj, e)
			}
		}
		if disj != nil {
			l.solver.Add(disj)
		}
	}
	return nil
}

func (l *Lines) blockLastModel(ctx context.Context) error {
	if l.lastModel == nil {
		return errs.Newf(errs.SYN001, "no prior model to block")
	}
	l.blockModel(l.lastModel)
	if l.lattice != nil {
		return l.blockSymmetryClass(ctx, l.lastModel)
	}
	return nil
}

// blockModel adds a clause forbidding the solver from ever reproducing m
// exactly.
func (l *Lines) blockModel(m map[string]int) {
	var disj csp.Expr
	for _, v := range l.vars {
		val, ok := m[v.Name]
		if !ok {
			continue
		}
		e := csp.Ne(csp.VarExpr(v), csp.IntConst(val))
		if disj == nil {
			disj = e
		} else {
			disj = csp.Or(disj, e)
		}
	}
	if disj != nil {
		l.solver.Add(disj)
	}
}

// blockSymmetryClass uses the attached lattice cache to block every model
// dataflow-isomorphic to m in one step (§4.5 "Symmetry breaking"), instead of
// rediscovering each one individually across later Next calls.
func (l *Lines) blockSymmetryClass(ctx context.Context, m map[string]int) error {
	sig := BuildLattice(l, m)
	switch l.lattice.Mode {
	case Offline:
		entries, ok := l.lattice.Lookup(sig)
		if !ok {
			return nil
		}
		for _, entry := range entries {
			perm, err := parsePermutation(entry)
			if err != nil {
				return err
			}
			l.blockModel(applyLatticePermutation(l, m, perm))
		}
		return nil
	default:
		perms, err := l.findSymmetries(ctx, m)
		if err != nil {
			return err
		}
		for _, perm := range perms {
			l.blockModel(applyLatticePermutation(l, m, perm))
			l.lattice.Record(sig, formatPermutation(perm))
		}
		return nil
	}
}

// buildProgram decodes each line bottom-up (lines only ever reference
// strictly earlier lines, so a single forward pass suffices) and returns the
// final line's node as the candidate program.
func (l *Lines) buildProgram(model map[string]int) (dsl.Node, error) {
	builder := dsl.NewBuilder(l.Spec)
	built := make([]dsl.Node, l.Loc)
	l.builtIndex = make(map[string]int)

	for i := 0; i < l.Loc; i++ {
		rootIdx := l.rootIdx(i)
		prodID, ok := model[l.vars[rootIdx].Name]
		if !ok {
			return nil, errs.Newf(errs.DEC002, "model missing assignment for line %d", i)
		}
		prod, err := l.Spec.GetProductionOrRaise(prodID)
		if err != nil {
			return nil, err
		}
		fp, ok := prod.(*spec.FunctionProduction)
		if !ok {
			return nil, errs.Newf(errs.BLD002, "line %d resolved to non-function production %s", i, prod)
		}
		args := make([]dsl.Node, fp.Arity())
		for y := 0; y < fp.Arity(); y++ {
			ci := l.childIdx(i, y)
			v, ok := model[l.vars[ci].Name]
			if !ok {
				return nil, errs.Newf(errs.DEC002, "model missing assignment for line %d slot %d", i, y)
			}
			if v >= l.lineRefBase {
				j := v - l.lineRefBase
				if j < 0 || j >= i || built[j] == nil {
					return nil, errs.Newf(errs.BLD002, "line %d slot %d referenced unbuilt line %d", i, y, j)
				}
				args[y] = built[j]
				continue
			}
			leafProd, err := l.Spec.GetProductionOrRaise(v)
			if err != nil {
				return nil, err
			}
			node, err := builder.MakeNode(leafProd, nil)
			if err != nil {
				return nil, err
			}
			args[y] = node
			if _, seen := l.builtIndex[node.Canon()]; !seen {
				l.builtIndex[node.Canon()] = ci
			}
		}
		node, err := builder.MakeNode(fp, args)
		if err != nil {
			return nil, err
		}
		built[i] = node
		if _, seen := l.builtIndex[node.Canon()]; !seen {
			l.builtIndex[node.Canon()] = rootIdx
		}
	}
	return built[l.Loc-1], nil
}

// NodeTreeIndex returns the variable index that decoded to n in the most
// recent Next() call, mirroring KTree.NodeTreeIndex.
func (l *Lines) NodeTreeIndex(n dsl.Node) (int, bool) {
	i, ok := l.builtIndex[n.Canon()]
	return i, ok
}
