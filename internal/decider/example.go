package decider

import (
	"context"
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/constraint"
	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Example is one input/output pair a candidate program must reproduce,
// grounded on tyrell/decider/example_base.py's Example namedtuple.
type Example struct {
	Input  []any
	Output any
}

// EqualFunc compares an evaluated output against an example's expected
// output (the original's equal_output callback).
type EqualFunc func(a, b any) bool

// DefaultEqual compares with ==, treating incomparable dynamic types as
// unequal rather than panicking.
func DefaultEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// propertyIntDomainRadius bounds the finite domain assigned to a property
// variable that has no concrete alignment yet (an Apply node's own @ret,
// constrained only by its own production's Constraints). z3 reasons over
// unbounded integers; this solver's backtracking search needs a concrete
// domain, so property values are assumed to fit in [-radius, radius].
const propertyIntDomainRadius = 64

// implyKey identifies one (production, constraint-within-that-production)
// pair, matching the Python imply_map's dict key of (Production, Expr)
// object identity — Go interface values holding pointers compare the same
// way, so implyKey works directly as a map key.
type implyKey struct {
	Prod spec.Production
	Expr spec.Expr
}

// ExampleDecider is the examples-plus-constraints decider (C6), grounded on
// tyrell/decider/example_constraint.py's ExampleConstraintDecider.
type ExampleDecider struct {
	Spec     *spec.Spec
	Interp   interpreter.Interpreter
	Examples []Example
	Equal    EqualFunc

	AssertHandler *AssertionViolationHandler

	implyMap map[implyKey][]spec.Production
}

// NewExampleDecider builds a decider over examples, pre-computing the
// imply-map used to widen blame sets (§4.6). Constructing with zero
// examples is rejected (DEC001; tyrell/decider/example_base.py raises
// ValueError for the same reason: a decider with no examples can never
// reject a program, making synthesis meaningless).
func NewExampleDecider(ctx context.Context, sp *spec.Spec, interp interpreter.Interpreter, examples []Example, equal EqualFunc) (*ExampleDecider, error) {
	if len(examples) == 0 {
		return nil, errs.Newf(errs.DEC001, "example decider requires at least one example")
	}
	if equal == nil {
		equal = DefaultEqual
	}
	im, err := buildImplyMap(ctx, sp)
	if err != nil {
		return nil, err
	}
	return &ExampleDecider{
		Spec:          sp,
		Interp:        interp,
		Examples:      examples,
		Equal:         equal,
		AssertHandler: NewAssertionViolationHandler(sp, interp),
		implyMap:      im,
	}, nil
}

// GetFailedExamples evaluates prog against every example and returns the
// ones whose output doesn't match. An interpreter error (including
// *interpreter.AssertionViolation) aborts immediately and is returned as-is,
// for the caller to route to AssertHandler.
func (d *ExampleDecider) GetFailedExamples(prog dsl.Node) ([]Example, error) {
	var failed []Example
	for _, ex := range d.Examples {
		out, err := d.Interp.Eval(prog, ex.Input)
		if err != nil {
			return nil, err
		}
		if !d.Equal(out, ex.Output) {
			failed = append(failed, ex)
		}
	}
	return failed, nil
}

func (d *ExampleDecider) HasFailedExamples(prog dsl.Node) (bool, error) {
	failed, err := d.GetFailedExamples(prog)
	return len(failed) > 0, err
}

// Analyze runs the full C6 decision procedure: concrete failure check, then
// (for every failed example) the symbolic alignment-and-unsat-core pass that
// produces blame sets, deduplicated across examples the way BlameFinder's
// _blames_collection does.
func (d *ExampleDecider) Analyze(ctx context.Context, prog dsl.Node) (Result, error) {
	failed, err := d.GetFailedExamples(prog)
	if err != nil {
		return Result{}, err
	}
	if len(failed) == 0 {
		return Ok(), nil
	}

	seen := map[string]bool{}
	var blameSets [][]Blame
	for _, ex := range failed {
		sets, err := d.processExample(ctx, prog, ex)
		if err != nil {
			return Result{}, err
		}
		for _, bs := range sets {
			key := blameSetKey(bs)
			if !seen[key] {
				seen[key] = true
				blameSets = append(blameSets, bs)
			}
		}
	}
	return Bad(blameSets), nil
}

// processExample runs one failed example's symbolic pass, returning nil if
// the constraints turned out satisfiable (no blame to report for this
// example — the concrete mismatch is real but the constraint system alone
// can't explain it).
func (d *ExampleDecider) processExample(ctx context.Context, prog dsl.Node, ex Example) ([][]Blame, error) {
	indexer := dsl.NewNodeIndexer(prog)
	solver := csp.NewSolver()
	varCache := map[string]*csp.Var{}

	if err := d.alignNode(varCache, indexer, prog, ex.Output); err != nil {
		return nil, err
	}

	// Leaves are aligned to concrete values first, in their own pass: an
	// Apply node's constraints may reference a child leaf's property var by
	// the same cache key, and that lookup must see the fixed-domain
	// alignment rather than race it and fall back to a free variable.
	nodes := dsl.BFS(prog)
	for _, n := range nodes {
		switch t := n.(type) {
		case *dsl.Param:
			if t.Prod.Index < 0 || t.Prod.Index >= len(ex.Input) {
				return nil, errs.Newf(errs.ITP001, "example has %d inputs, program references @param%d", len(ex.Input), t.Prod.Index)
			}
			if err := d.alignNode(varCache, indexer, n, ex.Input[t.Prod.Index]); err != nil {
				return nil, err
			}
		case *dsl.Atom:
			val, err := d.Interp.Eval(n, nil)
			if err != nil {
				return nil, err
			}
			if err := d.alignNode(varCache, indexer, n, val); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range nodes {
		t, ok := n.(*dsl.Apply)
		if !ok {
			continue
		}
		nodeID, _ := indexer.GetID(n)
		for cidx, c := range t.Prod.Constraints {
			enc := &constraint.Encoder{EncodeProperty: d.propertyEncoder(varCache, indexer, t)}
			ce, err := enc.Encode(c)
			if err != nil {
				return nil, err
			}
			solver.AssertAndTrack(fmt.Sprintf("@n%d_c%d", nodeID, cidx), ce)
		}
	}
	for _, v := range varCache {
		solver.DeclareVar(v)
	}

	res, err := solver.Check(ctx)
	if err != nil {
		return nil, err
	}
	if res != csp.Unsat {
		return nil, nil
	}
	core, err := solver.UnsatCore(ctx)
	if err != nil {
		return nil, err
	}
	if len(core) == 0 {
		return nil, nil
	}

	type nodeFail struct {
		node    dsl.Node
		indices []int
	}
	fails := map[string]*nodeFail{}
	var order []string
	for _, name := range core {
		nodeID, cidx, ok := parseConstraintName(name)
		if !ok {
			continue
		}
		n, ok := indexer.GetNode(nodeID)
		if !ok {
			continue
		}
		key := n.Canon()
		nf, ok := fails[key]
		if !ok {
			nf = &nodeFail{node: n}
			fails[key] = nf
			order = append(order, key)
		}
		nf.indices = append(nf.indices, cidx)
	}

	base := make([]Blame, len(order))
	for i, key := range order {
		n := fails[key].node
		base[i] = Blame{Node: n, Prod: n.Production()}
	}

	sets := [][]Blame{base}
	for _, key := range order {
		nf := fails[key]
		apply, ok := nf.node.(*dsl.Apply)
		if !ok {
			continue
		}
		prod0 := apply.Prod
		for _, cidx := range nf.indices {
			c0 := prod0.Constraints[cidx]
			for _, prod1 := range d.implyMap[implyKey{Prod: prod0, Expr: c0}] {
				expanded := make([]Blame, len(base))
				copy(expanded, base)
				for i, b := range expanded {
					if b.Node.Canon() == nf.node.Canon() {
						expanded[i] = Blame{Node: b.Node, Prod: prod1}
					}
				}
				sets = append(sets, expanded)
			}
		}
	}
	return sets, nil
}

// alignNode binds node's own property variables to the concrete values
// ApplyProperty computes for value, matching Z3Encoder.encode_param_alignment.
// Only leaf nodes (Atom/Param) and the program root get aligned this way;
// an internal Apply node's property variables stay free, tied down only by
// its own production's Constraints and by whatever parent constraint
// references it as an argument (tyrell/decider/example_constraint.py never
// aligns non-leaf nodes either).
func (d *ExampleDecider) alignNode(cache map[string]*csp.Var, indexer *dsl.NodeIndexer, n dsl.Node, value any) error {
	ty, ok := n.Type().(*spec.ValueType)
	if !ok {
		return nil
	}
	nodeID, ok := indexer.GetID(n)
	if !ok {
		return nil
	}
	for _, prop := range ty.Properties {
		key := fmt.Sprintf("%s_n%d", prop.Name, nodeID)
		if _, exists := cache[key]; exists {
			continue
		}
		expected, err := d.Interp.ApplyProperty(prop.Name, value)
		if err != nil {
			return err
		}
		dom, err := valueDomain(prop.Sort, expected)
		if err != nil {
			return err
		}
		cache[key] = &csp.Var{Name: key, Sort: cspSortFor(prop.Sort), Domain: dom}
	}
	return nil
}

// propertyEncoder resolves a PropertyExpr found inside apply's own
// constraints to the shared, node-indexed solver variable for whichever
// child (or apply itself, for @ret) the property's operand names.
func (d *ExampleDecider) propertyEncoder(cache map[string]*csp.Var, indexer *dsl.NodeIndexer, apply *dsl.Apply) constraint.PropertyEncoder {
	return func(pe *spec.PropertyExpr, _ csp.Expr) (csp.Expr, error) {
		pref, ok := pe.Operand.(*spec.ParamExpr)
		if !ok {
			return nil, errs.Newf(errs.DEC002, "property %q operand must be a parameter reference", pe.Name)
		}
		var target dsl.Node
		if pref.Index == 0 {
			target = apply
		} else {
			i := pref.Index - 1
			if i < 0 || i >= len(apply.Args) {
				return nil, errs.Newf(errs.DEC002, "constraint references @arg%d but %q has arity %d", i, apply.Prod.Name, len(apply.Args))
			}
			target = apply.Args[i]
		}
		nodeID, ok := indexer.GetID(target)
		if !ok {
			return nil, errs.Newf(errs.DEC002, "no index entry for node %s", target.Canon())
		}
		key := fmt.Sprintf("%s_n%d", pe.Name, nodeID)
		return csp.VarExpr(d.getOrCreateVar(cache, key, pe.PropSort)), nil
	}
}

func (d *ExampleDecider) getOrCreateVar(cache map[string]*csp.Var, key string, sort spec.Sort) *csp.Var {
	if v, ok := cache[key]; ok {
		return v
	}
	var v *csp.Var
	if sort == spec.SortBool {
		v = csp.NewBoolVar(key)
	} else {
		v = csp.NewIntVar(key, intRange(-propertyIntDomainRadius, propertyIntDomainRadius))
	}
	cache[key] = v
	return v
}

func valueDomain(sort spec.Sort, v any) ([]int, error) {
	switch sort {
	case spec.SortBool:
		b, ok := v.(bool)
		if !ok {
			return nil, errs.Newf(errs.DEC002, "expected bool property value, got %T", v)
		}
		if b {
			return []int{1}, nil
		}
		return []int{0}, nil
	case spec.SortInt:
		n, ok := v.(int)
		if !ok {
			return nil, errs.Newf(errs.DEC002, "expected int property value, got %T", v)
		}
		return []int{n}, nil
	default:
		return nil, errs.Newf(errs.DEC002, "cannot bind a value-sorted property to a symbolic variable")
	}
}

func cspSortFor(s spec.Sort) csp.Sort {
	if s == spec.SortBool {
		return csp.SortBool
	}
	return csp.SortInt
}

func parseConstraintName(name string) (nodeID, cidx int, ok bool) {
	n, c := 0, 0
	k, err := fmt.Sscanf(name, "@n%d_c%d", &n, &c)
	if err != nil || k != 2 {
		return 0, 0, false
	}
	return n, c, true
}

func intRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// buildImplyMap checks, for every ordered pair of function productions of
// equal arity, whether some constraint of the second implies a constraint of
// the first under pure symbolic reasoning (ignoring any example). A hit
// means: whenever the spec rejects the first production at a node because
// that constraint failed, the second production is also provably rejected,
// so it can be folded into the same blame set (tyrell/decider/
// example_constraint.py's BlameFinder._build_imply_map).
func buildImplyMap(ctx context.Context, sp *spec.Spec) (map[implyKey][]spec.Production, error) {
	out := map[implyKey][]spec.Production{}
	funcs := sp.GetFunctionProductions()
	for _, p0 := range funcs {
		prod0 := p0.(*spec.FunctionProduction)
		if len(prod0.Constraints) == 0 {
			continue
		}
		for _, p1 := range funcs {
			if p1.ID() == p0.ID() {
				continue
			}
			prod1 := p1.(*spec.FunctionProduction)
			if prod1.Arity() != prod0.Arity() || len(prod1.Constraints) == 0 {
				continue
			}
			for _, c0 := range prod0.Constraints {
				key := implyKey{Prod: prod0, Expr: c0}
				for _, c1 := range prod1.Constraints {
					implies, err := checkImplies(ctx, c1, c0)
					if err != nil {
						return nil, err
					}
					if implies {
						out[key] = append(out[key], prod1)
						break
					}
				}
			}
		}
	}
	return out, nil
}

// checkImplies decides whether c1 ⇒ c0 is valid by checking that ¬(c1 ⇒ c0)
// is unsatisfiable, binding every PropertyExpr(name, @arg_i) occurring in
// either expression to one shared fresh variable per (name, index) pair —
// the two constraints are being compared as if describing the same node and
// children, just under two different candidate productions.
func checkImplies(ctx context.Context, c1, c0 spec.Expr) (bool, error) {
	cache := map[string]*csp.Var{}
	encodeProp := func(pe *spec.PropertyExpr, _ csp.Expr) (csp.Expr, error) {
		pref, ok := pe.Operand.(*spec.ParamExpr)
		if !ok {
			return nil, errs.Newf(errs.DEC002, "property %q operand must be a parameter reference", pe.Name)
		}
		key := fmt.Sprintf("%s_p%d", pe.Name, pref.Index)
		v, ok := cache[key]
		if !ok {
			if pe.PropSort == spec.SortBool {
				v = csp.NewBoolVar(key)
			} else {
				v = csp.NewIntVar(key, intRange(-propertyIntDomainRadius, propertyIntDomainRadius))
			}
			cache[key] = v
		}
		return csp.VarExpr(v), nil
	}
	enc := &constraint.Encoder{EncodeProperty: encodeProp}
	e1, err := enc.Encode(c1)
	if err != nil {
		return false, err
	}
	e0, err := enc.Encode(c0)
	if err != nil {
		return false, err
	}
	solver := csp.NewSolver()
	solver.Add(csp.Not(csp.Implies(e1, e0)))
	res, err := solver.Check(ctx)
	if err != nil {
		return false, err
	}
	return res == csp.Unsat, nil
}
