package decider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// arithSpec builds a small Int-valued grammar with a "val" identity
// property and four binary productions: plus (exact sum), plusBig (sum
// plus a lower bound, used to exercise the imply-map), badplus (declares
// multiplication but still computes a sum, used to exercise the unsat-core
// blame path) and looseplus (declares a weak inequality, used to show a
// concrete mismatch that produces no blame). All four eval callbacks just
// add.
func arithSpec(t *testing.T) (*spec.Spec, interpreter.Interpreter) {
	t.Helper()
	intTy := &spec.ValueType{TypeName: "Int", Properties: []spec.Property{{Name: "val", Sort: spec.SortInt}}}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(intTy))

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy, intTy}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()

	mkConstraint := func(build func(ret, a1, a2 spec.Expr) (spec.Expr, error)) []spec.Expr {
		ret := spec.NewParamExpr(0)
		a1 := spec.NewParamExpr(1)
		a2 := spec.NewParamExpr(2)
		retVal, err := spec.NewPropertyExpr("val", spec.SortInt, ret)
		require.NoError(t, err)
		a1Val, err := spec.NewPropertyExpr("val", spec.SortInt, a1)
		require.NoError(t, err)
		a2Val, err := spec.NewPropertyExpr("val", spec.SortInt, a2)
		require.NoError(t, err)
		e, err := build(retVal, a1Val, a2Val)
		require.NoError(t, err)
		return []spec.Expr{e}
	}

	sumEq := func(ret, a1, a2 spec.Expr) (spec.Expr, error) {
		sum, err := spec.NewBinaryExpr(spec.OpAdd, a1, a2)
		if err != nil {
			return nil, err
		}
		return spec.NewBinaryExpr(spec.OpEq, ret, sum)
	}

	_, err = prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, mkConstraint(sumEq))
	require.NoError(t, err)

	_, err = prods.AddFuncProduction("plusBig", intTy, []spec.Type{intTy, intTy}, mkConstraint(func(ret, a1, a2 spec.Expr) (spec.Expr, error) {
		eq, err := sumEq(ret, a1, a2)
		if err != nil {
			return nil, err
		}
		big, err := spec.NewBinaryExpr(spec.OpGt, ret, spec.NewIntConst(100))
		if err != nil {
			return nil, err
		}
		return spec.NewBinaryExpr(spec.OpAnd, eq, big)
	}))
	require.NoError(t, err)

	_, err = prods.AddFuncProduction("badplus", intTy, []spec.Type{intTy, intTy}, mkConstraint(func(ret, a1, a2 spec.Expr) (spec.Expr, error) {
		prod, err := spec.NewBinaryExpr(spec.OpMul, a1, a2)
		if err != nil {
			return nil, err
		}
		return spec.NewBinaryExpr(spec.OpEq, ret, prod)
	}))
	require.NoError(t, err)

	// looseplus also computes a sum but only declares the weak constraint
	// @ret >= @arg1: underconstrained enough that aligning @ret to a wrong
	// expected output still leaves the symbolic system satisfiable, so a
	// concrete mismatch on this production produces no blame.
	_, err = prods.AddFuncProduction("looseplus", intTy, []spec.Type{intTy, intTy}, mkConstraint(func(ret, a1, _ spec.Expr) (spec.Expr, error) {
		return spec.NewBinaryExpr(spec.OpGe, ret, a1)
	}))
	require.NoError(t, err)

	sp, err := spec.Build(ts, prog, prods, nil)
	require.NoError(t, err)

	add := func(_ *dsl.Apply, args []any) (any, error) { return args[0].(int) + args[1].(int), nil }
	interp := interpreter.NewPostOrder(interpreter.Callbacks{
		EvalFuncs: map[string]interpreter.EvalFunc{
			"plus": add, "plusBig": add, "badplus": add, "looseplus": add,
		},
		ApplyProps: map[string]interpreter.ApplyProp{
			"val": func(v any) (any, error) { return v.(int), nil },
		},
	})
	return sp, interp
}

func buildPlus(t *testing.T, sp *spec.Spec, name string) dsl.Node {
	t.Helper()
	b := dsl.NewBuilder(sp)
	p0, err := b.MakeParam(0)
	require.NoError(t, err)
	p1, err := b.MakeParam(1)
	require.NoError(t, err)
	n, err := b.MakeApply(name, []dsl.Node{p0, p1})
	require.NoError(t, err)
	return n
}

func TestExampleDeciderConcretePass(t *testing.T) {
	sp, interp := arithSpec(t)
	d, err := NewExampleDecider(context.Background(), sp, interp, []Example{{Input: []any{2, 3}, Output: 5}}, nil)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "plus"))
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestExampleDeciderConcreteFailNoBlame(t *testing.T) {
	sp, interp := arithSpec(t)
	// looseplus actually computes 2+3=5, which mismatches the expected
	// output of 99, but its declared constraint (@ret >= @arg1) stays
	// satisfiable under alignment (99 >= 2), so there's no unsat core to
	// blame anything with.
	d, err := NewExampleDecider(context.Background(), sp, interp, []Example{{Input: []any{2, 3}, Output: 99}}, nil)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "looseplus"))
	require.NoError(t, err)
	assert.False(t, res.IsOK())
	assert.Empty(t, res.Blames)
}

func TestExampleDeciderAbstractFailYieldsBlame(t *testing.T) {
	sp, interp := arithSpec(t)
	// The interpreter computes 2+3=5, which mismatches the expected 7, and
	// badplus declares @ret == @arg1*@arg2 (6), so aligning ret=7/arg1=2/
	// arg2=3 is unsat.
	d, err := NewExampleDecider(context.Background(), sp, interp, []Example{{Input: []any{2, 3}, Output: 7}}, nil)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "badplus"))
	require.NoError(t, err)
	assert.False(t, res.IsOK())
	require.NotEmpty(t, res.Blames)
	assert.Contains(t, res.Blames[0][0].Node.Canon(), "badplus")
}

func TestExampleDeciderCustomEquality(t *testing.T) {
	sp, interp := arithSpec(t)
	equal := func(a, b any) bool { return a.(int) == b.(int) || a.(int) == -b.(int) }
	d, err := NewExampleDecider(context.Background(), sp, interp, []Example{{Input: []any{2, 3}, Output: -5}}, equal)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "plus"))
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestNewExampleDeciderRejectsEmptyExamples(t *testing.T) {
	sp, interp := arithSpec(t)
	_, err := NewExampleDecider(context.Background(), sp, interp, nil, nil)
	assert.Error(t, err)
}

func TestBuildImplyMapWidensBlame(t *testing.T) {
	sp, interp := arithSpec(t)
	// plusBig's constraint (sumEq && ret>100) implies plus's constraint
	// (sumEq), so the imply map built by NewExampleDecider lists plusBig
	// under plus's constraint, which is what widens a blame on plus's
	// constraint to plusBig too.
	d, err := NewExampleDecider(context.Background(), sp, interp, []Example{{Input: []any{2, 3}, Output: 5}}, nil)
	require.NoError(t, err)

	found := false
	for key, prods := range d.implyMap {
		if key.Prod.(*spec.FunctionProduction).Name == "plus" {
			for _, p := range prods {
				if p.(*spec.FunctionProduction).Name == "plusBig" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected plusBig's constraint to imply plus's constraint")
}

// modeSpec builds a tiny enum-argument grammar for exercising the
// assertion-violation handler: usemode accepts a Mode atom and raises a
// violation unless its value is "A".
func modeSpec(t *testing.T) (*spec.Spec, interpreter.Interpreter) {
	t.Helper()
	modeTy := &spec.EnumType{TypeName: "Mode", Domain: []string{"A", "B", "C"}}
	intTy := &spec.ValueType{TypeName: "Int", Properties: []spec.Property{{Name: "val", Sort: spec.SortInt}}}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(modeTy))
	require.NoError(t, ts.Define(intTy))

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()
	_, err = prods.AddFuncProduction("usemode", intTy, []spec.Type{modeTy}, nil)
	require.NoError(t, err)

	sp, err := spec.Build(ts, prog, prods, nil)
	require.NoError(t, err)

	interp := interpreter.NewPostOrder(interpreter.Callbacks{
		EvalFuncs: map[string]interpreter.EvalFunc{
			"usemode": func(node *dsl.Apply, args []any) (any, error) {
				cond := func(v any) bool { return v.(string) == "A" }
				if err := interpreter.AssertArg(node, args, 0, cond); err != nil {
					return nil, err
				}
				return 0, nil
			},
		},
	})
	return sp, interp
}

func TestAssertionViolationHandlerWidensOverAlternateEnum(t *testing.T) {
	sp, interp := modeSpec(t)
	b := dsl.NewBuilder(sp)
	badMode, err := b.MakeEnum("Mode", "C")
	require.NoError(t, err)
	prog, err := b.MakeApply("usemode", []dsl.Node{badMode})
	require.NoError(t, err)

	_, err = interp.Eval(prog, []any{0})
	require.Error(t, err)
	av, ok := err.(*interpreter.AssertionViolation)
	require.True(t, ok)

	h := NewAssertionViolationHandler(sp, interp)
	sets, err := h.HandleInterpreterError(av)
	require.NoError(t, err)
	require.Len(t, sets, 1, "only \"B\" should also fail the same predicate, not \"A\"")
	foundB := false
	for _, b := range sets[0] {
		if ep, ok := b.Prod.(*spec.EnumProduction); ok && ep.Value() == "B" {
			foundB = true
		}
	}
	assert.True(t, foundB)
}

func TestAssertionViolationHandlerUnhandledForNonInterpreterError(t *testing.T) {
	sp, interp := modeSpec(t)
	h := NewAssertionViolationHandler(sp, interp)
	sets, err := h.HandleInterpreterError(assertPlainError{})
	require.NoError(t, err)
	assert.Nil(t, sets)
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "not an assertion violation" }

func TestPruningDeciderCatchesViolationEarly(t *testing.T) {
	sp, interp := arithSpec(t)
	d, err := NewPruningDecider(sp, interp, []Example{{Input: []any{2, 3}, Output: 5}}, nil)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "badplus"))
	require.NoError(t, err)
	assert.False(t, res.IsOK())
	require.NotEmpty(t, res.Blames)
}

func TestPruningDeciderPassesValidProgram(t *testing.T) {
	sp, interp := arithSpec(t)
	d, err := NewPruningDecider(sp, interp, []Example{{Input: []any{2, 3}, Output: 5}}, nil)
	require.NoError(t, err)

	res, err := d.Analyze(context.Background(), buildPlus(t, sp, "plus"))
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestNewPruningDeciderRejectsEmptyExamples(t *testing.T) {
	sp, interp := arithSpec(t)
	_, err := NewPruningDecider(sp, interp, nil, nil)
	assert.Error(t, err)
}
