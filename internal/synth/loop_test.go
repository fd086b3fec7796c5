package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/decider"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/enumerator"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// sumInterp evaluates every two-argument function production by summing its
// arguments, regardless of name — good enough to drive the loop tests below
// without needing per-production callbacks.
func sumInterp() interpreter.Interpreter {
	return interpreter.NewPostOrder(interpreter.Callbacks{
		EvalFuncs: map[string]interpreter.EvalFunc{
			"plus": func(_ *dsl.Apply, args []any) (any, error) {
				return args[0].(int) + args[1].(int), nil
			},
			"wrongplus": func(_ *dsl.Apply, args []any) (any, error) {
				return args[0].(int) - args[1].(int), nil
			},
		},
	})
}

func twoIntProgramSpec(t *testing.T, declare func(prods *spec.ProductionSpec, intTy spec.Type)) *spec.Spec {
	t.Helper()
	intTy := &spec.ValueType{TypeName: "Int"}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(intTy))

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy, intTy}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()
	declare(prods, intTy)

	sp, err := spec.Build(ts, prog, prods, nil)
	require.NoError(t, err)
	return sp
}

func TestLoopAcceptsFirstWellTypedCandidate(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	kt, err := enumerator.NewKTree(sp, 2, 1)
	require.NoError(t, err)

	dec, err := decider.NewExampleDecider(context.Background(), sp, sumInterp(), []decider.Example{
		{Input: []any{2, 3}, Output: 5},
	}, nil)
	require.NoError(t, err)

	loop := NewLoop(kt, dec, nil)
	prog, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, "(plus (@param 0) (@param 1))", prog.Canon())
}

func TestLoopRejectsAndBlocksUntilCorrectCandidate(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		// Declared first so its production id sorts before "plus"'s, which
		// makes the backtracking solver in internal/csp try it first (its
		// domains are built in ascending production-id order).
		_, err := prods.AddFuncProduction("wrongplus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
		_, err = prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	kt, err := enumerator.NewKTree(sp, 2, 1)
	require.NoError(t, err)

	dec, err := decider.NewExampleDecider(context.Background(), sp, sumInterp(), []decider.Example{
		{Input: []any{2, 3}, Output: 5},
	}, nil)
	require.NoError(t, err)

	loop := NewLoop(kt, dec, nil)
	prog, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prog)
	apply, ok := prog.(*dsl.Apply)
	require.True(t, ok)
	assert.Equal(t, "plus", apply.Prod.Name)
}

func TestLoopExhaustsWithoutMatch(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("wrongplus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	kt, err := enumerator.NewKTree(sp, 2, 1)
	require.NoError(t, err)

	dec, err := decider.NewExampleDecider(context.Background(), sp, sumInterp(), []decider.Example{
		{Input: []any{2, 3}, Output: 5},
	}, nil)
	require.NoError(t, err)

	loop := NewLoop(kt, dec, nil)
	prog, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, prog)
	assert.True(t, loop.Done())
}

func TestLoopCancellation(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})
	kt, err := enumerator.NewKTree(sp, 2, 1)
	require.NoError(t, err)
	dec, err := decider.NewExampleDecider(context.Background(), sp, sumInterp(), []decider.Example{
		{Input: []any{2, 3}, Output: 5},
	}, nil)
	require.NoError(t, err)

	loop := NewLoop(kt, dec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loop.Run(ctx)
	assert.Error(t, err)
}

func TestRunSearchReturnsStartLocWhenItSucceeds(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	cfg := &Config{StartLoc: 1, MaxLoc: 3, Depth: 2, Encoding: KTree}
	require.NoError(t, cfg.Validate())

	examples := []decider.Example{{Input: []any{2, 3}, Output: 5}}
	newDecider := func(loc int) (Decider, error) {
		return decider.NewExampleDecider(context.Background(), sp, sumInterp(), examples, nil)
	}

	prog, loc, err := RunSearch(context.Background(), sp, cfg, newDecider, nil)
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, 1, loc)
}

func TestAssertionViolationRoutesToHandler(t *testing.T) {
	// A "sqrt"-like production over a SmallInt argument: the interpreter
	// raises an AssertionViolation for any negative-valued choice, and the
	// loop routes it to the handler instead of terminating outright (§4.7 /
	// end-to-end scenario 6). No other SmallInt choice also violates, so the
	// handler returns no blame set and the loop blocks that candidate.
	smallInt := &spec.EnumType{TypeName: "SmallInt", Domain: []string{"-1", "0", "1"}}
	intTy := &spec.ValueType{TypeName: "Int"}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(smallInt))
	require.NoError(t, ts.Define(intTy))

	// No declared inputs: a param production of type Int would have nowhere
	// to sit in this grammar (sqrt's only slot is SmallInt-typed), which
	// would make the k-tree's input-usage constraint unsatisfiable.
	prog, err := spec.NewProgramSpec("Toy", []spec.Type{}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()
	_, err = prods.AddFuncProduction("sqrt", intTy, []spec.Type{smallInt}, nil)
	require.NoError(t, err)

	sp, err := spec.Build(ts, prog, prods, nil)
	require.NoError(t, err)

	interp := interpreter.NewPostOrder(interpreter.Callbacks{
		EvalAtoms: map[string]interpreter.EvalAtom{
			"SmallInt": func(v string) any {
				switch v {
				case "-1":
					return -1
				case "0":
					return 0
				default:
					return 1
				}
			},
		},
		EvalFuncs: map[string]interpreter.EvalFunc{
			"sqrt": func(node *dsl.Apply, args []any) (any, error) {
				n := args[0].(int)
				if err := interpreter.AssertArg(node, args, 0, func(v any) bool {
					return v.(int) >= 0
				}); err != nil {
					return nil, err
				}
				return n, nil
			},
		},
	})

	kt, err := enumerator.NewKTree(sp, 2, 1)
	require.NoError(t, err)
	dec, err := decider.NewExampleDecider(context.Background(), sp, interp, []decider.Example{
		{Input: []any{}, Output: 1},
	}, nil)
	require.NoError(t, err)

	loop := NewLoop(kt, dec, decider.NewAssertionViolationHandler(sp, interp))

	// Drive until the enumerator stops handing out the negative-argument
	// candidate; the loop must neither panic nor terminate with an error
	// while that's happening.
	var prog2 dsl.Node
	for i := 0; i < 10; i++ {
		p, ok, err := loop.Next(context.Background())
		require.NoError(t, err)
		if ok {
			prog2 = p
			break
		}
		if loop.Done() {
			break
		}
	}
	require.NotNil(t, prog2)
	assert.Equal(t, "(sqrt (SmallInt \"1\"))", prog2.Canon())
}
