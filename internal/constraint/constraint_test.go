package constraint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// plusOneInterp registers a minimal property, succ, returning operand+1,
// used to exercise PropertyExpr evaluation.
func plusOneInterp() interpreter.Interpreter {
	return interpreter.NewPostOrder(interpreter.Callbacks{
		ApplyProps: map[string]interpreter.ApplyProp{
			"succ": func(v any) (any, error) { return v.(int) + 1, nil },
		},
	})
}

func TestEvalArithmeticAndComparison(t *testing.T) {
	ret := spec.NewParamExpr(0)
	arg1 := spec.NewParamExpr(1)
	sum, err := spec.NewBinaryExpr(spec.OpAdd, ret, arg1)
	require.NoError(t, err)
	cmp, err := spec.NewBinaryExpr(spec.OpGt, sum, spec.NewIntConst(0))
	require.NoError(t, err)

	v, err := Eval(plusOneInterp(), []any{3}, 4, cmp)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestEvalDivisionTruncatesTowardZero(t *testing.T) {
	div, err := spec.NewBinaryExpr(spec.OpDiv, spec.NewIntConst(-7), spec.NewIntConst(2))
	require.NoError(t, err)
	v, err := Eval(plusOneInterp(), nil, nil, div)
	require.NoError(t, err)
	assert.Equal(t, -3, v) // Go's native truncating division, not floor division
}

func TestEvalPropertyExpr(t *testing.T) {
	prop, err := spec.NewPropertyExpr("succ", spec.SortInt, spec.NewParamExpr(1))
	require.NoError(t, err)
	v, err := Eval(plusOneInterp(), []any{10}, nil, prop)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
}

func TestEvalCondExpr(t *testing.T) {
	cond, err := spec.NewCondExpr(spec.NewBoolConst(true), spec.NewIntConst(1), spec.NewIntConst(2))
	require.NoError(t, err)
	v, err := Eval(plusOneInterp(), nil, nil, cond)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestEncodeMatchesConcreteEval(t *testing.T) {
	ret := spec.NewParamExpr(0)
	arg1 := spec.NewParamExpr(1)
	sum, err := spec.NewBinaryExpr(spec.OpAdd, ret, arg1)
	require.NoError(t, err)
	cmp, err := spec.NewBinaryExpr(spec.OpGt, sum, spec.NewIntConst(0))
	require.NoError(t, err)

	solver := csp.NewSolver()
	retVar := csp.NewIntVar("ret", []int{-5, -1, 0, 1, 3, 4, 5})
	argVar := csp.NewIntVar("arg1", []int{-5, -1, 0, 1, 3, 4, 5})
	solver.DeclareVar(retVar)
	solver.DeclareVar(argVar)

	enc := &Encoder{Params: map[int]csp.Expr{
		0: csp.VarExpr(retVar),
		1: csp.VarExpr(argVar),
	}}
	symbolic, err := enc.Encode(cmp)
	require.NoError(t, err)
	solver.Add(csp.Eq(csp.VarExpr(retVar), csp.IntConst(3)))
	solver.Add(csp.Eq(csp.VarExpr(argVar), csp.IntConst(4)))
	solver.Add(symbolic)

	res, err := solver.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, csp.Sat, res)

	concrete, err := Eval(plusOneInterp(), []any{4}, 3, cmp)
	require.NoError(t, err)
	assert.Equal(t, true, concrete)
}

func TestEvalMissingPropertyCallback(t *testing.T) {
	prop, err := spec.NewPropertyExpr("missing", spec.SortInt, spec.NewParamExpr(1))
	require.NoError(t, err)
	interp := interpreter.NewPostOrder(interpreter.Callbacks{})
	_, err = Eval(interp, []any{1}, nil, prop)
	assert.Error(t, err)
}
