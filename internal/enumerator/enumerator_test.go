package enumerator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// plusSpec builds a two-input Int/plus toy grammar, with
// an optional predicate list for tests that exercise resolvePredicates.
func plusSpec(t *testing.T, configure func(*spec.PredicateSpec)) *spec.Spec {
	t.Helper()
	intTy := &spec.ValueType{TypeName: "Int"}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(intTy))

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy, intTy}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()
	_, err = prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
	require.NoError(t, err)

	preds := spec.NewPredicateSpec()
	if configure != nil {
		configure(preds)
	}

	sp, err := spec.Build(ts, prog, prods, preds)
	require.NoError(t, err)
	return sp
}

func TestKTreeProducesWellTypedProgram(t *testing.T) {
	sp := plusSpec(t, nil)
	kt, err := NewKTree(sp, 2, 1)
	require.NoError(t, err)

	prog, err := kt.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prog)
	assert.Equal(t, "Int", prog.Type().Name())
	apply, ok := prog.(*dsl.Apply)
	require.True(t, ok)
	assert.Equal(t, "plus", apply.Prod.Name)
	assert.Len(t, apply.Children(), 2)
}

func TestKTreeUpdateBlocksAndEventuallyExhausts(t *testing.T) {
	sp := plusSpec(t, nil)
	kt, err := NewKTree(sp, 2, 1)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		prog, err := kt.Next(context.Background())
		require.NoError(t, err)
		if prog == nil {
			break
		}
		canon := prog.Canon()
		assert.False(t, seen[canon], "enumerator repeated %q", canon)
		seen[canon] = true
		require.NoError(t, kt.Update(context.Background(), nil))
	}
	assert.NotEmpty(t, seen)
}

func TestKTreeInvalidDepthOrLoc(t *testing.T) {
	sp := plusSpec(t, nil)
	_, err := NewKTree(sp, 0, 1)
	assert.Error(t, err)
	_, err = NewKTree(sp, 2, 0)
	assert.Error(t, err)
}

func TestResolvePredicatesOccurs(t *testing.T) {
	sp := plusSpec(t, func(ps *spec.PredicateSpec) {
		ps.Add("occurs", []any{"plus", 100})
	})
	kt, err := NewKTree(sp, 2, 1)
	require.NoError(t, err)
	prog, err := kt.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prog)
}

func TestResolvePredicatesHappensBeforeUnsatisfiable(t *testing.T) {
	// plus can never happen_before itself when it's the only function
	// production and loc=1, since no earlier node could also be "plus".
	sp := plusSpec(t, func(ps *spec.PredicateSpec) {
		ps.Add("happens_before", []any{"plus", "plus"})
	})
	kt, err := NewKTree(sp, 2, 1)
	require.NoError(t, err)
	prog, err := kt.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, prog)
}

func TestExhaustiveEnumeratorCovers(t *testing.T) {
	sp := plusSpec(t, nil)
	en, err := NewExhaustiveEnumerator(sp, 2)
	require.NoError(t, err)

	var programs []string
	for {
		prog, err := en.Next(context.Background())
		require.NoError(t, err)
		if prog == nil {
			break
		}
		programs = append(programs, prog.Canon())
	}
	assert.Contains(t, programs, "(plus (@param 0) (@param 1))")
	assert.Contains(t, programs, "(@param 0)")
	assert.Contains(t, programs, "(@param 1)")
}

func TestExhaustiveEnumeratorInvalidDepth(t *testing.T) {
	sp := plusSpec(t, nil)
	_, err := NewExhaustiveEnumerator(sp, 0)
	assert.Error(t, err)
}

func TestFromIteratorHelpers(t *testing.T) {
	sp := plusSpec(t, nil)
	b := dsl.NewBuilder(sp)
	p0, err := b.MakeParam(0)
	require.NoError(t, err)

	empty := NewEmptyEnumerator()
	n, err := empty.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, n)

	single := NewSingletonEnumerator(p0)
	n, err = single.Next(context.Background())
	require.NoError(t, err)
	assert.Same(t, p0, n)
	n, err = single.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, n)
}
