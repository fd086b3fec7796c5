package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSpec(t *testing.T) {
	ty0 := &EnumType{TypeName: "Type0", Domain: []string{"a"}}
	ty1 := &ValueType{TypeName: "Type1"}
	ts := NewTypeSpec()
	require.NoError(t, ts.Define(ty0))
	require.NoError(t, ts.Define(ty1))

	got, ok := ts.Get("Type0")
	require.True(t, ok)
	assert.Same(t, ty0, got)

	_, ok = ts.Get("Type2")
	assert.False(t, ok)

	_, err := ts.GetOrRaise("Type2")
	assert.Error(t, err)

	err = ts.Define(ty0)
	assert.Error(t, err)
}

func TestProductionSpec(t *testing.T) {
	ty0 := &EnumType{TypeName: "Type0", Domain: []string{"a"}}
	ty1 := &ValueType{TypeName: "Type1"}
	ps := NewProductionSpec()

	prod0, err := ps.AddFuncProduction("base", ty1, []Type{ty0}, nil)
	require.NoError(t, err)
	prod1, err := ps.AddFuncProduction("rec", ty1, []Type{ty0, ty1}, nil)
	require.NoError(t, err)

	got, ok := ps.GetProduction(prod0.ID())
	require.True(t, ok)
	assert.Same(t, Production(prod0), got)

	fakeID := prod0.ID() + prod1.ID() + 1
	_, ok = ps.GetProduction(fakeID)
	assert.False(t, ok)
	_, err = ps.GetProductionOrRaise(fakeID)
	assert.Error(t, err)

	prods := ps.GetProductionsWithLHS(ty1)
	assert.Equal(t, []Production{prod0, prod1}, prods)

	assert.Len(t, ps.Productions(), 2)
	_, err = ps.AddFuncProduction("base2", ty1, []Type{ty0}, nil)
	require.NoError(t, err)
	assert.Len(t, ps.Productions(), 3)

	_, err = ps.AddFuncProduction("base", ty1, []Type{ty0}, nil)
	assert.Error(t, err, "duplicate function name must be rejected")

	_, err = ps.AddFuncProduction("nullary", ty1, nil, nil)
	assert.Error(t, err, "arity-0 function production must be rejected")
}

func TestHoleProductionStable(t *testing.T) {
	ty1 := &ValueType{TypeName: "Type1"}
	ps := NewProductionSpec()
	h1 := ps.HoleProduction(ty1)
	h2 := ps.HoleProduction(ty1)
	assert.Same(t, h1, h2)
	assert.True(t, h1.IsHole())
	assert.True(t, h1.IsFunction())
}

func TestPredicateSpec(t *testing.T) {
	ps := NewPredicateSpec()
	p0 := ps.Add("f", []any{"abc", 3, false})
	p1 := ps.Add("g", []any{2.5})
	p2 := ps.Add("f", []any{"def", 4, true})

	assert.Len(t, ps.Predicates(), 3)
	fPreds := ps.GetWithName("f")
	assert.ElementsMatch(t, []*Predicate{p0, p2}, fPreds)
	gPreds := ps.GetWithName("g")
	assert.ElementsMatch(t, []*Predicate{p1}, gPreds)
	assert.Empty(t, ps.GetWithName("h"))
}

func TestBuildAutoDerivesProductions(t *testing.T) {
	smallInt := &EnumType{TypeName: "SmallInt", Domain: []string{"0", "1", "2", "3"}}
	intTy := &ValueType{TypeName: "Int"}
	ts := NewTypeSpec()
	require.NoError(t, ts.Define(smallInt))
	require.NoError(t, ts.Define(intTy))

	prog, err := NewProgramSpec("Toy", []Type{intTy, intTy}, intTy)
	require.NoError(t, err)

	sp, err := Build(ts, prog, nil, nil)
	require.NoError(t, err)

	assert.Len(t, sp.GetProductionsWithLHS(smallInt), 4)
	assert.Len(t, sp.GetParamProductions(), 2)
	p0, ok := sp.GetParamProduction(0)
	require.True(t, ok)
	assert.Equal(t, 0, p0.(*ParamProduction).Index)
}
