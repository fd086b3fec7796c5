package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/spec"
)

// toySpec builds the SmallInt/Int grammar from spec.md §8: SmallInt is an
// enum type over {"0","1","2","3"}, Int is value-typed, and "plus" combines
// two Int-typed subtrees (either params or nested plus-applications) into
// an Int. Two program inputs are declared so @param0/@param1 both resolve.
func toySpec(t *testing.T) *spec.Spec {
	t.Helper()
	smallInt := &spec.EnumType{TypeName: "SmallInt", Domain: []string{"0", "1", "2", "3"}}
	intTy := &spec.ValueType{TypeName: "Int"}
	ts := spec.NewTypeSpec()
	require.NoError(t, ts.Define(smallInt))
	require.NoError(t, ts.Define(intTy))

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy, intTy}, intTy)
	require.NoError(t, err)

	prods := spec.NewProductionSpec()
	_, err = prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
	require.NoError(t, err)

	sp, err := spec.Build(ts, prog, prods, nil)
	require.NoError(t, err)
	return sp
}

func TestBuilderMakeParamAndApply(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)

	p0, err := b.MakeParam(0)
	require.NoError(t, err)
	p1, err := b.MakeParam(1)
	require.NoError(t, err)

	sum, err := b.MakeApply("plus", []Node{p0, p1})
	require.NoError(t, err)
	assert.False(t, sum.IsLeaf())
	assert.Equal(t, "Int", sum.Type().Name())
	assert.Equal(t, "(plus (@param 0) (@param 1))", sum.Canon())
}

func TestBuilderArityMismatch(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0, err := b.MakeParam(0)
	require.NoError(t, err)

	_, err = b.MakeApply("plus", []Node{p0})
	assert.Error(t, err)
}

func TestBuilderUnknownFunction(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	_, err := b.MakeApply("minus", nil)
	assert.Error(t, err)
}

func TestBuilderMakeEnumAndUnknownValue(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)

	n, err := b.MakeEnum("SmallInt", "2")
	require.NoError(t, err)
	assert.True(t, n.IsLeaf())
	assert.Equal(t, `(SmallInt "2")`, n.Canon())

	_, err = b.MakeEnum("SmallInt", "9")
	assert.Error(t, err)
}

func TestDeepEqual(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0a, _ := b.MakeParam(0)
	p0b, _ := b.MakeParam(0)
	p1, _ := b.MakeParam(1)

	assert.True(t, DeepEqual(p0a, p0b))
	assert.False(t, DeepEqual(p0a, p1))

	sumA, err := b.MakeApply("plus", []Node{p0a, p1})
	require.NoError(t, err)
	sumB, err := b.MakeApply("plus", []Node{p0b, p1})
	require.NoError(t, err)
	assert.True(t, DeepEqual(sumA, sumB))
}

func TestBFSAndDFSOrder(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0, _ := b.MakeParam(0)
	p1, _ := b.MakeParam(1)
	inner, err := b.MakeApply("plus", []Node{p0, p1})
	require.NoError(t, err)
	outer, err := b.MakeApply("plus", []Node{inner, p1})
	require.NoError(t, err)

	bfs := BFS(outer)
	require.Len(t, bfs, 5)
	assert.Same(t, outer, bfs[0])

	dfs := DFS(outer)
	require.Len(t, dfs, 5)
	assert.Same(t, outer, dfs[0])
	assert.Same(t, inner, dfs[1])

	post := PostOrder(outer)
	require.Len(t, post, 5)
	assert.Same(t, outer, post[len(post)-1])
}

func TestNodeIndexerCollapsesStructuralDuplicates(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0a, _ := b.MakeParam(0)
	p0b, _ := b.MakeParam(0) // a distinct Go object, structurally identical
	p1, _ := b.MakeParam(1)

	inner, err := b.MakeApply("plus", []Node{p0a, p1})
	require.NoError(t, err)
	outer, err := b.MakeApply("plus", []Node{inner, p0b})
	require.NoError(t, err)

	idx := NewNodeIndexer(outer)
	id0a, ok := idx.GetID(p0a)
	require.True(t, ok)
	id0b, ok := idx.GetID(p0b)
	require.True(t, ok)
	assert.Equal(t, id0a, id0b, "structurally equal @param0 leaves share one id")

	idOuter, ok := idx.GetID(outer)
	require.True(t, ok)
	assert.Equal(t, 0, idOuter, "root is always id 0 under BFS order")
}

func TestParentFinder(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0, _ := b.MakeParam(0)
	p1, _ := b.MakeParam(1)
	inner, err := b.MakeApply("plus", []Node{p0, p1})
	require.NoError(t, err)
	outer, err := b.MakeApply("plus", []Node{inner, p1})
	require.NoError(t, err)

	pf := NewParentFinder(outer)
	parent, ok := pf.GetParent(inner)
	require.True(t, ok)
	assert.Same(t, outer, parent)

	_, ok = pf.GetParent(outer)
	assert.False(t, ok, "root has no parent")
}

func TestSExprRoundTrip(t *testing.T) {
	sp := toySpec(t)
	b := NewBuilder(sp)
	p0, _ := b.MakeParam(0)
	p1, _ := b.MakeParam(1)
	e0, err := b.MakeEnum("SmallInt", "3")
	require.NoError(t, err)
	outer, err := b.MakeApply("plus", []Node{p0, p1})
	require.NoError(t, err)

	for _, n := range []Node{p0, e0, outer} {
		printed := Print(n)
		parsed, err := Parse(sp, printed)
		require.NoError(t, err, "parse of %q", printed)
		assert.True(t, DeepEqual(n, parsed))
	}
}

func TestParseMalformed(t *testing.T) {
	sp := toySpec(t)
	_, err := Parse(sp, "(plus (@param 0)")
	assert.Error(t, err)

	_, err = Parse(sp, `(SmallInt "9")`)
	assert.Error(t, err)

	_, err = Parse(sp, "(@param notanumber)")
	assert.Error(t, err)
}
