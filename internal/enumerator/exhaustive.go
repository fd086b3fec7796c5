package enumerator

import (
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// NewExhaustiveEnumerator walks every well-typed program up to maxDepth,
// grounded on tyrell/enumerator/exhaustive.py's ExhaustiveIterator. Unlike
// the Python generator (which yields lazily), the Go port materializes the
// full candidate list up front and hands it to FromIterator: maxDepth is
// expected to stay small enough (toy grammars, a handful of levels) that
// eager generation is not a concern, and it keeps the recursive production
// cross product free of goroutine lifecycle management.
func NewExhaustiveEnumerator(sp *spec.Spec, maxDepth int) (*FromIterator, error) {
	if maxDepth <= 0 {
		return nil, errs.Newf(errs.SYN001, "max depth must be positive, got %d", maxDepth)
	}
	if sp.NumProductions() == 0 {
		return NewEmptyEnumerator(), nil
	}
	builder := dsl.NewBuilder(sp)
	progs, err := exhaustiveIter(sp, builder, sp.Output(), 0, maxDepth)
	if err != nil {
		return nil, err
	}
	return NewListEnumerator(progs), nil
}

func exhaustiveIter(sp *spec.Spec, builder *dsl.Builder, ty spec.Type, currDepth, maxDepth int) ([]dsl.Node, error) {
	prods := sp.GetProductionsWithLHS(ty)
	forceLeaf := currDepth >= maxDepth-1

	var out []dsl.Node
	var funcProds []spec.Production
	for _, p := range prods {
		switch {
		case p.IsHole():
			continue
		case p.IsEnum(), p.IsParam():
			n, err := builder.MakeNode(p, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		case !forceLeaf && p.IsFunction():
			funcProds = append(funcProds, p)
		}
	}

	for _, p := range funcProds {
		fp := p.(*spec.FunctionProduction)
		childLists := make([][]dsl.Node, fp.Arity())
		for i, rhsTy := range fp.RHS {
			children, err := exhaustiveIter(sp, builder, rhsTy, currDepth+1, maxDepth)
			if err != nil {
				return nil, err
			}
			childLists[i] = children
		}
		combos, err := cartesianApply(builder, fp, childLists)
		if err != nil {
			return nil, err
		}
		out = append(out, combos...)
	}
	return out, nil
}

// cartesianApply enumerates every combination picking one child from each
// slot of childLists and builds a node for prod over each combination,
// mirroring itertools.product's role in the original generator.
func cartesianApply(builder *dsl.Builder, prod spec.Production, childLists [][]dsl.Node) ([]dsl.Node, error) {
	if len(childLists) == 0 {
		n, err := builder.MakeNode(prod, nil)
		if err != nil {
			return nil, err
		}
		return []dsl.Node{n}, nil
	}
	combos := [][]dsl.Node{{}}
	for _, options := range childLists {
		if len(options) == 0 {
			return nil, nil
		}
		var next [][]dsl.Node
		for _, prefix := range combos {
			for _, opt := range options {
				extended := make([]dsl.Node, len(prefix)+1)
				copy(extended, prefix)
				extended[len(prefix)] = opt
				next = append(next, extended)
			}
		}
		combos = next
	}
	out := make([]dsl.Node, 0, len(combos))
	for _, children := range combos {
		n, err := builder.MakeNode(prod, children)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
