package enumerator

import (
	"context"

	"github.com/squares-synth/tyrellgo/internal/dsl"
)

// FromIterator wraps a fixed, pre-computed sequence of candidates as an
// Enumerator, grounded on tyrell/enumerator/from_iterator.py's
// FromIteratorEnumerator. Update is a no-op: none of the supplemented
// oracle enumerators narrow a search space, they just walk a list.
type FromIterator struct {
	progs []dsl.Node
	pos   int
}

func NewFromIterator(progs []dsl.Node) *FromIterator {
	return &FromIterator{progs: progs}
}

func (f *FromIterator) Next(ctx context.Context) (dsl.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pos >= len(f.progs) {
		return nil, nil
	}
	n := f.progs[f.pos]
	f.pos++
	return n, nil
}

func (f *FromIterator) Update(ctx context.Context, cores [][]Blame) error {
	return nil
}

// NewEmptyEnumerator returns an enumerator that produces nothing, mirroring
// tyrell/enumerator/from_iterator.py's make_empty_enumerator.
func NewEmptyEnumerator() *FromIterator {
	return NewFromIterator(nil)
}

// NewSingletonEnumerator returns an enumerator that produces prog exactly
// once, mirroring make_singleton_enumerator.
func NewSingletonEnumerator(prog dsl.Node) *FromIterator {
	return NewFromIterator([]dsl.Node{prog})
}

// NewListEnumerator returns an enumerator that produces each of progs in
// order, mirroring make_list_enumerator.
func NewListEnumerator(progs []dsl.Node) *FromIterator {
	return NewFromIterator(progs)
}
