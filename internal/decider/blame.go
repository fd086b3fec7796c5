// Package decider implements the deduction-based deciders of §4.6/§4.7: the
// examples-plus-constraints decider (C6), its pruning variant, and the
// assertion-violation handler (C7). Grounded on
// tyrell/decider/example_constraint.py, example_constraint_pruning.py,
// assert_violation_handler.py and example_base.py.
package decider

import (
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Blame is one (node, production) pair forming part of a disjunctive blame
// set (§4 "Blame set"): "no program that identifies this node with that
// production on the failing example can succeed". Node identity follows
// dsl.Node's structural Canon(), matching tyrell/decider/blame.py's
// NamedTuple(node, production).
type Blame struct {
	Node Node
	Prod spec.Production
}

func (b Blame) String() string {
	return fmt.Sprintf("Blame(node=%s, production=%s)", b.Node, b.Prod)
}

// Node is a thin alias kept local to this package so the decider doesn't
// force every caller to import dsl just to spell dsl.Node in Blame.
type Node = dsl.Node

// key returns a value comparable with ==, suitable for deduplicating blame
// sets in a Go map (dsl.Node itself is an interface over pointers, so two
// structurally-equal-but-distinct nodes would otherwise compare unequal).
func (b Blame) key() string { return b.Node.Canon() + "#" + fmt.Sprint(b.Prod.ID()) }

// blameSetKey canonicalizes an unordered blame set (a "frozenset" in the
// Python original) into a single comparable string, for deduplicating
// across examples the way BlameFinder._blames_collection (a Set[FrozenSet])
// does.
func blameSetKey(set []Blame) string {
	keys := make([]string, len(set))
	for i, b := range set {
		keys[i] = b.key()
	}
	return canonicalSetJoin(keys)
}

func canonicalSetJoin(keys []string) string {
	// Simple O(n^2) dedup-and-sort is plenty for the blame-set sizes this
	// synthesizer produces (bounded by program size).
	seen := make(map[string]bool, len(keys))
	var uniq []string
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	for i := 1; i < len(uniq); i++ {
		for j := i; j > 0 && uniq[j-1] > uniq[j]; j-- {
			uniq[j-1], uniq[j] = uniq[j], uniq[j-1]
		}
	}
	out := ""
	for _, u := range uniq {
		out += u + "|"
	}
	return out
}

// Result is the outcome of Decider.Analyze (§4.6's ok()/bad(why=...)).
type Result struct {
	ok     bool
	Blames [][]Blame
}

func Ok() Result { return Result{ok: true} }

func Bad(blames [][]Blame) Result { return Result{ok: false, Blames: blames} }

func (r Result) IsOK() bool { return r.ok }
