package synth

import (
	"context"

	"github.com/squares-synth/tyrellgo/internal/decider"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/enumerator"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
)

// Decider is the subset of decider.ExampleDecider/PruningDecider the loop
// needs (§4.8's `decider.analyze(p)`), kept as an interface so either
// concrete decider — or a test double — can drive the loop.
type Decider interface {
	Analyze(ctx context.Context, prog dsl.Node) (decider.Result, error)
}

// AssertHandler is decider.AssertionViolationHandler's surface (§4.8's
// `decider.explain(e)`), isolated so the loop doesn't need the concrete
// decider package type for a nil check.
type AssertHandler interface {
	HandleInterpreterError(err error) ([][]decider.Blame, error)
}

// treeIndexer is implemented by enumerators that can translate a returned
// dsl.Node back to the SMT tree position it was decoded from (§4.4's
// "program→tree-node map"), which both KTree and Lines provide. An
// enumerator without this (e.g. enumerator.FromIterator, used by tests and
// oracles) cannot accept node-level blame, so the loop falls back to
// blocking the whole model for it.
type treeIndexer interface {
	NodeTreeIndex(n dsl.Node) (int, bool)
}

// Loop drives an enumerator against a decider per §4.8's pseudocode:
//
//	repeat:
//	    p ← enumerator.next()
//	    if p is None: return None
//	    try: r ← decider.analyze(p)
//	    catch interpreter-error e: enumerator.update(decider.explain(e)); continue
//	    if r.ok: return p
//	    enumerator.update(r.why)
type Loop struct {
	Enum   enumerator.Enumerator
	Dec    Decider
	Assert AssertHandler // optional; nil disables §4.7 blame translation

	done bool
}

// NewLoop builds a Loop. assertHandler may be nil if the interpreter under
// test never raises *interpreter.AssertionViolation.
func NewLoop(enum enumerator.Enumerator, dec Decider, assertHandler AssertHandler) *Loop {
	return &Loop{Enum: enum, Dec: dec, Assert: assertHandler}
}

// Run drives the loop to completion, returning the first accepted program or
// nil once the search space is exhausted. A context cancellation interrupts
// the loop between candidates (§5 "Cancellation"; SPEC_FULL.md §3's
// cancellation commitment) and is reported as SYN002.
func (l *Loop) Run(ctx context.Context) (dsl.Node, error) {
	for {
		prog, ok, err := l.Next(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return prog, nil
		}
		if l.done {
			return nil, nil
		}
	}
}

// Next performs exactly one generate-and-check step: it asks the enumerator
// for a candidate, checks it against the decider, and if the candidate is
// rejected, pushes feedback to the enumerator before returning. Run is just
// Next called in a loop; Next alone lets an external driver interleave
// several Loops (e.g. one per `loc` bound) without the core blocking on any
// single one (SPEC_FULL.md §3, "Synthesis loop as an iterator").
//
// Returns (prog, true, nil) when prog is accepted. Returns (nil, false, nil)
// when the most recent candidate was rejected (or none was generated this
// step because the handler decided to skip it) but the search continues —
// callers should check Done() to distinguish "keep calling Next" from
// "search space exhausted". Returns a non-nil error only for conditions that
// terminate synthesis outright (§7: any interpreter error other than an
// assertion violation, or a cancelled context).
func (l *Loop) Next(ctx context.Context) (dsl.Node, bool, error) {
	if l.done {
		return nil, false, nil
	}
	select {
	case <-ctx.Done():
		return nil, false, errs.Newf(errs.SYN002, "synthesis loop cancelled: %v", ctx.Err())
	default:
	}

	prog, err := l.Enum.Next(ctx)
	if err != nil {
		return nil, false, err
	}
	if prog == nil {
		l.done = true
		return nil, false, nil
	}

	res, err := l.Dec.Analyze(ctx, prog)
	if err != nil {
		if _, isAV := err.(*interpreter.AssertionViolation); isAV && l.Assert != nil {
			blames, herr := l.Assert.HandleInterpreterError(err)
			if herr != nil {
				return nil, false, herr
			}
			if uerr := l.update(ctx, blames); uerr != nil {
				return nil, false, uerr
			}
			return nil, false, nil
		}
		// A general interpreter error, or an assertion violation with no
		// handler attached, is not recoverable: §7 says it "terminates
		// synthesis".
		return nil, false, err
	}

	if res.IsOK() {
		return prog, true, nil
	}
	if uerr := l.update(ctx, res.Blames); uerr != nil {
		return nil, false, uerr
	}
	return nil, false, nil
}

// Done reports whether the enumerator has been exhausted.
func (l *Loop) Done() bool { return l.done }

// update translates decider/handler blame sets into the enumerator's own
// Blame type and pushes them, falling back to blocking the whole candidate
// model when translation isn't possible (no blame at all, or the
// enumerator doesn't expose a tree-index lookup).
func (l *Loop) update(ctx context.Context, blames [][]decider.Blame) error {
	indexer, canTranslate := l.Enum.(treeIndexer)
	if !canTranslate || len(blames) == 0 {
		return l.Enum.Update(ctx, nil)
	}

	cores := make([][]enumerator.Blame, 0, len(blames))
	for _, set := range blames {
		var core []enumerator.Blame
		for _, b := range set {
			id, ok := indexer.NodeTreeIndex(b.Node)
			if !ok {
				continue
			}
			core = append(core, enumerator.Blame{NodeID: id, Prod: b.Prod})
		}
		if len(core) > 0 {
			cores = append(cores, core)
		}
	}
	if len(cores) == 0 {
		return l.Enum.Update(ctx, nil)
	}
	return l.Enum.Update(ctx, cores)
}
