package decider

import (
	"context"
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/constraint"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// PruningException reports that node's own production constraints were
// violated by the concrete values of its already-evaluated children, found
// while walking the tree bottom-up rather than waiting for a final
// input/output mismatch. Grounded on tyrell/decider/
// example_constraint_pruning.py's PruningException, which the original
// raises out of its lock-step concrete/symbolic ConstraintInterpreter.
//
// This port checks constraints purely concretely at each node instead of
// replaying the original's symbolic-placeholder dance (Z3Encoder binding a
// "_sym" variable that PropertyFinder fixes up mid-walk): once a node's
// argument values are known, every property referenced by its own
// constraints is already computable, so there is nothing left to represent
// symbolically. The two approaches reject the same programs; this one just
// gets there without a solver call per node.
type PruningException struct {
	Node dsl.Node
}

func (e *PruningException) Error() string {
	return fmt.Sprintf("pruning: constraint violated at %s", e.Node.Canon())
}

// PruningDecider is the pruning variant of C6: it evaluates each example
// bottom-up and stops at the first node whose own constraints fail, instead
// of always evaluating the whole program before deciding. Grounded on
// ExampleConstraintPruningDecider.
type PruningDecider struct {
	Spec          *spec.Spec
	Interp        interpreter.Interpreter
	Examples      []Example
	Equal         EqualFunc
	AssertHandler *AssertionViolationHandler
}

func NewPruningDecider(sp *spec.Spec, interp interpreter.Interpreter, examples []Example, equal EqualFunc) (*PruningDecider, error) {
	if len(examples) == 0 {
		return nil, errs.Newf(errs.DEC001, "pruning decider requires at least one example")
	}
	if equal == nil {
		equal = DefaultEqual
	}
	return &PruningDecider{
		Spec:          sp,
		Interp:        interp,
		Examples:      examples,
		Equal:         equal,
		AssertHandler: NewAssertionViolationHandler(sp, interp),
	}, nil
}

// Analyze runs every example through evalChecked. A *PruningException
// blames the entire pruned subtree (every node is rejected together, since
// none of them can be kept without re-satisfying the violated constraint).
// A plain output mismatch with no pruning signal reports bad() with no
// blame, same as the base (non-pruning, non-symbolic) decider would.
func (d *PruningDecider) Analyze(ctx context.Context, prog dsl.Node) (Result, error) {
	for _, ex := range d.Examples {
		select {
		case <-ctx.Done():
			return Result{}, errs.Newf(errs.SYN002, "pruning decider cancelled: %v", ctx.Err())
		default:
		}

		out, err := d.evalChecked(prog, ex.Input)
		if err != nil {
			if pe, ok := err.(*PruningException); ok {
				nodes := dsl.DFS(pe.Node)
				blame := make([]Blame, len(nodes))
				for i, n := range nodes {
					blame[i] = Blame{Node: n, Prod: n.Production()}
				}
				return Bad([][]Blame{blame}), nil
			}
			return Result{}, err
		}
		if !d.Equal(out, ex.Output) {
			return Bad(nil), nil
		}
	}
	return Ok(), nil
}

func (d *PruningDecider) evalChecked(n dsl.Node, inputs []any) (any, error) {
	switch t := n.(type) {
	case *dsl.Atom:
		return d.Interp.Eval(n, nil)
	case *dsl.Param:
		if t.Prod.Index < 0 || t.Prod.Index >= len(inputs) {
			return nil, errs.Newf(errs.ITP001, "input parameter access(%d) out of bound(%d)", t.Prod.Index, len(inputs))
		}
		return inputs[t.Prod.Index], nil
	case *dsl.Apply:
		argVals := make([]any, len(t.Args))
		for i, c := range t.Args {
			v, err := d.evalChecked(c, inputs)
			if err != nil {
				return nil, err
			}
			argVals[i] = v
		}
		out, err := d.Interp.Eval(t, inputs)
		if err != nil {
			return nil, err
		}
		for _, c := range t.Prod.Constraints {
			val, err := constraint.Eval(d.Interp, argVals, out, c)
			if err != nil {
				return nil, err
			}
			ok, isBool := val.(bool)
			if !isBool {
				return nil, errs.Newf(errs.ITP002, "constraint on %q must evaluate to bool", t.Prod.Name)
			}
			if !ok {
				return nil, &PruningException{Node: t}
			}
		}
		return out, nil
	default:
		return nil, errs.Newf(errs.ITP002, "unrecognized node kind %T", n)
	}
}
