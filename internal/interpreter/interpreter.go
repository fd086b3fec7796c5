// Package interpreter defines the contract a concrete domain implements so
// the decider (internal/decider) can run candidate programs on examples
// (§6 "Interpreter contract"). It intentionally stays map-dispatched rather
// than reflection-based, in the style of the teacher's environment lookups
// (internal/eval/env.go's map-plus-parent-chain Environment).
package interpreter

import (
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
)

// Interpreter evaluates a program against concrete inputs and resolves the
// named properties constraint expressions project through (§3
// "PropertyExpr").
type Interpreter interface {
	Eval(prog dsl.Node, inputs []any) (any, error)
	ApplyProperty(name string, operand any) (any, error)
}

// EvalFunc evaluates one function production's apply node given its
// already-evaluated argument values.
type EvalFunc func(node *dsl.Apply, args []any) (any, error)

// EvalAtom post-processes an enum production's literal value (e.g. parsing
// "3" into an int); the identity mapping is used when absent.
type EvalAtom func(value string) any

// ApplyProp resolves one named property against a concrete value.
type ApplyProp func(operand any) (any, error)

// Callbacks is the table a concrete domain registers. Keys are production/
// property names, matching the eval_<name>/apply_<name> naming convention
// of the original dynamic-dispatch interpreter.
type Callbacks struct {
	EvalFuncs  map[string]EvalFunc
	EvalAtoms  map[string]EvalAtom
	ApplyProps map[string]ApplyProp
}

// PostOrder is a generic post-order Interpreter driven entirely by a
// Callbacks table, grounded on tyrell/interpreter/post_order.py's
// PostOrderInterpreter.
type PostOrder struct {
	CB Callbacks
}

func NewPostOrder(cb Callbacks) *PostOrder { return &PostOrder{CB: cb} }

func (p *PostOrder) Eval(prog dsl.Node, inputs []any) (any, error) {
	return p.eval(prog, inputs)
}

func (p *PostOrder) eval(n dsl.Node, inputs []any) (any, error) {
	switch t := n.(type) {
	case *dsl.Atom:
		if f, ok := p.CB.EvalAtoms[t.Type().Name()]; ok {
			return f(t.Prod.Value()), nil
		}
		return t.Prod.Value(), nil
	case *dsl.Param:
		if t.Prod.Index >= len(inputs) {
			return nil, errs.Newf(errs.ITP001, "input parameter access(%d) out of bound(%d)", t.Prod.Index, len(inputs))
		}
		return inputs[t.Prod.Index], nil
	case *dsl.Apply:
		args := make([]any, len(t.Args))
		for i, c := range t.Args {
			v, err := p.eval(c, inputs)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		f, ok := p.CB.EvalFuncs[t.Prod.Name]
		if !ok {
			return nil, errs.Newf(errs.ITP003, "missing eval method for %q", t.Prod.Name)
		}
		return f(t, args)
	default:
		return nil, errs.Newf(errs.ITP002, "unrecognized node kind %T", n)
	}
}

func (p *PostOrder) ApplyProperty(name string, operand any) (any, error) {
	f, ok := p.CB.ApplyProps[name]
	if !ok {
		return nil, errs.Newf(errs.ITP003, "missing apply method for property %q", name)
	}
	return f(operand)
}

// AssertionViolation is raised by AssertArg when a dynamic argument check
// fails (§7 AVI001). CaptureIndices names the sibling arguments the blame
// finder should additionally consider (original's `capture_indices`). Cond
// is retained (unlike the original's bound Python closure, which survives
// implicitly on the exception object) so internal/decider's
// AssertionViolationHandler can re-test alternate enum values at the
// failing argument position without re-running the whole program.
type AssertionViolation struct {
	Node           *dsl.Apply
	Index          int
	CaptureIndices []int
	Cond           func(any) bool
}

func (e *AssertionViolation) Error() string {
	return fmt.Sprintf("[%s] assertion failed on argument %d of %q", errs.AVI001, e.Index, e.Node.Prod.Name)
}

// AssertArg checks args[index] against cond, raising *AssertionViolation if
// it fails. captureIndices records which other argument positions the
// violation's blame should be widened to (tyrell/interpreter/interpreter.py
// Interpreter.assertArg).
func AssertArg(node *dsl.Apply, args []any, index int, cond func(any) bool, captureIndices ...int) error {
	if !cond(args[index]) {
		return &AssertionViolation{Node: node, Index: index, CaptureIndices: captureIndices, Cond: cond}
	}
	return nil
}
