// Package constraint evaluates spec.Expr constraint trees, both concretely
// against one example (C3's eval_expr.py port) and symbolically into the
// hand-rolled solver in internal/csp (C3's constraint_encoder.py port).
package constraint

import (
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Eval concretely evaluates e, where @ret resolves to output and @arg_i
// resolves to inputs[i-1] (spec.ParamExpr's indexing convention). Division
// and modulo truncate toward zero (Go's native /, %; see SPEC_FULL.md §4).
func Eval(interp interpreter.Interpreter, inputs []any, output any, e spec.Expr) (any, error) {
	switch ex := e.(type) {
	case *spec.ConstExpr:
		if ex.IsBoolLit {
			return ex.BoolValue, nil
		}
		return ex.IntValue, nil

	case *spec.ParamExpr:
		if ex.Index == 0 {
			return output, nil
		}
		i := ex.Index - 1
		if i < 0 || i >= len(inputs) {
			return nil, errs.Newf(errs.ITP001, "constraint references @arg%d but only %d inputs given", i, len(inputs))
		}
		return inputs[i], nil

	case *spec.UnaryExpr:
		v, err := Eval(interp, inputs, output, ex.Operand)
		if err != nil {
			return nil, err
		}
		return evalUnary(ex.Op, v)

	case *spec.BinaryExpr:
		l, err := Eval(interp, inputs, output, ex.LHS)
		if err != nil {
			return nil, err
		}
		r, err := Eval(interp, inputs, output, ex.RHS)
		if err != nil {
			return nil, err
		}
		return evalBinary(ex.Op, l, r)

	case *spec.CondExpr:
		c, err := Eval(interp, inputs, output, ex.Cond)
		if err != nil {
			return nil, err
		}
		if c.(bool) {
			return Eval(interp, inputs, output, ex.True)
		}
		return Eval(interp, inputs, output, ex.False)

	case *spec.PropertyExpr:
		operand, err := Eval(interp, inputs, output, ex.Operand)
		if err != nil {
			return nil, err
		}
		return interp.ApplyProperty(ex.Name, operand)

	default:
		return nil, errs.Newf(errs.ITP002, "unrecognized constraint expression kind %T", e)
	}
}

func evalUnary(op spec.UnaryOperator, v any) (any, error) {
	switch op {
	case spec.OpNot:
		b, ok := v.(bool)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects a bool operand", op)
		}
		return !b, nil
	case spec.OpNeg:
		n, ok := v.(int)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects an int operand", op)
		}
		return -n, nil
	default:
		return nil, errs.Newf(errs.ITP002, "unrecognized unary operator %q", op)
	}
}

func evalBinary(op spec.BinaryOperator, l, r any) (any, error) {
	switch op {
	case spec.OpAdd, spec.OpSub, spec.OpMul, spec.OpDiv, spec.OpMod,
		spec.OpLt, spec.OpLe, spec.OpGt, spec.OpGe:
		li, ok := l.(int)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects int operands", op)
		}
		ri, ok := r.(int)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects int operands", op)
		}
		switch op {
		case spec.OpAdd:
			return li + ri, nil
		case spec.OpSub:
			return li - ri, nil
		case spec.OpMul:
			return li * ri, nil
		case spec.OpDiv:
			if ri == 0 {
				return nil, errs.Newf(errs.ITP002, "division by zero")
			}
			return li / ri, nil
		case spec.OpMod:
			if ri == 0 {
				return nil, errs.Newf(errs.ITP002, "modulo by zero")
			}
			return li % ri, nil
		case spec.OpLt:
			return li < ri, nil
		case spec.OpLe:
			return li <= ri, nil
		case spec.OpGt:
			return li > ri, nil
		case spec.OpGe:
			return li >= ri, nil
		}

	case spec.OpEq:
		return valuesEqual(l, r), nil
	case spec.OpNe:
		return !valuesEqual(l, r), nil

	case spec.OpAnd, spec.OpOr, spec.OpImply:
		lb, ok := l.(bool)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects bool operands", op)
		}
		rb, ok := r.(bool)
		if !ok {
			return nil, errs.Newf(errs.ITP002, "operator %q expects bool operands", op)
		}
		switch op {
		case spec.OpAnd:
			return lb && rb, nil
		case spec.OpOr:
			return lb || rb, nil
		case spec.OpImply:
			return (!lb) || rb, nil
		}
	}
	return nil, errs.Newf(errs.ITP002, "unrecognized binary operator %q", op)
}

// valuesEqual compares two property/param values. Comparable dynamic types
// (string, int, bool, ...) use ==; anything else falls back to formatted
// comparison, since property values are expected to be scalars (§3).
func valuesEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
