package constraint

import (
	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// PropertyEncoder resolves one PropertyExpr into a symbolic csp.Expr given
// the already-encoded operand (nil when the operand is a parameter with no
// entry in Encoder.Params), the way the decider's encoder binds property
// names to node-indexed solver variables (tyrell/decider/example_constraint.py's
// Z3Encoder.resolve_property).
type PropertyEncoder func(prop *spec.PropertyExpr, operand csp.Expr) (csp.Expr, error)

// Encoder ports tyrell/decider/constraint_encoder.py's ConstraintEncoder:
// it lowers a spec.Expr into a symbolic csp.Expr, binding @ret/@arg_i to
// caller-supplied solver variables instead of concrete values.
type Encoder struct {
	// Params maps ParamExpr.Index (0 = @ret, i = @arg_i) to the csp.Expr
	// standing in for that slot at the node currently being encoded.
	Params map[int]csp.Expr
	// EncodeProperty resolves PropertyExpr nodes; required if the spec
	// being encoded uses any.
	EncodeProperty PropertyEncoder
}

func (enc *Encoder) Encode(e spec.Expr) (csp.Expr, error) {
	switch ex := e.(type) {
	case *spec.ConstExpr:
		if ex.IsBoolLit {
			return csp.BoolConst(ex.BoolValue), nil
		}
		return csp.IntConst(ex.IntValue), nil

	case *spec.ParamExpr:
		v, ok := enc.Params[ex.Index]
		if !ok {
			return nil, errs.Newf(errs.DEC002, "no symbolic binding for parameter index %d", ex.Index)
		}
		return v, nil

	case *spec.UnaryExpr:
		x, err := enc.Encode(ex.Operand)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case spec.OpNot:
			return csp.Not(x), nil
		case spec.OpNeg:
			return csp.Neg(x), nil
		default:
			return nil, errs.Newf(errs.DEC002, "unrecognized unary operator %q", ex.Op)
		}

	case *spec.BinaryExpr:
		l, err := enc.Encode(ex.LHS)
		if err != nil {
			return nil, err
		}
		r, err := enc.Encode(ex.RHS)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case spec.OpAdd:
			return csp.Add(l, r), nil
		case spec.OpSub:
			return csp.Sub(l, r), nil
		case spec.OpMul:
			return csp.Mul(l, r), nil
		case spec.OpDiv:
			return csp.Div(l, r), nil
		case spec.OpMod:
			return csp.Mod(l, r), nil
		case spec.OpEq:
			return csp.Eq(l, r), nil
		case spec.OpNe:
			return csp.Ne(l, r), nil
		case spec.OpLt:
			return csp.Lt(l, r), nil
		case spec.OpLe:
			return csp.Le(l, r), nil
		case spec.OpGt:
			return csp.Gt(l, r), nil
		case spec.OpGe:
			return csp.Ge(l, r), nil
		case spec.OpAnd:
			return csp.And(l, r), nil
		case spec.OpOr:
			return csp.Or(l, r), nil
		case spec.OpImply:
			return csp.Implies(l, r), nil
		default:
			return nil, errs.Newf(errs.DEC002, "unrecognized binary operator %q", ex.Op)
		}

	case *spec.CondExpr:
		c, err := enc.Encode(ex.Cond)
		if err != nil {
			return nil, err
		}
		t, err := enc.Encode(ex.True)
		if err != nil {
			return nil, err
		}
		f, err := enc.Encode(ex.False)
		if err != nil {
			return nil, err
		}
		return csp.If(c, t, f), nil

	case *spec.PropertyExpr:
		if enc.EncodeProperty == nil {
			return nil, errs.Newf(errs.DEC002, "no property encoder registered for %q", ex.Name)
		}
		var operand csp.Expr
		if p, isParam := ex.Operand.(*spec.ParamExpr); !isParam || enc.Params[p.Index] != nil {
			var err error
			operand, err = enc.Encode(ex.Operand)
			if err != nil {
				return nil, err
			}
		}
		return enc.EncodeProperty(ex, operand)

	default:
		return nil, errs.Newf(errs.DEC002, "unrecognized constraint expression kind %T", e)
	}
}
