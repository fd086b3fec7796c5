package spec

import (
	"fmt"

	"github.com/squares-synth/tyrellgo/internal/errs"
)

// UnaryOperator is a prefix operator over a constraint expression.
type UnaryOperator string

const (
	OpNeg UnaryOperator = "-"
	OpNot UnaryOperator = "!"
)

var unaryParamSort = map[UnaryOperator]Sort{
	OpNeg: SortInt,
	OpNot: SortBool,
}

// BinaryOperator is an infix operator over two constraint expressions.
type BinaryOperator string

const (
	OpAdd    BinaryOperator = "+"
	OpSub    BinaryOperator = "-"
	OpMul    BinaryOperator = "*"
	OpDiv    BinaryOperator = "/"
	OpMod    BinaryOperator = "%"
	OpEq     BinaryOperator = "=="
	OpNe     BinaryOperator = "!="
	OpLt     BinaryOperator = "<"
	OpLe     BinaryOperator = "<="
	OpGt     BinaryOperator = ">"
	OpGe     BinaryOperator = ">="
	OpAnd    BinaryOperator = "&&"
	OpOr     BinaryOperator = "||"
	OpImply  BinaryOperator = "==>"
)

// binaryParamSort is nil for OpEq/OpNe, which are polymorphic (§3).
var binaryParamSort = map[BinaryOperator]Sort{
	OpAdd: SortInt, OpSub: SortInt, OpMul: SortInt, OpDiv: SortInt, OpMod: SortInt,
	OpLt: SortInt, OpLe: SortInt, OpGt: SortInt, OpGe: SortInt,
	OpAnd: SortBool, OpOr: SortBool, OpImply: SortBool,
}

var binaryReturnSort = map[BinaryOperator]Sort{
	OpAdd: SortInt, OpSub: SortInt, OpMul: SortInt, OpDiv: SortInt, OpMod: SortInt,
	OpEq: SortBool, OpNe: SortBool, OpLt: SortBool, OpLe: SortBool, OpGt: SortBool, OpGe: SortBool,
	OpAnd: SortBool, OpOr: SortBool, OpImply: SortBool,
}

// Expr is a typed constraint-expression node (§3 "Constraint expression").
// Every node's sort is statically inferred and checked at construction time
// by the constructor functions below, never discovered during evaluation.
type Expr interface {
	Sort() Sort
	Operands() []Expr
	String() string
	expr()
}

// ConstExpr is a boolean or integer literal.
type ConstExpr struct {
	BoolValue  bool
	IntValue   int
	IsBoolLit  bool
}

func NewBoolConst(v bool) *ConstExpr { return &ConstExpr{BoolValue: v, IsBoolLit: true} }
func NewIntConst(v int) *ConstExpr   { return &ConstExpr{IntValue: v} }

func (c *ConstExpr) Sort() Sort {
	if c.IsBoolLit {
		return SortBool
	}
	return SortInt
}
func (c *ConstExpr) Operands() []Expr { return nil }
func (c *ConstExpr) expr()            {}
func (c *ConstExpr) String() string {
	if c.IsBoolLit {
		if c.BoolValue {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%d", c.IntValue)
}

// ParamExpr references @ret (index 0) or @arg_i (index i, 1-based).
type ParamExpr struct {
	Index int
}

func NewParamExpr(index int) *ParamExpr { return &ParamExpr{Index: index} }

func (p *ParamExpr) Sort() Sort      { return SortValue }
func (p *ParamExpr) Operands() []Expr { return nil }
func (p *ParamExpr) expr()            {}
func (p *ParamExpr) String() string {
	if p.Index == 0 {
		return "@ret"
	}
	return fmt.Sprintf("@arg%d", p.Index-1)
}

// PropertyExpr projects a value-sorted operand through a named property,
// yielding the property's declared sort.
type PropertyExpr struct {
	Name    string
	PropSort Sort
	Operand Expr
}

// NewPropertyExpr validates that operand has SortValue (§3: "PropertyExpr
// cannot be applied to non-value operand").
func NewPropertyExpr(name string, sort Sort, operand Expr) (*PropertyExpr, error) {
	if operand.Sort() != SortValue {
		return nil, errs.Newf(errs.SPC009, "property %q cannot be applied to non-value operand %s", name, operand)
	}
	return &PropertyExpr{Name: name, PropSort: sort, Operand: operand}, nil
}

func (p *PropertyExpr) Sort() Sort       { return p.PropSort }
func (p *PropertyExpr) Operands() []Expr { return []Expr{p.Operand} }
func (p *PropertyExpr) expr()            {}
func (p *PropertyExpr) String() string   { return fmt.Sprintf("%s(%s)", p.Name, p.Operand) }

// UnaryExpr applies a unary operator, checking the operand sort.
type UnaryExpr struct {
	Op      UnaryOperator
	Operand Expr
}

func NewUnaryExpr(op UnaryOperator, operand Expr) (*UnaryExpr, error) {
	want, ok := unaryParamSort[op]
	if !ok {
		return nil, errs.Newf(errs.SPC009, "unrecognized unary operator %q", op)
	}
	if operand.Sort() != want {
		return nil, errs.Newf(errs.SPC009, "operator %q expects %s operand, found %s (%s)", op, want, operand.Sort(), operand)
	}
	return &UnaryExpr{Op: op, Operand: operand}, nil
}

func (u *UnaryExpr) Sort() Sort       { return unaryParamSort[u.Op] }
func (u *UnaryExpr) Operands() []Expr { return []Expr{u.Operand} }
func (u *UnaryExpr) expr()            {}
func (u *UnaryExpr) String() string   { return fmt.Sprintf("(%s %s)", u.Op, u.Operand) }

// BinaryExpr applies a binary operator, checking operand sorts. EQ/NE are
// polymorphic: both sides just need matching sort.
type BinaryExpr struct {
	Op       BinaryOperator
	LHS, RHS Expr
}

func NewBinaryExpr(op BinaryOperator, lhs, rhs Expr) (*BinaryExpr, error) {
	if op == OpEq || op == OpNe {
		if lhs.Sort() != rhs.Sort() {
			return nil, errs.Newf(errs.SPC009, "%s requires matching sorts, found %s and %s", op, lhs.Sort(), rhs.Sort())
		}
	} else {
		want, ok := binaryParamSort[op]
		if !ok {
			return nil, errs.Newf(errs.SPC009, "unrecognized binary operator %q", op)
		}
		if lhs.Sort() != want {
			return nil, errs.Newf(errs.SPC009, "operator %q expects %s lhs, found %s (%s)", op, want, lhs.Sort(), lhs)
		}
		if rhs.Sort() != want {
			return nil, errs.Newf(errs.SPC009, "operator %q expects %s rhs, found %s (%s)", op, want, rhs.Sort(), rhs)
		}
	}
	return &BinaryExpr{Op: op, LHS: lhs, RHS: rhs}, nil
}

func (b *BinaryExpr) Sort() Sort       { return binaryReturnSort[b.Op] }
func (b *BinaryExpr) Operands() []Expr { return []Expr{b.LHS, b.RHS} }
func (b *BinaryExpr) expr()            {}
func (b *BinaryExpr) String() string   { return fmt.Sprintf("(%s %s %s)", b.LHS, b.Op, b.RHS) }

// CondExpr is "if cond then t else f"; t and f must share a sort.
type CondExpr struct {
	Cond, True, False Expr
}

func NewCondExpr(cond, t, f Expr) (*CondExpr, error) {
	if cond.Sort() != SortBool {
		return nil, errs.Newf(errs.SPC009, "condition must be boolean, found %s (%s)", cond.Sort(), cond)
	}
	if t.Sort() != f.Sort() {
		return nil, errs.Newf(errs.SPC009, "branches must share a sort, found %s and %s", t.Sort(), f.Sort())
	}
	return &CondExpr{Cond: cond, True: t, False: f}, nil
}

func (c *CondExpr) Sort() Sort       { return c.True.Sort() }
func (c *CondExpr) Operands() []Expr { return []Expr{c.Cond, c.True, c.False} }
func (c *CondExpr) expr()            {}
func (c *CondExpr) String() string {
	return fmt.Sprintf("(if %s then %s else %s)", c.Cond, c.True, c.False)
}
