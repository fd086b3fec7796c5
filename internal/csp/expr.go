// Package csp is a small, hand-rolled finite-domain constraint solver with
// a z3-shaped API (IntVar/BoolVar, Add, AssertAndTrack, Check, UnsatCore,
// Model, Push/Pop). No SMT or SAT library exists anywhere in the retrieved
// example pack (verified by searching for z3/gophersat/minisat/go-sat
// before writing this package; see DESIGN.md), so internal/enumerator and
// internal/decider — both of which lean on z3 in the original implementation
// — are built against this package instead. Its backtracking-with-
// incremental-assumptions shape is grounded on the in-pack hand-rolled
// dependency solver (other_examples/f720cacd_golang-dep__solver.go.go),
// adapted from version-constraint solving to finite-domain CSP solving.
package csp

import "fmt"

// Sort distinguishes integer- from boolean-sorted expressions. Booleans are
// represented internally as 0/1 integers so a single evaluator and a single
// domain representation serve both.
type Sort int

const (
	SortInt Sort = iota
	SortBool
)

func (s Sort) String() string {
	if s == SortBool {
		return "bool"
	}
	return "int"
}

// Var is a finite-domain decision variable.
type Var struct {
	Name   string
	Sort   Sort
	Domain []int
}

// NewIntVar declares an integer variable ranging over domain.
func NewIntVar(name string, domain []int) *Var {
	return &Var{Name: name, Sort: SortInt, Domain: domain}
}

// NewBoolVar declares a boolean variable (domain {0, 1}).
func NewBoolVar(name string) *Var {
	return &Var{Name: name, Sort: SortBool, Domain: []int{0, 1}}
}

func (v *Var) String() string { return v.Name }

// Expr is a symbolic constraint expression over Vars, built by the
// constructor functions below and consumed by Solver.Add/AssertAndTrack.
type Expr interface {
	Sort() Sort
	eval(assign map[string]int) int
	collectVars(out map[string]*Var)
	String() string
}

type constExpr struct {
	val  int
	sort Sort
}

func IntConst(n int) Expr { return &constExpr{val: n, sort: SortInt} }
func BoolConst(b bool) Expr {
	v := 0
	if b {
		v = 1
	}
	return &constExpr{val: v, sort: SortBool}
}

func (c *constExpr) Sort() Sort                         { return c.sort }
func (c *constExpr) eval(map[string]int) int            { return c.val }
func (c *constExpr) collectVars(map[string]*Var)        {}
func (c *constExpr) String() string                     { return fmt.Sprintf("%d", c.val) }

type varExpr struct{ v *Var }

// VarExpr lifts a declared Var into an Expr.
func VarExpr(v *Var) Expr { return &varExpr{v: v} }

func (e *varExpr) Sort() Sort { return e.v.Sort }
func (e *varExpr) eval(assign map[string]int) int {
	val, ok := assign[e.v.Name]
	if !ok {
		panic(fmt.Sprintf("csp: variable %q unassigned during eval", e.v.Name))
	}
	return val
}
func (e *varExpr) collectVars(out map[string]*Var) { out[e.v.Name] = e.v }
func (e *varExpr) String() string                  { return e.v.Name }

type unaryExpr struct {
	op string // "neg" | "not"
	x  Expr
}

func Neg(x Expr) Expr { return &unaryExpr{op: "neg", x: x} }
func Not(x Expr) Expr { return &unaryExpr{op: "not", x: x} }

func (u *unaryExpr) Sort() Sort {
	if u.op == "not" {
		return SortBool
	}
	return SortInt
}
func (u *unaryExpr) eval(assign map[string]int) int {
	v := u.x.eval(assign)
	if u.op == "not" {
		return boolInt(v == 0)
	}
	return -v
}
func (u *unaryExpr) collectVars(out map[string]*Var) { u.x.collectVars(out) }
func (u *unaryExpr) String() string                  { return fmt.Sprintf("(%s %s)", u.op, u.x) }

type binExpr struct {
	op   string
	a, b Expr
}

func Add(a, b Expr) Expr     { return &binExpr{op: "+", a: a, b: b} }
func Sub(a, b Expr) Expr     { return &binExpr{op: "-", a: a, b: b} }
func Mul(a, b Expr) Expr     { return &binExpr{op: "*", a: a, b: b} }
func Div(a, b Expr) Expr     { return &binExpr{op: "/", a: a, b: b} }
func Mod(a, b Expr) Expr     { return &binExpr{op: "%", a: a, b: b} }
func Eq(a, b Expr) Expr      { return &binExpr{op: "==", a: a, b: b} }
func Ne(a, b Expr) Expr      { return &binExpr{op: "!=", a: a, b: b} }
func Lt(a, b Expr) Expr      { return &binExpr{op: "<", a: a, b: b} }
func Le(a, b Expr) Expr      { return &binExpr{op: "<=", a: a, b: b} }
func Gt(a, b Expr) Expr      { return &binExpr{op: ">", a: a, b: b} }
func Ge(a, b Expr) Expr      { return &binExpr{op: ">=", a: a, b: b} }
func And(a, b Expr) Expr     { return &binExpr{op: "&&", a: a, b: b} }
func Or(a, b Expr) Expr      { return &binExpr{op: "||", a: a, b: b} }
func Implies(a, b Expr) Expr { return &binExpr{op: "==>", a: a, b: b} }

func (b *binExpr) Sort() Sort {
	switch b.op {
	case "+", "-", "*", "/", "%":
		return SortInt
	default:
		return SortBool
	}
}

func (b *binExpr) eval(assign map[string]int) int {
	x, y := b.a.eval(assign), b.b.eval(assign)
	switch b.op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/":
		return x / y
	case "%":
		return x % y
	case "==":
		return boolInt(x == y)
	case "!=":
		return boolInt(x != y)
	case "<":
		return boolInt(x < y)
	case "<=":
		return boolInt(x <= y)
	case ">":
		return boolInt(x > y)
	case ">=":
		return boolInt(x >= y)
	case "&&":
		return boolInt(x != 0 && y != 0)
	case "||":
		return boolInt(x != 0 || y != 0)
	case "==>":
		return boolInt(x == 0 || y != 0)
	default:
		panic("csp: unrecognized binary op " + b.op)
	}
}

func (b *binExpr) collectVars(out map[string]*Var) {
	b.a.collectVars(out)
	b.b.collectVars(out)
}
func (b *binExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.a, b.op, b.b) }

type ifExpr struct{ cond, t, f Expr }

// If builds a conditional expression; t and f should share a sort.
func If(cond, t, f Expr) Expr { return &ifExpr{cond: cond, t: t, f: f} }

func (e *ifExpr) Sort() Sort { return e.t.Sort() }
func (e *ifExpr) eval(assign map[string]int) int {
	if e.cond.eval(assign) != 0 {
		return e.t.eval(assign)
	}
	return e.f.eval(assign)
}
func (e *ifExpr) collectVars(out map[string]*Var) {
	e.cond.collectVars(out)
	e.t.collectVars(out)
	e.f.collectVars(out)
}
func (e *ifExpr) String() string { return fmt.Sprintf("(if %s %s %s)", e.cond, e.t, e.f) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
