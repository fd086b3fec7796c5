package spec

import "fmt"

// Production is a typed grammar rule, identified by a stable integer id
// assigned at spec-build time. It is one of EnumProduction, ParamProduction
// or FunctionProduction (§3 "Production").
type Production interface {
	ID() int
	LHS() Type
	IsEnum() bool
	IsParam() bool
	IsFunction() bool
	// IsHole reports whether this production is the first-class "no value
	// here" filler used by the enumerator to pad unused k-tree/line slots.
	// Unlike the original Python (which recognized a user-declared "Empty"
	// production by name), holes are a property of the production itself
	// (SPEC_FULL.md §4 Open Question decisions).
	IsHole() bool
	String() string
	production()
}

type base struct {
	id  int
	lhs Type
}

func (b base) ID() int   { return b.id }
func (b base) LHS() Type { return b.lhs }

// EnumProduction carries an index into its enum type's domain. Exactly one
// is auto-derived per (enum type, domain index) at spec-build time.
type EnumProduction struct {
	base
	EnumLHS *EnumType
	Choice  int
}

func (p *EnumProduction) IsEnum() bool     { return true }
func (p *EnumProduction) IsParam() bool    { return false }
func (p *EnumProduction) IsFunction() bool { return false }
func (p *EnumProduction) IsHole() bool     { return false }
func (p *EnumProduction) production()      {}
func (p *EnumProduction) Value() string    { return p.EnumLHS.Domain[p.Choice] }
func (p *EnumProduction) String() string {
	return fmt.Sprintf("%s(%q)", p.EnumLHS.Name(), p.Value())
}

// ParamProduction carries the integer index of a program input. At most one
// exists per program input position, auto-derived at spec-build time.
type ParamProduction struct {
	base
	Index int
}

func (p *ParamProduction) IsEnum() bool     { return false }
func (p *ParamProduction) IsParam() bool    { return true }
func (p *ParamProduction) IsFunction() bool { return false }
func (p *ParamProduction) IsHole() bool     { return false }
func (p *ParamProduction) production()      {}
func (p *ParamProduction) String() string   { return fmt.Sprintf("@param%d", p.Index) }

// FunctionProduction has a unique name, an ordered list of rhs types
// (arity >= 1 unless it is a hole), and an ordered list of constraints.
type FunctionProduction struct {
	base
	Name        string
	RHS         []Type
	Constraints []Expr
	Hole        bool
}

func (p *FunctionProduction) IsEnum() bool     { return false }
func (p *FunctionProduction) IsParam() bool    { return false }
func (p *FunctionProduction) IsFunction() bool { return true }
func (p *FunctionProduction) IsHole() bool     { return p.Hole }
func (p *FunctionProduction) production()      {}
func (p *FunctionProduction) Arity() int       { return len(p.RHS) }
func (p *FunctionProduction) String() string   { return p.Name }
