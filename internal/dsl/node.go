// Package dsl implements the AST model (§4.2): typed program trees over
// productions, with structural equality/hashing, iteration, indexing and a
// builder that enforces the arity/type invariants of §3.
package dsl

import (
	"fmt"
	"strings"

	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Node is a typed program-tree node: an Atom, a Param, or an Apply (§3
// "Program (AST)"). Nodes are immutable once built; structural equality and
// hashing depend only on production identity plus children, never on
// object identity (Canon below is exactly that structural key).
type Node interface {
	Type() spec.Type
	Production() spec.Production
	IsLeaf() bool
	Children() []Node
	// Canon renders the node's s-expression form (§4.2). Two nodes are
	// structurally equal iff their Canon strings match; this doubles as the
	// deep-hash/deep-equality key used by NodeIndexer and ParentFinder,
	// matching the original Python's structurally-hashed Node classes
	// (dsl/node.py) where syntactically identical subtrees collapse onto
	// one dictionary entry.
	Canon() string
	String() string
	node()
}

// Atom is a leaf node wrapping an enum production.
type Atom struct {
	Prod *spec.EnumProduction
}

func (a *Atom) Type() spec.Type             { return a.Prod.LHS() }
func (a *Atom) Production() spec.Production { return a.Prod }
func (a *Atom) IsLeaf() bool                { return true }
func (a *Atom) Children() []Node            { return nil }
func (a *Atom) node()                       {}
func (a *Atom) String() string              { return a.Prod.Value() }
func (a *Atom) Canon() string {
	return fmt.Sprintf("(%s %q)", a.Prod.LHS().Name(), a.Prod.Value())
}

// Param is a leaf node wrapping a parameter production.
type Param struct {
	Prod *spec.ParamProduction
}

func (p *Param) Type() spec.Type             { return p.Prod.LHS() }
func (p *Param) Production() spec.Production { return p.Prod }
func (p *Param) IsLeaf() bool                { return true }
func (p *Param) Children() []Node            { return nil }
func (p *Param) node()                       {}
func (p *Param) String() string              { return fmt.Sprintf("@param%d", p.Prod.Index) }
func (p *Param) Canon() string                { return fmt.Sprintf("(@param %d)", p.Prod.Index) }

// Apply is an internal node representing function application.
type Apply struct {
	Prod *spec.FunctionProduction
	Args []Node
}

func (a *Apply) Type() spec.Type             { return a.Prod.LHS() }
func (a *Apply) Production() spec.Production { return a.Prod }
func (a *Apply) IsLeaf() bool                { return false }
func (a *Apply) Children() []Node            { return a.Args }
func (a *Apply) node()                       {}
func (a *Apply) String() string {
	parts := make([]string, len(a.Args))
	for i, c := range a.Args {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", a.Prod.Name, strings.Join(parts, ", "))
}
func (a *Apply) Canon() string {
	parts := make([]string, len(a.Args))
	for i, c := range a.Args {
		parts[i] = c.Canon()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("(%s)", a.Prod.Name)
	}
	return fmt.Sprintf("(%s %s)", a.Prod.Name, strings.Join(parts, " "))
}

// DeepEqual reports whether a and b are structurally identical.
func DeepEqual(a, b Node) bool { return a.Canon() == b.Canon() }
