// Package spec implements the DSL specification model (§4.1 of the design
// spec): types, productions, constraint expressions and predicates that
// together describe a search space. A Spec is built once by an external
// parser (out of scope for this package) and is immutable thereafter.
package spec

import (
	"fmt"
	"strings"
)

// Sort is the result sort of a property or constraint-expression node.
type Sort int

const (
	// SortValue is the sort of a bare parameter/property operand reference
	// (an opaque DSL value, before a property projects it to bool/int).
	SortValue Sort = iota
	SortBool
	SortInt
)

func (s Sort) String() string {
	switch s {
	case SortBool:
		return "bool"
	case SortInt:
		return "int"
	default:
		return "value"
	}
}

// Type is a named handle: either an enum type (ordered finite domain) or a
// value type (named properties with declared sorts).
type Type interface {
	Name() string
	typeTag()
}

// Property is a named abstract observation on a value, computed by the
// interpreter and referenced from constraint expressions.
type Property struct {
	Name string
	Sort Sort
}

// EnumType has an ordered finite domain of literal string values.
type EnumType struct {
	TypeName string
	Domain   []string
}

func (e *EnumType) Name() string { return e.TypeName }
func (e *EnumType) typeTag()     {}

// IndexOf returns the domain index of value, or -1 if absent.
func (e *EnumType) IndexOf(value string) int {
	for i, v := range e.Domain {
		if v == value {
			return i
		}
	}
	return -1
}

func (e *EnumType) String() string {
	return fmt.Sprintf("enum %s { %s }", e.TypeName, strings.Join(quoteAll(e.Domain), ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}

// ValueType has a set of named properties, each with a declared result sort.
type ValueType struct {
	TypeName   string
	Properties []Property
}

func (v *ValueType) Name() string { return v.TypeName }
func (v *ValueType) typeTag()     {}

// PropertySort returns the declared sort of a property, and whether it exists.
func (v *ValueType) PropertySort(name string) (Sort, bool) {
	for _, p := range v.Properties {
		if p.Name == name {
			return p.Sort, true
		}
	}
	return SortValue, false
}

func (v *ValueType) String() string {
	parts := make([]string, len(v.Properties))
	for i, p := range v.Properties {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Sort)
	}
	return fmt.Sprintf("value %s { %s }", v.TypeName, strings.Join(parts, "; "))
}
