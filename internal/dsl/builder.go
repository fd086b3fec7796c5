package dsl

import (
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Builder constructs Node trees against one Spec, enforcing arity and type
// invariants at every call (§3, §4.2) rather than leaving malformed trees to
// be caught later by the interpreter or enumerator.
type Builder struct {
	Spec *spec.Spec
}

func NewBuilder(sp *spec.Spec) *Builder { return &Builder{Spec: sp} }

// MakeEnum builds an Atom for (typeName, value).
func (b *Builder) MakeEnum(typeName, value string) (Node, error) {
	ty, err := b.Spec.GetTypeOrRaise(typeName)
	if err != nil {
		return nil, err
	}
	et, ok := ty.(*spec.EnumType)
	if !ok {
		return nil, errs.Newf(errs.BLD004, "type %q is not an enum type", typeName)
	}
	prod, err := b.Spec.GetEnumProductionOrRaise(et, value)
	if err != nil {
		return nil, err
	}
	return &Atom{Prod: prod.(*spec.EnumProduction)}, nil
}

// MakeParam builds a Param referencing input index.
func (b *Builder) MakeParam(index int) (Node, error) {
	prod, err := b.Spec.GetParamProductionOrRaise(index)
	if err != nil {
		return nil, err
	}
	return &Param{Prod: prod.(*spec.ParamProduction)}, nil
}

// MakeApply builds an Apply for the named function production, checking
// arity (BLD001) and per-argument type agreement (BLD002).
func (b *Builder) MakeApply(name string, children []Node) (Node, error) {
	prod, err := b.Spec.GetFunctionProductionOrRaise(name)
	if err != nil {
		return nil, err
	}
	fp := prod.(*spec.FunctionProduction)
	if len(children) != len(fp.RHS) {
		return nil, errs.Newf(errs.BLD001, "function %q expects %d arguments, got %d", name, len(fp.RHS), len(children))
	}
	for i, c := range children {
		if c.Type().Name() != fp.RHS[i].Name() {
			return nil, errs.Newf(errs.BLD002, "function %q argument %d: expected type %s, found %s", name, i, fp.RHS[i].Name(), c.Type().Name())
		}
	}
	return &Apply{Prod: fp, Args: children}, nil
}

// MakeNode dispatches to MakeEnum/MakeParam/MakeApply-equivalent validation
// directly from a production, used by callers (e.g. enumerators) that
// already hold a resolved spec.Production rather than a name/type string.
func (b *Builder) MakeNode(prod spec.Production, children []Node) (Node, error) {
	switch p := prod.(type) {
	case *spec.EnumProduction:
		if len(children) != 0 {
			return nil, errs.Newf(errs.BLD003, "enum production %q cannot take children", p.Value())
		}
		return &Atom{Prod: p}, nil
	case *spec.ParamProduction:
		if len(children) != 0 {
			return nil, errs.Newf(errs.BLD003, "parameter production %d cannot take children", p.Index)
		}
		return &Param{Prod: p}, nil
	case *spec.FunctionProduction:
		if len(children) != len(p.RHS) {
			return nil, errs.Newf(errs.BLD001, "function %q expects %d arguments, got %d", p.Name, len(p.RHS), len(children))
		}
		for i, c := range children {
			if c.Type().Name() != p.RHS[i].Name() {
				return nil, errs.Newf(errs.BLD002, "function %q argument %d: expected type %s, found %s", p.Name, i, p.RHS[i].Name(), c.Type().Name())
			}
		}
		return &Apply{Prod: p, Args: children}, nil
	default:
		return nil, errs.Newf(errs.BLD006, "unrecognized production kind for %v", prod)
	}
}
