package spec

import (
	"github.com/squares-synth/tyrellgo/internal/errs"
)

// TypeSpec holds every type defined in a DSL spec, preserving declaration
// order for deterministic iteration.
type TypeSpec struct {
	order []string
	types map[string]Type
}

func NewTypeSpec() *TypeSpec {
	return &TypeSpec{types: make(map[string]Type)}
}

// Define adds ty to the spec. Returns an error if a type with the same name
// already exists (SPC001).
func (s *TypeSpec) Define(ty Type) error {
	name := ty.Name()
	if _, ok := s.types[name]; ok {
		return errs.Newf(errs.SPC001, "type already defined: %s", name)
	}
	s.types[name] = ty
	s.order = append(s.order, name)
	return nil
}

func (s *TypeSpec) Get(name string) (Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

func (s *TypeSpec) GetOrRaise(name string) (Type, error) {
	t, ok := s.types[name]
	if !ok {
		return nil, errs.Newf(errs.SPC002, "undefined type: %s", name)
	}
	return t, nil
}

// Types returns all defined types in declaration order.
func (s *TypeSpec) Types() []Type {
	out := make([]Type, len(s.order))
	for i, n := range s.order {
		out[i] = s.types[n]
	}
	return out
}

func (s *TypeSpec) NumTypes() int { return len(s.order) }

// ProductionSpec owns the full, id-indexed set of productions.
type ProductionSpec struct {
	productions []Production
	lhsMap      map[string][]Production
	paramMap    map[int]Production
	funcMap     map[string]Production
	holeMap     map[string]Production
}

func NewProductionSpec() *ProductionSpec {
	return &ProductionSpec{
		lhsMap:   make(map[string][]Production),
		paramMap: make(map[int]Production),
		funcMap:  make(map[string]Production),
		holeMap:  make(map[string]Production),
	}
}

func (s *ProductionSpec) nextID() int { return len(s.productions) }

func (s *ProductionSpec) add(p Production) {
	s.productions = append(s.productions, p)
	s.lhsMap[p.LHS().Name()] = append(s.lhsMap[p.LHS().Name()], p)
}

// GetProduction returns the production with the given id, or false if out of range.
func (s *ProductionSpec) GetProduction(id int) (Production, bool) {
	if id < 0 || id >= len(s.productions) {
		return nil, false
	}
	return s.productions[id], true
}

func (s *ProductionSpec) GetProductionOrRaise(id int) (Production, error) {
	p, ok := s.GetProduction(id)
	if !ok {
		return nil, errs.Newf(errs.SPC007, "no production with id %d", id)
	}
	return p, nil
}

// GetProductionsWithLHS returns the productions whose lhs is ty, in the
// order they were added.
func (s *ProductionSpec) GetProductionsWithLHS(ty Type) []Production {
	return s.lhsMap[ty.Name()]
}

func (s *ProductionSpec) GetFunctionProduction(name string) (Production, bool) {
	p, ok := s.funcMap[name]
	return p, ok
}

func (s *ProductionSpec) GetFunctionProductionOrRaise(name string) (Production, error) {
	p, ok := s.funcMap[name]
	if !ok {
		return nil, errs.Newf(errs.SPC007, "no function production named %q", name)
	}
	return p, nil
}

func (s *ProductionSpec) GetFunctionProductions() []Production {
	out := make([]Production, 0, len(s.funcMap))
	for _, p := range s.productions {
		if p.IsFunction() && !p.IsHole() {
			out = append(out, p)
		}
	}
	return out
}

func (s *ProductionSpec) GetParamProduction(index int) (Production, bool) {
	p, ok := s.paramMap[index]
	return p, ok
}

func (s *ProductionSpec) GetParamProductionOrRaise(index int) (Production, error) {
	p, ok := s.paramMap[index]
	if !ok {
		return nil, errs.Newf(errs.SPC007, "no parameter production with index %d", index)
	}
	return p, nil
}

func (s *ProductionSpec) GetParamProductions() []Production {
	out := make([]Production, 0, len(s.paramMap))
	for _, p := range s.productions {
		if p.IsParam() {
			out = append(out, p)
		}
	}
	return out
}

// GetEnumProduction returns the production for (ty, value), or false.
func (s *ProductionSpec) GetEnumProduction(ty *EnumType, value string) (Production, bool) {
	for _, p := range s.lhsMap[ty.Name()] {
		if ep, ok := p.(*EnumProduction); ok && ep.Value() == value {
			return ep, true
		}
	}
	return nil, false
}

func (s *ProductionSpec) GetEnumProductionOrRaise(ty *EnumType, value string) (Production, error) {
	p, ok := s.GetEnumProduction(ty, value)
	if !ok {
		return nil, errs.Newf(errs.SPC007, "value %q is not in the domain of type %s", value, ty.Name())
	}
	return p, nil
}

func (s *ProductionSpec) Productions() []Production { return s.productions }
func (s *ProductionSpec) NumProductions() int        { return len(s.productions) }

// AddEnumProduction creates one enum production for (ty, choice).
func (s *ProductionSpec) AddEnumProduction(ty *EnumType, choice int) (*EnumProduction, error) {
	if choice < 0 || choice >= len(ty.Domain) {
		return nil, errs.Newf(errs.SPC002, "choice %d out of bounds for type %s", choice, ty.Name())
	}
	p := &EnumProduction{base: base{id: s.nextID(), lhs: ty}, EnumLHS: ty, Choice: choice}
	s.add(p)
	return p, nil
}

// AddParamProduction creates a parameter production for the given input index.
func (s *ProductionSpec) AddParamProduction(ty Type, index int) (*ParamProduction, error) {
	if _, ok := s.paramMap[index]; ok {
		return nil, errs.Newf(errs.SPC006, "parameter production with index %d already created", index)
	}
	p := &ParamProduction{base: base{id: s.nextID(), lhs: ty}, Index: index}
	s.paramMap[index] = p
	s.add(p)
	return p, nil
}

// AddFuncProduction creates a new function production. name must be unique
// and arity (len(rhs)) must be >= 1 (SPC004); use HoleProduction for the
// arity-0 filler.
func (s *ProductionSpec) AddFuncProduction(name string, lhs Type, rhs []Type, constraints []Expr) (*FunctionProduction, error) {
	if _, ok := s.funcMap[name]; ok {
		return nil, errs.Newf(errs.SPC005, "function production %q already defined", name)
	}
	if len(rhs) == 0 {
		return nil, errs.Newf(errs.SPC004, "function production %q must have arity >= 1", name)
	}
	p := &FunctionProduction{base: base{id: s.nextID(), lhs: lhs}, Name: name, RHS: rhs, Constraints: constraints}
	s.funcMap[name] = p
	s.add(p)
	return p, nil
}

// HoleProduction returns the (lazily created) first-class filler production
// for ty — the production an enumerator places at slots it does not use.
// One hole exists per lhs type; repeated calls for the same type return the
// same Production (same id), matching the invariant that production ids are
// stable within one spec.
func (s *ProductionSpec) HoleProduction(ty Type) *FunctionProduction {
	if existing, ok := s.holeMap[ty.Name()]; ok {
		return existing.(*FunctionProduction)
	}
	p := &FunctionProduction{base: base{id: s.nextID(), lhs: ty}, Name: "@hole<" + ty.Name() + ">", Hole: true}
	s.holeMap[ty.Name()] = p
	s.add(p)
	return p
}

// ProgramSpec declares the synthesis target's signature.
type ProgramSpec struct {
	progName string
	input    []Type
	output   Type
}

func NewProgramSpec(name string, input []Type, output Type) (*ProgramSpec, error) {
	for _, ty := range input {
		if _, ok := ty.(*ValueType); !ok {
			return nil, errs.Newf(errs.SPC008, "non-value type cannot be used as program input: %s", ty.Name())
		}
	}
	if _, ok := output.(*ValueType); !ok {
		return nil, errs.Newf(errs.SPC008, "non-value type cannot be used as program output: %s", output.Name())
	}
	return &ProgramSpec{progName: name, input: input, output: output}, nil
}

func (p *ProgramSpec) Name() string    { return p.progName }
func (p *ProgramSpec) Input() []Type   { return p.input }
func (p *ProgramSpec) NumInput() int   { return len(p.input) }
func (p *ProgramSpec) Output() Type    { return p.output }

// PredicateSpec holds the predicate directives declared at spec scope.
type PredicateSpec struct {
	preds   []*Predicate
	nameMap map[string][]*Predicate
}

func NewPredicateSpec() *PredicateSpec {
	return &PredicateSpec{nameMap: make(map[string][]*Predicate)}
}

func (s *PredicateSpec) Add(name string, args []any) *Predicate {
	p := &Predicate{Name: name, Args: args}
	s.preds = append(s.preds, p)
	s.nameMap[name] = append(s.nameMap[name], p)
	return p
}

func (s *PredicateSpec) GetWithName(name string) []*Predicate { return s.nameMap[name] }
func (s *PredicateSpec) Predicates() []*Predicate             { return s.preds }
func (s *PredicateSpec) NumPredicates() int                   { return len(s.preds) }

// Spec is the fully assembled, immutable DSL specification (§4.1). Build
// auto-derives one enum production per enum-domain element and one
// parameter production per program input, in declaration order, before
// returning.
type Spec struct {
	Types      *TypeSpec
	Prods      *ProductionSpec
	Program    *ProgramSpec
	Predicates *PredicateSpec
}

// Build assembles a Spec, auto-deriving enum and parameter productions.
// prods may be nil (a fresh ProductionSpec is created); preds may be nil.
func Build(types *TypeSpec, program *ProgramSpec, prods *ProductionSpec, preds *PredicateSpec) (*Spec, error) {
	if prods == nil {
		prods = NewProductionSpec()
	}
	if preds == nil {
		preds = NewPredicateSpec()
	}
	for _, ty := range types.Types() {
		et, ok := ty.(*EnumType)
		if !ok {
			continue
		}
		for i := range et.Domain {
			if _, err := prods.AddEnumProduction(et, i); err != nil {
				return nil, err
			}
		}
	}
	for i, ty := range program.Input() {
		if _, err := prods.AddParamProduction(ty, i); err != nil {
			return nil, err
		}
	}
	return &Spec{Types: types, Prods: prods, Program: program, Predicates: preds}, nil
}

// Delegating accessors (mirrors TyrellSpec's delegate methods in the Python
// original, so callers never need to reach into .Prods/.Types directly).

func (s *Spec) GetType(name string) (Type, bool)        { return s.Types.Get(name) }
func (s *Spec) GetTypeOrRaise(name string) (Type, error) { return s.Types.GetOrRaise(name) }
func (s *Spec) GetProduction(id int) (Production, bool)  { return s.Prods.GetProduction(id) }
func (s *Spec) GetProductionOrRaise(id int) (Production, error) {
	return s.Prods.GetProductionOrRaise(id)
}
func (s *Spec) GetProductionsWithLHS(ty Type) []Production { return s.Prods.GetProductionsWithLHS(ty) }
func (s *Spec) GetFunctionProduction(name string) (Production, bool) {
	return s.Prods.GetFunctionProduction(name)
}
func (s *Spec) GetFunctionProductionOrRaise(name string) (Production, error) {
	return s.Prods.GetFunctionProductionOrRaise(name)
}
func (s *Spec) GetFunctionProductions() []Production { return s.Prods.GetFunctionProductions() }
func (s *Spec) GetParamProduction(index int) (Production, bool) {
	return s.Prods.GetParamProduction(index)
}
func (s *Spec) GetParamProductionOrRaise(index int) (Production, error) {
	return s.Prods.GetParamProductionOrRaise(index)
}
func (s *Spec) GetParamProductions() []Production { return s.Prods.GetParamProductions() }
func (s *Spec) GetEnumProduction(ty *EnumType, value string) (Production, bool) {
	return s.Prods.GetEnumProduction(ty, value)
}
func (s *Spec) GetEnumProductionOrRaise(ty *EnumType, value string) (Production, error) {
	return s.Prods.GetEnumProductionOrRaise(ty, value)
}
func (s *Spec) Productions() []Production                 { return s.Prods.Productions() }
func (s *Spec) NumProductions() int                        { return s.Prods.NumProductions() }
func (s *Spec) Output() Type        { return s.Program.Output() }
func (s *Spec) Input() []Type       { return s.Program.Input() }
func (s *Spec) AllPredicates() []*Predicate { return s.Predicates.Predicates() }
