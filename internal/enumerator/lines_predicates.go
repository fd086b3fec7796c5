package enumerator

import (
	"strings"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// resolvePredicates mirrors KTree.resolvePredicates (internal/enumerator/
// predicates.go): occurs/not_occurs/is_parent/is_not_parent feed the
// weighted Optimizer; the supplemented hard predicates are resolved
// directly. happens_before has a native reading here that the k-tree has to
// approximate: lines are already totally ordered, so "a happens before b"
// is simply "some strictly earlier line is a".
func (l *Lines) resolvePredicates() error {
	for _, pred := range l.Spec.AllPredicates() {
		var err error
		switch pred.Name {
		case "occurs":
			err = l.resolveOccurs(pred, false)
		case "not_occurs":
			err = l.resolveOccurs(pred, true)
		case "is_parent":
			err = l.resolveIsParent(pred, false)
		case "is_not_parent":
			err = l.resolveIsParent(pred, true)
		case "distinct_inputs":
			l.resolveDistinctInputs()
		case "distinct_filters":
			err = l.resolveDistinctFilters(pred)
		case "constant_occurs":
			err = l.resolveConstantOccurs(pred)
		case "happens_before":
			err = l.resolveHappensBefore(pred)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Lines) resolveOccurs(pred *spec.Predicate, negate bool) error {
	name, err := pred.StringArg(0)
	if err != nil {
		return err
	}
	weight, err := pred.NumberArg(1)
	if err != nil {
		return err
	}
	prod, err := l.Spec.GetFunctionProductionOrRaise(name)
	if err != nil {
		return err
	}
	if negate {
		l.opt.MkNotOccurs(prod, weight)
	} else {
		l.opt.MkOccurs(prod, weight)
	}
	return nil
}

func (l *Lines) resolveIsParent(pred *spec.Predicate, negate bool) error {
	pname, err := pred.StringArg(0)
	if err != nil {
		return err
	}
	cname, err := pred.StringArg(1)
	if err != nil {
		return err
	}
	weight, err := pred.NumberArg(2)
	if err != nil {
		return err
	}
	parent, err := l.Spec.GetFunctionProductionOrRaise(pname)
	if err != nil {
		return err
	}
	child, err := l.Spec.GetFunctionProductionOrRaise(cname)
	if err != nil {
		return err
	}
	if negate {
		l.opt.MkIsNotParent(parent, child, weight)
	} else {
		l.opt.MkIsParent(parent, child, weight)
	}
	return nil
}

// resolveDistinctInputs forbids two sibling argument slots of the same line
// from both resolving to the same parameter production.
func (l *Lines) resolveDistinctInputs() {
	params := l.Spec.GetParamProductions()
	for i := 0; i < l.Loc; i++ {
		for y := 0; y < l.maxChildren; y++ {
			for z := y + 1; z < l.maxChildren; z++ {
				a, b := l.vars[l.childIdx(i, y)], l.vars[l.childIdx(i, z)]
				for _, pp := range params {
					both := csp.And(
						csp.Eq(csp.VarExpr(a), csp.IntConst(pp.ID())),
						csp.Eq(csp.VarExpr(b), csp.IntConst(pp.ID())),
					)
					l.solver.Add(csp.Not(both))
				}
			}
		}
	}
}

// resolveDistinctFilters forbids two sibling argument slots of the same
// line from both resolving to the same production whose name contains
// "filter", matching KTree.resolveDistinctFilters.
func (l *Lines) resolveDistinctFilters(pred *spec.Predicate) error {
	_ = pred
	var filters []spec.Production
	for _, p := range l.Spec.Productions() {
		if fp, ok := p.(*spec.FunctionProduction); ok && strings.Contains(strings.ToLower(fp.Name), "filter") {
			filters = append(filters, p)
		}
	}
	if len(filters) == 0 {
		return nil
	}
	for i := 0; i < l.Loc; i++ {
		for y := 0; y < l.maxChildren; y++ {
			for z := y + 1; z < l.maxChildren; z++ {
				a, b := l.vars[l.childIdx(i, y)], l.vars[l.childIdx(i, z)]
				for _, fp := range filters {
					both := csp.And(
						csp.Eq(csp.VarExpr(a), csp.IntConst(fp.ID())),
						csp.Eq(csp.VarExpr(b), csp.IntConst(fp.ID())),
					)
					l.solver.Add(csp.Not(both))
				}
			}
		}
	}
	return nil
}

// resolveConstantOccurs requires a specific enum literal to occur somewhere
// among the lines' argument slots.
func (l *Lines) resolveConstantOccurs(pred *spec.Predicate) error {
	typeName, err := pred.StringArg(0)
	if err != nil {
		return err
	}
	value, err := pred.StringArg(1)
	if err != nil {
		return err
	}
	ty, err := l.Spec.GetTypeOrRaise(typeName)
	if err != nil {
		return err
	}
	et, ok := ty.(*spec.EnumType)
	if !ok {
		return errs.Newf(errs.SPC007, "constant_occurs requires an enum type, found %q", typeName)
	}
	prod, err := l.Spec.GetEnumProductionOrRaise(et, value)
	if err != nil {
		return err
	}
	var disj csp.Expr
	for i := 0; i < l.Loc; i++ {
		for y := 0; y < l.maxChildren; y++ {
			e := csp.Eq(csp.VarExpr(l.vars[l.childIdx(i, y)]), csp.IntConst(prod.ID()))
			if disj == nil {
				disj = e
			} else {
				disj = csp.Or(disj, e)
			}
		}
	}
	if disj != nil {
		l.solver.Add(disj)
	}
	return nil
}

// resolveHappensBefore requires that whenever line i's root resolves to
// "after", some strictly earlier line resolved to "before".
func (l *Lines) resolveHappensBefore(pred *spec.Predicate) error {
	afterName, err := pred.StringArg(0)
	if err != nil {
		return err
	}
	beforeName, err := pred.StringArg(1)
	if err != nil {
		return err
	}
	after, err := l.Spec.GetFunctionProductionOrRaise(afterName)
	if err != nil {
		return err
	}
	before, err := l.Spec.GetFunctionProductionOrRaise(beforeName)
	if err != nil {
		return err
	}
	for i := 0; i < l.Loc; i++ {
		var earlierHasBefore csp.Expr
		for j := 0; j < i; j++ {
			e := csp.Eq(csp.VarExpr(l.vars[l.rootIdx(j)]), csp.IntConst(before.ID()))
			if earlierHasBefore == nil {
				earlierHasBefore = e
			} else {
				earlierHasBefore = csp.Or(earlierHasBefore, e)
			}
		}
		cond := csp.Eq(csp.VarExpr(l.vars[l.rootIdx(i)]), csp.IntConst(after.ID()))
		if earlierHasBefore == nil {
			l.solver.Add(csp.Not(cond))
			continue
		}
		l.solver.Add(csp.Implies(cond, earlierHasBefore))
	}
	return nil
}
