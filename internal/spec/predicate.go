package spec

import "github.com/squares-synth/tyrellgo/internal/errs"

// Predicate is a named directive at spec scope with a heterogeneous
// positional argument list (§3 "Predicate"). The set of recognized names is
// closed; unknown names are warnings, not errors (resolved by the
// enumerator, see internal/enumerator/predicates.go).
type Predicate struct {
	Name string
	Args []any
}

// KnownPredicateNames is the closed set from spec.md §3's table, plus the
// supplemented predicates from SPEC_FULL.md §3 that original_source/tyrell
// never implemented but spec.md names.
var KnownPredicateNames = map[string]bool{
	"occurs":          true,
	"not_occurs":      true,
	"is_parent":       true,
	"is_not_parent":   true,
	"distinct_inputs": true,
	"distinct_filters": true,
	"constant_occurs": true,
	"happens_before":  true,
}

// StringArg returns Args[i] as a string, or an error if out of range or of
// the wrong dynamic type.
func (p *Predicate) StringArg(i int) (string, error) {
	v, err := p.arg(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errs.Newf(errs.SPC010, "predicate %q argument %d must be a string", p.Name, i)
	}
	return s, nil
}

// NumberArg returns Args[i] coerced to float64 (predicates accept int or
// float weights interchangeably, per spec.md §3).
func (p *Predicate) NumberArg(i int) (float64, error) {
	v, err := p.arg(i)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, errs.Newf(errs.SPC010, "predicate %q argument %d must be numeric", p.Name, i)
	}
}

func (p *Predicate) arg(i int) (any, error) {
	if i < 0 || i >= len(p.Args) {
		return nil, errs.Newf(errs.SPC010, "predicate %q has no argument %d (only %d given)", p.Name, i, len(p.Args))
	}
	return p.Args[i], nil
}
