package decider

import (
	"sort"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// AssertionViolationHandler is C7: it turns a dynamic *interpreter.
// AssertionViolation into blame sets, grounded on tyrell/decider/
// assert_violation_handler.py's AssertionViolationHandler. Only failing
// arguments built from an enum production are handled (matching the
// original's TODO for other production kinds); anything else is reported as
// unhandled so the caller falls back to blocking the offending model
// outright.
type AssertionViolationHandler struct {
	Spec   *spec.Spec
	Interp interpreter.Interpreter
}

func NewAssertionViolationHandler(sp *spec.Spec, interp interpreter.Interpreter) *AssertionViolationHandler {
	return &AssertionViolationHandler{Spec: sp, Interp: interp}
}

// HandleInterpreterError dispatches on the error's dynamic type, mirroring
// ExampleConstraintDecider.analyze_interpreter_error. A nil, nil result
// means err isn't something this handler can explain.
func (h *AssertionViolationHandler) HandleInterpreterError(err error) ([][]Blame, error) {
	av, ok := err.(*interpreter.AssertionViolation)
	if !ok {
		return nil, nil
	}
	return h.handleAssertionViolation(av)
}

func (h *AssertionViolationHandler) handleAssertionViolation(av *interpreter.AssertionViolation) ([][]Blame, error) {
	if av.Index < 0 || av.Index >= len(av.Node.Args) {
		return nil, nil
	}
	argNode := av.Node.Args[av.Index]
	atom, ok := argNode.(*dsl.Atom)
	if !ok {
		return nil, nil
	}

	blameBase := h.computeBlameBase(av)

	var sets [][]Blame
	for _, altGeneric := range h.Spec.GetProductionsWithLHS(atom.Prod.LHS()) {
		alt, ok := altGeneric.(*spec.EnumProduction)
		if !ok || alt.ID() == atom.Prod.ID() {
			continue
		}
		altNode := &dsl.Atom{Prod: alt}
		val, err := h.Interp.Eval(altNode, nil)
		if err != nil {
			return nil, err
		}
		if !av.Cond(val) {
			set := make([]Blame, len(blameBase)+1)
			copy(set, blameBase)
			set[len(blameBase)] = Blame{Node: argNode, Prod: alt}
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// computeBlameBase blames the failing Apply node plus every node in the
// subtrees rooted at the captured sibling arguments (excluding the failing
// argument itself), matching _compute_blame_base's capture_set handling.
func (h *AssertionViolationHandler) computeBlameBase(av *interpreter.AssertionViolation) []Blame {
	capture := map[int]bool{}
	for _, c := range av.CaptureIndices {
		if c != av.Index {
			capture[c] = true
		}
	}
	indices := make([]int, 0, len(capture))
	for idx := range capture {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	blameNodes := []dsl.Node{av.Node}
	for _, idx := range indices {
		if idx < 0 || idx >= len(av.Node.Args) {
			continue
		}
		blameNodes = append(blameNodes, dsl.DFS(av.Node.Args[idx])...)
	}
	out := make([]Blame, len(blameNodes))
	for i, n := range blameNodes {
		out[i] = Blame{Node: n, Prod: n.Production()}
	}
	return out
}
