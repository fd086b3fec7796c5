// Package errs provides the closed error-code taxonomy for the synthesizer
// core. Every raised error carries a stable code so callers can branch on
// error kind without string matching.
package errs

// Error codes are grouped by the phase that raises them. Phases map
// directly onto the closed taxonomy of spec.md §7: spec-build, AST
// construction, interpreter (general and assertion-violation), decider
// internals, and the synthesis loop.
const (
	// ============================================================================
	// Spec-build errors (SPC###) — fatal at spec-construction time
	// ============================================================================

	// SPC001 indicates a duplicate type name was defined twice
	SPC001 = "SPC001"

	// SPC002 indicates a reference to an undefined type
	SPC002 = "SPC002"

	// SPC003 indicates a duplicate property name on a value type
	SPC003 = "SPC003"

	// SPC004 indicates a function production was declared with arity 0
	SPC004 = "SPC004"

	// SPC005 indicates a duplicate function production name
	SPC005 = "SPC005"

	// SPC006 indicates a parameter production index collision
	SPC006 = "SPC006"

	// SPC007 indicates a production/type id lookup miss (the *_or_raise family)
	SPC007 = "SPC007"

	// SPC008 indicates a program input/output declared with a non-value type
	SPC008 = "SPC008"

	// SPC009 indicates a constraint expression failed sort-checking
	SPC009 = "SPC009"

	// SPC010 indicates a missing or wrongly typed predicate argument
	SPC010 = "SPC010"

	// ============================================================================
	// AST builder errors (BLD###) — surfaced to the immediate caller
	// ============================================================================

	// BLD001 indicates an arity mismatch when constructing an Apply node
	BLD001 = "BLD001"

	// BLD002 indicates a child type mismatch when constructing an Apply node
	BLD002 = "BLD002"

	// BLD003 indicates an attempt to wrap a function production in a leaf node
	BLD003 = "BLD003"

	// BLD004 indicates an attempt to wrap a non-enum production in an Atom node
	BLD004 = "BLD004"

	// BLD005 indicates an attempt to wrap a non-param production in a Param node
	BLD005 = "BLD005"

	// BLD006 indicates a malformed s-expression during parse
	BLD006 = "BLD006"

	// ============================================================================
	// Interpreter errors (ITP###) — general, surfaced up through the loop
	// ============================================================================

	// ITP001 indicates an input index was out of bounds
	ITP001 = "ITP001"

	// ITP002 indicates an unsupported operation for the given production
	ITP002 = "ITP002"

	// ITP003 indicates a missing eval_f/eval_T/apply_p callback binding
	ITP003 = "ITP003"

	// ============================================================================
	// Assertion-violation errors (AVI###) — recovered by the decider's handler
	// ============================================================================

	// AVI001 indicates a dynamic interpreter assertion failed on an argument
	AVI001 = "AVI001"

	// ============================================================================
	// Decider errors (DEC###)
	// ============================================================================

	// DEC001 indicates an ExampleDecider was constructed with zero examples
	DEC001 = "DEC001"

	// DEC002 indicates the symbolic encoder could not resolve a property binding
	DEC002 = "DEC002"

	// ============================================================================
	// Synthesis loop errors (SYN###)
	// ============================================================================

	// SYN001 indicates a malformed synthesizer configuration document
	SYN001 = "SYN001"

	// SYN002 indicates the loop was cancelled via context before a verdict
	SYN002 = "SYN002"

	// SYN003 indicates a malformed or unreadable lattice symmetry cache
	SYN003 = "SYN003"
)

// Info describes one error code for documentation/registry purposes.
type Info struct {
	Code        string
	Phase       string
	Description string
}

// Registry maps every defined code to its descriptive metadata. Kept in
// sync with the const block above; codes_test.go asserts there are no gaps.
var Registry = map[string]Info{
	SPC001: {SPC001, "spec", "Duplicate type definition"},
	SPC002: {SPC002, "spec", "Reference to undefined type"},
	SPC003: {SPC003, "spec", "Duplicate property on value type"},
	SPC004: {SPC004, "spec", "Function production with arity 0"},
	SPC005: {SPC005, "spec", "Duplicate function production name"},
	SPC006: {SPC006, "spec", "Parameter index already assigned"},
	SPC007: {SPC007, "spec", "Lookup miss on *_or_raise accessor"},
	SPC008: {SPC008, "spec", "Non-value type used as program input/output"},
	SPC009: {SPC009, "spec", "Constraint expression sort mismatch"},
	SPC010: {SPC010, "spec", "Missing or wrongly typed predicate argument"},

	BLD001: {BLD001, "builder", "Argument count mismatch"},
	BLD002: {BLD002, "builder", "Argument type mismatch"},
	BLD003: {BLD003, "builder", "Leaf node wrapping a function production"},
	BLD004: {BLD004, "builder", "Atom node wrapping a non-enum production"},
	BLD005: {BLD005, "builder", "Param node wrapping a non-param production"},
	BLD006: {BLD006, "builder", "Malformed s-expression"},

	ITP001: {ITP001, "interpreter", "Input index out of bounds"},
	ITP002: {ITP002, "interpreter", "Unsupported operation"},
	ITP003: {ITP003, "interpreter", "Missing interpreter callback binding"},

	AVI001: {AVI001, "interpreter", "Assertion violation on argument"},

	DEC001: {DEC001, "decider", "Empty example list"},
	DEC002: {DEC002, "decider", "Unresolvable property binding"},

	SYN001: {SYN001, "synth", "Malformed configuration"},
	SYN002: {SYN002, "synth", "Cancelled before verdict"},
	SYN003: {SYN003, "synth", "Malformed lattice symmetry cache"},
}
