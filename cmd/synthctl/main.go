// Command synthctl is a thin demo driver for the synthesis core (§6 CLI
// surface, "documented for context only"). It wires the toy SmallInt/Int
// grammar from spec.md §8 plus a fixed interpreter and example set through
// internal/synth, and prints the accepted program or "no program found".
// Grounded on cmd/ailang/main.go's flag+fatih/color style; not part of the
// core itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/squares-synth/tyrellgo/internal/decider"
	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/interpreter"
	"github.com/squares-synth/tyrellgo/internal/spec"
	"github.com/squares-synth/tyrellgo/internal/synth"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		startLoc = flag.Int("start-loc", 1, "smallest function-application count to try")
		maxLoc   = flag.Int("max-loc", 4, "largest function-application count to try")
		depth    = flag.Int("depth", 4, "k-tree depth bound")
		encoding = flag.String("encoding", "ktree", "enumerator encoding: ktree or lines")
	)
	flag.Parse()

	sp, interp, err := toySpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: building toy spec: %v\n", red("Error"), err)
		os.Exit(1)
	}

	examples := []decider.Example{
		{Input: []any{3, 1}, Output: 2},
		{Input: []any{3, 2}, Output: 2},
		{Input: []any{2, 1}, Output: 1},
		{Input: []any{3, 3}, Output: 0},
	}

	cfg := &synth.Config{
		StartLoc: *startLoc,
		MaxLoc:   *maxLoc,
		Depth:    *depth,
		Encoding: synth.Encoding(*encoding),
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}

	fmt.Printf("%s %s\n", bold("synthctl:"), cfg.String())

	newDecider := func(loc int) (synth.Decider, error) {
		return decider.NewExampleDecider(context.Background(), sp, interp, examples, nil)
	}
	assertHandler := decider.NewAssertionViolationHandler(sp, interp)

	prog, loc, err := synth.RunSearch(context.Background(), sp, cfg, newDecider, assertHandler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
	if prog == nil {
		fmt.Println(yellow("no program found"))
		return
	}
	fmt.Printf("%s (loc=%d): %s\n", green("accepted"), loc, dsl.Print(prog))
}

// toySpec builds the SmallInt/Int grammar from spec.md §8: four SmallInt
// literals, plus/minus/mult over two Int inputs, and a const production
// lifting a SmallInt literal into Int. The interpreter evaluates everything
// with ordinary int arithmetic (§9's chosen division/modulo semantics don't
// apply here — none of these three operators divide).
func toySpec() (*spec.Spec, interpreter.Interpreter, error) {
	smallInt := &spec.EnumType{TypeName: "SmallInt", Domain: []string{"0", "1", "2", "3"}}
	intTy := &spec.ValueType{TypeName: "Int"}

	ts := spec.NewTypeSpec()
	if err := ts.Define(smallInt); err != nil {
		return nil, nil, err
	}
	if err := ts.Define(intTy); err != nil {
		return nil, nil, err
	}

	prog, err := spec.NewProgramSpec("Toy", []spec.Type{intTy, intTy}, intTy)
	if err != nil {
		return nil, nil, err
	}

	prods := spec.NewProductionSpec()
	if _, err := prods.AddFuncProduction("const", intTy, []spec.Type{smallInt}, nil); err != nil {
		return nil, nil, err
	}
	if _, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil); err != nil {
		return nil, nil, err
	}
	if _, err := prods.AddFuncProduction("minus", intTy, []spec.Type{intTy, intTy}, nil); err != nil {
		return nil, nil, err
	}
	if _, err := prods.AddFuncProduction("mult", intTy, []spec.Type{intTy, intTy}, nil); err != nil {
		return nil, nil, err
	}

	sp, err := spec.Build(ts, prog, prods, nil)
	if err != nil {
		return nil, nil, err
	}

	interp := interpreter.NewPostOrder(interpreter.Callbacks{
		EvalAtoms: map[string]interpreter.EvalAtom{
			"SmallInt": func(v string) any {
				n := 0
				fmt.Sscanf(v, "%d", &n)
				return n
			},
		},
		EvalFuncs: map[string]interpreter.EvalFunc{
			"const": func(_ *dsl.Apply, args []any) (any, error) { return args[0], nil },
			"plus":  func(_ *dsl.Apply, args []any) (any, error) { return args[0].(int) + args[1].(int), nil },
			"minus": func(_ *dsl.Apply, args []any) (any, error) { return args[0].(int) - args[1].(int), nil },
			"mult":  func(_ *dsl.Apply, args []any) (any, error) { return args[0].(int) * args[1].(int), nil },
		},
	})

	return sp, interp, nil
}
