package synth

import (
	"context"

	"github.com/squares-synth/tyrellgo/internal/dsl"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// RunSearch drives one Loop per `loc` from cfg.StartLoc through cfg.MaxLoc
// inclusive, stopping at the first accepted program. This is the piece
// external drivers (e.g. cmd/synthctl) actually want: §4's enumerators are
// each bound to a fixed function-application count, so climbing toward a
// solution means re-building the enumerator (and its Loop) at each size,
// matching how the original's CLI harness wraps SmtEnumerator construction
// in its own outer loc loop.
//
// Returns the accepted program and the loc it was found at, or (nil, 0, nil)
// if every loc up to MaxLoc was exhausted without a match.
func RunSearch(ctx context.Context, sp *spec.Spec, cfg *Config, newDecider func(loc int) (Decider, error), assertHandler AssertHandler) (dsl.Node, int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	for loc := cfg.StartLoc; loc <= cfg.MaxLoc; loc++ {
		select {
		case <-ctx.Done():
			return nil, 0, errs.Newf(errs.SYN002, "synthesis search cancelled: %v", ctx.Err())
		default:
		}

		enum, err := cfg.BuildEnumerator(sp, loc)
		if err != nil {
			return nil, 0, err
		}
		dec, err := newDecider(loc)
		if err != nil {
			return nil, 0, err
		}
		loop := NewLoop(enum, dec, assertHandler)
		prog, err := loop.Run(ctx)
		if err != nil {
			return nil, 0, err
		}
		if prog != nil {
			return prog, loc, nil
		}
	}
	return nil, 0, nil
}
