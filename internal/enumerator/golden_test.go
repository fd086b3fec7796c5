package enumerator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/testutil"
)

// TestKTreeEnumerationOrderGolden pins the exact sequence of candidates the
// k-tree enumerator hands out for the canonical two-param "plus" grammar:
// both permutations of @param0/@param1 are valid under the input-usage
// constraint, and the backtracking solver in internal/csp always tries
// lower production ids first, so the order is reproducible across runs.
// Run with UPDATE_GOLDENS=true to reseed testdata/ktree/plus_loc1.golden.json
// if the solver's search order ever changes.
func TestKTreeEnumerationOrderGolden(t *testing.T) {
	sp := plusSpec(t, nil)
	kt, err := NewKTree(sp, 2, 1)
	require.NoError(t, err)

	var got []string
	for i := 0; i < 3; i++ {
		prog, err := kt.Next(context.Background())
		require.NoError(t, err)
		if prog == nil {
			break
		}
		got = append(got, prog.Canon())
		require.NoError(t, kt.Update(context.Background(), nil))
	}

	testutil.CompareWithGolden(t, "ktree", "plus_loc1", got)
}
