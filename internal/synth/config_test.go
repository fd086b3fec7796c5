package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/squares-synth/tyrellgo/internal/spec"
)

func TestLoadConfigValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
start_loc: 1
max_loc: 5
depth: 3
encoding: ktree
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.StartLoc)
	assert.Equal(t, 5, cfg.MaxLoc)
	assert.Equal(t, 3, cfg.Depth)
	assert.Equal(t, KTree, cfg.Encoding)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/synth.yaml")
	assert.Error(t, err)
}

func TestConfigValidateRejectsBadFields(t *testing.T) {
	cases := []*Config{
		{StartLoc: 0, MaxLoc: 1, Depth: 1, Encoding: KTree},
		{StartLoc: 3, MaxLoc: 1, Depth: 1, Encoding: KTree},
		{StartLoc: 1, MaxLoc: 1, Depth: 0, Encoding: KTree},
		{StartLoc: 1, MaxLoc: 1, Depth: 1, Encoding: ""},
		{StartLoc: 1, MaxLoc: 1, Depth: 1, Encoding: "bogus"},
		{StartLoc: 1, MaxLoc: 1, Depth: 1, Encoding: KTree, LatticeMode: "sideways"},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate())
	}
}

func TestConfigBuildEnumeratorKTreeAndLines(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	ktCfg := &Config{StartLoc: 1, MaxLoc: 1, Depth: 2, Encoding: KTree}
	enum, err := ktCfg.BuildEnumerator(sp, 1)
	require.NoError(t, err)
	assert.NotNil(t, enum)

	linesCfg := &Config{StartLoc: 1, MaxLoc: 1, Depth: 2, Encoding: Lines}
	enum2, err := linesCfg.BuildEnumerator(sp, 1)
	require.NoError(t, err)
	assert.NotNil(t, enum2)
}

func TestConfigBuildEnumeratorWithLatticeCache(t *testing.T) {
	sp := twoIntProgramSpec(t, func(prods *spec.ProductionSpec, intTy spec.Type) {
		_, err := prods.AddFuncProduction("plus", intTy, []spec.Type{intTy, intTy}, nil)
		require.NoError(t, err)
	})

	dir := t.TempDir()
	cfg := &Config{
		StartLoc:    1,
		MaxLoc:      1,
		Depth:       2,
		Encoding:    Lines,
		LatticePath: filepath.Join(dir, "lattice.cache"),
		LatticeMode: "online",
	}
	require.NoError(t, cfg.Validate())
	enum, err := cfg.BuildEnumerator(sp, 1)
	require.NoError(t, err)
	require.NotNil(t, enum)
}
