// Package synth implements the synthesis loop (§4.8 / C8): drive an
// enumerator and a decider against each other until a candidate is accepted
// or the search space is exhausted. Grounded on tyrell/synthesizer/
// synthesizer.py (not present in full in the retrieved pack, but described
// by §4.8's pseudocode and exercised by the pack's demo_smt_enumerator.py /
// demo_interpreter.py scripts); Config loading follows the teacher's
// internal/eval_harness/spec.go LoadSpec idiom (yaml.Unmarshal into a
// struct, required-field validation, wrapped read/parse errors).
package synth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/squares-synth/tyrellgo/internal/enumerator"
	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Encoding selects which §4 enumerator encoding a Config builds.
type Encoding string

const (
	KTree Encoding = "ktree"
	Lines Encoding = "lines"
)

// Config is the ambient driver configuration external callers assemble a
// Loop from (SPEC_FULL.md §1 "Configuration"): search bounds, which
// enumerator encoding to use, and the optional lattice symmetry cache a
// Lines enumerator should attach.
type Config struct {
	StartLoc int      `yaml:"start_loc"`
	MaxLoc   int      `yaml:"max_loc"`
	Depth    int      `yaml:"depth"`
	Encoding Encoding `yaml:"encoding"`

	LatticePath string `yaml:"lattice_path,omitempty"`
	LatticeMode string `yaml:"lattice_mode,omitempty"` // "online" or "offline"
}

// LoadConfig reads and validates a Config document.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Newf(errs.SYN001, "reading synth config %q: %v", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Newf(errs.SYN001, "parsing synth config %q: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields, mirroring LoadSpec's required-field
// checks.
func (c *Config) Validate() error {
	if c.StartLoc <= 0 {
		return errs.Newf(errs.SYN001, "synth config missing required field: start_loc")
	}
	if c.MaxLoc < c.StartLoc {
		return errs.Newf(errs.SYN001, "synth config max_loc (%d) must be >= start_loc (%d)", c.MaxLoc, c.StartLoc)
	}
	if c.Depth <= 0 {
		return errs.Newf(errs.SYN001, "synth config missing required field: depth")
	}
	switch c.Encoding {
	case KTree, Lines:
	case "":
		return errs.Newf(errs.SYN001, "synth config missing required field: encoding")
	default:
		return errs.Newf(errs.SYN001, "synth config has unrecognized encoding %q", c.Encoding)
	}
	if c.LatticeMode != "" && c.LatticeMode != "online" && c.LatticeMode != "offline" {
		return errs.Newf(errs.SYN001, "synth config has unrecognized lattice_mode %q", c.LatticeMode)
	}
	return nil
}

// latticeMode translates the config's string field into enumerator.Mode.
func (c *Config) latticeMode() enumerator.Mode {
	if c.LatticeMode == "offline" {
		return enumerator.Offline
	}
	return enumerator.Online
}

// BuildEnumerator constructs the enumerator named by c.Encoding for loc
// function applications, wiring a lattice cache onto a Lines enumerator when
// LatticePath is set.
func (c *Config) BuildEnumerator(sp *spec.Spec, loc int) (enumerator.Enumerator, error) {
	switch c.Encoding {
	case KTree:
		return enumerator.NewKTree(sp, c.Depth, loc)
	case Lines:
		lines, err := enumerator.NewLines(sp, loc)
		if err != nil {
			return nil, err
		}
		if c.LatticePath != "" {
			cache, err := enumerator.NewLatticeCache(c.LatticePath, loc, c.latticeMode())
			if err != nil {
				return nil, err
			}
			lines.UseLattice(cache)
		}
		return lines, nil
	default:
		return nil, errs.Newf(errs.SYN001, "unrecognized encoding %q", c.Encoding)
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("synth.Config{start_loc=%d, max_loc=%d, depth=%d, encoding=%s}", c.StartLoc, c.MaxLoc, c.Depth, c.Encoding)
}
