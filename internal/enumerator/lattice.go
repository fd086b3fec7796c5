package enumerator

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/squares-synth/tyrellgo/internal/csp"
	"github.com/squares-synth/tyrellgo/internal/errs"

	"gopkg.in/yaml.v3"
)

// Signature is a canonical bracketed-integer description of the dataflow
// shape of a lines model: which line feeds which argument slot of which
// later line. Two models with the same signature are symmetric under line
// renumbering (§4.5 "Symmetry breaking").
type Signature string

// latticeNode mirrors gen_lattices.py's Node: nb is the 1-based line index a
// tree position was built from (0 is the "no line referenced here"
// sentinel used for argument slots filled by a leaf production).
type latticeNode struct {
	nb       int
	children []*latticeNode
}

// buildLatticeTree walks a decoded lines model's reference graph starting at
// the output line (line Loc-1) and produces the Node tree
// gen_lattices.py's SymmetryFinder/writeLattice operate on. Every argument
// slot contributes exactly one child position: a line reference becomes an
// interior node, anything else becomes a 0 leaf.
func buildLatticeTree(l *Lines, model map[string]int, line int) *latticeNode {
	n := &latticeNode{nb: line + 1}
	for y := 0; y < l.maxChildren; y++ {
		v, ok := model[l.vars[l.childIdx(line, y)].Name]
		if ok && v >= l.lineRefBase {
			n.children = append(n.children, buildLatticeTree(l, model, v-l.lineRefBase))
			continue
		}
		n.children = append(n.children, &latticeNode{nb: 0})
	}
	return n
}

// BuildLattice computes the canonical signature of model, grounded on
// gen_lattices.py's writeLattice (a depth-first concatenation of node ids)
// but written in the bracketed form §4.5/§6 specify instead of bare digit
// concatenation, which would be ambiguous once a line index reaches two
// digits.
func BuildLattice(l *Lines, model map[string]int) Signature {
	var sb strings.Builder
	writeLatticeSignature(buildLatticeTree(l, model, l.Loc-1), &sb)
	return Signature(sb.String())
}

func writeLatticeSignature(n *latticeNode, sb *strings.Builder) {
	sb.WriteByte('[')
	sb.WriteString(strconv.Itoa(n.nb))
	for _, c := range n.children {
		writeLatticeSignature(c, sb)
	}
	sb.WriteByte(']')
}

// findSymmetries is the online half of §4.5: given the model just produced,
// it finds every other valid renumbering of the dataflow tree's line roles
// and returns each as a permutation (original 0-based line index -> new
// 0-based line index). Grounded on gen_lattices.py's SymmetryFinder: a
// second, throwaway csp.Solver is used to search the small renumbering
// problem, exactly as the original spins up a dedicated z3 Solver for it.
func (l *Lines) findSymmetries(ctx context.Context, model map[string]int) ([]map[int]int, error) {
	tree := buildLatticeTree(l, model, l.Loc-1)

	sym := csp.NewSolver()
	vars := map[int]*csp.Var{}
	var currentValues csp.Expr

	var walk func(n *latticeNode, pid csp.Expr) error
	walk = func(n *latticeNode, pid csp.Expr) error {
		if n.nb == 0 {
			return nil
		}
		used := 0
		for _, c := range n.children {
			if c.nb != 0 {
				used++
			}
		}
		v := csp.NewIntVar(fmt.Sprintf("x_%d", n.nb), intRange(1, l.Loc))
		sym.DeclareVar(v)
		vars[n.nb] = v
		sym.Add(csp.Lt(csp.IntConst(used), csp.VarExpr(v)))
		sym.Add(csp.Lt(csp.VarExpr(v), pid))
		ne := csp.Ne(csp.VarExpr(v), csp.IntConst(n.nb))
		if currentValues == nil {
			currentValues = ne
		} else {
			currentValues = csp.Or(currentValues, ne)
		}
		for _, c := range n.children {
			if err := walk(c, csp.VarExpr(v)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range tree.children {
		if err := walk(c, csp.IntConst(l.Loc)); err != nil {
			return nil, err
		}
	}
	if len(vars) == 0 {
		return nil, nil
	}
	if currentValues != nil {
		sym.Add(currentValues)
	}
	names := make([]int, 0, len(vars))
	for nb := range vars {
		names = append(names, nb)
	}
	sort.Ints(names)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			sym.Add(csp.Ne(csp.VarExpr(vars[names[i]]), csp.VarExpr(vars[names[j]])))
		}
	}

	var perms []map[int]int
	for {
		res, err := sym.Check(ctx)
		if err != nil {
			return nil, err
		}
		if res != csp.Sat {
			break
		}
		m := sym.Model()
		perm := make(map[int]int, len(names))
		for _, nb := range names {
			perm[nb-1] = m[vars[nb].Name] - 1
		}
		perms = append(perms, perm)

		var block csp.Expr
		for _, nb := range names {
			e := csp.Ne(csp.VarExpr(vars[nb]), csp.IntConst(m[vars[nb].Name]))
			if block == nil {
				block = e
			} else {
				block = csp.Or(block, e)
			}
		}
		sym.Add(block)
	}
	return perms, nil
}

// applyLatticePermutation relabels which physical line holds each role's
// values according to perm (original line index -> new line index), and
// remaps any line-reference child slot caught up in the move so it points
// at the role's new location.
func applyLatticePermutation(l *Lines, model map[string]int, perm map[int]int) map[string]int {
	type snapshot struct {
		root     int
		children []int
	}
	snaps := make(map[int]snapshot, len(perm))
	for orig := range perm {
		s := snapshot{children: make([]int, l.maxChildren)}
		s.root = model[l.vars[l.rootIdx(orig)].Name]
		for y := 0; y < l.maxChildren; y++ {
			s.children[y] = model[l.vars[l.childIdx(orig, y)].Name]
		}
		snaps[orig] = s
	}

	nm := make(map[string]int, len(model))
	for k, v := range model {
		nm[k] = v
	}
	for orig, dst := range perm {
		s := snaps[orig]
		nm[l.vars[l.rootIdx(dst)].Name] = s.root
		for y := 0; y < l.maxChildren; y++ {
			v := s.children[y]
			if v >= l.lineRefBase {
				if np, ok := perm[v-l.lineRefBase]; ok {
					v = l.lineRefBase + np
				}
			}
			nm[l.vars[l.childIdx(dst, y)].Name] = v
		}
	}
	// The output line is never renumbered, but its own references follow the
	// lines they point at.
	out := l.Loc - 1
	for y := 0; y < l.maxChildren; y++ {
		name := l.vars[l.childIdx(out, y)].Name
		if v := model[name]; v >= l.lineRefBase {
			if np, ok := perm[v-l.lineRefBase]; ok {
				nm[name] = l.lineRefBase + np
			}
		}
	}
	return nm
}

// formatPermutation/parsePermutation implement the plain-text "model"
// entries of the cache file's signature:model1|model2|... grammar (§4.5's
// last paragraph): a comma-separated list of orig=new pairs.
func formatPermutation(perm map[int]int) string {
	keys := make([]int, 0, len(perm))
	for k := range perm {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d=%d", k, perm[k])
	}
	return strings.Join(parts, ",")
}

func parsePermutation(s string) (map[int]int, error) {
	perm := map[int]int{}
	if s == "" {
		return perm, nil
	}
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, errs.Newf(errs.SYN003, "malformed lattice cache permutation entry %q", kv)
		}
		k, err1 := strconv.Atoi(parts[0])
		v, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, errs.Newf(errs.SYN003, "malformed lattice cache permutation entry %q", kv)
		}
		perm[k] = v
	}
	return perm, nil
}

// Mode selects how a LatticeCache resolves a signature: Offline looks up a
// precomputed mapping only (the cache is read-only at synthesis time, built
// ahead of time by running the Online mode once and saving it); Online
// additionally searches for permutations at run time and memoizes them.
type Mode int

const (
	Online Mode = iota
	Offline
)

// latticeCacheMeta is the small yaml sidecar written next to the plain-text
// cache file, grounded on internal/eval_harness/spec.go's LoadSpec idiom
// (yaml.Unmarshal into a small struct, validated required fields) applied
// here to cache provenance instead of a spec document.
type latticeCacheMeta struct {
	Loc  int    `yaml:"loc"`
	Mode string `yaml:"mode"`
}

// LatticeCache is the cache file described by §4.5's last paragraph: plain
// text entries of the form "signature:model1|model2|...", one signature per
// line, alongside a yaml sidecar recording the loc and mode it was built
// for.
type LatticeCache struct {
	Path string
	Loc  int
	Mode Mode

	entries map[Signature][]string
	dirty   bool
}

// NewLatticeCache opens (or initializes) a lattice cache at path. A missing
// file is not an error: it means the cache starts empty, which is the
// expected state the first time a given loc/mode combination runs in Online
// mode.
func NewLatticeCache(path string, loc int, mode Mode) (*LatticeCache, error) {
	c := &LatticeCache{Path: path, Loc: loc, Mode: mode, entries: map[Signature][]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, errs.Newf(errs.SYN003, "reading lattice cache %q: %v", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, errs.Newf(errs.SYN003, "malformed lattice cache line %q", line)
		}
		c.entries[Signature(parts[0])] = strings.Split(parts[1], "|")
	}

	metaPath := path + ".meta.yaml"
	if metaData, err := os.ReadFile(metaPath); err == nil {
		var meta latticeCacheMeta
		if err := yaml.Unmarshal(metaData, &meta); err != nil {
			return nil, errs.Newf(errs.SYN003, "parsing lattice cache metadata %q: %v", metaPath, err)
		}
		if meta.Loc != 0 && meta.Loc != loc {
			return nil, errs.Newf(errs.SYN003, "lattice cache %q was built for loc=%d, not loc=%d", path, meta.Loc, loc)
		}
	} else if !os.IsNotExist(err) {
		return nil, errs.Newf(errs.SYN003, "reading lattice cache metadata %q: %v", metaPath, err)
	}
	return c, nil
}

// Lookup returns the permutation entries recorded for sig, if any.
func (c *LatticeCache) Lookup(sig Signature) ([]string, bool) {
	entries, ok := c.entries[sig]
	return entries, ok
}

// Record memoizes permStr under sig, deduplicating against entries already
// present.
func (c *LatticeCache) Record(sig Signature, permStr string) {
	for _, existing := range c.entries[sig] {
		if existing == permStr {
			return
		}
	}
	c.entries[sig] = append(c.entries[sig], permStr)
	c.dirty = true
}

// Save writes the cache back to Path plus its yaml metadata sidecar. A
// no-op if nothing has been recorded since the cache was opened.
func (c *LatticeCache) Save() error {
	if !c.dirty {
		return nil
	}
	sigs := make([]string, 0, len(c.entries))
	for sig := range c.entries {
		sigs = append(sigs, string(sig))
	}
	sort.Strings(sigs)

	var sb strings.Builder
	for _, sig := range sigs {
		sb.WriteString(sig)
		sb.WriteByte(':')
		sb.WriteString(strings.Join(c.entries[Signature(sig)], "|"))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(c.Path, []byte(sb.String()), 0o644); err != nil {
		return errs.Newf(errs.SYN003, "writing lattice cache %q: %v", c.Path, err)
	}

	modeName := "online"
	if c.Mode == Offline {
		modeName = "offline"
	}
	metaData, err := yaml.Marshal(latticeCacheMeta{Loc: c.Loc, Mode: modeName})
	if err != nil {
		return errs.Newf(errs.SYN003, "marshaling lattice cache metadata: %v", err)
	}
	if err := os.WriteFile(c.Path+".meta.yaml", metaData, 0o644); err != nil {
		return errs.Newf(errs.SYN003, "writing lattice cache metadata: %v", err)
	}
	c.dirty = false
	return nil
}
