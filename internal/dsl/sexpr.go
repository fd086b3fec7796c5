package dsl

import (
	"strconv"
	"strings"

	"github.com/squares-synth/tyrellgo/internal/errs"
	"github.com/squares-synth/tyrellgo/internal/spec"
)

// Print renders n in the canonical s-expression form used for golden tests
// (§6). It is exactly n.Canon().
func Print(n Node) string { return n.Canon() }

// token kinds produced by the tokenizer below.
type token struct {
	text string
	quoted bool
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			toks = append(toks, token{text: string(c)})
			i++
		case c == '"':
			j := i + 1
			var b strings.Builder
			closed := false
			for j < n {
				if s[j] == '\\' && j+1 < n {
					b.WriteByte(s[j+1])
					j += 2
					continue
				}
				if s[j] == '"' {
					closed = true
					j++
					break
				}
				b.WriteByte(s[j])
				j++
			}
			if !closed {
				return nil, errs.Newf(errs.BLD006, "unterminated string literal in s-expression")
			}
			toks = append(toks, token{text: b.String(), quoted: true})
			i = j
		default:
			j := i
			for j < n && s[j] != ' ' && s[j] != '\t' && s[j] != '\n' && s[j] != '\r' && s[j] != '(' && s[j] != ')' {
				j++
			}
			toks = append(toks, token{text: s[i:j]})
			i = j
		}
	}
	return toks, nil
}

// Parse reads one program tree from its canonical s-expression form,
// disambiguating Atom/Param/Apply nodes against sp.
func Parse(sp *spec.Spec, s string) (Node, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(sp)
	n, rest, err := parseNode(b, toks)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errs.Newf(errs.BLD006, "trailing tokens after s-expression: %v", rest)
	}
	return n, nil
}

func parseNode(b *Builder, toks []token) (Node, []token, error) {
	if len(toks) == 0 || toks[0].text != "(" {
		return nil, nil, errs.Newf(errs.BLD006, "expected '(' to start a node")
	}
	toks = toks[1:]
	if len(toks) == 0 {
		return nil, nil, errs.Newf(errs.BLD006, "unexpected end of input after '('")
	}
	head := toks[0]
	toks = toks[1:]

	if !head.quoted && head.text == "@param" {
		if len(toks) == 0 {
			return nil, nil, errs.Newf(errs.BLD006, "missing parameter index")
		}
		idx, err := strconv.Atoi(toks[0].text)
		if err != nil {
			return nil, nil, errs.Newf(errs.BLD006, "malformed parameter index %q", toks[0].text)
		}
		toks = toks[1:]
		if len(toks) == 0 || toks[0].text != ")" {
			return nil, nil, errs.Newf(errs.BLD006, "expected ')' after parameter index")
		}
		node, err := b.MakeParam(idx)
		if err != nil {
			return nil, nil, err
		}
		return node, toks[1:], nil
	}

	if !head.quoted {
		if _, ok := b.Spec.GetType(head.text); ok {
			if len(toks) == 0 || !toks[0].quoted {
				return nil, nil, errs.Newf(errs.BLD006, "expected quoted value for atom of type %q", head.text)
			}
			value := toks[0].text
			toks = toks[1:]
			if len(toks) == 0 || toks[0].text != ")" {
				return nil, nil, errs.Newf(errs.BLD006, "expected ')' after atom value")
			}
			node, err := b.MakeEnum(head.text, value)
			if err != nil {
				return nil, nil, err
			}
			return node, toks[1:], nil
		}
	}

	// Otherwise head is a function production name; recursively parse
	// children until the closing ')'.
	var children []Node
	for {
		if len(toks) == 0 {
			return nil, nil, errs.Newf(errs.BLD006, "unexpected end of input while parsing arguments of %q", head.text)
		}
		if toks[0].text == ")" {
			toks = toks[1:]
			break
		}
		var child Node
		var err error
		child, toks, err = parseNode(b, toks)
		if err != nil {
			return nil, nil, err
		}
		children = append(children, child)
	}
	node, err := b.MakeApply(head.text, children)
	if err != nil {
		return nil, nil, err
	}
	return node, toks, nil
}
