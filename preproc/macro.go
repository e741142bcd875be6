// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package preproc

import (
	"fmt"

	"go.chromium.org/infra/build/ddtrace/pptrace"
)

var commaToken = pptrace.Token{Kind: pptrace.Punct, Text: ","}

// macro is a macro definition.
type macro struct {
	name string

	// params is nil for object-like macro.
	params   []string
	variadic bool
	// vaName is the parameter that takes variadic arguments.
	vaName string

	body []token
}

func (m *macro) funcLike() bool {
	return m.params != nil
}

// parseDefine parses tokens after `#define`.
//
//	NAME body...
//	NAME(a, b) body...
//	NAME(a, ...) body...
//	NAME(args...) body...
func parseDefine(toks []token) (*macro, error) {
	if len(toks) == 0 || toks[0].Kind != pptrace.Ident {
		return nil, fmt.Errorf("no macro name")
	}
	m := &macro{name: toks[0].Text}
	toks = toks[1:]
	if len(toks) > 0 && toks[0].Is("(") && !toks[0].Space {
		// function-like
		m.params = []string{}
		i := 1
	params:
		for {
			if i >= len(toks) {
				return nil, fmt.Errorf("unterminated parameter list of %s", m.name)
			}
			tok := toks[i]
			switch {
			case tok.Is(")") && len(m.params) == 0 && !m.variadic:
				i++
				break params
			case tok.Is("..."):
				m.variadic = true
				m.vaName = "__VA_ARGS__"
				i++
			case tok.Kind == pptrace.Ident:
				m.params = append(m.params, tok.Text)
				i++
				if i < len(toks) && toks[i].Is("...") {
					// GNU named variadic parameter.
					m.variadic = true
					m.vaName = tok.Text
					i++
				}
			default:
				return nil, fmt.Errorf("bad parameter %q of %s", tok.Text, m.name)
			}
			if i >= len(toks) {
				return nil, fmt.Errorf("unterminated parameter list of %s", m.name)
			}
			switch {
			case toks[i].Is(")"):
				i++
				break params
			case toks[i].Is(",") && !m.variadic:
				i++
			default:
				return nil, fmt.Errorf("bad parameter list of %s at %q", m.name, toks[i].Text)
			}
		}
		toks = toks[i:]
	}
	if len(toks) > 0 {
		m.body = make([]token, len(toks))
		copy(m.body, toks)
		m.body[0].Space = false
	}
	return m, nil
}

// collectArgs returns the end index of the invocation arguments that
// start with `(` at toks[i], and whether the invocation is terminated.
// It stops at a directive line, so that an unterminated invocation
// doesn't consume the rest of the file.
func collectArgs(toks []token, i int) (int, bool) {
	depth := 0
	for j := i; j < len(toks); j++ {
		tok := toks[j]
		if j > i && tok.bol && tok.Is("#") {
			return j, false
		}
		switch {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
	}
	return len(toks), false
}

// splitArgs splits terminated invocation tokens `( ... )` into
// token lists of each argument.
func splitArgs(toks []token) [][]token {
	if len(toks) < 2 {
		return nil
	}
	toks = toks[1 : len(toks)-1]
	if len(toks) == 0 {
		return nil
	}
	var args [][]token
	depth := 0
	start := 0
	for i, tok := range toks {
		switch {
		case tok.Is("("):
			depth++
		case tok.Is(")"):
			depth--
		case tok.Is(",") && depth == 0:
			args = append(args, toks[start:i])
			start = i + 1
		}
	}
	return append(args, toks[start:])
}

// subst returns body of m with parameters replaced by args.
// `#` and `##` are kept as is.
func (m *macro) subst(args [][]token) []token {
	if !m.funcLike() {
		return m.body
	}
	lookup := func(name string) ([]token, bool) {
		for i, p := range m.params {
			if p != name {
				continue
			}
			if p == m.vaName {
				return joinArgs(args, i), true
			}
			if i < len(args) {
				return args[i], true
			}
			return nil, true
		}
		if m.vaName == "__VA_ARGS__" && name == m.vaName {
			return joinArgs(args, len(m.params)), true
		}
		return nil, false
	}
	var out []token
	for _, tok := range m.body {
		if tok.Kind == pptrace.Ident {
			if arg, ok := lookup(tok.Text); ok {
				for i, a := range arg {
					if i == 0 {
						a.Space = tok.Space
					}
					out = append(out, a)
				}
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

// joinArgs joins args[i:] with commas, for variadic parameter.
func joinArgs(args [][]token, i int) []token {
	var out []token
	for j := i; j < len(args); j++ {
		if j > i {
			out = append(out, token{Token: commaToken})
		}
		out = append(out, args[j]...)
	}
	return out
}
