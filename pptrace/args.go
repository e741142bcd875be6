// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"strconv"
	"strings"
)

// ParseArguments decomposes the invocation tokens of ev into arguments.
//
// Arguments are separated by commas at top level, i.e. commas in
// nested parentheses don't separate arguments. As in the C
// preprocessor, [] and {} don't group, so `F({1, 2})` has two arguments.
// An argument `Name = value` is named Name. Other arguments are named
// by the macro's parameter at the same position, `__VA_ARGS__` for
// extra arguments of variadic macro, or `Arg<i>` otherwise.
//
// It returns false if the invocation is malformed. In that case,
// it returns arguments that were complete before the error.
func ParseArguments(ev MacroExpansion) ([]Argument, bool) {
	toks := ev.Args
	if len(toks) == 0 {
		// object-like
		return nil, true
	}
	if !toks[0].Is("(") {
		return nil, false
	}
	toks = toks[1:]
	var args []Argument
	var cur []Token
	depth := 0
	for _, tok := range toks {
		if tok.Kind == Punct {
			switch tok.Text {
			case "(":
				depth++
			case ")":
				if depth == 0 {
					if len(cur) > 0 || len(args) > 0 {
						args = append(args, newArgument(ev, len(args), cur))
					}
					return args, true
				}
				depth--
			case ",":
				if depth == 0 {
					args = append(args, newArgument(ev, len(args), cur))
					cur = nil
					continue
				}
			}
		}
		cur = append(cur, tok)
	}
	// unterminated invocation. drop partial argument.
	return args, false
}

func newArgument(ev MacroExpansion, i int, toks []Token) Argument {
	if len(toks) >= 2 && toks[0].Kind == Ident && toks[1].Is("=") {
		return Argument{
			Name:  toks[0].Text,
			Value: argValue(toks[2:]),
		}
	}
	return Argument{
		Name:  paramName(ev, i),
		Value: argValue(toks),
	}
}

func paramName(ev MacroExpansion, i int) string {
	if i < len(ev.Params) {
		return ev.Params[i]
	}
	if ev.Variadic {
		return "__VA_ARGS__"
	}
	return "Arg" + strconv.Itoa(i)
}

// argValue returns value of argument tokens.
// string literals are unquoted and concatenated, e.g.
// `"foo/" "bar.h"` is "foo/bar.h".
func argValue(toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range toks {
		if tok.Kind != String {
			return JoinTokens(toks)
		}
		sb.WriteString(unquote(tok.Text))
	}
	return sb.String()
}

func unquote(s string) string {
	// drop encoding prefix, e.g. L"foo", u8"foo".
	if i := strings.IndexByte(s, '"'); i > 0 {
		s = s[i:]
	}
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
