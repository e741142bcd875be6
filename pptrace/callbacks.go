// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"context"
	"fmt"
	"strings"
)

// TokenKind is a kind of preprocessing token.
type TokenKind int

const (
	Ident TokenKind = iota
	Number
	String
	Char
	Punct
)

func (k TokenKind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Number:
		return "number"
	case String:
		return "string"
	case Char:
		return "char"
	case Punct:
		return "punct"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a preprocessing token.
type Token struct {
	Kind TokenKind
	Text string

	// Space reports whether the token is preceded by whitespace.
	Space bool
}

// Is reports whether tok is punctuator s.
func (tok Token) Is(s string) bool {
	return tok.Kind == Punct && tok.Text == s
}

// JoinTokens concatenates tokens, with a single space where
// the source had whitespace.
func JoinTokens(toks []Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		if i > 0 && tok.Space {
			sb.WriteByte(' ')
		}
		sb.WriteString(tok.Text)
	}
	return sb.String()
}

// Position is a source position.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// MacroExpansion is an event of a macro expansion.
type MacroExpansion struct {
	// Name is the macro name.
	Name string

	// Params are parameter names of the macro definition.
	// nil for object-like macro.
	Params []string

	// Variadic reports the macro definition takes `...`.
	Variadic bool

	// Args are raw, unexpanded tokens of the invocation from `(`
	// to the matching `)`. Empty for object-like macro.
	// It may lack the closing `)` if the invocation is not terminated.
	Args []Token

	// Pos is the position of the macro name token.
	Pos Position
}

// Callbacks is called by a preprocessor on preprocessing events.
type Callbacks interface {
	// MacroExpands is called for each macro expansion.
	// It must not block.
	MacroExpands(ctx context.Context, ev MacroExpansion)
}

// Preprocessor is a preprocessor that callbacks can be installed into.
// The preprocessor owns the callbacks once added.
type Preprocessor interface {
	AddCallbacks(cb Callbacks)
}

// Unit is a translation unit to be preprocessed.
type Unit interface {
	Preprocessor

	// Preprocess runs preprocessing of the unit, calling installed
	// callbacks synchronously.
	Preprocess(ctx context.Context) error
}
