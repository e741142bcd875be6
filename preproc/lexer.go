// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package preproc

import (
	"bytes"

	"go.chromium.org/infra/build/ddtrace/pptrace"
)

// token is a preprocessing token with its line.
type token struct {
	pptrace.Token

	line int
	// bol reports the token is the first token in a line.
	bol bool
}

var newline = []byte{'\n'}

var puncts = []string{
	// longest first.
	"...", "<<=", ">>=",
	"##", "->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=",
	"&&", "||", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::",
}

// tokenize splits buf into preprocessing tokens.
// comments are removed, and backslash-newlines are spliced.
// it never fails: unterminated literals or comments end at
// the end of line or buf.
func tokenize(buf []byte) []token {
	var toks []token
	line := 1
	bol := true
	space := false
	emit := func(kind pptrace.TokenKind, text []byte) {
		toks = append(toks, token{
			Token: pptrace.Token{
				Kind:  kind,
				Text:  string(text),
				Space: space,
			},
			line: line,
			bol:  bol,
		})
		bol = false
		space = false
	}
	for i := 0; i < len(buf); {
		c := buf[i]
		switch {
		case c == '\n':
			line++
			bol = true
			space = true
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			space = true
			i++
		case c == '\\' && i+1 < len(buf) && buf[i+1] == '\n':
			line++
			i += 2
		case c == '\\' && i+2 < len(buf) && buf[i+1] == '\r' && buf[i+2] == '\n':
			line++
			i += 3
		case c == '/' && i+1 < len(buf) && buf[i+1] == '/':
			for i < len(buf) && buf[i] != '\n' {
				i++
			}
			space = true
		case c == '/' && i+1 < len(buf) && buf[i+1] == '*':
			i += 2
			for i < len(buf) {
				if buf[i] == '*' && i+1 < len(buf) && buf[i+1] == '/' {
					i += 2
					break
				}
				if buf[i] == '\n' {
					line++
				}
				i++
			}
			space = true
		case isIdentStart(c):
			j := i + 1
			for j < len(buf) && isIdentChar(buf[j]) {
				j++
			}
			if j < len(buf) && buf[j] == '"' && isRawPrefix(buf[i:j]) {
				if k, ok := skipRawLiteral(buf, j); ok {
					emit(pptrace.String, buf[i:k])
					line += bytes.Count(buf[i:k], newline)
					i = k
					continue
				}
			}
			if j < len(buf) && (buf[j] == '"' || buf[j] == '\'') && isEncodingPrefix(buf[i:j]) {
				k := skipLiteral(buf, j)
				kind := pptrace.String
				if buf[j] == '\'' {
					kind = pptrace.Char
				}
				emit(kind, buf[i:k])
				line += bytes.Count(buf[i:k], newline)
				i = k
				continue
			}
			emit(pptrace.Ident, buf[i:j])
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(buf) && isDigit(buf[i+1])):
			j := i + 1
			for j < len(buf) {
				if (buf[j] == '+' || buf[j] == '-') && isExponent(buf[j-1]) {
					j++
					continue
				}
				// digit separator, e.g. 1'000.
				if buf[j] == '\'' && j+1 < len(buf) && isIdentChar(buf[j+1]) {
					j += 2
					continue
				}
				if !isIdentChar(buf[j]) && buf[j] != '.' {
					break
				}
				j++
			}
			emit(pptrace.Number, buf[i:j])
			i = j
		case c == '"':
			j := skipLiteral(buf, i)
			emit(pptrace.String, buf[i:j])
			line += bytes.Count(buf[i:j], newline)
			i = j
		case c == '\'':
			j := skipLiteral(buf, i)
			emit(pptrace.Char, buf[i:j])
			line += bytes.Count(buf[i:j], newline)
			i = j
		default:
			n := 1
			for _, p := range puncts {
				if hasPrefixAt(buf, i, p) {
					n = len(p)
					break
				}
			}
			emit(pptrace.Punct, buf[i:i+n])
			i += n
		}
	}
	return toks
}

// skipLiteral returns the index after the string or char literal
// starting with the quote at buf[i].
func skipLiteral(buf []byte, i int) int {
	quote := buf[i]
	j := i + 1
	for j < len(buf) {
		switch buf[j] {
		case '\\':
			j += 2
			continue
		case '\n':
			// unterminated.
			return j
		case quote:
			return j + 1
		}
		j++
	}
	return len(buf)
}

// skipRawLiteral returns the index after the raw string literal
// `"delim( ... )delim"` starting with the quote at buf[i].
// It returns false if the delimiter is invalid.
// An unterminated raw string runs to the end of buf.
func skipRawLiteral(buf []byte, i int) (int, bool) {
	j := i + 1
	for j < len(buf) && buf[j] != '(' {
		switch buf[j] {
		case ' ', ')', '\\', '\t', '\v', '\f', '\n', '"':
			return 0, false
		}
		j++
	}
	delim := buf[i+1 : j]
	if j >= len(buf) || len(delim) > 16 {
		return 0, false
	}
	term := make([]byte, 0, len(delim)+2)
	term = append(term, ')')
	term = append(term, delim...)
	term = append(term, '"')
	k := bytes.Index(buf[j+1:], term)
	if k < 0 {
		return len(buf), true
	}
	return j + 1 + k + len(term), true
}

func isRawPrefix(b []byte) bool {
	switch string(b) {
	case "R", "LR", "uR", "UR", "u8R":
		return true
	}
	return false
}

func hasPrefixAt(buf []byte, i int, p string) bool {
	if len(buf)-i < len(p) {
		return false
	}
	return string(buf[i:i+len(p)]) == p
}

func isEncodingPrefix(b []byte) bool {
	switch string(b) {
	case "L", "u", "U", "u8":
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isExponent(c byte) bool {
	return c == 'e' || c == 'E' || c == 'p' || c == 'P'
}
