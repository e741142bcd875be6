// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package preproc provides forged C preprocessor that reports macro
// expansions to pptrace callbacks.
//
// It only supports simple form of C preprocessor
// directives.
//
//	#define FOO body
//	#define FOO(a, b) body
//	#undef FOO
//	#include "foo.h"
//	#include <foo.h>
//	#include FOO_H
//
// It doesn't evaluate `#if` or `#ifdef`, so macros in all branches
// are reported. Each file is included at most once in a unit.
package preproc

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"time"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
	"go.chromium.org/infra/build/ddtrace/o11y/trace"
	"go.chromium.org/infra/build/ddtrace/pptrace"
)

const (
	defaultMaxIncludeDepth = 200

	// maxExpandDepth limits rescanning of nested macro expansions.
	maxExpandDepth = 64
)

// Options is options of preprocessing.
type Options struct {
	// Defines are macros defined on command line.
	// key is `NAME` or `NAME(a, b)` and value is the macro body.
	Defines map[string]string

	// IncludeDirs are include directories (search paths) in fsys.
	IncludeDirs []string

	// MaxIncludeDepth limits nesting of #include.
	// Default to 200 if zero.
	MaxIncludeDepth int
}

// Preprocessor preprocesses a translation unit.
type Preprocessor struct {
	fsys  fs.FS
	fname string
	opt   Options

	macros    map[string]*macro
	callbacks []pptrace.Callbacks
	included  map[string]bool
}

var _ pptrace.Unit = (*Preprocessor)(nil)

// New creates a preprocessor for the translation unit fname in fsys.
func New(fsys fs.FS, fname string, opt Options) *Preprocessor {
	if opt.MaxIncludeDepth <= 0 {
		opt.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	return &Preprocessor{
		fsys:     fsys,
		fname:    path.Clean(fname),
		opt:      opt,
		macros:   make(map[string]*macro),
		included: make(map[string]bool),
	}
}

// AddCallbacks installs cb. The preprocessor owns cb, and releases it
// when preprocessing finishes.
func (p *Preprocessor) AddCallbacks(cb pptrace.Callbacks) {
	p.callbacks = append(p.callbacks, cb)
}

// Preprocess preprocesses the translation unit.
// It returns error if the main file can't be read, or ctx is canceled.
func (p *Preprocessor) Preprocess(ctx context.Context) error {
	ctx, span := trace.NewSpan(ctx, "preprocess")
	var err error
	defer func() { span.Close(trace.Status(err)) }()
	defer func() {
		p.callbacks = nil
	}()

	started := time.Now()
	// keys are sorted so the same name defined twice, e.g. FOO and
	// FOO(a), resolves the same way in every run.
	for _, key := range slices.Sorted(maps.Keys(p.opt.Defines)) {
		value := p.opt.Defines[key]
		m, derr := parseDefine(tokenize([]byte(key + " " + value)))
		if derr != nil {
			clog.Warningf(ctx, "bad define %q=%q: %v", key, value, derr)
			continue
		}
		p.macros[m.name] = m
	}
	buf, err := fs.ReadFile(p.fsys, p.fname)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", p.fname, err)
	}
	err = p.process(ctx, p.fname, buf, 0)
	if dur := time.Since(started); dur > time.Second {
		clog.Infof(ctx, "slow preprocess %s %s", p.fname, dur)
	}
	return err
}

func (p *Preprocessor) process(ctx context.Context, fname string, buf []byte, depth int) error {
	p.included[fname] = true
	toks := tokenize(buf)
	for i := 0; i < len(toks); {
		tok := toks[i]
		if tok.bol {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if tok.bol && tok.Is("#") {
			end := i + 1
			for end < len(toks) && !toks[end].bol {
				end++
			}
			err := p.directive(ctx, fname, toks[i+1:end], depth)
			if err != nil {
				return err
			}
			i = end
			continue
		}
		if tok.Kind == pptrace.Ident && p.macros[tok.Text] != nil {
			pos := pptrace.Position{File: fname, Line: tok.line}
			i = p.expand(ctx, pos, toks, i, nil, 0)
			continue
		}
		i++
	}
	return nil
}

func (p *Preprocessor) directive(ctx context.Context, fname string, toks []token, depth int) error {
	if len(toks) == 0 || toks[0].Kind != pptrace.Ident {
		// null directive, or line marker.
		return nil
	}
	switch toks[0].Text {
	case "define":
		m, err := parseDefine(toks[1:])
		if err != nil {
			if log.V(1) {
				clog.Infof(ctx, "%s:%d: ignore define: %v", fname, toks[0].line, err)
			}
			return nil
		}
		if log.V(2) {
			clog.Infof(ctx, "%s:%d: define %s", fname, toks[0].line, m.name)
		}
		p.macros[m.name] = m
	case "undef":
		if len(toks) > 1 {
			delete(p.macros, toks[1].Text)
		}
	case "include", "include_next", "import":
		return p.include(ctx, fname, toks[1:], depth)
	default:
		// #if, #ifdef, #pragma etc.
		if log.V(3) {
			clog.Infof(ctx, "%s:%d: skip #%s", fname, toks[0].line, toks[0].Text)
		}
	}
	return nil
}

func (p *Preprocessor) include(ctx context.Context, fname string, toks []token, depth int) error {
	if len(toks) == 1 && toks[0].Kind == pptrace.Ident {
		// #include FOO_H
		if m := p.macros[toks[0].Text]; m != nil && !m.funcLike() {
			p.fire(ctx, pptrace.MacroExpansion{
				Name: m.name,
				Pos:  pptrace.Position{File: fname, Line: toks[0].line},
			})
			toks = m.body
		}
	}
	incname, quoted, ok := includeName(toks)
	if !ok {
		if log.V(1) {
			clog.Infof(ctx, "%s: unsupported include %q", fname, pptrace.JoinTokens(tokensOf(toks)))
		}
		return nil
	}
	incpath, ok := p.find(fname, incname, quoted)
	if !ok {
		if log.V(1) {
			clog.Infof(ctx, "%s: include %q not found", fname, incname)
		}
		return nil
	}
	if p.included[incpath] {
		return nil
	}
	if depth+1 > p.opt.MaxIncludeDepth {
		clog.Warningf(ctx, "%s: include %s too deep %d", fname, incpath, depth+1)
		return nil
	}
	buf, err := fs.ReadFile(p.fsys, incpath)
	if err != nil {
		clog.Warningf(ctx, "%s: failed to read %s: %v", fname, incpath, err)
		return nil
	}
	return p.process(ctx, incpath, buf, depth+1)
}

// includeName returns include name of `"foo.h"` or `<foo.h>`.
func includeName(toks []token) (string, bool, bool) {
	if len(toks) == 0 {
		return "", false, false
	}
	if toks[0].Kind == pptrace.String {
		s := toks[0].Text
		if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
			return "", false, false
		}
		return s[1 : len(s)-1], true, true
	}
	if !toks[0].Is("<") {
		return "", false, false
	}
	var sb strings.Builder
	for _, tok := range toks[1:] {
		if tok.Is(">") {
			return sb.String(), false, true
		}
		sb.WriteString(tok.Text)
	}
	// unclosed path.
	return "", false, false
}

// find finds incname in fsys.
// quoted include is searched in the dir of fname first.
func (p *Preprocessor) find(fname, incname string, quoted bool) (string, bool) {
	var dirs []string
	if quoted {
		dirs = append(dirs, path.Dir(fname))
	}
	dirs = append(dirs, p.opt.IncludeDirs...)
	for _, dir := range dirs {
		name := path.Clean(path.Join(dir, incname))
		if !fs.ValidPath(name) {
			continue
		}
		fi, err := fs.Stat(p.fsys, name)
		if err != nil || fi.IsDir() {
			continue
		}
		return name, true
	}
	return "", false
}

// expand reports the invocation of the macro at toks[i], and macros
// used in its expansion. It returns the index after the invocation.
// hide is the set of macros being expanded.
func (p *Preprocessor) expand(ctx context.Context, pos pptrace.Position, toks []token, i int, hide map[string]bool, depth int) int {
	m := p.macros[toks[i].Text]
	end := i + 1
	var args []token
	terminated := true
	if m.funcLike() {
		if end >= len(toks) || !toks[end].Is("(") || (toks[end].bol && toks[end].Is("#")) {
			// not invocation.
			return end
		}
		end, terminated = collectArgs(toks, i+1)
		args = toks[i+1 : end]
	}
	p.fire(ctx, pptrace.MacroExpansion{
		Name:     m.name,
		Params:   m.params,
		Variadic: m.variadic,
		Args:     tokensOf(args),
		Pos:      pos,
	})
	if !terminated || depth >= maxExpandDepth {
		return end
	}
	body := m.subst(splitArgs(args))
	nhide := make(map[string]bool, len(hide)+1)
	for k := range hide {
		nhide[k] = true
	}
	nhide[m.name] = true
	for j := 0; j < len(body); {
		tok := body[j]
		if tok.Kind == pptrace.Ident && !nhide[tok.Text] && p.macros[tok.Text] != nil {
			j = p.expand(ctx, pos, body, j, nhide, depth+1)
			continue
		}
		j++
	}
	return end
}

func (p *Preprocessor) fire(ctx context.Context, ev pptrace.MacroExpansion) {
	for _, cb := range p.callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					clog.Errorf(ctx, "%s: callback panic for %s: %v", ev.Pos, ev.Name, r)
				}
			}()
			cb.MacroExpands(ctx, ev)
		}()
	}
}

func tokensOf(toks []token) []pptrace.Token {
	if len(toks) == 0 {
		return nil
	}
	r := make([]pptrace.Token, len(toks))
	for i, tok := range toks {
		r[i] = tok.Token
	}
	return r
}
