// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package preproc

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/ddtrace/pptrace"
)

// recorder records macro expansions as `name args` at position.
type recorder struct {
	events []string
}

func (r *recorder) MacroExpands(ctx context.Context, ev pptrace.MacroExpansion) {
	s := ev.Pos.String() + " " + ev.Name
	if len(ev.Args) > 0 {
		s += " " + pptrace.JoinTokens(ev.Args)
	}
	r.events = append(r.events, s)
}

func TestPreprocess(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		fsys fstest.MapFS
		opt  Options
		want []string
	}{
		{
			name: "funclike",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define DD_DEPENDS(MainFile, File)
DD_DEPENDS("foo.c", "foo.h")
int DD_DEPENDS;
DD_DEPENDS(
  "foo.c",
  "bar.h")
`)},
			},
			want: []string{
				`foo.c:3 DD_DEPENDS ("foo.c", "foo.h")`,
				`foo.c:5 DD_DEPENDS ( "foo.c", "bar.h")`,
			},
		},
		{
			name: "objlike-and-undef",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define VERSION 3
int v = VERSION;
#undef VERSION
int w = VERSION;
`)},
			},
			want: []string{
				"foo.c:3 VERSION",
			},
		},
		{
			name: "nested",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define DEP(f) DD_DEPENDS(MainFile = "foo.c", File = f)
#define DD_DEPENDS(...)
DEP("a.h")
`)},
			},
			want: []string{
				`foo.c:4 DEP ("a.h")`,
				`foo.c:4 DD_DEPENDS (MainFile = "foo.c", File = "a.h")`,
			},
		},
		{
			name: "recursive",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define A B
#define B A
A
`)},
			},
			want: []string{
				"foo.c:4 A",
				"foo.c:4 B",
			},
		},
		{
			name: "include",
			fsys: fstest.MapFS{
				"src/foo.c": {Data: []byte(`
#include "foo.h"
#include <base/deps.h>
#include "foo.h"
#include "missing.h"
DEPS(foo)
`)},
				"src/foo.h": {Data: []byte(`
DEPS(foo_h)
`)},
				"include/base/deps.h": {Data: []byte(`
#define DEPS(x) x
`)},
			},
			opt: Options{
				IncludeDirs: []string{"include"},
			},
			want: []string{
				"src/foo.c:6 DEPS (foo)",
			},
		},
		{
			name: "include-macro",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define CONFIG_H "config.h"
#include CONFIG_H
`)},
				"config.h": {Data: []byte(`
#define TRACE(x)
TRACE(1)
`)},
			},
			want: []string{
				"foo.c:3 CONFIG_H",
				"config.h:3 TRACE (1)",
			},
		},
		{
			name: "cmdline-defines",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
DD(MainFile = "foo.c", File = "x.h")
FEATURE
`)},
			},
			opt: Options{
				Defines: map[string]string{
					"DD(...)": "",
					"FEATURE": "1",
				},
			},
			want: []string{
				`foo.c:2 DD (MainFile = "foo.c", File = "x.h")`,
				"foo.c:3 FEATURE",
			},
		},
		{
			name: "all-branches",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define DD(f)
#ifdef NDEBUG
DD("release.h")
#else
DD("debug.h")
#endif
`)},
			},
			want: []string{
				`foo.c:4 DD ("release.h")`,
				`foo.c:6 DD ("debug.h")`,
			},
		},
		{
			name: "unterminated",
			fsys: fstest.MapFS{
				"foo.c": {Data: []byte(`
#define DD(f)
DD("a.h", (
#define X
X
`)},
			},
			want: []string{
				`foo.c:3 DD ("a.h", (`,
				"foo.c:5 X",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := "foo.c"
			if _, ok := tc.fsys["src/foo.c"]; ok {
				fname = "src/foo.c"
			}
			p := New(tc.fsys, fname, tc.opt)
			r := &recorder{}
			p.AddCallbacks(r)
			err := p.Preprocess(ctx)
			if err != nil {
				t.Fatalf("Preprocess()=%v; want nil", err)
			}
			if diff := cmp.Diff(tc.want, r.events); diff != "" {
				t.Errorf("events -want +got:\n%s", diff)
			}
			if len(p.callbacks) != 0 {
				t.Errorf("callbacks are not released after Preprocess")
			}
		})
	}
}

func TestPreprocessParams(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"foo.c": {Data: []byte(`
#define F0() x
#define F2(a, b) x
#define FV(a, ...) x
#define FN(args...) x
#define O x
F0() F2(1, 2) FV(1, 2, 3) FN(1) O
`)},
	}
	var got []pptrace.MacroExpansion
	p := New(fsys, "foo.c", Options{})
	p.AddCallbacks(callbackFunc(func(ctx context.Context, ev pptrace.MacroExpansion) {
		ev.Args = nil
		got = append(got, ev)
	}))
	err := p.Preprocess(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pos := pptrace.Position{File: "foo.c", Line: 7}
	want := []pptrace.MacroExpansion{
		{Name: "F0", Params: []string{}, Pos: pos},
		{Name: "F2", Params: []string{"a", "b"}, Pos: pos},
		{Name: "FV", Params: []string{"a"}, Variadic: true, Pos: pos},
		{Name: "FN", Params: []string{"args"}, Variadic: true, Pos: pos},
		{Name: "O", Pos: pos},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events -want +got:\n%s", diff)
	}
}

func TestPreprocessDefinesOrder(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"foo.c": {Data: []byte("FOO(1)\n")},
	}
	opt := Options{
		Defines: map[string]string{
			"FOO":    "1",
			"FOO(a)": "a",
			"BAR":    "2",
		},
	}
	for i := range 10 {
		var got []pptrace.MacroExpansion
		p := New(fsys, "foo.c", opt)
		p.AddCallbacks(callbackFunc(func(ctx context.Context, ev pptrace.MacroExpansion) {
			ev.Args = nil
			got = append(got, ev)
		}))
		err := p.Preprocess(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := []pptrace.MacroExpansion{
			{Name: "FOO", Params: []string{"a"}, Pos: pptrace.Position{File: "foo.c", Line: 1}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("run %d: events -want +got:\n%s", i, diff)
		}
	}
}

type callbackFunc func(context.Context, pptrace.MacroExpansion)

func (f callbackFunc) MacroExpands(ctx context.Context, ev pptrace.MacroExpansion) {
	f(ctx, ev)
}

func TestPreprocessPanicCallback(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"foo.c": {Data: []byte("#define A\nA\nA\n")},
	}
	p := New(fsys, "foo.c", Options{})
	p.AddCallbacks(callbackFunc(func(context.Context, pptrace.MacroExpansion) {
		panic("boom")
	}))
	r := &recorder{}
	p.AddCallbacks(r)
	err := p.Preprocess(ctx)
	if err != nil {
		t.Fatalf("Preprocess()=%v; want nil", err)
	}
	if len(r.events) != 2 {
		t.Errorf("events=%q; want 2 events", r.events)
	}
}

func TestPreprocessErrors(t *testing.T) {
	ctx := context.Background()
	p := New(fstest.MapFS{}, "missing.c", Options{})
	err := p.Preprocess(ctx)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Preprocess(missing)=%v; want %v", err, fs.ErrNotExist)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	p = New(fstest.MapFS{
		"foo.c": {Data: []byte("#define A\nA\n")},
	}, "foo.c", Options{})
	r := &recorder{}
	p.AddCallbacks(r)
	err = p.Preprocess(cctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Preprocess(canceled)=%v; want %v", err, context.Canceled)
	}
	if len(r.events) != 0 {
		t.Errorf("events=%q; want none", r.events)
	}
}
