// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/ddtrace/o11y/trace"
	"go.chromium.org/infra/build/ddtrace/pptrace"
	"go.chromium.org/infra/build/ddtrace/preproc"
)

func TestTraceUnit(t *testing.T) {
	ctx := context.Background()
	tc := trace.New(ctx, "")
	ctx = trace.NewContext(ctx, tc)

	fsys := fstest.MapFS{
		"src/foo.c": {Data: []byte(`
#include "dd.h"
#include "foo.h"

DD_DEPENDS("src/foo.c", "src/foo.h")
DD_DEPENDS(File = "base/logging.h", MainFile = "src/foo.c")
assert(sizeof(int) == 4);
`)},
		"src/foo.h": {Data: []byte(`
#define FOO_DEP(f) DD_DEPENDS(MainFile = "src/foo.h", File = f)
FOO_DEP("src/bar.h")
`)},
		"src/dd.h": {Data: []byte(`
#define DD_DEPENDS(MainFile, File)
#define assert(x) ((void)(x))
`)},
	}
	unit := preproc.New(fsys, "src/foo.c", preproc.Options{})
	items, err := pptrace.TraceUnit(ctx, pptrace.NewIgnoreSet("assert", "FOO_DEP"), unit)
	if err != nil {
		t.Fatalf("TraceUnit=%v; want nil", err)
	}
	want := []pptrace.Item{
		{FilePath: "src/foo.h", Dependency: "src/bar.h"},
		{FilePath: "src/foo.c", Dependency: "src/foo.h"},
		{FilePath: "src/foo.c", Dependency: "base/logging.h"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("TraceUnit -want +got:\n%s", diff)
	}

	var names []string
	for _, sd := range tc.Spans() {
		names = append(names, sd.Name)
	}
	if diff := cmp.Diff([]string{"pptrace-unit", "preprocess"}, names); diff != "" {
		t.Errorf("spans -want +got:\n%s", diff)
	}
}

func TestTraceUnitCxxLiterals(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{
		"a.c": {Data: []byte(`#define DD_DEPENDS(MainFile, File)
int x = 1'000; DD_DEPENDS("a.c", "b.h")
const char* s = R"(a"b)"; DD_DEPENDS("a.c", "c.h")
`)},
	}
	unit := preproc.New(fsys, "a.c", preproc.Options{})
	items, err := pptrace.TraceUnit(ctx, pptrace.NewIgnoreSet(), unit)
	if err != nil {
		t.Fatalf("TraceUnit=%v; want nil", err)
	}
	want := []pptrace.Item{
		{FilePath: "a.c", Dependency: "b.h"},
		{FilePath: "a.c", Dependency: "c.h"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("TraceUnit -want +got:\n%s", diff)
	}
}
