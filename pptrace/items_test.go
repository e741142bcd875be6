// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOutputItems(t *testing.T) {
	for _, tc := range []struct {
		name  string
		calls []CallbackCall
		want  []Item
	}{
		{
			name: "empty",
		},
		{
			name: "simple",
			calls: []CallbackCall{
				{
					Name: "DD_DEPENDS",
					Arguments: []Argument{
						{Name: "MainFile", Value: "a.c"},
						{Name: "File", Value: "b.h"},
					},
				},
			},
			want: []Item{
				{FilePath: "a.c", Dependency: "b.h"},
			},
		},
		{
			name: "last-write-wins",
			calls: []CallbackCall{
				{
					Arguments: []Argument{
						{Name: "File", Value: "b.h"},
						{Name: "File", Value: "c.h"},
					},
				},
			},
			want: []Item{
				{Dependency: "c.h"},
			},
		},
		{
			name: "no-arguments",
			calls: []CallbackCall{
				{Name: "FOO"},
			},
			want: []Item{
				{},
			},
		},
		{
			name: "order-and-cardinality",
			calls: []CallbackCall{
				{Arguments: []Argument{{Name: "MainFile", Value: "x.c"}, {Name: "File", Value: "1.h"}}},
				{Arguments: []Argument{{Name: "Other", Value: "v"}}},
				{Arguments: []Argument{{Name: "MainFile", Value: "x.c"}, {Name: "File", Value: "1.h"}}},
				{Arguments: []Argument{{Name: "MainFile", Value: "y.c"}, {Name: "MainFile", Value: "z.c"}}},
			},
			want: []Item{
				{FilePath: "x.c", Dependency: "1.h"},
				{},
				{FilePath: "x.c", Dependency: "1.h"},
				{FilePath: "z.c"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := OutputItems(tc.calls)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("OutputItems -want +got:\n%s", diff)
			}
			again := OutputItems(tc.calls)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("OutputItems is not idempotent -first +second:\n%s", diff)
			}
		})
	}
}

func TestIgnoreSet(t *testing.T) {
	s := NewIgnoreSet("assert", "", "DD_INTERNAL", "assert")
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"assert", true},
		{"DD_INTERNAL", true},
		{"DD_DEPENDS", false},
		{"", false},
	} {
		if got := s.Contains(tc.name); got != tc.want {
			t.Errorf("Contains(%q)=%t; want %t", tc.name, got, tc.want)
		}
	}
	if diff := cmp.Diff([]string{"DD_INTERNAL", "assert"}, s.Names()); diff != "" {
		t.Errorf("Names -want +got:\n%s", diff)
	}
	if s.Len() != 2 {
		t.Errorf("Len=%d; want 2", s.Len())
	}
	var zero IgnoreSet
	if zero.Contains("assert") {
		t.Errorf("zero IgnoreSet contains assert")
	}
}
