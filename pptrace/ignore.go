// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import "sort"

// IgnoreSet is a set of macro names excluded from tracing.
// It is read-only once created.
type IgnoreSet struct {
	m map[string]struct{}
}

// NewIgnoreSet creates an IgnoreSet for names.
func NewIgnoreSet(names ...string) IgnoreSet {
	m := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		m[name] = struct{}{}
	}
	return IgnoreSet{m: m}
}

// Contains reports whether name is ignored.
func (s IgnoreSet) Contains(name string) bool {
	_, ok := s.m[name]
	return ok
}

// Len returns number of ignored names.
func (s IgnoreSet) Len() int {
	return len(s.m)
}

// Names returns ignored names in sorted order.
func (s IgnoreSet) Names() []string {
	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
