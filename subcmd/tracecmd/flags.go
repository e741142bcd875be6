// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package tracecmd

import (
	"fmt"
	"sort"
	"strings"
)

// defineFlag is -D flag.
type defineFlag map[string]string

func (f defineFlag) String() string {
	var defs []string
	for k, v := range f {
		defs = append(defs, k+"="+v)
	}
	sort.Strings(defs)
	return strings.Join(defs, " ")
}

// Set sets a define.
// NAME defines NAME as 1 as compilers do.
func (f defineFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if name == "" {
		return fmt.Errorf("empty macro name in %q", s)
	}
	if !ok {
		value = "1"
	}
	f[name] = value
	return nil
}

// stringsFlag is a repeatable string flag.
type stringsFlag []string

func (f *stringsFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *stringsFlag) Set(s string) error {
	*f = append(*f, s)
	return nil
}
