// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"fmt"
	"strings"
)

// Argument is a name/value pair of a macro invocation.
type Argument struct {
	Name  string
	Value string
}

func (a Argument) String() string {
	return fmt.Sprintf("%s=%q", a.Name, a.Value)
}

// CallbackCall is a recorded macro invocation.
// It must not be mutated once recorded.
type CallbackCall struct {
	// Name is the invoked macro name.
	Name string

	// Arguments are the invocation's arguments in source order.
	// The same name may appear more than once.
	Arguments []Argument
}

func (c CallbackCall) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte('(')
	for i, arg := range c.Arguments {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
