// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"context"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
)

// MacroTracker records macro expansions as CallbackCalls.
// It is owned by the preprocessor it is installed into, and
// appends to the calls of the Action that created it.
type MacroTracker struct {
	ignore IgnoreSet
	calls  *[]CallbackCall
}

var _ Callbacks = (*MacroTracker)(nil)

// MacroExpands records ev unless its macro is ignored.
func (t *MacroTracker) MacroExpands(ctx context.Context, ev MacroExpansion) {
	if t.ignore.Contains(ev.Name) {
		if log.V(3) {
			clog.Infof(ctx, "ignore %s at %s", ev.Name, ev.Pos)
		}
		return
	}
	args, ok := ParseArguments(ev)
	if !ok {
		// record what was parsed.
		// tracing must not stop preprocessing.
		clog.Warningf(ctx, "malformed invocation of %s at %s: %q", ev.Name, ev.Pos, JoinTokens(ev.Args))
	}
	call := CallbackCall{
		Name:      ev.Name,
		Arguments: args,
	}
	if log.V(1) {
		clog.Infof(ctx, "%s: %s", ev.Pos, call)
	}
	*t.calls = append(*t.calls, call)
}
