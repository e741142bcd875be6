// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package pptrace

import (
	"context"
	"errors"
	"fmt"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
	"go.chromium.org/infra/build/ddtrace/o11y/trace"
)

// ErrActionReused is returned when an Action is installed into
// more than one translation unit.
var ErrActionReused = errors.New("pptrace: action already installed")

// Action is a tracing session for a translation unit.
// It holds the IgnoreSet and the recorded CallbackCalls.
//
// An Action is not safe for concurrent use. Use separate Actions
// to trace translation units in parallel.
type Action struct {
	ignore    IgnoreSet
	calls     []CallbackCall
	installed bool
	closed    bool
}

// NewAction creates a new Action that ignores macros in ignore.
func NewAction(ignore IgnoreSet) *Action {
	return &Action{ignore: ignore}
}

// Install installs a MacroTracker into pp.
// pp takes ownership of the tracker.
// It returns ErrActionReused if the action was already installed.
func (a *Action) Install(pp Preprocessor) error {
	if a.closed {
		return fmt.Errorf("install to closed action: %w", ErrActionReused)
	}
	if a.installed {
		return ErrActionReused
	}
	a.installed = true
	pp.AddCallbacks(&MacroTracker{
		ignore: a.ignore,
		calls:  &a.calls,
	})
	return nil
}

// CallbackCalls returns the recorded calls.
// It is a partial result until the unit's preprocessing finishes.
func (a *Action) CallbackCalls() []CallbackCall {
	if len(a.calls) == 0 {
		return nil
	}
	calls := make([]CallbackCall, len(a.calls))
	copy(calls, a.calls)
	return calls
}

// Items returns dependency items for the recorded calls.
func (a *Action) Items() []Item {
	return OutputItems(a.calls)
}

// Close releases the recorded calls.
// The action can't be used for other units after Close.
func (a *Action) Close() {
	a.calls = nil
	a.closed = true
}

// TraceUnit preprocesses unit with a new Action for ignore, and
// returns dependency items of the unit.
// If preprocessing fails or ctx is canceled, the recorded calls are
// discarded and it returns the error.
func TraceUnit(ctx context.Context, ignore IgnoreSet, unit Unit) (items []Item, err error) {
	ctx, span := trace.NewSpan(ctx, "pptrace-unit")
	defer func() { span.Close(trace.Status(err)) }()

	a := NewAction(ignore)
	defer a.Close()
	err = a.Install(unit)
	if err != nil {
		return nil, err
	}
	err = unit.Preprocess(ctx)
	if err == nil {
		err = context.Cause(ctx)
	}
	if err != nil {
		clog.Warningf(ctx, "discard %d calls: %v", len(a.calls), err)
		return nil, err
	}
	items = a.Items()
	span.SetAttr("calls", len(a.calls))
	span.SetAttr("items", len(items))
	return items, nil
}
