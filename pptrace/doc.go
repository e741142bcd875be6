// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package pptrace traces dependency declarations in preprocessing.
//
// Dependencies are declared by invoking a tracked macro, e.g.
//
//	#define DD_DEPENDS(MainFile, File)
//	DD_DEPENDS("foo.c", "foo.h")
//
// or with named arguments
//
//	DD_DEPENDS(MainFile = "foo.c", File = "foo.h")
//
// MacroTracker is installed into a translation unit's preprocessor and
// records each macro expansion whose name is not in the IgnoreSet as a
// CallbackCall. After preprocessing, OutputItems maps the recorded calls
// to Items using the `MainFile` and `File` arguments.
//
// An Action scopes the recorded calls to a single translation unit.
// Use a new Action for each unit, or TraceUnit which does it for you.
package pptrace
