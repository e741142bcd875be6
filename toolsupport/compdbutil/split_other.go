// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package compdbutil

import "go.chromium.org/infra/build/ddtrace/toolsupport/shutil"

// splitCommand splits command in shell syntax.
func splitCommand(command string) ([]string, error) {
	return shutil.Split(command)
}
