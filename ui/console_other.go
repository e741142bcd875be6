// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package ui

import "os"

// Init initializes console of f. No-op except on windows.
func Init(f *os.File) {}

// Restore restores console of f. No-op except on windows.
func Restore(f *os.File) {}
