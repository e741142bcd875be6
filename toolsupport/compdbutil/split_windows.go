// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build windows

package compdbutil

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

// splitCommand splits command in Windows command line syntax,
// as compilation databases generated on Windows use it.
func splitCommand(command string) ([]string, error) {
	var argc int32
	cmdPtr, err := windows.UTF16PtrFromString(command)
	if err != nil {
		return nil, err
	}
	argv, err := windows.CommandLineToArgv(cmdPtr, &argc)
	if err != nil {
		return nil, err
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(argv)))
	args := make([]string, 0, argc)
	for _, v := range (*argv)[:argc] {
		// v points [8192]uint16, but an arg may be longer.
		args = append(args, windows.UTF16ToString(unsafe.Slice(&v[0], len(command))))
	}
	runtime.KeepAlive(cmdPtr)
	return args, nil
}
