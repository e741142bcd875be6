// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gccutil provides utilities of gcc/clang command line.
package gccutil

import (
	"path/filepath"
	"strings"
)

// Params are preprocessor parameters of a compile command.
type Params struct {
	// Files are source files in the command.
	Files []string
	// IncludeDirs are include directories in the order of flags.
	IncludeDirs []string
	// Defines are macros defined by -D. key is macro name
	// (with params for function-like macro) and value is macro body.
	Defines map[string]string
}

// ParseParams parses compile command args and returns preprocessor params.
// It only parses major command line flags of gcc, clang and clang-cl.
// full set of command line flags for include dirs can be found in
// https://clang.llvm.org/docs/ClangCommandLineReference.html#include-path-management
func ParseParams(args []string) Params {
	p := Params{
		Defines: make(map[string]string),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-I", "--include-directory", "-isystem", "-iquote", "-idirafter", "-imsvc", "/I":
			i++
			if i < len(args) {
				p.IncludeDirs = append(p.IncludeDirs, args[i])
			}
			continue
		case "-D", "/D":
			i++
			if i < len(args) {
				p.define(args[i])
			}
			continue
		case "-U", "/U":
			i++
			if i < len(args) {
				delete(p.Defines, args[i])
			}
			continue
		case "-o", "-MF", "-MT", "-MQ", "-x":
			// skip flag value that might look like a source.
			i++
			continue
		}
		switch {
		case strings.HasPrefix(arg, "--include-directory="):
			p.IncludeDirs = append(p.IncludeDirs, strings.TrimPrefix(arg, "--include-directory="))
		case strings.HasPrefix(arg, "-isystem"):
			p.IncludeDirs = append(p.IncludeDirs, strings.TrimPrefix(arg, "-isystem"))
		case strings.HasPrefix(arg, "-iquote"):
			p.IncludeDirs = append(p.IncludeDirs, strings.TrimPrefix(arg, "-iquote"))
		case strings.HasPrefix(arg, "-imsvc"):
			p.IncludeDirs = append(p.IncludeDirs, strings.TrimPrefix(arg, "-imsvc"))
		case strings.HasPrefix(arg, "-I"), strings.HasPrefix(arg, "/I"):
			p.IncludeDirs = append(p.IncludeDirs, arg[2:])
		case strings.HasPrefix(arg, "-D"), strings.HasPrefix(arg, "/D"):
			p.define(arg[2:])
		case strings.HasPrefix(arg, "-U"), strings.HasPrefix(arg, "/U"):
			delete(p.Defines, arg[2:])
		case strings.HasPrefix(arg, "-"):
		default:
			switch filepath.Ext(arg) {
			case ".c", ".cc", ".cxx", ".cpp", ".m", ".mm", ".S":
				p.Files = append(p.Files, arg)
			}
		}
	}
	return p
}

// define handles -D arg: `NAME`, `NAME=` or `NAME=value`.
func (p Params) define(arg string) {
	name, value, ok := strings.Cut(arg, "=")
	if name == "" {
		return
	}
	if !ok {
		// `-D NAME` defines NAME as 1.
		value = "1"
	}
	p.Defines[name] = value
}
