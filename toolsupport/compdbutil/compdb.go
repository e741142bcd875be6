// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdbutil provides utilities of JSON compilation database,
// i.e. compile_commands.json.
// https://clang.llvm.org/docs/JSONCompilationDatabase.html
package compdbutil

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/ddtrace/toolsupport/gccutil"
)

// DefaultFile is the default filename of compilation database.
const DefaultFile = "compile_commands.json"

// Command is an entry of compilation database.
type Command struct {
	// Directory is the working directory of the compilation.
	Directory string `json:"directory"`
	// File is the main translation unit source of the compilation.
	File string `json:"file"`
	// Arguments is the compile command as list of strings.
	Arguments []string `json:"arguments,omitempty"`
	// Command is the compile command as a shell-escaped string.
	// Used if Arguments is empty.
	Command string `json:"command,omitempty"`
	// Output is the name of the output of the compilation.
	Output string `json:"output,omitempty"`
}

// Load loads compilation database fname in fsys.
func Load(fsys fs.FS, fname string) ([]Command, error) {
	buf, err := fs.ReadFile(fsys, fname)
	if err != nil {
		return nil, err
	}
	var cmds []Command
	err = json.Unmarshal(buf, &cmds)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fname, err)
	}
	for i, cmd := range cmds {
		if cmd.File == "" {
			return nil, fmt.Errorf("%s: entry %d: no file", fname, i)
		}
		if len(cmd.Arguments) == 0 && cmd.Command == "" {
			return nil, fmt.Errorf("%s: entry %d %s: no arguments nor command", fname, i, cmd.File)
		}
	}
	return cmds, nil
}

// Args returns command line args of the command.
func (c Command) Args() ([]string, error) {
	if len(c.Arguments) > 0 {
		return c.Arguments, nil
	}
	return splitCommand(c.Command)
}

// Unit is a translation unit described by a command,
// with paths relative to a root dir.
type Unit struct {
	// Source is the slash-separated path of the source.
	Source string
	// IncludeDirs are slash-separated include directories.
	IncludeDirs []string
	// Defines are macros defined in the command.
	Defines map[string]string
}

// Unit returns the translation unit of the command,
// converting paths to relative to root.
// root must be an absolute path.
func (c Command) Unit(root string) (Unit, error) {
	args, err := c.Args()
	if err != nil {
		return Unit{}, fmt.Errorf("%s: %w", c.File, err)
	}
	params := gccutil.ParseParams(args)
	src, err := relPath(root, c.Directory, c.File)
	if err != nil {
		return Unit{}, err
	}
	u := Unit{
		Source:  src,
		Defines: params.Defines,
	}
	for _, dir := range params.IncludeDirs {
		d, err := relPath(root, c.Directory, dir)
		if err != nil {
			// include dirs out of root can't be read.
			continue
		}
		u.IncludeDirs = append(u.IncludeDirs, d)
	}
	return u, nil
}

func relPath(root, dir, fname string) (string, error) {
	if !filepath.IsAbs(fname) {
		fname = filepath.Join(dir, fname)
	}
	if !filepath.IsAbs(fname) {
		// relative directory is relative to root.
		fname = filepath.Join(root, fname)
	}
	rel, err := filepath.Rel(root, fname)
	if err != nil {
		return "", err
	}
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is out of %s", fname, root)
	}
	return rel, nil
}
