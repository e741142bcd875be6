// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides shell command line utilities.
package shutil

import (
	"errors"
	"fmt"
	"strings"
)

var errUnterminated = errors.New("unterminated")

// Split splits a command line of a compile command.
// It handles single quotes, double quotes and backslash escapes,
// and returns error for command line using shell features
// such as pipe, redirect, variable or env overrides.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	// inArg is true if sb holds an argument, possibly empty one
	// like "".
	inArg := false
	for i := 0; i < len(cmdline); i++ {
		ch := cmdline[i]
		switch ch {
		case ' ', '\t', '\n':
			if inArg {
				args = append(args, sb.String())
				sb.Reset()
				inArg = false
			}
		case '\\':
			i++
			if i >= len(cmdline) {
				return nil, fmt.Errorf("failed to split: trailing backslash: %w", errUnterminated)
			}
			sb.WriteByte(cmdline[i])
			inArg = true
		case '\'':
			j := strings.IndexByte(cmdline[i+1:], '\'')
			if j < 0 {
				return nil, fmt.Errorf("failed to split: single quote at %d: %w", i, errUnterminated)
			}
			sb.WriteString(cmdline[i+1 : i+1+j])
			i += j + 1
			inArg = true
		case '"':
			n, err := doubleQuoted(&sb, cmdline[i+1:])
			if err != nil {
				return nil, fmt.Errorf("failed to split: double quote at %d: %w", i, err)
			}
			i += n + 1
			inArg = true
		case ';', '&', '|', '<', '>', '$', '#', '`', '(', ')':
			return nil, fmt.Errorf("failed to split: cmdline contains shell metachar %c", ch)
		default:
			sb.WriteByte(ch)
			inArg = true
		}
	}
	if inArg {
		args = append(args, sb.String())
	}
	if len(args) >= 1 && strings.Contains(args[0], "=") {
		return nil, fmt.Errorf("argv[0] is env set %q", args[0])
	}
	return args, nil
}

// doubleQuoted writes content of double quoted string s (after open quote)
// to sb, and returns index of close quote in s.
func doubleQuoted(sb *strings.Builder, s string) (int, error) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			return i, nil
		case '\\':
			if i+1 < len(s) {
				switch s[i+1] {
				case '"', '\\', '$', '`':
					i++
				}
			}
			sb.WriteByte(s[i])
		case '$', '`':
			return 0, fmt.Errorf("shell expansion %c", s[i])
		default:
			sb.WriteByte(s[i])
		}
	}
	return 0, errUnterminated
}
