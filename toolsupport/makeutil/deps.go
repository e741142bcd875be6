// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makeutil provides utilities for make style depfiles.
package makeutil

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"

	log "github.com/golang/glog"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
	"go.chromium.org/infra/build/ddtrace/pptrace"
)

// ParseDepsFile parses *.d file in fname on fsys.
func ParseDepsFile(ctx context.Context, fsys fs.FS, fname string) ([]string, error) {
	if fname == "" {
		return nil, nil
	}
	b, err := fs.ReadFile(fsys, fname)
	if err != nil {
		return nil, err
	}
	deps := ParseDeps(b)
	if log.V(1) {
		clog.Infof(ctx, "deps %s => %s", fname, deps)
	}
	return deps, nil
}

// ParseDeps parses deps and returns a list of inputs of all rules.
func ParseDeps(b []byte) []string {
	// deps contents
	// <output>: <input> ...
	// <input> is space separated
	// '\'+newline is space
	// '\'+space is escaped space (not separator)
	var inputs []string
	for len(b) > 0 {
		i := bytes.IndexByte(b, ':')
		if i < 0 {
			break
		}
		var rule []byte
		rule, b = ruleInputs(b[i+1:])
		var token string
		for s := rule; len(s) > 0; {
			token, s = nextToken(s)
			if token != "" {
				inputs = append(inputs, token)
			}
		}
	}
	return inputs
}

// ruleInputs returns inputs part of the rule, up to unescaped newline,
// and the rest.
func ruleInputs(b []byte) ([]byte, []byte) {
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\\':
			if i+2 < len(b) && b[i+1] == '\r' && b[i+2] == '\n' {
				i += 2
				continue
			}
			i++
		case '\n':
			return b[:i], b[i+1:]
		}
	}
	return b, nil
}

func nextToken(s []byte) (string, []byte) {
	var sb strings.Builder
	// skip spaces
skipSpaces:
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '\n' {
			i++
			continue
		}
		if s[i] == '\\' && i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n' {
			i += 2
			continue
		}
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			s = s[i:]
			break skipSpaces
		}
	}
	// extract next space not escaped
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case ' ':
				sb.WriteByte(s[i])
			case '\r', '\n':
				// '\'+newline is space
				return sb.String(), s[i+1:]
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
			continue
		}
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			return sb.String(), s[i+1:]
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), nil
}

// FormatDeps writes items as depfile rules to w.
//
//	<file_path>: <dependency> ...
//
// Rules are in the order of first appearance of each file path.
// Items with empty file path are rules of target, and items with
// empty dependency are skipped.
func FormatDeps(w io.Writer, target string, items []pptrace.Item) error {
	var order []string
	deps := make(map[string][]string)
	for _, item := range items {
		if item.Dependency == "" {
			continue
		}
		fpath := item.FilePath
		if fpath == "" {
			fpath = target
		}
		if _, ok := deps[fpath]; !ok {
			order = append(order, fpath)
		}
		deps[fpath] = append(deps[fpath], item.Dependency)
	}
	bw := bufio.NewWriter(w)
	for _, fpath := range order {
		bw.WriteString(escape(fpath))
		bw.WriteString(":")
		for _, dep := range deps[fpath] {
			bw.WriteString(" ")
			bw.WriteString(escape(dep))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func escape(s string) string {
	return strings.ReplaceAll(s, " ", `\ `)
}
