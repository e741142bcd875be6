// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package iometrics

import "io/fs"

// FS is fs.FS that counts I/O operations in IOMetrics.
type FS struct {
	fsys fs.FS
	m    *IOMetrics
}

var (
	_ fs.StatFS     = FS{}
	_ fs.ReadFileFS = FS{}
)

// NewFS returns fs.FS that counts I/O operations on fsys in m.
func NewFS(fsys fs.FS, m *IOMetrics) FS {
	return FS{fsys: fsys, m: m}
}

// Open opens name.
func (f FS) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	f.m.OpsDone(err)
	return file, err
}

// Stat returns fs.FileInfo of name.
func (f FS) Stat(name string) (fs.FileInfo, error) {
	fi, err := fs.Stat(f.fsys, name)
	f.m.OpsDone(err)
	return fi, err
}

// ReadFile reads name and returns its contents.
func (f FS) ReadFile(name string) ([]byte, error) {
	buf, err := fs.ReadFile(f.fsys, name)
	f.m.ReadDone(len(buf), err)
	return buf, err
}
