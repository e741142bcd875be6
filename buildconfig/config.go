// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildconfig provides config for `ddtrace trace`.
//
// Config is a Starlark file that sets the following globals.
//
//	# macros that never produce dependency items.
//	ignore = ["assert", "CHECK"]
//
//	# macros defined as if on command line.
//	defines = {
//	    "DD_DEPENDS(MainFile, File)": "",
//	}
//
//	# include directories.
//	include_dirs = ["include"]
//
// `runtime` module (os, arch, num_cpu) is predeclared.
package buildconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"go.chromium.org/infra/build/ddtrace/pptrace"
	"go.chromium.org/infra/build/ddtrace/preproc"
)

// DefaultFile is the config file used if no config file is specified.
const DefaultFile = ".ddtrace.star"

const (
	globalIgnore      = "ignore"
	globalDefines     = "defines"
	globalIncludeDirs = "include_dirs"
)

// Config is a tracing config.
type Config struct {
	// Ignore are macro names not to trace.
	Ignore []string

	// Defines are macros defined before each unit.
	Defines map[string]string

	// IncludeDirs are include directories.
	IncludeDirs []string
}

// Load loads config from fname in fsys.
// If fname is empty, it loads DefaultFile and returns empty config
// if DefaultFile doesn't exist.
func Load(ctx context.Context, fsys fs.FS, fname string) (*Config, error) {
	missingOK := false
	if fname == "" {
		fname = DefaultFile
		missingOK = true
	}
	src, err := fs.ReadFile(fsys, fname)
	if errors.Is(err, fs.ErrNotExist) && missingOK {
		log.Infof("no config %s", fname)
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	thread := &starlark.Thread{
		Name: "load",
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
	}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{TopLevelControl: true}, thread, fname, src, builtinModule())
	if err != nil {
		log.Warnf("thread:%s failed to exec file %s: %v", thread.Name, fname, err)
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, fmt.Errorf("load config %s: %w", fname, err)
	}
	cfg := &Config{}
	if v, ok := globals[globalIgnore]; ok {
		cfg.Ignore, err = unpackList(v)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", globalIgnore, fname, err)
		}
	}
	if v, ok := globals[globalDefines]; ok {
		cfg.Defines, err = unpackDict(v)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", globalDefines, fname, err)
		}
	}
	if v, ok := globals[globalIncludeDirs]; ok {
		cfg.IncludeDirs, err = unpackList(v)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", globalIncludeDirs, fname, err)
		}
	}
	log.Infof("config %s: ignore=%q defines=%d include_dirs=%q", fname, cfg.Ignore, len(cfg.Defines), cfg.IncludeDirs)
	return cfg, nil
}

// Merge merges flag values into cfg.
// Defines in flags override ones in cfg.
func (cfg *Config) Merge(ignore []string, defines map[string]string, includeDirs []string) {
	cfg.Ignore = append(cfg.Ignore, ignore...)
	if len(defines) > 0 {
		if cfg.Defines == nil {
			cfg.Defines = make(map[string]string)
		}
		maps.Copy(cfg.Defines, defines)
	}
	cfg.IncludeDirs = append(cfg.IncludeDirs, includeDirs...)
}

// IgnoreSet returns ignore set of the config.
func (cfg *Config) IgnoreSet() pptrace.IgnoreSet {
	return pptrace.NewIgnoreSet(cfg.Ignore...)
}

// Options returns preprocessor options of the config.
func (cfg *Config) Options() preproc.Options {
	return preproc.Options{
		Defines:     maps.Clone(cfg.Defines),
		IncludeDirs: slices.Clone(cfg.IncludeDirs),
	}
}
