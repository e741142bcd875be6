// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Ddtrace extracts dependency declarations from C/C++ translation units
// by observing macro expansions during preprocessing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	log "github.com/golang/glog"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/ddtrace/o11y/clog"
	"go.chromium.org/infra/build/ddtrace/subcmd/help"
	"go.chromium.org/infra/build/ddtrace/subcmd/tracecmd"
	"go.chromium.org/infra/build/ddtrace/subcmd/version"
)

const ddtraceVersion = "v0.1.0"

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "ddtrace",
		Title: "Dependency declaration tracer",
		Context: func(ctx context.Context) context.Context {
			return clog.NewContext(ctx, clog.New(ctx))
		},
		Commands: []*subcommands.Command{
			tracecmd.Cmd(),
			version.Cmd(ddtraceVersion),
			help.Cmd(),
		},
		EnvVars: map[string]subcommands.EnvVarDefinition{
			"DDTRACE_CONFIG": {
				ShortDesc: "default config file for trace subcommand",
			},
		},
	}
}

func main() {
	os.Exit(ddtraceMain())
}

func ddtraceMain() int {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer signals.HandleInterrupt(cancel)()

	// Flush the log on exit to not lose any messages.
	defer log.Flush()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	// Print build information to the log.
	buildinfo, ok := debug.ReadBuildInfo()
	if ok {
		log.Infof("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
		if log.V(1) {
			for _, m := range buildinfo.Deps {
				log.Infof("deps module: %s", moduleInfo(m))
			}
		}
	}

	app := getApplication()
	app.Context = withCancel(ctx, app.Context)
	return subcommands.Run(app, flag.Args())
}

// withCancel makes the application context derived from ctx, so
// interrupt cancels running subcommands.
func withCancel(ctx context.Context, f func(context.Context) context.Context) func(context.Context) context.Context {
	return func(context.Context) context.Context {
		return f(ctx)
	}
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
