// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package tracecmd is trace subcommand to extract dependency items
// declared by macros in C/C++ translation units.
package tracecmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/maruel/subcommands"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/ddtrace/buildconfig"
	"go.chromium.org/infra/build/ddtrace/o11y/clog"
	"go.chromium.org/infra/build/ddtrace/o11y/iometrics"
	"go.chromium.org/infra/build/ddtrace/o11y/trace"
	"go.chromium.org/infra/build/ddtrace/pptrace"
	"go.chromium.org/infra/build/ddtrace/preproc"
	"go.chromium.org/infra/build/ddtrace/sync/semaphore"
	"go.chromium.org/infra/build/ddtrace/toolsupport/compdbutil"
	"go.chromium.org/infra/build/ddtrace/toolsupport/makeutil"
	"go.chromium.org/infra/build/ddtrace/toolsupport/shutil"
	"go.chromium.org/infra/build/ddtrace/ui"
)

const usage = `trace dependency declarations of translation units

 $ ddtrace trace -C <dir> [-config <file>] [-ignore <macros>] \
     [-D NAME=value]... [-I <dir>]... [-o <output>] <sources>...

 $ ddtrace trace -C <dir> -compdb compile_commands.json [<sources>...]

It preprocesses each source, records macro invocations except
ignored ones, and outputs {file_path, dependency} items taken from
MainFile and File arguments of each invocation.

Conditional directives (#if, #ifdef, ...) are not evaluated, so
invocations in disabled code such as #if 0 blocks are traced too.

Output format is json or depfile. If output file ends with .zst,
it is compressed with zstd.
`

// errUnitsFailed is returned if some units failed to trace.
var errUnitsFailed = errors.New("some units failed")

// Cmd returns the Command for the `trace` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "trace <args>...",
		ShortDesc: "trace dependency declarations",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	dir         string
	configFile  string
	compdb      string
	depsIn      string
	ignore      string
	defines     defineFlag
	includeDirs stringsFlag
	jobs        int
	output      string
	format      string
}

func (c *run) init() {
	c.defines = defineFlag{}
	c.Flags.StringVar(&c.dir, "C", ".", "directory of sources. sources and include dirs are relative to it")
	c.Flags.StringVar(&c.configFile, "config", "", "config file in -C dir. default "+buildconfig.DefaultFile+" if exists")
	c.Flags.StringVar(&c.compdb, "compdb", "", "compilation database in -C dir (e.g. "+compdbutil.DefaultFile+"). if set, units and their -I/-D flags are taken from it. sources in args filter units")
	c.Flags.StringVar(&c.depsIn, "deps_in", "", "depfile in -C dir generated by compiler (e.g. -MD). warns declared dependencies that are not in it")
	c.Flags.StringVar(&c.ignore, "ignore", "", "comma separated macro names not to trace")
	c.Flags.Var(c.defines, "D", "define macro. NAME, NAME=value or NAME(a,b)=value")
	c.Flags.Var(&c.includeDirs, "I", "include directory")
	c.Flags.IntVar(&c.jobs, "j", runtime.NumCPU(), "number of units traced in parallel")
	c.Flags.StringVar(&c.output, "o", "-", "output file. - for stdout")
	c.Flags.StringVar(&c.format, "format", "json", "output format. json or depfile")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if c.configFile == "" {
		if v := env["DDTRACE_CONFIG"]; v.Exists {
			c.configFile = v.Value
		}
	}
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// unitResult is a result of a translation unit.
type unitResult struct {
	Unit  string         `json:"unit"`
	Items []pptrace.Item `json:"items"`
	Error string         `json:"error,omitempty"`
}

func (c *run) run(ctx context.Context, args []string) error {
	if len(args) == 0 && c.compdb == "" {
		return fmt.Errorf("no sources: %w", flag.ErrHelp)
	}
	switch c.format {
	case "json", "depfile":
	default:
		return fmt.Errorf("unknown format %q: %w", c.format, flag.ErrHelp)
	}
	absDir, err := filepath.Abs(c.dir)
	if err != nil {
		return err
	}
	fsys := os.DirFS(absDir)
	cfg, err := buildconfig.Load(ctx, fsys, c.configFile)
	if err != nil {
		return err
	}
	var ignore []string
	if c.ignore != "" {
		ignore = strings.Split(c.ignore, ",")
	}
	cfg.Merge(ignore, c.defines, c.includeDirs)
	ignoreSet := cfg.IgnoreSet()
	log.Infof("ignore=%q", ignoreSet.Names())

	units, err := c.units(fsys, absDir, cfg, args)
	if err != nil {
		return err
	}

	tc := trace.New(ctx, "")
	ctx = trace.NewContext(ctx, tc)
	sema := semaphore.New("trace-unit", c.jobs)
	fm := iometrics.New("source")
	ifsys := iometrics.NewFS(fsys, fm)

	ui.Init(os.Stderr)
	defer ui.Restore(os.Stderr)
	progress := ui.NewProgress(ui.New(os.Stderr), len(units))
	results := make([]unitResult, len(units))
	var eg errgroup.Group
	for i, u := range units {
		results[i].Unit = u.src
		if u.err != nil {
			results[i].Error = u.err.Error()
			progress.Done(u.src, 0, u.err)
			continue
		}
		eg.Go(func() error {
			err := sema.Do(ctx, func(ctx context.Context) error {
				ctx = clog.NewSpan(ctx, unitLabels(ctx, u.src))
				// each unit has its own preprocessor and action.
				pp := preproc.New(ifsys, u.src, u.opts)
				items, err := pptrace.TraceUnit(ctx, ignoreSet, pp)
				if err != nil {
					return err
				}
				results[i].Items = items
				return nil
			})
			if err != nil {
				clog.Errorf(ctx, "failed to trace %s: %v", u.src, err)
				results[i].Error = err.Error()
			}
			progress.Done(u.src, len(results[i].Items), err)
			return nil
		})
	}
	// units don't return error to eg, so Wait never fails.
	_ = eg.Wait()

	progress.Finish()
	nfailed := 0
	for _, r := range results {
		if r.Error != "" {
			nfailed++
		}
	}
	clog.Infof(ctx, "%s", ioSummary(fm))
	clog.Infof(ctx, "%s", semaSummary(sema))
	if clog.FromContext(ctx).V(1) {
		for _, sd := range tc.Spans() {
			clog.Infof(ctx, "span %s %s %v", sd.Name, sd.Duration(), sd.Attrs)
		}
	}

	if c.depsIn != "" {
		_, err = checkDeps(ctx, fsys, c.depsIn, results)
		if err != nil {
			return err
		}
	}
	err = c.writeResults(results)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if nfailed > 0 {
		return fmt.Errorf("%d of %d: %w", nfailed, len(results), errUnitsFailed)
	}
	return nil
}

// unitLabels returns log labels for unit traced in ctx.
func unitLabels(ctx context.Context, src string) map[string]string {
	labels := map[string]string{"unit": src}
	if id := trace.ID(ctx); id != "" {
		labels["trace_id"] = id
	}
	return labels
}

func ioSummary(fm *iometrics.IOMetrics) string {
	st := fm.Stats()
	return fmt.Sprintf("%s: ops=%d(err=%d) read=%d(err=%d) %d bytes", fm.Name(), st.Ops, st.OpsErrs, st.ROps, st.RErrs, st.RBytes)
}

func semaSummary(sema *semaphore.Semaphore) string {
	return fmt.Sprintf("%s: capacity=%d requests=%d serving=%d waiting=%d", sema.Name(), sema.Capacity(), sema.NumRequests(), sema.NumServs(), sema.NumWaits())
}

// unit is a translation unit to trace.
type unit struct {
	src  string
	opts preproc.Options
	// err is set if the unit can't be traced.
	err error
}

// units returns translation units to trace.
// If -compdb is given, units come from the compilation database,
// filtered by args if any. Otherwise, args are units.
func (c *run) units(fsys fs.FS, absDir string, cfg *buildconfig.Config, args []string) ([]unit, error) {
	if c.compdb == "" {
		units := make([]unit, 0, len(args))
		for _, src := range args {
			p, err := unitPath(absDir, src)
			if err != nil {
				units = append(units, unit{src: src, err: err})
				continue
			}
			units = append(units, unit{src: p, opts: cfg.Options()})
		}
		return units, nil
	}
	cmds, err := compdbutil.Load(fsys, c.compdb)
	if err != nil {
		return nil, err
	}
	filter := make(map[string]bool)
	for _, src := range args {
		p, err := unitPath(absDir, src)
		if err != nil {
			return nil, err
		}
		filter[p] = true
	}
	var units []unit
	for _, cmd := range cmds {
		cu, err := cmd.Unit(absDir)
		if err != nil {
			units = append(units, unit{src: cmd.File, err: err})
			continue
		}
		if len(filter) > 0 && !filter[cu.Source] {
			continue
		}
		opts := cfg.Options()
		opts.IncludeDirs = append(cu.IncludeDirs, opts.IncludeDirs...)
		// defines in config and flags override ones in the command.
		defines := cu.Defines
		maps.Copy(defines, opts.Defines)
		opts.Defines = defines
		if log.GetLevel() <= log.DebugLevel {
			cmdArgs, _ := cmd.Args()
			log.Debugf("unit %s: %s", cu.Source, shutil.Join(cmdArgs))
		}
		units = append(units, unit{src: cu.Source, opts: opts})
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no units in %s matched %q", c.compdb, args)
	}
	return units, nil
}

// checkDeps warns dependencies in results that are not inputs
// in depfile fname, and returns the number of such dependencies.
func checkDeps(ctx context.Context, fsys fs.FS, fname string, results []unitResult) (int, error) {
	deps, err := makeutil.ParseDepsFile(ctx, fsys, fname)
	if err != nil {
		return 0, fmt.Errorf("failed to read deps_in: %w", err)
	}
	inputs := make(map[string]bool)
	for _, d := range deps {
		inputs[path.Clean(d)] = true
	}
	n := 0
	for _, r := range results {
		for _, item := range r.Items {
			if item.Dependency == "" || inputs[path.Clean(item.Dependency)] {
				continue
			}
			log.Warnf("%s: %s declares %s, but it is not in %s", r.Unit, item.FilePath, item.Dependency, fname)
			n++
		}
	}
	return n, nil
}

// unitPath returns slash-separated path of src relative to dir.
func unitPath(dir, src string) (string, error) {
	if filepath.IsAbs(src) {
		rel, err := filepath.Rel(dir, src)
		if err != nil {
			return "", err
		}
		src = rel
	}
	p := path.Clean(filepath.ToSlash(src))
	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("source %s is out of %s", src, dir)
	}
	return p, nil
}

func (c *run) writeResults(results []unitResult) (err error) {
	var w io.Writer = os.Stdout
	if c.output != "" && c.output != "-" {
		var f *os.File
		f, err = os.Create(c.output)
		if err != nil {
			return err
		}
		defer func() {
			cerr := f.Close()
			if err == nil {
				err = cerr
			}
		}()
		w = f
		if strings.HasSuffix(c.output, ".zst") {
			var enc *zstd.Encoder
			enc, err = zstd.NewWriter(f)
			if err != nil {
				return err
			}
			// closed before f.
			defer func() {
				cerr := enc.Close()
				if err == nil {
					err = cerr
				}
			}()
			w = enc
		}
	}
	switch c.format {
	case "depfile":
		for _, r := range results {
			if r.Error != "" {
				continue
			}
			err := makeutil.FormatDeps(w, r.Unit, r.Items)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", " ")
		return enc.Encode(results)
	}
}
