package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/subcommands"
	"go.uber.org/multierr"

	"github.com/ardanlabs/vrvbind/generator"
	"github.com/ardanlabs/vrvbind/mirror"
	"github.com/ardanlabs/vrvbind/parser"
	"github.com/ardanlabs/vrvbind/resolve"
)

// headerFlags select a manifest version and the headers it is checked
// against.
type headerFlags struct {
	version  string
	includes stringsFlag
	defines  stringsFlag
	jobs     int
}

func (h *headerFlags) register(f *flag.FlagSet) {
	f.StringVar(&h.version, "version", "", "Toolkit version. Defaults to the latest.")
	f.Var(&h.includes, "I", "Include directory. May be repeated.")
	f.Var(&h.defines, "D", "Additional preprocessor define. May be repeated.")
	f.IntVar(&h.jobs, "j", 0, "Headers parsed in parallel. Zero means no limit.")
}

// checked is a surface that passed every build-time check.
type checked struct {
	surface *resolve.Surface
	values  []mirror.Value
}

// check resolves the manifest against the headers and cross-checks its
// mirrored constants. The error aggregates every failure found.
func check(ctx context.Context, h headerFlags) (*checked, error) {
	if len(h.includes) == 0 {
		return nil, errors.New("at least one -I directory is required")
	}
	m, err := resolveVersion(h.version)
	if err != nil {
		return nil, err
	}

	idx, err := resolve.Load(ctx, m, parser.LoadConfig{
		IncludeDirs: h.includes,
		Defines:     h.defines,
		Parallelism: h.jobs,
	})
	if err != nil {
		return nil, err
	}

	var errs error
	s, err := resolve.Resolve(m, idx)
	errs = multierr.Append(errs, err)

	drift, err := mirror.Check(m, idx)
	errs = multierr.Append(errs, err)
	for _, d := range drift {
		glog.V(1).Infof("drift: %s", d)
	}
	errs = multierr.Append(errs, mirror.CheckScales(m))

	values, err := mirror.Authoritative(m, idx)
	if err == nil {
		errs = multierr.Append(errs, mirror.CheckScaleValues(m.Scales, values))
	}

	if errs != nil {
		return nil, errs
	}
	return &checked{surface: s, values: values}, nil
}

type checkCmd struct {
	headers headerFlags
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "Check a manifest version against the toolkit headers." }
func (*checkCmd) Usage() string {
	return "vrvbind check [-version V] -I dir [-D NAME]\n\nExits 1 and prints every diagnostic when a check fails.\n"
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	c.headers.register(f)
}

func (c *checkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, err := check(ctx, c.headers)
	if err != nil {
		return fail(err)
	}
	m := res.surface.Manifest
	fmt.Printf("%s: %d symbols, %d constants ok\n", m.Version, len(res.surface.Entries), len(res.values))
	return subcommands.ExitSuccess
}

type generateCmd struct {
	headers     headerFlags
	output      string
	packageName string
	libName     string
}

func (*generateCmd) Name() string     { return "generate" }
func (*generateCmd) Synopsis() string { return "Generate Go bindings for a manifest version." }
func (*generateCmd) Usage() string {
	return "vrvbind generate [-version V] -I dir -output dir [-package name] [-lib name]\n"
}

func (c *generateCmd) SetFlags(f *flag.FlagSet) {
	c.headers.register(f)
	f.StringVar(&c.output, "output", ".", "Output directory for generated Go files.")
	f.StringVar(&c.packageName, "package", "verovio", "Go package name.")
	f.StringVar(&c.libName, "lib", "verovio", "Library name, verovio for libverovio.so.")
}

func (c *generateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, err := check(ctx, c.headers)
	if err != nil {
		return fail(err)
	}

	gen := generator.New(c.packageName, c.libName, res.surface, res.values)
	p, err := gen.Plan()
	if err != nil {
		return fail(err)
	}
	for _, sk := range p.Skipped {
		fmt.Printf("skipped %s\n", sk)
	}

	files, err := p.Files()
	if err != nil {
		return fail(err)
	}
	changed, err := generator.WriteFiles(c.output, files)
	if err != nil {
		return fail(err)
	}
	for _, name := range changed {
		fmt.Printf("Generated: %s\n", filepath.Join(c.output, name))
	}
	return subcommands.ExitSuccess
}

type mirrorCmd struct {
	headers     headerFlags
	packageName string
	out         string
}

func (*mirrorCmd) Name() string     { return "mirror" }
func (*mirrorCmd) Synopsis() string { return "Write the mirrored constants of a version as Go." }
func (*mirrorCmd) Usage() string {
	return "vrvbind mirror [-version V] -I dir [-package name] [-o file]\n"
}

func (c *mirrorCmd) SetFlags(f *flag.FlagSet) {
	c.headers.register(f)
	f.StringVar(&c.packageName, "package", "verovio", "Go package name.")
	f.StringVar(&c.out, "o", "", "Output file. Defaults to stdout.")
}

func (c *mirrorCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, err := check(ctx, c.headers)
	if err != nil {
		return fail(err)
	}
	code, err := generator.Constants(c.packageName, res.values)
	if err != nil {
		return fail(err)
	}
	if c.out == "" {
		fmt.Print(code)
		return subcommands.ExitSuccess
	}
	if _, err := generator.WriteFileIfChanged(c.out, []byte(code)); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

// exist reports an error for every include directory that does not exist.
func (h headerFlags) exist() error {
	var errs error
	for _, dir := range h.includes {
		if _, err := os.Stat(dir); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
