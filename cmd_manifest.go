package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/kr/pretty"

	"github.com/ardanlabs/vrvbind/apidiff"
	"github.com/ardanlabs/vrvbind/manifest"
)

type versionsCmd struct{}

func (*versionsCmd) Name() string     { return "versions" }
func (*versionsCmd) Synopsis() string { return "List the versions of the manifest registry." }
func (*versionsCmd) Usage() string    { return "vrvbind versions\n" }

func (*versionsCmd) SetFlags(*flag.FlagSet) {}

func (*versionsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	reg, err := loadRegistry()
	if err != nil {
		return fail(err)
	}
	for _, v := range reg.Versions() {
		fmt.Println(v)
	}
	return subcommands.ExitSuccess
}

type showCmd struct {
	version string
	verbose bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "Print the resolved manifest of a version." }
func (*showCmd) Usage() string    { return "vrvbind show [-version V] [-v]\n" }

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.version, "version", "", "Toolkit version. Defaults to the latest.")
	f.BoolVar(&c.verbose, "v", false, "Dump the Go value instead of YAML.")
}

func (c *showCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	m, err := resolveVersion(c.version)
	if err != nil {
		return fail(err)
	}
	if err := show(os.Stdout, m, c.verbose); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func show(w io.Writer, m *manifest.Manifest, verbose bool) error {
	if verbose {
		_, err := pretty.Fprintf(w, "%# v\n", m)
		return err
	}
	return manifest.Encode(w, m)
}

type diffCmd struct {
	from, to string
	json     bool
}

func (*diffCmd) Name() string     { return "diff" }
func (*diffCmd) Synopsis() string { return "Compare the surfaces of two versions." }
func (*diffCmd) Usage() string {
	return "vrvbind diff -from V1 -to V2 [-json]\n\nExits 1 when a symbol or header is removed without a removal note.\n"
}

func (c *diffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Older version.")
	f.StringVar(&c.to, "to", "", "Newer version. Defaults to the latest.")
	f.BoolVar(&c.json, "json", false, "Write the report as JSON.")
}

func (c *diffCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" {
		return fail(errors.New("-from is required"))
	}
	report, err := diff(c.from, c.to)
	if err != nil {
		return fail(err)
	}
	if c.json {
		err = report.WriteJSON(os.Stdout)
	} else {
		_, err = io.WriteString(os.Stdout, report.Summary())
	}
	if err != nil {
		return fail(err)
	}
	if err := report.Regressions(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

func diff(from, to string) (apidiff.Report, error) {
	before, err := resolveVersion(from)
	if err != nil {
		return apidiff.Report{}, err
	}
	after, err := resolveVersion(to)
	if err != nil {
		return apidiff.Report{}, err
	}
	return apidiff.Compute(before, after), nil
}
