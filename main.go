// Command vrvbind checks and generates the Go binding surface of the
// Verovio toolkit for each release listed in its manifest registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/golang/glog"
	"github.com/google/subcommands"
	"go.uber.org/multierr"

	"github.com/ardanlabs/vrvbind/manifest"
)

var manifestPath = flag.String("manifest", "", "Manifest registry YAML file. Defaults to the embedded registry.")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&versionsCmd{}, "manifest")
	subcommands.Register(&showCmd{}, "manifest")
	subcommands.Register(&diffCmd{}, "manifest")
	subcommands.Register(&checkCmd{}, "headers")
	subcommands.Register(&generateCmd{}, "headers")
	subcommands.Register(&mirrorCmd{}, "headers")
	subcommands.Register(&watchCmd{}, "headers")

	flag.Parse()
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := subcommands.Execute(ctx)
	stop()
	glog.Flush()
	os.Exit(int(status))
}

func loadRegistry() (*manifest.Registry, error) {
	if *manifestPath == "" {
		return manifest.Default()
	}
	return manifest.ParseFile(*manifestPath)
}

// resolveVersion returns the manifest of version, or of the latest
// version when it is empty.
func resolveVersion(version string) (*manifest.Manifest, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	v := reg.Latest()
	if version != "" {
		if v, err = manifest.ParseVersion(version); err != nil {
			return nil, err
		}
	}
	return reg.Resolve(v)
}

// fail logs every error aggregated in err.
func fail(err error) subcommands.ExitStatus {
	for _, e := range multierr.Errors(err) {
		glog.Errorf("%v", e)
		fmt.Fprintln(os.Stderr, e)
	}
	return subcommands.ExitFailure
}

// stringsFlag collects the values of a repeated flag.
type stringsFlag []string

func (s *stringsFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
