package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/google/subcommands"
	"go.uber.org/multierr"
)

// Editors tend to write a file in several steps.
const settle = 200 * time.Millisecond

type watchCmd struct {
	headers headerFlags
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "Run check whenever a header changes." }
func (*watchCmd) Usage() string    { return "vrvbind watch [-version V] -I dir [-D NAME]\n" }

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.headers.register(f)
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.headers.exist(); err != nil {
		return fail(err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fail(err)
	}
	defer w.Close()

	if err := watchDirs(w, c.headers.includes); err != nil {
		return fail(err)
	}

	report := func() {
		res, err := check(ctx, c.headers)
		if err != nil {
			for _, e := range multierr.Errors(err) {
				fmt.Println(e)
			}
			fmt.Println("FAIL")
			return
		}
		fmt.Printf("%s: %d symbols ok\n", res.surface.Manifest.Version, len(res.surface.Entries))
	}
	report()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case ev, ok := <-w.Events:
			if !ok {
				return subcommands.ExitSuccess
			}
			if !isHeader(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			glog.V(1).Infof("%s: %s", ev.Op, ev.Name)
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return subcommands.ExitSuccess
			}
			glog.Errorf("watch: %v", err)
		case <-timer.C:
			report()
		}
	}
}

// watchDirs adds dirs and their subdirectories to w.
func watchDirs(w *fsnotify.Watcher, dirs []string) error {
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func isHeader(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".h", ".hh", ".hpp", ".hxx":
		return true
	}
	return false
}
