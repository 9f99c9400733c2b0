package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// ErrHeaderNotFound is returned when a listed or included header cannot be
// found in any include directory.
var ErrHeaderNotFound = errors.New("header not found")

// LoadConfig controls how a header set is located and preprocessed.
type LoadConfig struct {
	IncludeDirs []string
	Defines     []string

	// Parallelism bounds concurrent header parsing. Zero means unbounded.
	Parallelism int
}

type loaded struct {
	header *Header
	file   string
}

// Load parses roots and the closure of their quoted includes, and indexes
// them in the order a translation unit including roots in sequence would
// see their declarations. System includes are not followed.
func Load(ctx context.Context, cfg LoadConfig, roots []string) (*Index, error) {
	var (
		mu    sync.Mutex
		files = make(map[string]*loaded)
	)

	type pending struct {
		name string
		from string
		rel  string
	}

	frontier := make([]pending, 0, len(roots))
	for _, r := range roots {
		frontier = append(frontier, pending{name: r})
	}
	seen := make(map[string]bool)

	for len(frontier) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		if cfg.Parallelism > 0 {
			g.SetLimit(cfg.Parallelism)
		}

		var wave []pending
		for _, p := range frontier {
			if seen[p.name] {
				continue
			}
			seen[p.name] = true
			wave = append(wave, p)
		}

		for _, p := range wave {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				file, err := locate(cfg.IncludeDirs, p.name, p.rel)
				if err != nil {
					if p.from != "" {
						return fmt.Errorf("%s (included from %s): %w", p.name, p.from, err)
					}
					return fmt.Errorf("%s: %w", p.name, err)
				}
				h, err := parseFile(file, cfg.Defines)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", p.name, err)
				}
				h.Path = p.name
				glog.V(2).Infof("parsed %s: %d classes, %d functions, %d enums, %d macros",
					file, len(h.Classes), len(h.Functions), len(h.Enums), len(h.Macros))

				mu.Lock()
				files[p.name] = &loaded{header: h, file: file}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, p := range wave {
			l := files[p.name]
			for _, inc := range l.header.Includes {
				if inc.IsSystem {
					continue
				}
				frontier = append(frontier, pending{
					name: includeName(cfg.IncludeDirs, l.file, p.name, inc.Path),
					from: p.name,
					rel:  filepath.Dir(l.file),
				})
			}
		}
	}

	// Post-order: an included header's declarations precede the includer's.
	var ordered []*Header
	visited := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		l := files[name]
		for _, inc := range l.header.Includes {
			if inc.IsSystem {
				continue
			}
			visit(includeName(cfg.IncludeDirs, l.file, name, inc.Path))
		}
		ordered = append(ordered, l.header)
	}
	for _, r := range roots {
		visit(r)
	}

	glog.V(1).Infof("loaded %d headers from %d roots", len(ordered), len(roots))

	return NewIndex(ordered), nil
}

func parseFile(file string, defines []string) (*Header, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return Parse(string(data), defines...)
}

// locate finds name in the directory of the including file first, then in
// the include directories in order, as a compiler does for quoted includes.
func locate(dirs []string, name, rel string) (string, error) {
	var candidates []string
	if rel != "" {
		candidates = append(candidates, filepath.Join(rel, filepath.FromSlash(name)))
	}
	for _, d := range dirs {
		candidates = append(candidates, filepath.Join(d, filepath.FromSlash(name)))
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", ErrHeaderNotFound
}

// includeName maps an include directive to the name the header is known
// by: relative to an include directory when one contains it, otherwise
// relative to the including header.
func includeName(dirs []string, includerFile, includerName, inc string) string {
	local := filepath.Join(filepath.Dir(includerFile), filepath.FromSlash(inc))
	if _, err := os.Stat(local); err == nil {
		for _, d := range dirs {
			if rel, err := filepath.Rel(d, local); err == nil && !filepath.IsAbs(rel) && rel != ".." && !startsWithParent(rel) {
				return filepath.ToSlash(rel)
			}
		}
		return path.Join(path.Dir(includerName), inc)
	}
	return inc
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// Files returns the names of the headers in idx, sorted.
func Files(idx *Index) []string {
	var names []string
	for _, h := range idx.Headers() {
		names = append(names, h.Path)
	}
	sort.Strings(names)
	return names
}
