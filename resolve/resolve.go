// Package resolve binds the symbols of a manifest to their declarations in
// a parsed header set and checks that each can be projected as requested.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"go.uber.org/multierr"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/parser"
)

var (
	ErrUnresolved        = errors.New("unresolved symbol")
	ErrAmbiguous         = errors.New("ambiguous symbol")
	ErrKindMismatch      = errors.New("kind mismatch")
	ErrUnsupportedLayout = errors.New("unsupported layout")
	ErrIncludeOrder      = errors.New("include order")
)

// Diagnostic is one build-time failure about a manifest symbol. Err is one
// of the sentinel errors of this package.
type Diagnostic struct {
	Symbol string
	Header string
	Err    error
	Detail string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(d.Symbol)
	if d.Header != "" {
		fmt.Fprintf(&b, " (%s)", d.Header)
	}
	fmt.Fprintf(&b, ": %v", d.Err)
	if d.Detail != "" {
		fmt.Fprintf(&b, ": %s", d.Detail)
	}
	return b.String()
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Entry is a manifest symbol bound to its declaration.
type Entry struct {
	Symbol manifest.Symbol
	Decl   parser.Decl
}

func (e Entry) Header() string {
	return e.Decl.Header
}

// Surface is the resolved binding surface of a manifest.
type Surface struct {
	Manifest *manifest.Manifest
	Index    *parser.Index
	Entries  []Entry
}

// Entry returns the entry of the symbol called name.
func (s *Surface) Entry(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Symbol.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Load parses the header set of m. The manifest's defines are added to
// those in cfg.
func Load(ctx context.Context, m *manifest.Manifest, cfg parser.LoadConfig) (*parser.Index, error) {
	cfg.Defines = append(append([]string(nil), m.Defines...), cfg.Defines...)
	idx, err := parser.Load(ctx, cfg, m.Headers)
	if err != nil {
		return nil, fmt.Errorf("loading headers of %s: %w", m.Version, err)
	}
	return idx, nil
}

// Resolve binds every symbol of m to exactly one declaration in idx of a
// matching kind, and checks the layout of pod symbols. The returned error
// aggregates one *Diagnostic per problem.
func Resolve(m *manifest.Manifest, idx *parser.Index) (*Surface, error) {
	s := &Surface{Manifest: m, Index: idx}

	var errs error
	for _, sym := range m.Symbols {
		e, err := resolveSymbol(idx, sym)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if sym.Kind == manifest.KindPOD {
			if err := checkLayout(idx, sym, e.Decl); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
		}
		glog.V(2).Infof("%s: %s %s in %s", m.Version, sym.Kind, sym.Name, e.Header())
		s.Entries = append(s.Entries, e)
	}
	if errs != nil {
		return nil, errs
	}

	glog.V(1).Infof("%s: resolved %d symbols", m.Version, len(s.Entries))
	return s, nil
}

func resolveSymbol(idx *parser.Index, sym manifest.Symbol) (Entry, error) {
	decls := idx.Lookup(sym.Name)
	if len(decls) == 0 {
		d := &Diagnostic{Symbol: sym.Name, Err: ErrUnresolved}
		if h, ok := idx.Forward(sym.Name); ok {
			d.Header = h
			d.Detail = "only forward declared"
		} else {
			d.Detail = "not declared in " + strings.Join(parser.Files(idx), ", ")
		}
		return Entry{}, d
	}

	var matching []parser.Decl
	for _, d := range decls {
		if kindMatches(sym.Kind, d) {
			matching = append(matching, d)
		}
	}

	switch len(matching) {
	case 0:
		return Entry{}, &Diagnostic{
			Symbol: sym.Name,
			Header: decls[0].Header,
			Err:    ErrKindMismatch,
			Detail: fmt.Sprintf("declared as %s, cannot generate as %s", describe(decls[0]), sym.Kind),
		}
	case 1:
		return Entry{Symbol: sym, Decl: matching[0]}, nil
	default:
		var where []string
		for _, d := range matching {
			where = append(where, d.Header)
		}
		return Entry{}, &Diagnostic{
			Symbol: sym.Name,
			Err:    ErrAmbiguous,
			Detail: fmt.Sprintf("%d definitions in %s", len(matching), strings.Join(where, ", ")),
		}
	}
}

// kindMatches reports whether d can be generated as k. Enumerations are
// accepted as opaque classes and projected as named integer types.
func kindMatches(k manifest.Kind, d parser.Decl) bool {
	switch k {
	case manifest.KindClass:
		return d.Kind == parser.DeclClass || d.Kind == parser.DeclEnum
	case manifest.KindPOD:
		return d.Kind == parser.DeclClass
	case manifest.KindFunction:
		return d.Kind == parser.DeclFunction
	}
	return false
}

func describe(d parser.Decl) string {
	if d.Kind == parser.DeclClass && d.Class.IsStruct {
		return "struct"
	}
	return d.Kind.String()
}
