// Package manifest describes the binding surface exposed from a toolkit
// release: the headers to parse, the symbols to project, the generation
// modes and the constants mirrored from the headers.
package manifest

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

var (
	ErrInvalid         = errors.New("invalid manifest")
	ErrUnknownVersion  = errors.New("version not declared")
	ErrVersionTooOld   = errors.New("version older than the base manifest")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
)

// Kind selects how a symbol is projected.
type Kind string

const (
	// KindClass is an opaque handle whose layout stays on the foreign side.
	KindClass Kind = "class"
	// KindPOD is a trivially copyable struct exposed field by field.
	KindPOD Kind = "pod"
	// KindFunction is a free function.
	KindFunction Kind = "function"
)

var kinds = map[Kind]bool{KindClass: true, KindPOD: true, KindFunction: true}

type Symbol struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// Borrow lists the pointer fields of a pod that are non-owning views,
	// such as the data pointer of a string view.
	Borrow []string `yaml:"borrow,omitempty"`
}

// Safety is the call policy of the whole manifest.
type Safety string

const (
	// SafetyUnsafe trusts every foreign call.
	SafetyUnsafe Safety = "unsafe"
	// SafetyStrict validates the preconditions of each call at the call
	// site and reports violations as errors.
	SafetyStrict Safety = "strict"
)

type ConstKind string

const (
	ConstInt  ConstKind = "int"
	ConstBool ConstKind = "bool"
)

// Literal is an integer or boolean constant value.
type Literal struct {
	Int    int64
	IsBool bool
}

func Int(v int64) Literal { return Literal{Int: v} }

func Bool(b bool) Literal {
	if b {
		return Literal{Int: 1, IsBool: true}
	}
	return Literal{IsBool: true}
}

func (l Literal) Kind() ConstKind {
	if l.IsBool {
		return ConstBool
	}
	return ConstInt
}

func (l Literal) String() string {
	if l.IsBool {
		return strconv.FormatBool(l.Int != 0)
	}
	return strconv.FormatInt(l.Int, 10)
}

var _ yaml.Unmarshaler = (*Literal)(nil)

func (l *Literal) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		*l = Bool(b)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return fmt.Errorf("could not unmarshal Literal: want an integer or a boolean")
	}
	*l = Int(n)
	return nil
}

func (l Literal) MarshalYAML() (interface{}, error) {
	if l.IsBool {
		return l.Int != 0, nil
	}
	return l.Int, nil
}

// Constant is a value mirrored from a foreign macro or enumerator named by
// Source.
type Constant struct {
	Name   string    `yaml:"name"`
	Source string    `yaml:"source"`
	Kind   ConstKind `yaml:"kind"`
	Value  Literal   `yaml:"value"`

	// Scale is the name of the ordered group the constant belongs to. It is
	// also the Go type generated for the group.
	Scale string `yaml:"-"`
}

// Scale is an ordered group of constants taking the values 0..n-1.
type Scale struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Removal notes that a symbol or header was removed on purpose.
type Removal struct {
	Name string `yaml:"name"`
	Note string `yaml:"note"`
}

// VersionSources names the foreign macros that define the version triple
// and the development flag. The mirrored values come from Manifest.Version.
type VersionSources struct {
	Major    string `yaml:"major"`
	Minor    string `yaml:"minor"`
	Revision string `yaml:"revision"`
	Dev      string `yaml:"dev"`
}

type Manifest struct {
	Version          Version         `yaml:"version"`
	Headers          []string        `yaml:"headers"`
	Defines          []string        `yaml:"defines,omitempty"`
	Symbols          []Symbol        `yaml:"symbols"`
	Safety           Safety          `yaml:"safety"`
	ExcludeUtilities bool            `yaml:"exclude_utilities,omitempty"`
	ExcludeImpls     bool            `yaml:"exclude_impls,omitempty"`
	VersionSources   *VersionSources `yaml:"version_sources,omitempty"`
	Constants        []Constant      `yaml:"constants,omitempty"`
	Scales           []Scale         `yaml:"scales,omitempty"`
	Removed          []Removal       `yaml:"removed,omitempty"`
}

// Symbol returns the symbol called name.
func (m *Manifest) Symbol(name string) (Symbol, bool) {
	for _, s := range m.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Removal returns the removal note about name.
func (m *Manifest) Removal(name string) (Removal, bool) {
	for _, r := range m.Removed {
		if r.Name == name {
			return r, true
		}
	}
	return Removal{}, false
}

// Mirror returns every mirrored constant: the version constants derived
// from m.Version followed by the declared constants. Constants belonging
// to a scale carry its name.
func (m *Manifest) Mirror() []Constant {
	var out []Constant
	if vs := m.VersionSources; vs != nil {
		out = append(out,
			Constant{Name: "VersionMajor", Source: vs.Major, Kind: ConstInt, Value: Int(int64(m.Version.Major))},
			Constant{Name: "VersionMinor", Source: vs.Minor, Kind: ConstInt, Value: Int(int64(m.Version.Minor))},
			Constant{Name: "VersionRevision", Source: vs.Revision, Kind: ConstInt, Value: Int(int64(m.Version.Revision))},
			Constant{Name: "VersionDev", Source: vs.Dev, Kind: ConstBool, Value: Bool(m.Version.Dev)},
		)
	}

	scaleOf := make(map[string]string)
	for _, s := range m.Scales {
		for _, name := range s.Members {
			scaleOf[name] = s.Name
		}
	}
	for _, c := range m.Constants {
		c.Scale = scaleOf[c.Name]
		out = append(out, c)
	}
	return out
}

// Validate checks the manifest for internal consistency. Every problem is
// reported.
func (m *Manifest) Validate() error {
	var errs error
	invalid := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if len(m.Headers) == 0 {
		invalid("no headers")
	}
	seenHeader := make(map[string]bool)
	for _, h := range m.Headers {
		if seenHeader[h] {
			invalid("header %s listed twice", h)
		}
		seenHeader[h] = true
	}

	switch m.Safety {
	case SafetyUnsafe, SafetyStrict:
	default:
		invalid("unknown safety %q", m.Safety)
	}

	seen := make(map[string]bool)
	for _, s := range m.Symbols {
		if s.Name == "" {
			invalid("symbol without a name")
			continue
		}
		if seen[s.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%w: %w: %s", ErrInvalid, ErrDuplicateSymbol, s.Name))
		}
		seen[s.Name] = true
		if !kinds[s.Kind] {
			invalid("symbol %s: unknown kind %q", s.Name, s.Kind)
		}
		if len(s.Borrow) > 0 && s.Kind != KindPOD {
			invalid("symbol %s: borrow is only valid on pod symbols", s.Name)
		}
	}

	consts := make(map[string]bool)
	for _, c := range m.Mirror() {
		if consts[c.Name] {
			invalid("constant %s declared twice", c.Name)
		}
		consts[c.Name] = true
		if c.Source == "" {
			invalid("constant %s has no source", c.Name)
		}
		switch c.Kind {
		case ConstInt, ConstBool:
			if c.Kind != c.Value.Kind() {
				invalid("constant %s: %s value for %s kind", c.Name, c.Value.Kind(), c.Kind)
			}
		default:
			invalid("constant %s: unknown kind %q", c.Name, c.Kind)
		}
	}

	for _, s := range m.Scales {
		if s.Name == "" || len(s.Members) == 0 {
			invalid("scale %q has no members", s.Name)
		}
		for _, name := range s.Members {
			if !consts[name] {
				invalid("scale %s: member %s is not a declared constant", s.Name, name)
			}
		}
	}

	return errs
}
