package manifest

import (
	"fmt"
	"sort"
)

// Delta is what a later toolkit release adds to or changes in the
// manifest of the release before it.
type Delta struct {
	Version          Version         `yaml:"version"`
	Headers          []string        `yaml:"headers,omitempty"`
	Defines          []string        `yaml:"defines,omitempty"`
	Symbols          []Symbol        `yaml:"symbols,omitempty"`
	Safety           *Safety         `yaml:"safety,omitempty"`
	ExcludeUtilities *bool           `yaml:"exclude_utilities,omitempty"`
	ExcludeImpls     *bool           `yaml:"exclude_impls,omitempty"`
	VersionSources   *VersionSources `yaml:"version_sources,omitempty"`
	Constants        []Constant      `yaml:"constants,omitempty"`
	Scales           []Scale         `yaml:"scales,omitempty"`

	// Removed drops symbols and headers from the manifest. Each removal
	// carries a note so the regression check can tell it from an omission.
	Removed []Removal `yaml:"removed,omitempty"`
}

// Registry holds every manifest generation as a base plus ordered deltas.
type Registry struct {
	Base   Manifest `yaml:"base"`
	Deltas []Delta  `yaml:"deltas,omitempty"`
}

// Versions returns the declared versions in ascending order.
func (r *Registry) Versions() []Version {
	vs := []Version{r.Base.Version}
	for _, d := range r.Deltas {
		vs = append(vs, d.Version)
	}
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	return vs
}

// Latest returns the newest declared version.
func (r *Registry) Latest() Version {
	vs := r.Versions()
	return vs[len(vs)-1]
}

// Resolve returns the manifest of version v: the base with every delta up
// to and including v applied in version order.
func (r *Registry) Resolve(v Version) (*Manifest, error) {
	if v.Less(r.Base.Version) {
		return nil, fmt.Errorf("%s: %w %s", v, ErrVersionTooOld, r.Base.Version)
	}
	declared := r.Base.Version == v
	for _, d := range r.Deltas {
		if d.Version == v {
			declared = true
		}
	}
	if !declared {
		return nil, fmt.Errorf("%s: %w", v, ErrUnknownVersion)
	}

	deltas := append([]Delta(nil), r.Deltas...)
	sort.SliceStable(deltas, func(i, j int) bool { return deltas[i].Version.Less(deltas[j].Version) })

	m := r.Base.clone()
	for _, d := range deltas {
		if v.Less(d.Version) {
			break
		}
		m.apply(d)
	}
	m.Version = v

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", v, err)
	}
	return m, nil
}

func (m Manifest) clone() *Manifest {
	c := m
	c.Headers = append([]string(nil), m.Headers...)
	c.Defines = append([]string(nil), m.Defines...)
	c.Symbols = append([]Symbol(nil), m.Symbols...)
	c.Constants = append([]Constant(nil), m.Constants...)
	c.Scales = append([]Scale(nil), m.Scales...)
	c.Removed = append([]Removal(nil), m.Removed...)
	if m.VersionSources != nil {
		vs := *m.VersionSources
		c.VersionSources = &vs
	}
	return &c
}

// apply merges d into m. Headers, defines and symbols are unioned in
// order; constants and scales are overridden by name. Removal notes
// accumulate across steps.
func (m *Manifest) apply(d Delta) {
	removed := make(map[string]bool)
	for _, r := range d.Removed {
		removed[r.Name] = true
	}

	m.Headers = union(filter(m.Headers, removed), d.Headers)
	m.Defines = union(m.Defines, d.Defines)

	var symbols []Symbol
	for _, s := range m.Symbols {
		if !removed[s.Name] {
			symbols = append(symbols, s)
		}
	}
	for _, s := range d.Symbols {
		if i := symbolIndex(symbols, s.Name); i != -1 {
			symbols[i] = s
			continue
		}
		symbols = append(symbols, s)
	}
	m.Symbols = symbols

	for _, c := range d.Constants {
		if i := constantIndex(m.Constants, c.Name); i != -1 {
			m.Constants[i] = c
			continue
		}
		m.Constants = append(m.Constants, c)
	}
	for _, s := range d.Scales {
		replaced := false
		for i := range m.Scales {
			if m.Scales[i].Name == s.Name {
				m.Scales[i] = s
				replaced = true
			}
		}
		if !replaced {
			m.Scales = append(m.Scales, s)
		}
	}

	if d.Safety != nil {
		m.Safety = *d.Safety
	}
	if d.ExcludeUtilities != nil {
		m.ExcludeUtilities = *d.ExcludeUtilities
	}
	if d.ExcludeImpls != nil {
		m.ExcludeImpls = *d.ExcludeImpls
	}
	if d.VersionSources != nil {
		vs := *d.VersionSources
		m.VersionSources = &vs
	}
	m.Removed = append(m.Removed, d.Removed...)
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func filter(list []string, drop map[string]bool) []string {
	var out []string
	for _, s := range list {
		if !drop[s] {
			out = append(out, s)
		}
	}
	return out
}

func symbolIndex(symbols []Symbol, name string) int {
	for i, s := range symbols {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func constantIndex(consts []Constant, name string) int {
	for i, c := range consts {
		if c.Name == name {
			return i
		}
	}
	return -1
}
