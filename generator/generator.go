// Package generator emits Go bindings for a resolved surface. Every class
// symbol becomes an opaque handle whose methods call C shims through
// libffi, pods become Go structs with matching libffi type descriptors,
// and mirrored constants become Go constants.
package generator

import (
	"fmt"

	"github.com/ardanlabs/vrvbind/mirror"
	"github.com/ardanlabs/vrvbind/resolve"
)

type Generator struct {
	packageName string
	libName     string
	surface     *resolve.Surface
	values      []mirror.Value
}

// New returns a generator for the surface s. values are the mirrored
// constants with the values their headers define.
func New(packageName, libName string, s *resolve.Surface, values []mirror.Value) *Generator {
	return &Generator{
		packageName: packageName,
		libName:     libName,
		surface:     s,
		values:      values,
	}
}

func (g *Generator) Plan() (*Plan, error) {
	return NewPlan(g.packageName, g.libName, g.surface, g.values)
}

// Generate returns the generated files keyed by file name.
func (g *Generator) Generate() (map[string]string, error) {
	p, err := g.Plan()
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}
	return p.Files()
}

// Files renders p.
func (p *Plan) Files() (map[string]string, error) {
	files := make(map[string]string)

	steps := []struct {
		name string
		emit func() (string, error)
		skip bool
	}{
		{"loader.go", p.emitLoader, false},
		{"types.go", p.emitTypes, false},
		{"functions.go", p.emitFunctions, false},
		{"constants.go", p.emitConstants, len(p.Constants) == 0},
		{"utilities.go", p.emitUtilities, p.ExcludeImpls && p.ExcludeUtilities},
	}
	for _, s := range steps {
		if s.skip {
			continue
		}
		code, err := s.emit()
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", s.name, err)
		}
		files[s.name] = code
	}

	return files, nil
}

// Constants renders the constants file of package pkg for values alone.
func Constants(pkg string, values []mirror.Value) (string, error) {
	p := &Plan{Package: pkg}
	p.constants(values)
	return p.emitConstants()
}
