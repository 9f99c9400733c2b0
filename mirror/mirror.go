// Package mirror checks the constants a manifest mirrors against their
// authoritative definitions in the toolkit headers.
package mirror

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/parser"
)

var (
	ErrDrift         = errors.New("mirrored constant drifted from its header")
	ErrUnknownSource = errors.New("unknown constant source")
	ErrScaleOrder    = errors.New("scale out of order")
)

// Value is a constant with the value its headers define.
type Value struct {
	manifest.Constant
	Header string
}

// Drift is a mirrored constant whose literal differs from its header.
type Drift struct {
	Name          string
	Source        string
	Header        string
	Mirrored      manifest.Literal
	Authoritative manifest.Literal
}

func (d Drift) String() string {
	return fmt.Sprintf("%s = %s, but %s defines %s as %s", d.Name, d.Mirrored, d.Header, d.Source, d.Authoritative)
}

// Authoritative evaluates the source of every constant m mirrors, in the
// order of m.Mirror.
func Authoritative(m *manifest.Manifest, idx *parser.Index) ([]Value, error) {
	var (
		out  []Value
		errs error
	)
	for _, c := range m.Mirror() {
		v, header, err := evaluate(idx, c)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		c.Value = v
		out = append(out, Value{Constant: c, Header: header})
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func evaluate(idx *parser.Index, c manifest.Constant) (manifest.Literal, string, error) {
	var (
		n      int64
		isBool bool
		header string
	)
	if def, ok := idx.Macro(c.Source); ok {
		var err error
		n, isBool, err = idx.EvalMacro(c.Source)
		if err != nil {
			return manifest.Literal{}, "", fmt.Errorf("%w: macro %s in %s: %v", ErrUnknownSource, c.Source, def.Header, err)
		}
		header = def.Header
	} else if en, ok := idx.Enumerator(c.Source); ok {
		if en.Err != nil {
			return manifest.Literal{}, "", fmt.Errorf("%w: enumerator %s in %s: %v", ErrUnknownSource, c.Source, en.Header, en.Err)
		}
		n, header = en.Value, en.Header
	} else {
		return manifest.Literal{}, "", fmt.Errorf("%w: %s is neither a macro nor an enumerator", ErrUnknownSource, c.Source)
	}

	if c.Kind == manifest.ConstBool {
		if !isBool && n != 0 && n != 1 {
			return manifest.Literal{}, "", fmt.Errorf("%w: %s is %d, not a boolean", ErrUnknownSource, c.Source, n)
		}
		return manifest.Bool(n != 0), header, nil
	}
	if isBool {
		return manifest.Literal{}, "", fmt.Errorf("%w: %s is a boolean, not an integer", ErrUnknownSource, c.Source)
	}
	return manifest.Int(n), header, nil
}

// Check compares the mirrored literals of m with the values in idx. Each
// mismatch is returned as a Drift and reported in the error.
func Check(m *manifest.Manifest, idx *parser.Index) ([]Drift, error) {
	values, err := Authoritative(m, idx)
	if err != nil {
		return nil, err
	}

	var (
		drift []Drift
		errs  error
	)
	mirrored := m.Mirror()
	for i, v := range values {
		c := mirrored[i]
		if c.Value == v.Value {
			continue
		}
		d := Drift{
			Name:          c.Name,
			Source:        c.Source,
			Header:        v.Header,
			Mirrored:      c.Value,
			Authoritative: v.Value,
		}
		drift = append(drift, d)
		errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrDrift, d))
	}
	return drift, errs
}

// CheckScales checks that the members of each scale of m are distinct and
// take the values 0..n-1 in order.
func CheckScales(m *manifest.Manifest) error {
	values := make(map[string]manifest.Literal)
	for _, c := range m.Mirror() {
		values[c.Name] = c.Value
	}
	return checkScales(m.Scales, values)
}

// CheckScaleValues is CheckScales over the values defined by the headers.
func CheckScaleValues(scales []manifest.Scale, values []Value) error {
	byName := make(map[string]manifest.Literal, len(values))
	for _, v := range values {
		byName[v.Name] = v.Value
	}
	return checkScales(scales, byName)
}

func checkScales(scales []manifest.Scale, values map[string]manifest.Literal) error {
	var errs error
	for _, s := range scales {
		seen := make(map[string]bool)
		for i, name := range s.Members {
			if seen[name] {
				errs = multierr.Append(errs, fmt.Errorf("%w: %s lists %s twice", ErrScaleOrder, s.Name, name))
				continue
			}
			seen[name] = true

			v, ok := values[name]
			switch {
			case !ok:
				errs = multierr.Append(errs, fmt.Errorf("%w: %s member %s has no value", ErrScaleOrder, s.Name, name))
			case v.IsBool:
				errs = multierr.Append(errs, fmt.Errorf("%w: %s member %s is a boolean", ErrScaleOrder, s.Name, name))
			case v.Int != int64(i):
				errs = multierr.Append(errs, fmt.Errorf("%w: %s member %s is %d, want %d", ErrScaleOrder, s.Name, name, v.Int, i))
			}
		}
	}
	return errs
}
