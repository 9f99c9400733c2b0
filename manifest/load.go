package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

//go:embed verovio.yaml
var verovioYAML []byte

// Default returns the built-in registry of verovio manifest generations.
func Default() (*Registry, error) {
	r, err := Parse(bytes.NewReader(verovioYAML))
	if err != nil {
		return nil, fmt.Errorf("built-in registry: %w", err)
	}
	return r, nil
}

// Parse reads a registry. Unknown keys are an error.
func Parse(r io.Reader) (*Registry, error) {
	d := yaml.NewDecoder(r)
	d.SetStrict(true)
	var reg Registry
	if err := d.Decode(&reg); err != nil {
		return nil, fmt.Errorf("while reading YAML: %w", err)
	}
	if err := reg.Base.Validate(); err != nil {
		return nil, fmt.Errorf("base manifest %s: %w", reg.Base.Version, err)
	}
	seen := map[Version]bool{reg.Base.Version: true}
	for _, d := range reg.Deltas {
		if !reg.Base.Version.Less(d.Version) {
			return nil, fmt.Errorf("%w: delta %s does not follow base %s", ErrInvalid, d.Version, reg.Base.Version)
		}
		if seen[d.Version] {
			return nil, fmt.Errorf("%w: version %s declared twice", ErrInvalid, d.Version)
		}
		seen[d.Version] = true
	}
	return &reg, nil
}

// ParseFile reads the registry stored at path.
func ParseFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Encode writes m as YAML.
func Encode(w io.Writer, m *Manifest) error {
	e := yaml.NewEncoder(w)
	if err := e.Encode(m); err != nil {
		return err
	}
	return e.Close()
}
