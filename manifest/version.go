package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Version is a toolkit release. Dev marks a development build, printed
// with a "-dev" suffix.
type Version struct {
	Major    int
	Minor    int
	Revision int
	Dev      bool
}

// ParseVersion parses "4.2.0" or "3.15.1-dev".
func ParseVersion(s string) (Version, error) {
	var v Version
	rest, dev := strings.CutSuffix(strings.TrimSpace(s), "-dev")
	v.Dev = dev

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("version %q: want major.minor.revision", s)
	}
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Revision} {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("version %q: bad component %q", s, parts[i])
		}
		*dst = n
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
	if v.Dev {
		s += "-dev"
	}
	return s
}

// Less orders versions by their triple. A development build precedes the
// release of the same triple.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	if v.Revision != o.Revision {
		return v.Revision < o.Revision
	}
	return v.Dev && !o.Dev
}

var _ yaml.Unmarshaler = (*Version)(nil)

func (v *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("could not unmarshal Version: %w", err)
	}
	parsed, err := ParseVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}
