package mirror

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/parser"
	"github.com/ardanlabs/vrvbind/resolve"
)

func release(t *testing.T, version string) *manifest.Manifest {
	t.Helper()
	r, err := manifest.Default()
	require.NoError(t, err)
	m, err := r.Resolve(manifest.MustParseVersion(version))
	require.NoError(t, err)
	return m
}

func load(t *testing.T, m *manifest.Manifest, dir string) *parser.Index {
	t.Helper()
	idx, err := resolve.Load(context.Background(), m, parser.LoadConfig{IncludeDirs: []string{dir}})
	require.NoError(t, err)
	return idx
}

func includeDir(version string) string {
	return filepath.Join("..", "testdata", "verovio", version, "include")
}

func TestCheckAllGenerations(t *testing.T) {
	for _, v := range []string{"3.15.0", "3.15.1", "4.2.0"} {
		t.Run(v, func(t *testing.T) {
			m := release(t, v)
			drift, err := Check(m, load(t, m, includeDir(v)))
			require.NoError(t, err)
			require.Empty(t, drift)
			require.NoError(t, CheckScales(m))
		})
	}
}

func TestAuthoritative(t *testing.T) {
	m := release(t, "4.2.0")
	values, err := Authoritative(m, load(t, m, includeDir("4.2.0")))
	require.NoError(t, err)

	type got struct {
		Name, Header, Scale string
		Value               manifest.Literal
	}
	var have []got
	for _, v := range values {
		have = append(have, got{v.Name, v.Header, v.Scale, v.Value})
	}
	want := []got{
		{"VersionMajor", "vrvdef.h", "", manifest.Int(4)},
		{"VersionMinor", "vrvdef.h", "", manifest.Int(2)},
		{"VersionRevision", "vrvdef.h", "", manifest.Int(0)},
		{"VersionDev", "vrvdef.h", "", manifest.Bool(false)},
		{"LogOff", "vrv.h", "LogLevel", manifest.Int(0)},
		{"LogError", "vrv.h", "LogLevel", manifest.Int(1)},
		{"LogWarning", "vrv.h", "LogLevel", manifest.Int(2)},
		{"LogInfo", "vrv.h", "LogLevel", manifest.Int(3)},
		{"LogDebug", "vrv.h", "LogLevel", manifest.Int(4)},
	}
	if diff := cmp.Diff(want, have); diff != "" {
		t.Errorf("Authoritative (-want +got):\n%s", diff)
	}
	require.NoError(t, CheckScaleValues(m.Scales, values))
}

// A header whose minor version disagrees with the manifest fails the
// cross-check.
func TestCheckVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	entries, err := os.ReadDir(includeDir("4.2.0"))
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(includeDir("4.2.0"), e.Name()))
		require.NoError(t, err)
		if e.Name() == "vrvdef.h" {
			data = []byte(strings.Replace(string(data), "#define VERSION_MINOR 2", "#define VERSION_MINOR 3", 1))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), data, 0644))
	}

	m := release(t, "4.2.0")
	drift, err := Check(m, load(t, m, dir))
	require.ErrorIs(t, err, ErrDrift)
	require.Equal(t, []Drift{{
		Name:          "VersionMinor",
		Source:        "VERSION_MINOR",
		Header:        "vrvdef.h",
		Mirrored:      manifest.Int(2),
		Authoritative: manifest.Int(3),
	}}, drift)
	require.Contains(t, err.Error(), "VersionMinor = 2, but vrvdef.h defines VERSION_MINOR as 3")
}

func TestCheckWrongRelease(t *testing.T) {
	m := release(t, "3.15.1")
	drift, err := Check(m, load(t, m, includeDir("3.15.0")))
	require.ErrorIs(t, err, ErrDrift)
	require.Len(t, drift, 1)
	require.Equal(t, "VersionRevision", drift[0].Name)
}

func index(t *testing.T, src string) *parser.Index {
	t.Helper()
	h, err := parser.Parse(src)
	require.NoError(t, err)
	h.Path = "x.h"
	return parser.NewIndex([]*parser.Header{h})
}

func TestUnknownSource(t *testing.T) {
	idx := index(t, `
#define NAME "verovio"
#define FLAG true
#define TWO 2
enum Offsets { a = offsetof(Options, a) };
`)

	tests := []struct {
		name   string
		c      manifest.Constant
		detail string
	}{
		{"missing", manifest.Constant{Name: "X", Source: "MISSING", Kind: manifest.ConstInt}, "neither a macro nor an enumerator"},
		{"string macro", manifest.Constant{Name: "X", Source: "NAME", Kind: manifest.ConstInt}, "macro NAME in x.h"},
		{"offsetof", manifest.Constant{Name: "X", Source: "a", Kind: manifest.ConstInt}, "enumerator a in x.h"},
		{"bool for int", manifest.Constant{Name: "X", Source: "FLAG", Kind: manifest.ConstInt}, "is a boolean"},
		{"int for bool", manifest.Constant{Name: "X", Source: "TWO", Kind: manifest.ConstBool, Value: manifest.Bool(false)}, "not a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &manifest.Manifest{Constants: []manifest.Constant{tt.c}}
			_, err := Check(m, idx)
			require.ErrorIs(t, err, ErrUnknownSource)
			require.Contains(t, err.Error(), tt.detail)
		})
	}
}

func TestCheckBoolFromInt(t *testing.T) {
	idx := index(t, "#define DEV 1\n")
	m := &manifest.Manifest{Constants: []manifest.Constant{{Name: "Dev", Source: "DEV", Kind: manifest.ConstBool, Value: manifest.Bool(true)}}}
	drift, err := Check(m, idx)
	require.NoError(t, err)
	require.Empty(t, drift)
}

func TestCheckScales(t *testing.T) {
	levels := func(values ...int64) []manifest.Constant {
		var out []manifest.Constant
		for i, v := range values {
			out = append(out, manifest.Constant{Name: string(rune('A' + i)), Kind: manifest.ConstInt, Value: manifest.Int(v)})
		}
		return out
	}

	tests := []struct {
		name    string
		consts  []manifest.Constant
		members []string
		wantErr string
	}{
		{name: "ordered", consts: levels(0, 1, 2, 3, 4), members: []string{"A", "B", "C", "D", "E"}},
		{name: "swapped", consts: levels(0, 2, 1, 3, 4), members: []string{"A", "B", "C", "D", "E"}, wantErr: "B is 2, want 1"},
		{name: "gap", consts: levels(0, 1, 3), members: []string{"A", "B", "C"}, wantErr: "C is 3, want 2"},
		{name: "offset", consts: levels(1, 2), members: []string{"A", "B"}, wantErr: "A is 1, want 0"},
		{name: "repeated member", consts: levels(0, 1), members: []string{"A", "A"}, wantErr: "lists A twice"},
		{name: "missing member", consts: levels(0), members: []string{"A", "Z"}, wantErr: "Z has no value"},
		{
			name:    "boolean member",
			consts:  []manifest.Constant{{Name: "A", Kind: manifest.ConstBool, Value: manifest.Bool(false)}},
			members: []string{"A"},
			wantErr: "A is a boolean",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &manifest.Manifest{Constants: tt.consts, Scales: []manifest.Scale{{Name: "S", Members: tt.members}}}
			err := CheckScales(m)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrScaleOrder)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
