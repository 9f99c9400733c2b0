package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/vrvbind/apidiff"
	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/mirror"
	"github.com/ardanlabs/vrvbind/resolve"
)

func includeDir(version string) string {
	return filepath.Join("testdata", "verovio", version, "include")
}

func TestCheck(t *testing.T) {
	for _, v := range []string{"3.15.0", "3.15.1", "4.2.0"} {
		t.Run(v, func(t *testing.T) {
			res, err := check(context.Background(), headerFlags{version: v, includes: stringsFlag{includeDir(v)}})
			require.NoError(t, err)
			require.Equal(t, v, res.surface.Manifest.Version.String())
		})
	}
}

func TestCheckFailures(t *testing.T) {
	_, err := check(context.Background(), headerFlags{version: "4.2.0"})
	require.ErrorContains(t, err, "-I")

	// The 4.2.0 manifest needs options.h, which 3.15.1 does not ship.
	_, err = check(context.Background(), headerFlags{version: "4.2.0", includes: stringsFlag{includeDir("3.15.1")}})
	require.ErrorContains(t, err, "options.h")

	// Headers of the previous release disagree on the version.
	_, err = check(context.Background(), headerFlags{version: "3.15.1", includes: stringsFlag{includeDir("3.15.0")}})
	require.ErrorIs(t, err, mirror.ErrDrift)
}

func TestCheckUnknownVersion(t *testing.T) {
	_, err := check(context.Background(), headerFlags{version: "5.0.0", includes: stringsFlag{includeDir("4.2.0")}})
	require.ErrorIs(t, err, manifest.ErrUnknownVersion)
}

func TestCheckExternalManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base:
  version: 4.2.0
  headers: [toolkit.h]
  safety: strict
  symbols:
    - name: vrv::Toolkit
      kind: class
    - name: vrv::Doc
      kind: class
`), 0644))

	old := *manifestPath
	*manifestPath = path
	defer func() { *manifestPath = old }()

	_, err := check(context.Background(), headerFlags{includes: stringsFlag{includeDir("4.2.0")}})
	require.ErrorIs(t, err, resolve.ErrUnresolved)
	require.ErrorContains(t, err, "vrv::Doc")
}

func TestDiff(t *testing.T) {
	report, err := diff("3.15.0", "")
	require.NoError(t, err)
	require.Equal(t, "4.2.0", report.To)
	require.NoError(t, report.Regressions())

	_, err = diff("1.0", "")
	require.Error(t, err)

	var added int
	for _, item := range report.Items {
		if item.IsAdd() && item.After.Category == apidiff.SymbolCategory {
			added++
		}
	}
	require.Equal(t, 15, added)
}

func TestShow(t *testing.T) {
	m, err := resolveVersion("3.15.1")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, show(&b, m, false))
	require.Contains(t, b.String(), "version: 3.15.1")

	b.Reset()
	require.NoError(t, show(&b, m, true))
	require.Contains(t, b.String(), "vrv::SetLogInterceptor")
}

func TestIsHeader(t *testing.T) {
	require.True(t, isHeader("include/toolkit.h"))
	require.True(t, isHeader("x.HPP"))
	require.False(t, isHeader("toolkit.cpp"))
	require.False(t, isHeader("toolkit.h~"))
}
