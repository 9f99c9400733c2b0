package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const verovioInclude = "../testdata/verovio/4.2.0/include"

func loadVerovio(t *testing.T, defines ...string) *Index {
	t.Helper()
	idx, err := Load(context.Background(), LoadConfig{
		IncludeDirs: []string{verovioInclude},
		Defines:     defines,
		Parallelism: 2,
	}, []string{"toolkit.h"})
	require.NoError(t, err)
	return idx
}

func TestLoadInclusionOrder(t *testing.T) {
	idx := loadVerovio(t, "RUST_LIBRARY")

	var order []string
	for _, h := range idx.Headers() {
		order = append(order, h.Path)
	}
	require.Equal(t, []string{"vrvdef.h", "options.h", "vrv.h", "toolkit.h"}, order)
	require.Equal(t, []string{"options.h", "toolkit.h", "vrv.h", "vrvdef.h"}, Files(idx))
}

func TestLoadLookup(t *testing.T) {
	idx := loadVerovio(t, "RUST_LIBRARY")

	decls := idx.Lookup("vrv::Toolkit")
	require.Len(t, decls, 1)
	require.Equal(t, DeclClass, decls[0].Kind)
	require.Equal(t, "toolkit.h", decls[0].Header)
	require.Equal(t, "vrv", decls[0].Namespace())

	require.Len(t, idx.Lookup("::vrv::Toolkit"), 1)
	require.Empty(t, idx.Lookup("Toolkit"))
	require.Len(t, idx.LookupIn("vrv", "Options"), 1)
	require.Len(t, idx.LookupIn("vrv::detail", "OptionStringView"), 1)

	view := idx.Lookup("vrv::OptionStringView")
	require.Len(t, view, 1)

	// Declarations from included headers precede those of the includer.
	require.Less(t, idx.Lookup("vrv::Options")[0].Seq, decls[0].Seq)

	fns := idx.Lookup("vrv::SetLogInterceptor")
	require.Len(t, fns, 1)
	require.Equal(t, DeclFunction, fns[0].Kind)
	require.Equal(t, "vrv.h", fns[0].Header)

	h, ok := idx.Forward("vrv::Doc")
	require.True(t, ok)
	require.Equal(t, "toolkit.h", h)
}

func TestLoadWithoutDefines(t *testing.T) {
	idx := loadVerovio(t)

	require.Empty(t, idx.Lookup("vrv::OptionStringView"))
	require.Empty(t, idx.Lookup("vrv::MapOfStrOptionsWrapper"))

	tk := idx.Lookup("vrv::Toolkit")
	require.Len(t, tk, 1)
	for _, m := range tk[0].Class.Methods {
		require.NotEqual(t, "GetOptionsObj", m.Name)
	}
}

func TestMacrosAndEnumerators(t *testing.T) {
	idx := loadVerovio(t, "RUST_LIBRARY")

	tests := []struct {
		macro  string
		value  int64
		isBool bool
	}{
		{"VERSION_MAJOR", 4, false},
		{"VERSION_MINOR", 2, false},
		{"VERSION_REVISION", 0, false},
		{"VERSION_DEV", 0, true},
		{"DEFAULT_SCALE", 100, false},
	}
	for _, tt := range tests {
		v, isBool, err := idx.EvalMacro(tt.macro)
		require.NoError(t, err, tt.macro)
		require.Equal(t, tt.value, v, tt.macro)
		require.Equal(t, tt.isBool, isBool, tt.macro)
	}

	_, _, err := idx.EvalMacro("VERSION_PATCH")
	require.Error(t, err)

	levels := []string{"LOG_OFF", "LOG_ERROR", "LOG_WARNING", "LOG_INFO", "LOG_DEBUG"}
	for i, name := range levels {
		en, ok := idx.Enumerator(name)
		require.True(t, ok, name)
		require.NoError(t, en.Err)
		require.Equal(t, int64(i), en.Value, name)
		require.Equal(t, "vrv.h", en.Header)

		qualified, ok := idx.Enumerator("vrv::" + name)
		require.True(t, ok)
		require.Equal(t, en, qualified)
	}

	full, ok := idx.Enumerator("vrv::OptionsCategory::Full")
	require.True(t, ok)
	require.Equal(t, int64(8), full.Value)

	_, ok = idx.Enumerator("Full")
	require.False(t, ok, "scoped enumerators are not visible unqualified")

	offset, ok := idx.Enumerator("vrv::OptionsMemberOffsets::m_scale")
	require.True(t, ok)
	require.Error(t, offset.Err)
}

func TestLoadMissingInclude(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toolkit.h"), []byte("#include \"options.h\"\nclass Toolkit {};\n"), 0644))

	_, err := Load(context.Background(), LoadConfig{IncludeDirs: []string{dir}}, []string{"toolkit.h"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrHeaderNotFound))
	require.Contains(t, err.Error(), "options.h (included from toolkit.h)")

	_, err = Load(context.Background(), LoadConfig{IncludeDirs: []string{dir}}, []string{"vrv.h"})
	require.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestLoadSubdirectoryIncludes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vrv"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vrv", "a.h"), []byte("#include \"b.h\"\nstruct A { int x; };\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vrv", "b.h"), []byte("struct B { int y; };\n"), 0644))

	idx, err := Load(context.Background(), LoadConfig{IncludeDirs: []string{dir}}, []string{"vrv/a.h"})
	require.NoError(t, err)
	require.Equal(t, []string{"vrv/a.h", "vrv/b.h"}, Files(idx))

	b := idx.Lookup("B")
	require.Len(t, b, 1)
	require.Equal(t, "vrv/b.h", b[0].Header)
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, LoadConfig{IncludeDirs: []string{verovioInclude}}, []string{"toolkit.h"})
	require.ErrorIs(t, err, context.Canceled)
}
