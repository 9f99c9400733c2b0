package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestParseClass(t *testing.T) {
	src := `
namespace vrv {

class Doc;

class Toolkit {
public:
    Toolkit(bool initFont = true);
    virtual ~Toolkit();

    std::string GetVersion();
    bool LoadData(const std::string &data);
    std::string RenderToSVG(int pageNo = 1, bool xmlDeclaration = false);
    int GetScale() const { return m_scale; }
    static int Count();

private:
    bool IsUTF16(const std::string &filename);

    Doc *m_doc;
    int m_scale, m_width;
};

}
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, []string{"vrv::Doc"}, h.Forward)
	require.Len(t, h.Classes, 1)

	c := h.Classes[0]
	require.Equal(t, "vrv::Toolkit", c.Name)
	require.Equal(t, "vrv", c.Namespace)
	require.False(t, c.IsStruct)
	require.True(t, c.IsPolymorphic())
	require.False(t, c.IsAbstract())

	var names []string
	for _, m := range c.Methods {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"Toolkit", "~Toolkit", "GetVersion", "LoadData", "RenderToSVG", "GetScale", "Count", "IsUTF16"}, names)

	ctor := c.Methods[0]
	require.True(t, ctor.IsConstructor)
	require.Equal(t, []FunctionParam{{Name: "initFont", Type: CType{Name: "bool"}, HasDefault: true}}, ctor.Params)

	require.True(t, c.Methods[1].IsDestructor)
	require.True(t, c.Methods[1].IsVirtual)

	load := c.Methods[3]
	require.Equal(t, CType{Name: "bool"}, load.ReturnType)
	require.Equal(t, []FunctionParam{{Name: "data", Type: CType{Name: "std::string", IsConst: true, IsReference: true}}}, load.Params)

	require.True(t, c.Methods[5].IsConst)
	require.True(t, c.Methods[6].IsStatic)
	require.Equal(t, AccessPrivate, c.Methods[7].Access)

	want := []Field{
		{Name: "m_doc", Type: CType{Name: "Doc", IsPointer: true}, Access: AccessPrivate},
		{Name: "m_scale", Type: CType{Name: "int"}, Access: AccessPrivate},
		{Name: "m_width", Type: CType{Name: "int"}, Access: AccessPrivate},
	}
	if diff := cmp.Diff(want, c.Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestParseConditionalBlocks(t *testing.T) {
	src := `
namespace vrv {
#ifdef RUST_LIBRARY
struct OptionStringView {
    const char *str;
    size_t length;
};
#else
struct Fallback { int x; };
#endif
}
`
	tests := []struct {
		name    string
		defines []string
		want    string
	}{
		{name: "defined", defines: []string{"RUST_LIBRARY"}, want: "vrv::OptionStringView"},
		{name: "undefined", want: "vrv::Fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Parse(src, tt.defines...)
			require.NoError(t, err)
			require.Len(t, h.Classes, 1)
			require.Equal(t, tt.want, h.Classes[0].Name)
			require.True(t, h.Classes[0].IsStruct)
		})
	}
}

func TestParseStructFields(t *testing.T) {
	src := `
struct OptionStringView {
    const char *str;
    size_t length;
    int values[4];
};
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, h.Classes, 1)

	want := []Field{
		{Name: "str", Type: CType{Name: "char", IsConst: true, IsPointer: true}},
		{Name: "length", Type: CType{Name: "size_t"}},
		{Name: "values", Type: CType{Name: "int", IsArray: true, ArraySize: 4}},
	}
	if diff := cmp.Diff(want, h.Classes[0].Fields); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
}

func TestParseEnums(t *testing.T) {
	src := `
namespace vrv {
enum LogLevel { LOG_OFF = 0, LOG_ERROR, LOG_WARNING, LOG_INFO, LOG_DEBUG };
enum class OptionsCategory { None, Base, General };
enum Offsets { a = offsetof(Options, a), b = offsetof(Options, b), };
}
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, h.Enums, 3)

	require.Equal(t, "vrv::LogLevel", h.Enums[0].Name)
	require.False(t, h.Enums[0].IsScoped)
	require.Equal(t, []EnumValue{
		{Name: "LOG_OFF", Value: "0"},
		{Name: "LOG_ERROR"},
		{Name: "LOG_WARNING"},
		{Name: "LOG_INFO"},
		{Name: "LOG_DEBUG"},
	}, h.Enums[0].Values)

	require.True(t, h.Enums[1].IsScoped)
	require.Len(t, h.Enums[1].Values, 3)

	require.Equal(t, []EnumValue{
		{Name: "a", Value: "offsetof(Options, a)"},
		{Name: "b", Value: "offsetof(Options, b)"},
	}, h.Enums[2].Values)
}

func TestParseFunctions(t *testing.T) {
	src := `
namespace vrv {
void LogError(const char *fmt, ...);
void EnableLogToBuffer(bool value);
typedef void (*LogInterceptor)(int level, const char *message, void *userData);
void SetLogInterceptor(LogInterceptor interceptor, void *userData);
typedef std::map<std::string, Option *> MapOfStrOptions;
}
`
	h, err := Parse(src)
	require.NoError(t, err)

	want := []Function{
		{
			Name:       "vrv::LogError",
			Namespace:  "vrv",
			ReturnType: CType{Name: "void"},
			Params:     []FunctionParam{{Name: "fmt", Type: CType{Name: "char", IsConst: true, IsPointer: true}}},
			IsVariadic: true,
		},
		{
			Name:       "vrv::EnableLogToBuffer",
			Namespace:  "vrv",
			ReturnType: CType{Name: "void"},
			Params:     []FunctionParam{{Name: "value", Type: CType{Name: "bool"}}},
		},
		{
			Name:       "vrv::SetLogInterceptor",
			Namespace:  "vrv",
			ReturnType: CType{Name: "void"},
			Params: []FunctionParam{
				{Name: "interceptor", Type: CType{Name: "LogInterceptor"}},
				{Name: "userData", Type: CType{Name: "void", IsPointer: true}},
			},
		},
	}
	if diff := cmp.Diff(want, h.Functions); diff != "" {
		t.Errorf("functions (-want +got):\n%s", diff)
	}

	require.Len(t, h.TypeDefs, 2)
	require.Equal(t, "vrv::LogInterceptor", h.TypeDefs[0].Name)
	require.True(t, h.TypeDefs[0].IsFuncPointer)
	require.Equal(t, "vrv::MapOfStrOptions", h.TypeDefs[1].Name)
	require.Equal(t, "std::map<std::string, Option *>", h.TypeDefs[1].SourceType.Name)
}

func TestParseMacrosAndIncludes(t *testing.T) {
	src := `
#ifndef __VRV_DEF_H__
#define __VRV_DEF_H__
#include <string>
#include "vrv.h"
#define VERSION_MAJOR 4
#define VERSION_DEV false
#define MAX(a, b) ((a) > (b) ? (a) : (b))
#endif
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Equal(t, []Include{{Path: "string", IsSystem: true}, {Path: "vrv.h"}}, h.Includes)

	want := []Macro{{Name: "__VRV_DEF_H__"}, {Name: "VERSION_MAJOR", Value: "4"}, {Name: "VERSION_DEV", Value: "false"}}
	if diff := cmp.Diff(want, h.Macros, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("macros (-want +got):\n%s", diff)
	}
}

func TestParseInitializerList(t *testing.T) {
	src := `
class Wrapper {
public:
    Wrapper(const Map &map)
        : m_begin{ map.begin() }, m_end{ map.end() }, m_size{ map.size() }
    {
    }

    Pair GetNext()
    {
        if (m_begin == m_end) {
            return { nullptr, nullptr };
        }
        return {};
    }

    size_t GetSize() const { return m_size; }

private:
    size_t m_size;
};
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, h.Classes, 1)

	var names []string
	for _, m := range h.Classes[0].Methods {
		names = append(names, m.Name)
	}
	require.Equal(t, []string{"Wrapper", "GetNext", "GetSize"}, names)
	require.True(t, h.Classes[0].Methods[0].IsConstructor)
	require.Len(t, h.Classes[0].Fields, 1)
}

func TestParseInheritance(t *testing.T) {
	src := `
class Option {
public:
    virtual ~Option() {}
    virtual std::string GetStrValue() const = 0;
protected:
    std::string m_title;
};

class OptionBool : public Option {
public:
    std::string GetStrValue() const override;
    bool GetValue() const { return m_value; }
private:
    bool m_value;
};
`
	h, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, h.Classes, 2)

	require.True(t, h.Classes[0].IsAbstract())
	require.Equal(t, AccessProtected, h.Classes[0].Fields[0].Access)

	require.Equal(t, []string{"Option"}, h.Classes[1].Bases)
	require.True(t, h.Classes[1].Methods[0].IsVirtual)
	require.False(t, h.Classes[1].IsAbstract())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unterminated conditional", src: "#ifdef X\nint a;\n"},
		{name: "stray endif", src: "#endif\n"},
		{name: "unbalanced brace", src: "namespace vrv {\nclass A { int a;\n"},
		{name: "stray closing brace", src: "}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
		})
	}
}

func TestEvalCondition(t *testing.T) {
	defines := map[string]string{"RUST_LIBRARY": "", "LEVEL": "2", "OFF": "0"}

	tests := []struct {
		expr string
		want bool
	}{
		{"defined(RUST_LIBRARY)", true},
		{"!defined(RUST_LIBRARY)", false},
		{"defined RUST_LIBRARY", true},
		{"defined(EMSCRIPTEN) || defined(RUST_LIBRARY)", true},
		{"defined(EMSCRIPTEN) && defined(RUST_LIBRARY)", false},
		{"LEVEL", true},
		{"OFF", false},
		{"UNDEFINED", false},
		{"1", true},
		{"(0)", false},
	}

	for _, tt := range tests {
		if got := evalCondition(tt.expr, defines); got != tt.want {
			t.Errorf("evalCondition(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
