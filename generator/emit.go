package generator

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/ardanlabs/vrvbind/manifest"
)

const generatedHeader = "// Code generated by vrvbind. DO NOT EDIT.\n\n"

// knownImports maps a package qualifier to its import path. Generated
// files import exactly the packages their code refers to.
var knownImports = []struct{ qualifier, path string }{
	{"errors.", "errors"},
	{"fmt.", "fmt"},
	{"filepath.", "path/filepath"},
	{"runtime.", "runtime"},
	{"unsafe.", "unsafe"},
	{"ffi.", "github.com/jupiterrider/ffi"},
	{"unix.", "golang.org/x/sys/unix"},
}

// file assembles a generated Go file around body and formats it.
func file(name, pkg, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", pkg)

	var paths []string
	for _, imp := range knownImports {
		if strings.Contains(body, imp.qualifier) {
			paths = append(paths, imp.path)
		}
	}
	if len(paths) > 0 {
		buf.WriteString("import (\n")
		for _, p := range paths {
			fmt.Fprintf(&buf, "\t%q\n", p)
		}
		buf.WriteString(")\n\n")
	}
	buf.WriteString(body)

	out, err := imports.Process(name, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return "", fmt.Errorf("formatting %s: %w", name, err)
	}
	return string(out), nil
}

var loaderTmpl = template.Must(template.New("loader").Parse(`var lib ffi.Lib
{{if .Strict}}
var (
	// ErrNilHandle is returned for calls through a zero handle.
	ErrNilHandle = errors.New("nil handle")
	// ErrNotLoaded is returned for calls made before Load.
	ErrNotLoaded = errors.New("library not loaded")
	// ErrInvalidString is returned for strings containing a NUL byte.
	ErrInvalidString = errors.New("string contains a NUL byte")
)

var loaded bool
{{end}}
// Load opens the {{.LibName}} library found in path and prepares its
// entry points.
func Load(path string) error {
	var err error
	lib, err = ffi.Load(getLibraryPath(path))
	if err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}

	if err := loadFuncs(); err != nil {
		return err
	}
{{if .Strict}}
	loaded = true
{{end}}
	return nil
}

func getLibraryPath(basePath string) string {
	var filename string
	switch runtime.GOOS {
	case "linux", "freebsd":
		filename = "lib{{.LibName}}.so"
	case "darwin":
		filename = "lib{{.LibName}}.dylib"
	case "windows":
		filename = "{{.LibName}}.dll"
	default:
		filename = "lib{{.LibName}}.so"
	}
	return filepath.Join(basePath, filename)
}
`))

func (p *Plan) strict() bool {
	return p.Safety == manifest.SafetyStrict
}

func (p *Plan) emitLoader() (string, error) {
	var buf bytes.Buffer
	err := loaderTmpl.Execute(&buf, map[string]any{
		"LibName": p.Lib,
		"Strict":  p.strict(),
	})
	if err != nil {
		return "", err
	}
	return file("loader.go", p.Package, buf.String())
}

func (p *Plan) emitTypes() (string, error) {
	var buf bytes.Buffer

	for _, h := range p.Handles {
		fmt.Fprintf(&buf, "// %s is an opaque handle to a %s.\n", h.GoName, h.CName)
		fmt.Fprintf(&buf, "type %s uintptr\n\n", h.GoName)
	}

	for _, s := range p.PODs {
		fmt.Fprintf(&buf, "type %s struct {\n", s.GoName)
		for _, f := range s.Fields {
			if f.Count > 0 {
				fmt.Fprintf(&buf, "\t%s [%d]%s\n", f.GoName, f.Count, f.Type.Go)
			} else {
				fmt.Fprintf(&buf, "\t%s %s\n", f.GoName, f.Type.Go)
			}
		}
		fmt.Fprintf(&buf, "}\n\n")

		fmt.Fprintf(&buf, "var FFIType%s = ffi.NewType(\n", s.GoName)
		for _, f := range s.Fields {
			n := max(f.Count, 1)
			for range n {
				fmt.Fprintf(&buf, "\t%s,\n", f.Type.FFI)
			}
		}
		fmt.Fprintf(&buf, ")\n\n")
	}

	for _, e := range p.Enums {
		fmt.Fprintf(&buf, "type %s int32\n\n", e.GoName)
		if len(e.Values) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "const (\n")
		for _, v := range e.Values {
			fmt.Fprintf(&buf, "\t%s %s = %d\n", v.GoName, e.GoName, v.Value)
		}
		fmt.Fprintf(&buf, ")\n\n")
	}

	return file("types.go", p.Package, buf.String())
}

func funcVar(f Func) string {
	return toLowerCamel(f.Shim) + "Func"
}

func (p *Plan) calls() []Func {
	var out []Func
	for _, h := range p.Handles {
		out = append(out, h.Methods...)
	}
	return append(out, p.Functions...)
}

func (p *Plan) emitFunctions() (string, error) {
	var buf bytes.Buffer
	calls := p.calls()

	if len(calls) > 0 {
		fmt.Fprintf(&buf, "var (\n")
		for _, f := range calls {
			fmt.Fprintf(&buf, "\t%s ffi.Fun\n", funcVar(f))
		}
		fmt.Fprintf(&buf, ")\n\n")
	}

	fmt.Fprintf(&buf, "func loadFuncs() error {\n")
	if len(calls) > 0 {
		fmt.Fprintf(&buf, "\tvar err error\n\n")
	}
	for _, f := range calls {
		retFFI := "&ffi.TypeVoid"
		if f.Result != nil {
			retFFI = f.Result.FFI
		}
		var argFFIs []string
		if f.Recv != "" {
			argFFIs = append(argFFIs, "&ffi.TypePointer")
		}
		for _, param := range f.Params {
			argFFIs = append(argFFIs, param.Type.FFI)
		}

		if len(argFFIs) == 0 {
			fmt.Fprintf(&buf, "\tif %s, err = lib.Prep(%q, %s); err != nil {\n", funcVar(f), f.Shim, retFFI)
		} else {
			fmt.Fprintf(&buf, "\tif %s, err = lib.Prep(%q, %s, %s); err != nil {\n",
				funcVar(f), f.Shim, retFFI, strings.Join(argFFIs, ", "))
		}
		fmt.Fprintf(&buf, "\t\treturn fmt.Errorf(\"%s: %%w\", err)\n", f.Shim)
		fmt.Fprintf(&buf, "\t}\n\n")
	}
	fmt.Fprintf(&buf, "\treturn nil\n")
	fmt.Fprintf(&buf, "}\n\n")

	for _, f := range calls {
		p.emitWrapper(&buf, f)
		buf.WriteString("\n")
	}

	return file("functions.go", p.Package, buf.String())
}

// emitWrapper writes the Go function calling the shim of f.
func (p *Plan) emitWrapper(buf *bytes.Buffer, f Func) {
	strict := p.strict()

	var params []string
	for _, param := range f.Params {
		params = append(params, fmt.Sprintf("%s %s", param.Name, param.Type.Go))
	}

	var results []string
	if f.Result != nil {
		results = append(results, f.Result.Go)
	}
	if strict {
		results = append(results, "error")
	}

	if f.Recv != "" {
		fmt.Fprintf(buf, "func (h %s) %s(%s)", f.Recv, f.GoName, strings.Join(params, ", "))
	} else {
		fmt.Fprintf(buf, "func %s(%s)", f.GoName, strings.Join(params, ", "))
	}
	switch len(results) {
	case 0:
		buf.WriteString(" {\n")
	case 1:
		fmt.Fprintf(buf, " %s {\n", results[0])
	default:
		fmt.Fprintf(buf, " (%s) {\n", strings.Join(results, ", "))
	}

	// fail returns err from a strict wrapper.
	fail := func(err string) string {
		if f.Result != nil {
			return fmt.Sprintf("return %s, %s", f.Result.Zero, err)
		}
		return "return " + err
	}

	if strict {
		fmt.Fprintf(buf, "\tif !loaded {\n\t\t%s\n\t}\n", fail("ErrNotLoaded"))
		if f.Recv != "" {
			fmt.Fprintf(buf, "\tif h == 0 {\n\t\t%s\n\t}\n", fail(fmt.Sprintf("fmt.Errorf(\"%s: %%w\", ErrNilHandle)", f.Shim)))
		}
	}

	for _, param := range f.Params {
		if param.Type.conv != convString {
			continue
		}
		if strict {
			fmt.Fprintf(buf, "\t%sPtr, err := unix.BytePtrFromString(%s)\n", param.Name, param.Name)
			fmt.Fprintf(buf, "\tif err != nil {\n\t\t%s\n\t}\n", fail(fmt.Sprintf("fmt.Errorf(\"%s: %s: %%w\", ErrInvalidString)", f.Shim, param.Name)))
		} else {
			fmt.Fprintf(buf, "\t%sPtr, _ := unix.BytePtrFromString(%s)\n", param.Name, param.Name)
		}
	}

	resultArg := "nil"
	if r := f.Result; r != nil {
		switch r.conv {
		case convSmallInt, convBool:
			fmt.Fprintf(buf, "\tvar result ffi.Arg\n")
			resultArg = "unsafe.Pointer(&result)"
		case convString:
			fmt.Fprintf(buf, "\tvar resultPtr *byte\n")
			resultArg = "unsafe.Pointer(&resultPtr)"
		default:
			fmt.Fprintf(buf, "\tvar result %s\n", r.Go)
			resultArg = "unsafe.Pointer(&result)"
		}
	}

	callArgs := []string{resultArg}
	if f.Recv != "" {
		callArgs = append(callArgs, "unsafe.Pointer(&h)")
	}
	for _, param := range f.Params {
		if param.Type.conv == convString {
			callArgs = append(callArgs, fmt.Sprintf("unsafe.Pointer(&%sPtr)", param.Name))
		} else {
			callArgs = append(callArgs, fmt.Sprintf("unsafe.Pointer(&%s)", param.Name))
		}
	}
	fmt.Fprintf(buf, "\t%s.Call(%s)\n", funcVar(f), strings.Join(callArgs, ", "))

	ok := func(value string) string {
		if strict {
			return fmt.Sprintf("return %s, nil", value)
		}
		return "return " + value
	}

	r := f.Result
	switch {
	case r == nil:
		if strict {
			fmt.Fprintf(buf, "\treturn nil\n")
		}
	case r.conv == convBool:
		fmt.Fprintf(buf, "\t%s\n", ok("result.Bool()"))
	case r.conv == convSmallInt:
		fmt.Fprintf(buf, "\t%s\n", ok(fmt.Sprintf("%s(result)", r.Go)))
	case r.conv == convString:
		fmt.Fprintf(buf, "\tif resultPtr == nil {\n\t\t%s\n\t}\n", ok(`""`))
		fmt.Fprintf(buf, "\t%s\n", ok("unix.BytePtrToString(resultPtr)"))
	case f.Kind == FuncConstructor && strict:
		fmt.Fprintf(buf, "\tif result == 0 {\n\t\treturn 0, fmt.Errorf(\"%s: %%w\", ErrNilHandle)\n\t}\n", f.Shim)
		fmt.Fprintf(buf, "\treturn result, nil\n")
	default:
		fmt.Fprintf(buf, "\t%s\n", ok("result"))
	}

	buf.WriteString("}\n")
}

func (p *Plan) emitConstants() (string, error) {
	return emitConstants(p.Package, p.Constants, p.Scales)
}

func emitConstants(pkg string, consts []Const, scales []string) (string, error) {
	var buf bytes.Buffer

	for _, s := range scales {
		fmt.Fprintf(&buf, "type %s int\n\n", s)
	}

	var untyped []Const
	typed := make(map[string][]Const)
	for _, c := range consts {
		if c.Type == "" {
			untyped = append(untyped, c)
		} else {
			typed[c.Type] = append(typed[c.Type], c)
		}
	}

	if len(untyped) > 0 {
		fmt.Fprintf(&buf, "const (\n")
		for _, c := range untyped {
			fmt.Fprintf(&buf, "\t%s = %s\n", c.GoName, c.Value)
		}
		fmt.Fprintf(&buf, ")\n\n")
	}
	for _, s := range scales {
		fmt.Fprintf(&buf, "const (\n")
		for _, c := range typed[s] {
			fmt.Fprintf(&buf, "\t%s %s = %s\n", c.GoName, s, c.Value)
		}
		fmt.Fprintf(&buf, ")\n\n")
	}

	return file("constants.go", pkg, buf.String())
}

func (p *Plan) emitUtilities() (string, error) {
	var buf bytes.Buffer

	for _, h := range p.Handles {
		if !p.ExcludeImpls {
			fmt.Fprintf(&buf, "func (h %s) String() string {\n", h.GoName)
			fmt.Fprintf(&buf, "\treturn fmt.Sprintf(\"%s(%%#x)\", uintptr(h))\n", h.CName)
			fmt.Fprintf(&buf, "}\n\n")
			fmt.Fprintf(&buf, "func (h %s) Equal(o %s) bool {\n\treturn h == o\n}\n\n", h.GoName, h.GoName)
		}
		if !p.ExcludeUtilities {
			fmt.Fprintf(&buf, "// IsNil reports whether h points to no %s.\n", h.CName)
			fmt.Fprintf(&buf, "func (h %s) IsNil() bool {\n\treturn h == 0\n}\n\n", h.GoName)
		}
	}

	for _, s := range p.PODs {
		if !p.ExcludeImpls {
			fmt.Fprintf(&buf, "func (p %s) String() string {\n", s.GoName)
			fmt.Fprintf(&buf, "\ttype plain %s\n", s.GoName)
			fmt.Fprintf(&buf, "\treturn fmt.Sprintf(\"%s%%+v\", plain(p))\n", s.CName)
			fmt.Fprintf(&buf, "}\n\n")
			fmt.Fprintf(&buf, "func (p %s) Equal(o %s) bool {\n\treturn p == o\n}\n\n", s.GoName, s.GoName)
		}
		if !p.ExcludeUtilities {
			var params, fields []string
			for _, f := range s.Fields {
				name := toLowerCamel(f.GoName)
				typ := f.Type.Go
				if f.Count > 0 {
					typ = fmt.Sprintf("[%d]%s", f.Count, typ)
				}
				params = append(params, name+" "+typ)
				fields = append(fields, fmt.Sprintf("%s: %s", f.GoName, name))
			}
			fmt.Fprintf(&buf, "func Make%s(%s) %s {\n", s.GoName, strings.Join(params, ", "), s.GoName)
			fmt.Fprintf(&buf, "\treturn %s{%s}\n", s.GoName, strings.Join(fields, ", "))
			fmt.Fprintf(&buf, "}\n\n")
		}
	}

	if !p.ExcludeImpls {
		for _, e := range p.Enums {
			emitEnumString(&buf, e)
		}
	}

	return file("utilities.go", p.Package, buf.String())
}

func emitEnumString(buf *bytes.Buffer, e Enum) {
	fmt.Fprintf(buf, "func (e %s) String() string {\n", e.GoName)
	if len(e.Values) > 0 {
		// Aliased values print as their first name.
		seen := make(map[int64]bool)
		var values []EnumValue
		for _, v := range e.Values {
			if !seen[v.Value] {
				seen[v.Value] = true
				values = append(values, v)
			}
		}
		sort.SliceStable(values, func(i, j int) bool { return values[i].Value < values[j].Value })

		fmt.Fprintf(buf, "\tswitch e {\n")
		for _, v := range values {
			fmt.Fprintf(buf, "\tcase %s:\n\t\treturn %q\n", v.GoName, v.GoName)
		}
		fmt.Fprintf(buf, "\t}\n")
	}
	fmt.Fprintf(buf, "\treturn fmt.Sprintf(\"%s(%%d)\", int32(e))\n", e.GoName)
	fmt.Fprintf(buf, "}\n\n")
}
