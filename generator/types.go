package generator

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/parser"
	"github.com/ardanlabs/vrvbind/resolve"
)

var errUnmappable = errors.New("cannot be mapped")

// conv is the way a value crosses the foreign boundary.
type conv int

const (
	convPlain conv = iota
	convSmallInt
	convBool
	convString
	convHandle
	convPOD
	convPODPointer
)

// GoType is the Go side of a C++ type together with its libffi
// descriptor.
type GoType struct {
	Go   string
	FFI  string
	Zero string
	conv conv
}

type arith struct {
	signed, unsigned string
	ffiS, ffiU       string
}

var arithTypes = map[string]arith{
	"char":      {"int8", "uint8", "Sint8", "Uint8"},
	"short":     {"int16", "uint16", "Sint16", "Uint16"},
	"int":       {"int32", "uint32", "Sint32", "Uint32"},
	"long":      {"int64", "uint64", "Sint64", "Uint64"},
	"long long": {"int64", "uint64", "Sint64", "Uint64"},
	"int8_t":    {"int8", "int8", "Sint8", "Sint8"},
	"uint8_t":   {"uint8", "uint8", "Uint8", "Uint8"},
	"int16_t":   {"int16", "int16", "Sint16", "Sint16"},
	"uint16_t":  {"uint16", "uint16", "Uint16", "Uint16"},
	"int32_t":   {"int32", "int32", "Sint32", "Sint32"},
	"uint32_t":  {"uint32", "uint32", "Uint32", "Uint32"},
	"int64_t":   {"int64", "int64", "Sint64", "Sint64"},
	"uint64_t":  {"uint64", "uint64", "Uint64", "Uint64"},
	"size_t":    {"uint64", "uint64", "Uint64", "Uint64"},
	"float":     {"float32", "float32", "Float", "Float"},
	"double":    {"float64", "float64", "Double", "Double"},
}

// typeMapper maps C++ types found in the declarations of a surface to Go.
type typeMapper struct {
	surface *resolve.Surface
	handles map[string]string
	pods    map[string]string
	enums   map[string]string
}

func newTypeMapper(s *resolve.Surface) *typeMapper {
	tm := &typeMapper{
		surface: s,
		handles: make(map[string]string),
		pods:    make(map[string]string),
		enums:   make(map[string]string),
	}
	for _, e := range s.Entries {
		switch {
		case e.Symbol.Kind == manifest.KindPOD:
			tm.pods[e.Decl.Name] = toGoName(e.Decl.Name)
		case e.Symbol.Kind == manifest.KindClass && e.Decl.Kind == parser.DeclClass:
			tm.handles[e.Decl.Name] = toGoName(e.Decl.Name)
		case e.Symbol.Kind == manifest.KindClass && e.Decl.Kind == parser.DeclEnum:
			tm.enums[e.Decl.Name] = toGoName(e.Decl.Name)
		}
	}
	return tm
}

func unmappable(ct parser.CType, format string, args ...any) error {
	return fmt.Errorf("%s %w: %s", ct, errUnmappable, fmt.Sprintf(format, args...))
}

func plain(goType, ffiType, zero string) GoType {
	return GoType{Go: goType, FFI: "&ffi.Type" + ffiType, Zero: zero}
}

func pointer(goType, zero string, c conv) GoType {
	return GoType{Go: goType, FFI: "&ffi.TypePointer", Zero: zero, conv: c}
}

// param maps the type of a parameter or a result. ns is the namespace of
// the declaration the type is used in. A nil GoType is void.
func (tm *typeMapper) param(ns string, ct parser.CType) (*GoType, error) {
	if ct.Name == "void" {
		if ct.IsPointer {
			return &GoType{Go: "uintptr", FFI: "&ffi.TypePointer", Zero: "0"}, nil
		}
		return nil, nil
	}

	if ct.IsStd() && !ct.IsTemplate() && (ct.Name == "std::string" || ct.Name == "std::string_view") {
		if ct.IsPointer || (ct.IsReference && !ct.IsConst) {
			return nil, unmappable(ct, "mutable string")
		}
		t := pointer("string", `""`, convString)
		return &t, nil
	}
	if ct.Name == "char" && ct.IsPointer {
		t := pointer("string", `""`, convString)
		return &t, nil
	}
	if ct.IsTemplate() || ct.IsStd() {
		return nil, unmappable(ct, "standard library type")
	}

	if ct.IsReference && !ct.IsConst {
		return nil, unmappable(ct, "mutable reference")
	}

	if ct.Name == "bool" && !ct.IsPointer {
		t := plain("bool", "Uint8", "false")
		t.conv = convBool
		return &t, nil
	}
	if a, ok := arithTypes[ct.Name]; ok {
		if ct.IsPointer {
			return nil, unmappable(ct, "pointer to %s", ct.Name)
		}
		t := arithmetic(a, ct.IsUnsigned)
		return &t, nil
	}

	return tm.named(ns, ct)
}

func arithmetic(a arith, unsigned bool) GoType {
	goType, ffiType := a.signed, a.ffiS
	if unsigned {
		goType, ffiType = a.unsigned, a.ffiU
	}
	t := plain(goType, ffiType, "0")
	switch goType {
	case "int8", "uint8", "int16", "uint16", "int32", "uint32":
		t.conv = convSmallInt
	}
	return t
}

func (tm *typeMapper) named(ns string, ct parser.CType) (*GoType, error) {
	decls := tm.surface.Index.LookupIn(ns, ct.Name)
	if len(decls) != 1 {
		if _, ok := tm.surface.Index.Forward(ct.Name); ok || len(decls) == 0 {
			return nil, unmappable(ct, "%s is not part of the surface", ct.Name)
		}
		return nil, unmappable(ct, "%s is ambiguous", ct.Name)
	}
	d := decls[0]

	switch d.Kind {
	case parser.DeclClass:
		if goName, ok := tm.handles[d.Name]; ok {
			if !ct.IsPointer {
				return nil, unmappable(ct, "class %s by value", d.Name)
			}
			t := pointer(goName, "0", convHandle)
			return &t, nil
		}
		if goName, ok := tm.pods[d.Name]; ok {
			if ct.IsPointer {
				t := pointer("*"+goName, "nil", convPODPointer)
				return &t, nil
			}
			return &GoType{Go: goName, FFI: "&FFIType" + goName, Zero: goName + "{}", conv: convPOD}, nil
		}
		return nil, unmappable(ct, "%s is not part of the surface", d.Name)

	case parser.DeclEnum:
		if ct.IsPointer {
			return nil, unmappable(ct, "pointer to enum")
		}
		goType := "int32"
		if goName, ok := tm.enums[d.Name]; ok {
			goType = goName
		}
		t := plain(goType, "Sint32", "0")
		t.conv = convSmallInt
		return &t, nil

	case parser.DeclTypeDef:
		td := d.TypeDef
		if td.IsFuncPointer || td.SourceType.IsPointer {
			if ct.IsPointer {
				return nil, unmappable(ct, "pointer to pointer")
			}
			return &GoType{Go: "uintptr", FFI: "&ffi.TypePointer", Zero: "0"}, nil
		}
		src := td.SourceType
		src.IsPointer = ct.IsPointer
		src.IsReference = ct.IsReference
		src.IsConst = src.IsConst || ct.IsConst
		return tm.param(td.Namespace, src)
	}

	return nil, unmappable(ct, "%s is a %s", d.Name, d.Kind)
}

// field maps a data member of a POD. Borrowed pointer members keep their
// address as a Go pointer.
func (tm *typeMapper) field(ns string, f parser.Field, borrowed bool) (GoType, error) {
	ct := f.Type
	if borrowed {
		if ct.Name == "char" {
			return pointer("*byte", "nil", convPlain), nil
		}
		return pointer("unsafe.Pointer", "nil", convPlain), nil
	}

	t, err := tm.param(ns, ct)
	if err != nil {
		return GoType{}, err
	}
	if t == nil || t.conv == convString || t.conv == convHandle || t.conv == convPODPointer {
		return GoType{}, unmappable(ct, "field %s", f.Name)
	}
	return *t, nil
}
