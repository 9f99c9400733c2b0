package resolve

import (
	"fmt"
	"strings"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/parser"
)

var arithmetic = map[string]bool{
	"bool": true, "char": true, "short": true, "int": true, "long": true,
	"long long": true, "float": true, "double": true, "long double": true,
	"size_t": true, "ptrdiff_t": true, "intptr_t": true, "uintptr_t": true,
	"int8_t": true, "uint8_t": true, "int16_t": true, "uint16_t": true,
	"int32_t": true, "uint32_t": true, "int64_t": true, "uint64_t": true,
	"wchar_t": true, "char16_t": true, "char32_t": true,
}

// IsArithmetic reports whether name is a built-in arithmetic type.
func IsArithmetic(name string) bool {
	return arithmetic[strings.TrimPrefix(name, "std::")]
}

// checkLayout verifies that decl is trivially copyable with only public
// value fields. Every offending field is listed in a single diagnostic.
// Struct fields must refer to types declared earlier in inclusion order.
func checkLayout(idx *parser.Index, sym manifest.Symbol, decl parser.Decl) error {
	borrow := make(map[string]bool)
	for _, b := range sym.Borrow {
		borrow[b] = true
	}

	problems, order := layoutProblems(idx, decl, borrow, 0)

	fields := make(map[string]parser.Field)
	for _, f := range decl.Class.Fields {
		fields[f.Name] = f
	}
	for _, b := range sym.Borrow {
		f, ok := fields[b]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("borrowed field %s does not exist", b))
		case !f.Type.IsPointer:
			problems = append(problems, fmt.Sprintf("borrowed field %s is not a pointer", b))
		}
	}

	if len(problems) > 0 {
		return &Diagnostic{
			Symbol: sym.Name,
			Header: decl.Header,
			Err:    ErrUnsupportedLayout,
			Detail: strings.Join(problems, "; "),
		}
	}
	if len(order) > 0 {
		return &Diagnostic{
			Symbol: sym.Name,
			Header: decl.Header,
			Err:    ErrIncludeOrder,
			Detail: strings.Join(order, "; "),
		}
	}
	return nil
}

func layoutProblems(idx *parser.Index, decl parser.Decl, borrow map[string]bool, depth int) (problems, order []string) {
	c := decl.Class
	if len(c.Bases) > 0 {
		problems = append(problems, "has base classes "+strings.Join(c.Bases, ", "))
	}
	if c.IsPolymorphic() {
		problems = append(problems, "has virtual methods")
	}

	for _, f := range c.Fields {
		if f.IsStatic {
			continue
		}
		if f.Access != parser.AccessPublic {
			problems = append(problems, fmt.Sprintf("field %s is %s", f.Name, f.Access))
		}
		t := f.Type
		switch {
		case t.IsReference:
			problems = append(problems, fmt.Sprintf("field %s is a reference", f.Name))
		case t.IsPointer:
			if !borrow[f.Name] {
				problems = append(problems, fmt.Sprintf("field %s is a pointer", f.Name))
			}
		case t.IsStd() && !IsArithmetic(t.Name), t.IsTemplate():
			problems = append(problems, fmt.Sprintf("field %s of type %s owns resources", f.Name, t.Name))
		case IsArithmetic(t.Name):
		default:
			p, o := valueType(idx, decl, f, depth)
			problems = append(problems, p...)
			order = append(order, o...)
		}
	}
	return problems, order
}

// valueType checks a field of a named, non built-in type.
func valueType(idx *parser.Index, owner parser.Decl, f parser.Field, depth int) (problems, order []string) {
	if depth > 8 {
		return []string{fmt.Sprintf("field %s: type %s nests too deeply", f.Name, f.Type.Name)}, nil
	}

	decls := idx.LookupIn(owner.Namespace(), f.Type.Name)
	if len(decls) == 0 {
		if h, ok := idx.Forward(qualifiedIn(owner.Namespace(), f.Type.Name)); ok {
			return []string{fmt.Sprintf("field %s has incomplete type %s (forward declared in %s)", f.Name, f.Type.Name, h)}, nil
		}
		return []string{fmt.Sprintf("field %s has unknown type %s", f.Name, f.Type.Name)}, nil
	}
	d := decls[len(decls)-1]

	if d.Seq > owner.Seq {
		order = append(order, fmt.Sprintf("field %s uses %s declared in %s after %s", f.Name, d.Name, d.Header, owner.Header))
	}

	switch d.Kind {
	case parser.DeclEnum:
		return nil, order
	case parser.DeclTypeDef:
		src := d.TypeDef.SourceType
		switch {
		case d.TypeDef.IsFuncPointer, src.IsPointer:
			return append(problems, fmt.Sprintf("field %s of type %s is a pointer", f.Name, f.Type.Name)), order
		case src.IsStd() && !IsArithmetic(src.Name), src.IsTemplate():
			return append(problems, fmt.Sprintf("field %s of type %s owns resources", f.Name, f.Type.Name)), order
		case IsArithmetic(src.Name):
			return nil, order
		}
		inner := f
		inner.Type = src
		p, o := valueType(idx, d, inner, depth+1)
		return append(problems, p...), append(order, o...)
	case parser.DeclClass:
		p, o := layoutProblems(idx, d, nil, depth+1)
		for _, msg := range p {
			problems = append(problems, fmt.Sprintf("field %s: %s %s", f.Name, d.Name, msg))
		}
		return problems, append(order, o...)
	}
	return []string{fmt.Sprintf("field %s has unsupported type %s", f.Name, f.Type.Name)}, nil
}

func qualifiedIn(ns, name string) string {
	if ns == "" || strings.Contains(name, "::") {
		return name
	}
	return ns + "::" + name
}
