package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/glog"

	"github.com/ardanlabs/vrvbind/manifest"
	"github.com/ardanlabs/vrvbind/mirror"
	"github.com/ardanlabs/vrvbind/parser"
	"github.com/ardanlabs/vrvbind/resolve"
)

// FuncKind says how a wrapper is called.
type FuncKind int

const (
	FuncFree FuncKind = iota
	FuncMethod
	FuncConstructor
	FuncDestructor
)

type Param struct {
	Name string
	Type GoType
}

// Func is one generated wrapper around a C shim.
type Func struct {
	Kind   FuncKind
	GoName string
	Shim   string
	Recv   string
	Params []Param
	Result *GoType
}

// Handle is an opaque pointer to an instance of a C++ class.
type Handle struct {
	GoName  string
	CName   string
	Methods []Func
}

type PODField struct {
	GoName string
	Type   GoType
	Count  int
}

// POD is a plain struct passed by value.
type POD struct {
	GoName string
	CName  string
	Fields []PODField
}

type EnumValue struct {
	GoName string
	Value  int64
}

type Enum struct {
	GoName string
	CName  string
	Values []EnumValue
}

type Const struct {
	GoName string
	Type   string
	Value  string
}

// Skip records a declaration left out of the bindings.
type Skip struct {
	Symbol string
	Member string
	Reason string
}

func (s Skip) String() string {
	if s.Member == "" {
		return fmt.Sprintf("%s: %s", s.Symbol, s.Reason)
	}
	return fmt.Sprintf("%s::%s: %s", s.Symbol, s.Member, s.Reason)
}

// Plan is everything a generation run emits.
type Plan struct {
	Package          string
	Lib              string
	Safety           manifest.Safety
	ExcludeImpls     bool
	ExcludeUtilities bool

	Handles   []Handle
	PODs      []POD
	Enums     []Enum
	Functions []Func
	Constants []Const
	Scales    []string
	Skipped   []Skip
}

// Names a method may not take because the generated code defines them on
// every handle regardless of the utility flags.
var reservedMethods = map[string]bool{
	"Delete": true, "String": true, "Equal": true, "IsNil": true,
}

// NewPlan projects the surface s and the constant values onto Go.
func NewPlan(packageName, libName string, s *resolve.Surface, values []mirror.Value) (*Plan, error) {
	m := s.Manifest
	p := &Plan{
		Package:          packageName,
		Lib:              libName,
		Safety:           m.Safety,
		ExcludeImpls:     m.ExcludeImpls,
		ExcludeUtilities: m.ExcludeUtilities,
	}
	tm := newTypeMapper(s)

	for _, e := range s.Entries {
		switch {
		case e.Symbol.Kind == manifest.KindPOD:
			pod, err := p.pod(tm, e)
			if err != nil {
				return nil, err
			}
			p.PODs = append(p.PODs, pod)
		case e.Symbol.Kind == manifest.KindFunction:
			p.function(tm, e)
		case e.Decl.Kind == parser.DeclEnum:
			p.enum(s.Index, e)
		default:
			p.Handles = append(p.Handles, p.handle(tm, e))
		}
	}

	p.constants(values)

	for _, sk := range p.Skipped {
		glog.V(1).Infof("skipped %s", sk)
	}
	return p, nil
}

func (p *Plan) skip(symbol, member, format string, args ...any) {
	p.Skipped = append(p.Skipped, Skip{Symbol: symbol, Member: member, Reason: fmt.Sprintf(format, args...)})
}

func shimPrefix(qualified string) string {
	return strings.ReplaceAll(qualified, "::", "_")
}

func overloadSuffix(n int, sep string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", sep, n)
}

func (p *Plan) handle(tm *typeMapper, e resolve.Entry) Handle {
	c := e.Decl.Class
	h := Handle{GoName: toGoName(c.Name), CName: c.Name}
	prefix := shimPrefix(c.Name)

	var (
		ctors     int
		hasDtor   bool
		overloads = make(map[string]int)
	)
	for _, m := range c.Methods {
		if m.IsConstructor {
			n := ctors
			ctors++
			if m.Access != parser.AccessPublic {
				continue
			}
			if c.IsAbstract() {
				p.skip(c.Name, shortName(c.Name), "constructor of abstract class")
				continue
			}
			call := Func{Kind: FuncConstructor, GoName: "New" + h.GoName + overloadSuffix(n, ""), Shim: prefix + "_new" + overloadSuffix(n, "_")}
			if p.signature(tm, c.Namespace, &call, m.Params, nil, c.Name, shortName(c.Name)) {
				call.Result = &GoType{Go: h.GoName, FFI: "&ffi.TypePointer", Zero: "0", conv: convHandle}
				h.Methods = append(h.Methods, call)
			}
			continue
		}
		if m.IsDestructor {
			hasDtor = m.Access == parser.AccessPublic
			if !hasDtor {
				p.skip(c.Name, "~"+shortName(c.Name), "destructor is not public")
			}
			continue
		}
		if m.Access != parser.AccessPublic {
			continue
		}

		n := overloads[m.Name]
		overloads[m.Name]++
		switch {
		case m.IsOperator:
			p.skip(c.Name, m.Name, "operator")
			continue
		case m.IsStatic:
			p.skip(c.Name, m.Name, "static method")
			continue
		case m.IsVariadic:
			p.skip(c.Name, m.Name, "variadic")
			continue
		case m.IsConst && hasNonConstTwin(c, m):
			p.skip(c.Name, m.Name, "const overload")
			continue
		}

		goName := toGoName(m.Name) + overloadSuffix(n, "")
		if reservedMethods[goName] {
			p.skip(c.Name, m.Name, "%s is reserved", goName)
			continue
		}
		call := Func{Kind: FuncMethod, GoName: goName, Recv: h.GoName, Shim: prefix + "_" + m.Name + overloadSuffix(n, "_")}
		if p.signature(tm, c.Namespace, &call, m.Params, &m.ReturnType, c.Name, m.Name) {
			h.Methods = append(h.Methods, call)
		}
	}

	if ctors == 0 && !c.IsAbstract() {
		h.Methods = append(h.Methods, Func{
			Kind:   FuncConstructor,
			GoName: "New" + h.GoName,
			Shim:   prefix + "_new",
			Result: &GoType{Go: h.GoName, FFI: "&ffi.TypePointer", Zero: "0", conv: convHandle},
		})
	}
	if hasDtor || !hasDestructor(c) {
		h.Methods = append(h.Methods, Func{Kind: FuncDestructor, GoName: "Delete", Recv: h.GoName, Shim: prefix + "_delete"})
	}

	return h
}

func hasDestructor(c *parser.Class) bool {
	for _, m := range c.Methods {
		if m.IsDestructor {
			return true
		}
	}
	return false
}

// hasNonConstTwin reports whether c declares a non-const method with the
// same name and parameter types as m.
func hasNonConstTwin(c *parser.Class, m parser.Method) bool {
	for _, o := range c.Methods {
		if o.IsConst || o.Name != m.Name || len(o.Params) != len(m.Params) {
			continue
		}
		same := true
		for i := range o.Params {
			if o.Params[i].Type != m.Params[i].Type {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func shortName(name string) string {
	if i := strings.LastIndex(name, "::"); i != -1 {
		return name[i+2:]
	}
	return name
}

// signature maps the parameters and result of call. Unmappable
// signatures are recorded as skipped.
func (p *Plan) signature(tm *typeMapper, ns string, call *Func, params []parser.FunctionParam, ret *parser.CType, symbol, member string) bool {
	for i, param := range params {
		t, err := tm.param(ns, param.Type)
		if err == nil && t == nil {
			err = unmappable(param.Type, "void parameter")
		}
		if err != nil {
			p.skip(symbol, member, "parameter %d: %v", i, err)
			return false
		}
		name := toLowerCamel(param.Name)
		if name == "" || name == "h" {
			name = fmt.Sprintf("arg%d", i)
		}
		call.Params = append(call.Params, Param{Name: name, Type: *t})
	}
	if ret != nil {
		t, err := tm.param(ns, *ret)
		if err != nil {
			p.skip(symbol, member, "result: %v", err)
			return false
		}
		call.Result = t
	}
	return true
}

func (p *Plan) function(tm *typeMapper, e resolve.Entry) {
	f := e.Decl.Function
	if f.IsVariadic {
		p.skip(f.Name, "", "variadic")
		return
	}
	call := Func{Kind: FuncFree, GoName: toGoName(f.Name), Shim: shimPrefix(f.Name)}
	if p.signature(tm, f.Namespace, &call, f.Params, &f.ReturnType, f.Name, "") {
		p.Functions = append(p.Functions, call)
	}
}

func (p *Plan) pod(tm *typeMapper, e resolve.Entry) (POD, error) {
	c := e.Decl.Class
	borrow := make(map[string]bool)
	for _, b := range e.Symbol.Borrow {
		borrow[b] = true
	}

	pod := POD{GoName: toGoName(c.Name), CName: c.Name}
	for _, f := range c.Fields {
		if f.IsStatic {
			continue
		}
		t, err := tm.field(c.Namespace, f, borrow[f.Name])
		if err != nil {
			// Resolution already checked the layout.
			return POD{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		count := 0
		if f.Type.IsArray {
			count = f.Type.ArraySize
		}
		pod.Fields = append(pod.Fields, PODField{GoName: toGoFieldName(f.Name), Type: t, Count: count})
	}
	return pod, nil
}

func (p *Plan) enum(idx *parser.Index, e resolve.Entry) {
	en := e.Decl.Enum
	out := Enum{GoName: toGoName(en.Name), CName: en.Name}
	for _, v := range en.Values {
		ev, ok := idx.Enumerator(en.Name + "::" + v.Name)
		if !ok || ev.Err != nil {
			p.skip(en.Name, v.Name, "value is not a constant")
			continue
		}
		out.Values = append(out.Values, EnumValue{GoName: toGoEnumName(en.Name, v.Name), Value: ev.Value})
	}
	p.Enums = append(p.Enums, out)
}

func (p *Plan) constants(values []mirror.Value) {
	scales := make(map[string]bool)
	for _, v := range values {
		c := Const{GoName: v.Name, Type: v.Scale, Value: v.Value.String()}
		p.Constants = append(p.Constants, c)
		if v.Scale != "" && !scales[v.Scale] {
			scales[v.Scale] = true
			p.Scales = append(p.Scales, v.Scale)
		}
	}
}

// Operations lists the generated API. Core operations follow from the
// surface alone; convenience operations depend on the utility and impl
// flags.
func (p *Plan) Operations() (core, convenience []string) {
	for _, h := range p.Handles {
		core = append(core, "type "+h.GoName)
		for _, m := range h.Methods {
			if m.Recv == "" {
				core = append(core, m.GoName)
			} else {
				core = append(core, h.GoName+"."+m.GoName)
			}
		}
		if !p.ExcludeImpls {
			convenience = append(convenience, h.GoName+".String", h.GoName+".Equal")
		}
		if !p.ExcludeUtilities {
			convenience = append(convenience, h.GoName+".IsNil")
		}
	}
	for _, pod := range p.PODs {
		core = append(core, "type "+pod.GoName)
		if !p.ExcludeImpls {
			convenience = append(convenience, pod.GoName+".String", pod.GoName+".Equal")
		}
		if !p.ExcludeUtilities {
			convenience = append(convenience, "Make"+pod.GoName)
		}
	}
	for _, e := range p.Enums {
		core = append(core, "type "+e.GoName)
		for _, v := range e.Values {
			core = append(core, v.GoName)
		}
		if !p.ExcludeImpls {
			convenience = append(convenience, e.GoName+".String")
		}
	}
	for _, f := range p.Functions {
		core = append(core, f.GoName)
	}
	for _, s := range p.Scales {
		core = append(core, "type "+s)
	}
	for _, c := range p.Constants {
		core = append(core, c.GoName)
	}
	sort.Strings(core)
	sort.Strings(convenience)
	return core, convenience
}
