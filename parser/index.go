package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclFunction
	DeclEnum
	DeclTypeDef
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclFunction:
		return "function"
	case DeclEnum:
		return "enum"
	default:
		return "typedef"
	}
}

// Decl is one definition found in the header set. Seq orders declarations
// the way a translation unit including the root headers would see them.
type Decl struct {
	Kind     DeclKind
	Name     string
	Header   string
	Seq      int
	Class    *Class
	Function *Function
	Enum     *Enum
	TypeDef  *TypeDef
}

// Namespace returns the namespace the declaration lives in.
func (d Decl) Namespace() string {
	switch d.Kind {
	case DeclClass:
		return d.Class.Namespace
	case DeclFunction:
		return d.Function.Namespace
	case DeclEnum:
		return d.Enum.Namespace
	default:
		return d.TypeDef.Namespace
	}
}

type MacroDef struct {
	Macro
	Header string
}

// Enumerator is one evaluated enum constant. Err is set when the value is
// not a constant expression this package can evaluate, such as offsetof.
type Enumerator struct {
	Name   string
	Enum   string
	Header string
	Value  int64
	Err    error
}

// Index is a lookup structure over a set of parsed headers.
type Index struct {
	headers     []*Header
	decls       map[string][]Decl
	forward     map[string]string
	macros      map[string]MacroDef
	enumerators map[string]Enumerator
	seq         int
}

// NewIndex indexes headers, which must be given in inclusion order.
func NewIndex(headers []*Header) *Index {
	idx := &Index{
		decls:       make(map[string][]Decl),
		forward:     make(map[string]string),
		macros:      make(map[string]MacroDef),
		enumerators: make(map[string]Enumerator),
	}
	for _, h := range headers {
		idx.add(h)
	}
	return idx
}

func (idx *Index) add(h *Header) {
	idx.headers = append(idx.headers, h)

	for _, m := range h.Macros {
		idx.macros[m.Name] = MacroDef{Macro: m, Header: h.Path}
	}
	for _, f := range h.Forward {
		idx.forward[f] = h.Path
	}
	for i := range h.TypeDefs {
		td := &h.TypeDefs[i]
		idx.put(Decl{Kind: DeclTypeDef, Name: td.Name, Header: h.Path, TypeDef: td})
	}
	for i := range h.Enums {
		e := &h.Enums[i]
		if e.Name != "" {
			idx.put(Decl{Kind: DeclEnum, Name: e.Name, Header: h.Path, Enum: e})
		}
		idx.evalEnum(e, h.Path)
	}
	for i := range h.Classes {
		c := &h.Classes[i]
		idx.put(Decl{Kind: DeclClass, Name: c.Name, Header: h.Path, Class: c})
	}
	for i := range h.Functions {
		f := &h.Functions[i]
		idx.put(Decl{Kind: DeclFunction, Name: f.Name, Header: h.Path, Function: f})
	}
}

func (idx *Index) put(d Decl) {
	idx.seq++
	d.Seq = idx.seq
	idx.decls[d.Name] = append(idx.decls[d.Name], d)
}

// Headers returns the indexed headers in inclusion order.
func (idx *Index) Headers() []*Header {
	return idx.headers
}

// Lookup returns every definition of the qualified name.
func (idx *Index) Lookup(name string) []Decl {
	return idx.decls[strings.TrimPrefix(name, "::")]
}

// LookupIn resolves name the way an unqualified use inside namespace ns
// would: innermost namespace first, then outwards to the global scope.
func (idx *Index) LookupIn(ns, name string) []Decl {
	if strings.HasPrefix(name, "::") {
		return idx.Lookup(name)
	}
	for {
		qualified := name
		if ns != "" {
			qualified = ns + "::" + name
		}
		if decls := idx.decls[qualified]; len(decls) > 0 {
			return decls
		}
		if ns == "" {
			return nil
		}
		if i := strings.LastIndex(ns, "::"); i != -1 {
			ns = ns[:i]
		} else {
			ns = ""
		}
	}
}

// Forward returns the header forward declaring name, if any.
func (idx *Index) Forward(name string) (string, bool) {
	h, ok := idx.forward[name]
	return h, ok
}

// Macro returns the object-like macro name.
func (idx *Index) Macro(name string) (MacroDef, bool) {
	m, ok := idx.macros[name]
	return m, ok
}

// Enumerator returns the enum constant name. Unscoped enumerators are
// found by bare and namespace qualified name, scoped ones as Enum::Name.
func (idx *Index) Enumerator(name string) (Enumerator, bool) {
	e, ok := idx.enumerators[strings.TrimPrefix(name, "::")]
	return e, ok
}

func (idx *Index) evalEnum(e *Enum, header string) {
	var next int64
	for _, v := range e.Values {
		en := Enumerator{Name: v.Name, Enum: e.Name, Header: header}

		if v.Value == "" {
			en.Value = next
		} else {
			val, err := idx.evalExpr(v.Value, e, 0)
			en.Value = val
			en.Err = err
		}
		next = en.Value + 1

		for _, key := range enumeratorKeys(e, v.Name) {
			idx.enumerators[key] = en
		}
	}
}

func enumeratorKeys(e *Enum, name string) []string {
	if e.IsScoped {
		return []string{e.Name + "::" + name, shortName(e.Name) + "::" + name}
	}
	keys := []string{name}
	if e.Namespace != "" {
		keys = append(keys, e.Namespace+"::"+name)
	}
	if e.Name != "" {
		keys = append(keys, e.Name+"::"+name)
	}
	return keys
}

func shortName(name string) string {
	if i := strings.LastIndex(name, "::"); i != -1 {
		return name[i+2:]
	}
	return name
}

// EvalMacro evaluates an object-like macro to an integer. Boolean
// literals evaluate to 0 and 1 with isBool set.
func (idx *Index) EvalMacro(name string) (value int64, isBool bool, err error) {
	m, found := idx.macros[name]
	if !found {
		return 0, false, fmt.Errorf("macro %s not defined", name)
	}
	expr := trimParens(m.Value)
	switch expr {
	case "true":
		return 1, true, nil
	case "false":
		return 0, true, nil
	}
	value, err = idx.evalExpr(expr, nil, 0)
	return value, false, err
}

// evalExpr evaluates a literal or a reference to another macro or
// enumerator. Arithmetic is not supported.
func (idx *Index) evalExpr(expr string, scope *Enum, depth int) (int64, error) {
	if depth > 16 {
		return 0, fmt.Errorf("%s: recursion too deep", expr)
	}
	expr = trimParens(expr)

	if n, err := parseIntLiteral(expr); err == nil {
		return n, nil
	}

	if scope != nil {
		for _, key := range enumeratorKeys(scope, expr) {
			if en, ok := idx.enumerators[key]; ok {
				return en.Value, en.Err
			}
		}
	}
	if en, ok := idx.enumerators[expr]; ok {
		return en.Value, en.Err
	}
	if m, ok := idx.macros[expr]; ok {
		return idx.evalExpr(m.Value, nil, depth+1)
	}

	return 0, fmt.Errorf("%q is not a constant expression", expr)
}

func trimParens(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func parseIntLiteral(s string) (int64, error) {
	s = strings.TrimRight(s, "uUlL")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		n = -n
	}
	return n, nil
}
