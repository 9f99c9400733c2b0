package parser

import "strings"

type CType struct {
	Name        string
	IsPointer   bool
	IsReference bool
	IsConst     bool
	IsUnsigned  bool
	IsArray     bool
	ArraySize   int
}

// IsTemplate reports whether the type is a template instantiation such as
// std::vector<std::string>.
func (ct CType) IsTemplate() bool {
	return strings.Contains(ct.Name, "<")
}

// IsStd reports whether the type lives in the std namespace.
func (ct CType) IsStd() bool {
	return strings.HasPrefix(ct.Name, "std::")
}

func (ct CType) String() string {
	var b strings.Builder
	if ct.IsConst {
		b.WriteString("const ")
	}
	if ct.IsUnsigned {
		b.WriteString("unsigned ")
	}
	b.WriteString(ct.Name)
	if ct.IsPointer {
		b.WriteString(" *")
	}
	if ct.IsReference {
		b.WriteString(" &")
	}
	return b.String()
}

type Access int

const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	default:
		return "private"
	}
}

type Field struct {
	Name     string
	Type     CType
	Access   Access
	IsStatic bool
}

type FunctionParam struct {
	Name       string
	Type       CType
	HasDefault bool
}

type Method struct {
	Name          string
	ReturnType    CType
	Params        []FunctionParam
	Access        Access
	IsVirtual     bool
	IsPure        bool
	IsStatic      bool
	IsConst       bool
	IsConstructor bool
	IsDestructor  bool
	IsOperator    bool
	IsVariadic    bool
}

// Class covers both class and struct definitions. Name is qualified with
// the enclosing namespaces.
type Class struct {
	Name      string
	Namespace string
	IsStruct  bool
	Bases     []string
	Fields    []Field
	Methods   []Method
}

// IsAbstract reports whether the class declares a pure virtual method.
func (c *Class) IsAbstract() bool {
	for _, m := range c.Methods {
		if m.IsPure {
			return true
		}
	}
	return false
}

// IsPolymorphic reports whether the class declares a virtual method.
func (c *Class) IsPolymorphic() bool {
	for _, m := range c.Methods {
		if m.IsVirtual {
			return true
		}
	}
	return false
}

type Function struct {
	Name       string
	Namespace  string
	ReturnType CType
	Params     []FunctionParam
	IsVariadic bool
}

type TypeDef struct {
	Name          string
	Namespace     string
	SourceType    CType
	IsFuncPointer bool
}

type EnumValue struct {
	Name  string
	Value string
}

type Enum struct {
	Name       string
	Namespace  string
	IsScoped   bool
	Underlying string
	Values     []EnumValue
}

type Macro struct {
	Name  string
	Value string
}

type Include struct {
	Path     string
	IsSystem bool
}

// Header is the parsed form of one header file. Path is the name the file
// was included by, relative to its include directory.
type Header struct {
	Path      string
	Includes  []Include
	Macros    []Macro
	Classes   []Class
	Forward   []string
	Functions []Function
	TypeDefs  []TypeDef
	Enums     []Enum
}
