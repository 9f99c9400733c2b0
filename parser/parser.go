package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
var lineCommentRe = regexp.MustCompile(`//[^\n]*`)
var multiSpaceRe = regexp.MustCompile(`[ \t]+`)
var namespaceRe = regexp.MustCompile(`^namespace\s*(\w*)$`)
var externCRe = regexp.MustCompile(`^extern\s+"C(\+\+)?"$`)
var classHeadRe = regexp.MustCompile(`^(class|struct)\s+(\w+)(?:\s+final)?\s*(?::\s*([^:].*))?$`)
var typedefAggRe = regexp.MustCompile(`^typedef\s+(struct|enum)(?:\s+\w+)?$`)
var enumHeadRe = regexp.MustCompile(`^enum(\s+class|\s+struct)?\s*(\w*)\s*(?::\s*([\w\s]+))?$`)
var forwardRe = regexp.MustCompile(`^(?:class|struct)\s+(\w+)$`)
var funcPtrTypedefRe = regexp.MustCompile(`^typedef\s+(.+?)\(\s*\*\s*(\w+)\s*\)\s*\((.*)\)$`)
var typedefRe = regexp.MustCompile(`^typedef\s+(?:struct\s+)?(.+?)\s*(\w+)$`)
var usingRe = regexp.MustCompile(`^using\s+(\w+)\s*=\s*(.+)$`)
var funcRe = regexp.MustCompile(`^(.*?)(~?\w+|operator\s*\S+)\s*\(([\s\S]*)\)\s*((?:const|noexcept|override|final|\s)*)(?:=\s*(0|default|delete))?$`)
var accessRe = regexp.MustCompile(`^(public|private|protected)\s*:\s*`)
var identRe = regexp.MustCompile(`^[A-Za-z_][\w:<>, ]*$`)
var arrayRe = regexp.MustCompile(`^(\w+)\s*\[\s*(\w*)\s*\]$`)

// Parse parses a header. Names passed in defines are treated as defined
// while evaluating conditional blocks.
func Parse(content string, defines ...string) (*Header, error) {
	env := make(map[string]string, len(defines))
	for _, d := range defines {
		name, value, _ := strings.Cut(d, "=")
		env[name] = value
	}
	return parse(content, env)
}

func parse(content string, defines map[string]string) (*Header, error) {
	content = removeComments(content)

	header := &Header{}

	content, err := preprocess(content, defines, header)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}

	content = normalizeWhitespace(content)

	s := scanner{src: content, header: header}
	if err := s.scan(); err != nil {
		return nil, err
	}

	return header, nil
}

func removeComments(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")

	return s
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	return s
}

// scanner walks the top level of a preprocessed header, descending into
// namespace and extern "C" blocks.
type scanner struct {
	src    string
	pos    int
	ns     []string
	header *Header
}

func (s *scanner) namespace() string {
	var parts []string
	for _, n := range s.ns {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "::")
}

func (s *scanner) qualify(name string) string {
	if ns := s.namespace(); ns != "" {
		return ns + "::" + name
	}
	return name
}

func (s *scanner) scan() error {
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			break
		}

		if s.src[s.pos] == '}' {
			if len(s.ns) == 0 {
				return fmt.Errorf("unbalanced '}' at offset %d", s.pos)
			}
			s.ns = s.ns[:len(s.ns)-1]
			s.pos++
			s.skipSpace()
			if s.pos < len(s.src) && s.src[s.pos] == ';' {
				s.pos++
			}
			continue
		}

		start := s.pos
		for s.pos < len(s.src) && s.src[s.pos] != ';' && s.src[s.pos] != '{' && s.src[s.pos] != '}' {
			s.pos++
		}
		head := collapse(s.src[start:s.pos])

		if s.pos >= len(s.src) {
			if head != "" {
				return fmt.Errorf("unterminated declaration %q", head)
			}
			break
		}

		switch s.src[s.pos] {
		case '}':
			continue
		case ';':
			s.pos++
			s.statement(head)
			continue
		}

		if m := namespaceRe.FindStringSubmatch(head); m != nil {
			s.ns = append(s.ns, m[1])
			s.pos++
			continue
		}
		if externCRe.MatchString(head) {
			s.ns = append(s.ns, "")
			s.pos++
			continue
		}

		end, err := matchBrace(s.src, s.pos)
		if err != nil {
			return fmt.Errorf("in %q: %w", head, err)
		}
		body := s.src[s.pos+1 : end]
		s.pos = end + 1

		switch {
		case typedefAggRe.MatchString(head):
			// C style: typedef struct { ... } name;
			name := strings.TrimSpace(s.trailer())
			if strings.Contains(head, "enum") {
				s.enum("enum "+name, body)
			} else {
				s.class("struct "+name, body)
			}
		case classHeadRe.MatchString(head):
			s.trailer()
			s.class(head, body)
		case enumHeadRe.MatchString(head):
			s.trailer()
			s.enum(head, body)
		case strings.Contains(head, "("):
			s.statement(head)
		}
	}

	if len(s.ns) != 0 {
		return fmt.Errorf("unterminated namespace %q", s.namespace())
	}

	return nil
}

// trailer consumes the declarators between a closing brace and its ';'.
func (s *scanner) trailer() string {
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != ';' && s.src[s.pos] != '{' && s.src[s.pos] != '}' {
		s.pos++
	}
	text := s.src[start:s.pos]
	if s.pos < len(s.src) && s.src[s.pos] == ';' {
		s.pos++
		return text
	}
	// No trailing ';', as after a function body.
	s.pos = start
	return ""
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && strings.IndexByte(" \t\n", s.src[s.pos]) != -1 {
		s.pos++
	}
}

func matchBrace(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced '{' at offset %d", open)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// statement handles a namespace scope declaration terminated by ';' or by
// an inline function body.
func (s *scanner) statement(head string) {
	switch {
	case head == "":
		return
	case strings.HasPrefix(head, "template"), strings.HasPrefix(head, "static_assert"):
		return
	}

	if m := forwardRe.FindStringSubmatch(head); m != nil {
		s.header.Forward = append(s.header.Forward, s.qualify(m[1]))
		return
	}

	if m := funcPtrTypedefRe.FindStringSubmatch(head); m != nil {
		s.header.TypeDefs = append(s.header.TypeDefs, TypeDef{
			Name:          s.qualify(m[2]),
			Namespace:     s.namespace(),
			SourceType:    parseCType(m[1]),
			IsFuncPointer: true,
		})
		return
	}

	if m := typedefRe.FindStringSubmatch(head); m != nil {
		s.header.TypeDefs = append(s.header.TypeDefs, TypeDef{
			Name:       s.qualify(m[2]),
			Namespace:  s.namespace(),
			SourceType: parseCType(m[1]),
		})
		return
	}

	if m := usingRe.FindStringSubmatch(head); m != nil {
		s.header.TypeDefs = append(s.header.TypeDefs, TypeDef{
			Name:       s.qualify(m[1]),
			Namespace:  s.namespace(),
			SourceType: parseCType(m[2]),
		})
		return
	}

	if strings.HasPrefix(head, "using ") || strings.HasPrefix(head, "enum ") {
		return
	}

	m, ok := parseMethod(head, "")
	if !ok || m.IsOperator || m.ReturnType.Name == "" {
		return
	}

	s.header.Functions = append(s.header.Functions, Function{
		Name:       s.qualify(m.Name),
		Namespace:  s.namespace(),
		ReturnType: m.ReturnType,
		Params:     m.Params,
		IsVariadic: m.IsVariadic,
	})
}

func (s *scanner) class(head, body string) {
	m := classHeadRe.FindStringSubmatch(head)
	if m == nil {
		return
	}

	c := Class{
		Name:      s.qualify(m[2]),
		Namespace: s.namespace(),
		IsStruct:  m[1] == "struct",
	}

	if m[3] != "" {
		for _, base := range splitTopLevel(m[3], ',') {
			tokens := strings.Fields(base)
			var name []string
			for _, t := range tokens {
				switch t {
				case "public", "private", "protected", "virtual":
				default:
					name = append(name, t)
				}
			}
			if len(name) > 0 {
				c.Bases = append(c.Bases, strings.Join(name, " "))
			}
		}
	}

	access := AccessPrivate
	if c.IsStruct {
		access = AccessPublic
	}

	short := m[2]
	for _, stmt := range splitMembers(body) {
		for {
			am := accessRe.FindStringSubmatch(stmt)
			if am == nil {
				break
			}
			switch am[1] {
			case "public":
				access = AccessPublic
			case "protected":
				access = AccessProtected
			default:
				access = AccessPrivate
			}
			stmt = strings.TrimSpace(stmt[len(am[0]):])
		}
		parseMember(&c, short, stmt, access)
	}

	s.header.Classes = append(s.header.Classes, c)
}

// splitMembers splits a class body into member declarations, dropping
// inline function bodies and nested aggregate bodies.
func splitMembers(body string) []string {
	var stmts []string
	var cur strings.Builder
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case ';':
			stmts = append(stmts, collapse(cur.String()))
			cur.Reset()
		case '{':
			end, err := matchBrace(body, i)
			if err != nil {
				return stmts
			}
			i = end
			head := collapse(cur.String())
			switch {
			case strings.HasPrefix(head, ",") || strings.HasPrefix(head, ":"):
				// Remainder of a constructor's initializer list.
				cur.Reset()
			case strings.Contains(head, "("), strings.HasPrefix(head, "enum"),
				strings.HasPrefix(head, "class"), strings.HasPrefix(head, "struct"),
				strings.HasPrefix(head, "union"):
				stmts = append(stmts, head)
				cur.Reset()
			}
			// Otherwise the braces were an initializer of the declaration.
		default:
			cur.WriteByte(body[i])
		}
	}
	if rest := collapse(cur.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}

func parseMember(c *Class, short, stmt string, access Access) {
	if stmt == "" || strings.HasPrefix(stmt, ",") || strings.HasPrefix(stmt, ":") {
		return
	}
	for _, skip := range []string{"friend ", "using ", "typedef ", "template", "enum", "class ", "struct ", "union ", "static_assert"} {
		if strings.HasPrefix(stmt, skip) {
			return
		}
	}

	if strings.Contains(stmt, "(") {
		m, ok := parseMethod(stmt, short)
		if !ok {
			return
		}
		m.Access = access
		c.Methods = append(c.Methods, m)
		return
	}

	isStatic := false
	tokens := strings.Fields(stmt)
	var kept []string
	for _, t := range tokens {
		switch t {
		case "static":
			isStatic = true
		case "mutable", "inline", "constexpr":
		default:
			kept = append(kept, t)
		}
	}
	stmt = strings.Join(kept, " ")
	if idx := strings.Index(stmt, "="); idx != -1 {
		stmt = strings.TrimSpace(stmt[:idx])
	}

	declarators := splitTopLevel(stmt, ',')
	if len(declarators) == 0 {
		return
	}

	first := strings.Fields(declarators[0])
	if len(first) < 2 {
		return
	}
	baseType := strings.Join(first[:len(first)-1], " ")
	names := append([]string{first[len(first)-1]}, declarators[1:]...)

	for _, raw := range names {
		raw = strings.TrimSpace(raw)
		typeStr := baseType
		for strings.HasPrefix(raw, "*") || strings.HasPrefix(raw, "&") {
			typeStr += " " + raw[:1]
			raw = raw[1:]
		}
		ct := parseCType(typeStr)
		if am := arrayRe.FindStringSubmatch(raw); am != nil {
			raw = am[1]
			ct.IsArray = true
			fmt.Sscanf(am[2], "%d", &ct.ArraySize)
		}
		if !identRe.MatchString(raw) || !identRe.MatchString(ct.Name) {
			continue
		}
		c.Fields = append(c.Fields, Field{
			Name:     raw,
			Type:     ct,
			Access:   access,
			IsStatic: isStatic,
		})
	}
}

// parseMethod parses a function or member function declaration. short is
// the unqualified class name when parsing members, used to recognize
// constructors and destructors.
func parseMethod(decl, short string) (Method, bool) {
	decl = stripInitializerList(decl)

	m := funcRe.FindStringSubmatch(decl)
	if m == nil {
		return Method{}, false
	}

	prefix := strings.TrimSpace(m[1])
	name := strings.TrimSpace(m[2])
	paramsStr := strings.TrimSpace(m[3])
	qualifiers := m[4]

	method := Method{
		Name:    name,
		IsConst: strings.Contains(qualifiers, "const"),
		IsPure:  m[5] == "0",
	}

	if strings.HasPrefix(name, "operator") {
		method.IsOperator = true
	}

	var kept []string
	for _, t := range strings.Fields(prefix) {
		switch t {
		case "virtual":
			method.IsVirtual = true
		case "static":
			method.IsStatic = true
		case "inline", "explicit", "constexpr", "extern", "VRV_EXPORT":
		default:
			kept = append(kept, t)
		}
	}
	// Pointer and reference markers may be written against the name.
	prefix = strings.Join(kept, " ")
	if method.IsPure || strings.Contains(qualifiers, "override") {
		method.IsVirtual = true
	}

	switch {
	case short != "" && name == short && prefix == "":
		method.IsConstructor = true
	case short != "" && name == "~"+short:
		method.IsDestructor = true
	case prefix == "":
		return Method{}, false
	default:
		method.ReturnType = parseCType(prefix)
	}

	if paramsStr != "void" && paramsStr != "" {
		method.Params, method.IsVariadic = parseParams(paramsStr)
	}

	return method, true
}

// stripInitializerList drops a constructor's member initializer list,
// which follows the parameter list's closing parenthesis.
func stripInitializerList(decl string) string {
	depth := 0
	for i := 0; i < len(decl); i++ {
		switch decl[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				rest := strings.TrimSpace(decl[i+1:])
				if strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "::") {
					return decl[:i+1]
				}
				return decl
			}
		}
	}
	return decl
}

// splitTopLevel splits s on sep outside of (), <> and {} nesting.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<', '{', '[':
			depth++
		case ')', '>', '}', ']':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}

var builtinWords = map[string]bool{
	"void": true, "bool": true, "char": true, "short": true, "int": true,
	"long": true, "float": true, "double": true, "signed": true, "unsigned": true,
	"const": true,
}

func parseCType(typeStr string) CType {
	typeStr = strings.TrimSpace(typeStr)

	ct := CType{}

	// Template arguments are kept verbatim.
	var tmpl string
	if open := strings.Index(typeStr, "<"); open != -1 {
		if close := strings.LastIndex(typeStr, ">"); close > open {
			tmpl = typeStr[open : close+1]
			typeStr = typeStr[:open] + "\x00" + typeStr[close+1:]
		}
	}

	ct.IsReference = strings.Contains(typeStr, "&")
	ct.IsPointer = strings.Contains(typeStr, "*")
	typeStr = strings.NewReplacer("&", " ", "*", " ").Replace(typeStr)

	var name []string
	for _, t := range strings.Fields(typeStr) {
		switch t {
		case "const", "volatile":
			ct.IsConst = true
		case "unsigned":
			ct.IsUnsigned = true
		case "signed", "struct", "class", "enum", "typename":
		default:
			name = append(name, t)
		}
	}

	ct.Name = strings.Replace(strings.Join(name, " "), "\x00", tmpl, 1)
	ct.Name = strings.Replace(ct.Name, " <", "<", 1)
	if ct.Name == "" && ct.IsUnsigned {
		ct.Name = "int"
	}

	return ct
}

func (s *scanner) enum(head, body string) {
	m := enumHeadRe.FindStringSubmatch(head)
	if m == nil {
		return
	}

	e := Enum{
		Namespace:  s.namespace(),
		IsScoped:   strings.TrimSpace(m[1]) != "",
		Underlying: strings.TrimSpace(m[3]),
		Values:     parseEnumValues(body),
	}
	if m[2] != "" {
		e.Name = s.qualify(m[2])
	}

	s.header.Enums = append(s.header.Enums, e)
}

func parseEnumValues(body string) []EnumValue {
	var values []EnumValue

	parts := splitTopLevel(body, ',')
	for _, part := range parts {
		part = collapse(part)
		if part == "" {
			continue
		}

		if idx := strings.Index(part, "="); idx != -1 {
			name := strings.TrimSpace(part[:idx])
			value := strings.TrimSpace(part[idx+1:])
			values = append(values, EnumValue{Name: name, Value: value})
		} else {
			values = append(values, EnumValue{Name: part})
		}
	}

	return values
}

func parseParams(paramsStr string) ([]FunctionParam, bool) {
	var params []FunctionParam
	isVariadic := false

	parts := splitTopLevel(paramsStr, ',')
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if part == "..." {
			isVariadic = true
			continue
		}

		hasDefault := false
		if idx := strings.Index(part, "="); idx != -1 {
			hasDefault = true
			part = strings.TrimSpace(part[:idx])
		}

		tokens := strings.Fields(strings.NewReplacer("*", " * ", "&", " & ").Replace(part))
		last := tokens[len(tokens)-1]
		if len(tokens) < 2 || builtinWords[last] || last == "*" || last == "&" || strings.HasSuffix(last, ">") {
			params = append(params, FunctionParam{
				Type:       parseCType(part),
				HasDefault: hasDefault,
			})
			continue
		}

		params = append(params, FunctionParam{
			Name:       last,
			Type:       parseCType(strings.Join(tokens[:len(tokens)-1], " ")),
			HasDefault: hasDefault,
		})
	}

	return params, isVariadic
}
