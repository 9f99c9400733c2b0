package generator

import (
	"strings"
	"unicode"
)

var acronyms = map[string]string{
	"id": "ID", "url": "URL", "api": "API", "http": "HTTP", "json": "JSON", "xml": "XML",
	"svg": "SVG", "mei": "MEI", "midi": "MIDI", "utf16": "UTF16", "io": "IO",
}

// toGoName converts a C or C++ identifier to an exported Go name. Words
// are separated by '_'. Upper case words are title cased and camel case
// words keep their inner capitals.
func toGoName(name string) string {
	if i := strings.LastIndex(name, "::"); i != -1 {
		name = name[i+2:]
	}

	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_'
	})

	var result strings.Builder
	for _, part := range parts {
		if a, ok := acronyms[strings.ToLower(part)]; ok {
			result.WriteString(a)
			continue
		}
		if part == strings.ToUpper(part) {
			part = strings.ToLower(part)
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}

	return result.String()
}

func toLowerCamel(name string) string {
	goName := toGoName(name)
	if goName == "" {
		return ""
	}
	var s string
	if goName == strings.ToUpper(goName) {
		s = strings.ToLower(goName)
	} else {
		runes := []rune(goName)
		runes[0] = unicode.ToLower(runes[0])
		s = string(runes)
	}
	if goKeywords[s] {
		s += "_"
	}
	return s
}

// toGoFieldName strips the member prefix m_ from C++ data members.
func toGoFieldName(name string) string {
	return toGoName(strings.TrimPrefix(name, "m_"))
}

// toGoEnumName prefixes enumerators with their type so that scoped and
// unscoped enums of one namespace cannot collide.
func toGoEnumName(enumName, valueName string) string {
	return toGoName(enumName) + toGoFieldName(valueName)
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"string": true, "error": true, "len": true, "result": true, "err": true,
}
