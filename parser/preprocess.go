package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var defineRe = regexp.MustCompile(`^define\s+(\w+)(\([^)]*\))?\s*(.*)$`)
var includeRe = regexp.MustCompile(`^include\s*([<"])([^>"]+)[>"]`)
var definedRe = regexp.MustCompile(`defined\s*\(?\s*(\w+)\s*\)?`)

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
}

// preprocess evaluates the conditional directives of content against
// defines, records macros and includes in header, and returns the
// surviving source with every directive line blanked out.
func preprocess(content string, defines map[string]string, header *Header) (string, error) {
	content = strings.ReplaceAll(content, "\\\n", " ")
	lines := strings.Split(content, "\n")

	var stack []condFrame
	active := true

	var out strings.Builder
	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if active {
				out.WriteString(line)
			}
			out.WriteByte('\n')
			continue
		}
		out.WriteByte('\n')

		directive := strings.TrimSpace(trimmed[1:])
		keyword := directive
		rest := ""
		if idx := strings.IndexAny(directive, " \t("); idx != -1 {
			keyword = directive[:idx]
			rest = strings.TrimSpace(directive[idx:])
		}

		switch keyword {
		case "ifdef", "ifndef", "if":
			cond := false
			if active {
				switch keyword {
				case "ifdef":
					_, cond = defines[rest]
				case "ifndef":
					_, cond = defines[rest]
					cond = !cond
				default:
					cond = evalCondition(rest, defines)
				}
			}
			stack = append(stack, condFrame{parentActive: active, active: cond, taken: cond})
			active = cond

		case "elif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #elif without #if", lineNo+1)
			}
			top := &stack[len(stack)-1]
			top.active = top.parentActive && !top.taken && evalCondition(rest, defines)
			top.taken = top.taken || top.active
			active = top.active

		case "else":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #else without #if", lineNo+1)
			}
			top := &stack[len(stack)-1]
			top.active = top.parentActive && !top.taken
			top.taken = true
			active = top.active

		case "endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: #endif without #if", lineNo+1)
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]

		case "define":
			if !active {
				continue
			}
			m := defineRe.FindStringSubmatch(directive)
			if m == nil {
				return "", fmt.Errorf("line %d: malformed #define", lineNo+1)
			}
			defines[m[1]] = strings.TrimSpace(m[3])
			// Function-like macros are tracked as defined but not mirrored.
			if m[2] == "" {
				header.Macros = append(header.Macros, Macro{Name: m[1], Value: strings.TrimSpace(m[3])})
			}

		case "undef":
			if active {
				delete(defines, rest)
			}

		case "include":
			if !active {
				continue
			}
			m := includeRe.FindStringSubmatch(directive)
			if m == nil {
				return "", fmt.Errorf("line %d: malformed #include", lineNo+1)
			}
			header.Includes = append(header.Includes, Include{Path: m[2], IsSystem: m[1] == "<"})
		}
	}

	if len(stack) != 0 {
		return "", fmt.Errorf("unterminated conditional: %d #endif missing", len(stack))
	}

	return out.String(), nil
}

// evalCondition evaluates the subset of #if expressions seen in toolkit
// headers: defined(X), !defined(X), integer literals, bare macro names and
// their combinations with && and ||.
func evalCondition(expr string, defines map[string]string) bool {
	expr = strings.TrimSpace(expr)

	if parts := strings.Split(expr, "||"); len(parts) > 1 {
		for _, p := range parts {
			if evalCondition(p, defines) {
				return true
			}
		}
		return false
	}

	if parts := strings.Split(expr, "&&"); len(parts) > 1 {
		for _, p := range parts {
			if !evalCondition(p, defines) {
				return false
			}
		}
		return true
	}

	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}

	if strings.HasPrefix(expr, "!") {
		return !evalCondition(expr[1:], defines)
	}

	if m := definedRe.FindStringSubmatch(expr); m != nil {
		_, ok := defines[m[1]]
		return ok
	}

	if n, err := strconv.ParseInt(expr, 0, 64); err == nil {
		return n != 0
	}

	value, ok := defines[expr]
	if !ok {
		return false
	}
	if n, err := strconv.ParseInt(value, 0, 64); err == nil {
		return n != 0
	}
	return value != "false"
}
