package typescript

import (
	"strings"
	"unicode"
)

// reserved lists words that cannot name a TypeScript binding, plus the
// runtime helpers every binding module imports.
var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true, "let": true, "static": true, "implements": true,
	"interface": true, "package": true, "private": true, "protected": true,
	"public": true, "await": true, "arguments": true, "eval": true,
	"invoke": true, "setInvoker": true,
}

// reservedTypes are type names the generated code relies on.
var reservedTypes = map[string]bool{
	"any": true, "boolean": true, "never": true, "number": true, "object": true,
	"string": true, "symbol": true, "undefined": true, "unknown": true, "void": true,
	"Array": true, "Partial": true, "Promise": true, "Record": true, "Invoker": true,
}

// TypeIdent renders a declaration name as a TypeScript type identifier.
func TypeIdent(name string) string {
	ident := sanitize(name)
	if reservedTypes[ident] || reserved[ident] {
		return ident + "_"
	}
	return ident
}

// ValueIdent renders a function or parameter name in lowerCamelCase,
// lowering a leading acronym as a whole: HTTPGet → httpGet, ID → id.
func ValueIdent(name string) string {
	ident := sanitize(lowerCamel(name))
	if reserved[ident] {
		return ident + "_"
	}
	return ident
}

func lowerCamel(s string) string {
	runes := []rune(s)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return s
	case upper == len(runes):
		return strings.ToLower(s)
	case upper > 1 && unicode.IsLetter(runes[upper]):
		// the last capital starts the next word
		upper--
	}
	for i := 0; i < upper; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// sanitize replaces characters TypeScript identifiers cannot hold. Go names
// pass through unchanged; schema documents may carry anything.
func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// isIdentifier reports whether s can be used unquoted as a property name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

// propertyKey renders a wire name as an object key, quoting it when needed.
func propertyKey(s string) string {
	if isIdentifier(s) {
		return s
	}
	return quote(s)
}

// quote renders s as a single-quoted string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
