package repair

import (
	"strings"
	"unicode"
)

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'", "‚", "'",
)

// NormalizeQuotes rewrites JSON-like text so that every key and string value is double quoted.
//
// Single quoted and backtick quoted strings become double quoted (inner double quotes are escaped), bare keys are
// quoted, a string opened with one quote style and closed with another next to a separator is repaired, and trailing
// commas before a closing bracket are dropped.
func NormalizeQuotes(s string) string {
	s = smartQuotes.Replace(s)
	src := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	for i := 0; i < len(src); i++ {
		r := src[i]
		switch {
		case r == '"' || r == '\'' || r == '`':
			i = copyString(&b, src, i)
		case r == ',':
			if next, ok := nextNonSpace(src, i+1); ok && (src[next] == '}' || src[next] == ']') {
				continue
			}
			b.WriteRune(r)
		case isIdentStart(r):
			end := i
			for end < len(src) && isIdentPart(src[end]) {
				end++
			}
			word := string(src[i:end])
			if next, ok := nextNonSpace(src, end); ok && src[next] == ':' {
				b.WriteString(`"` + word + `"`)
			} else {
				b.WriteString(word)
			}
			i = end - 1
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// copyString writes the string starting at src[open] as a double quoted string and returns the index of its closing
// quote. Double quoted strings close on the next unescaped double quote. Any other quote only closes a string when the
// next non-space rune is a separator or the input ends.
func copyString(b *strings.Builder, src []rune, open int) int {
	delim := src[open]
	b.WriteByte('"')

	for i := open + 1; i < len(src); i++ {
		r := src[i]
		switch {
		case r == '\\' && i+1 < len(src):
			if src[i+1] == '\'' || src[i+1] == '`' {
				b.WriteRune(src[i+1])
			} else {
				b.WriteRune(r)
				b.WriteRune(src[i+1])
			}
			i++
		case r == delim && (delim == '"' || closesValue(src, i+1)):
			b.WriteByte('"')
			return i
		case r != delim && isQuote(r) && closesValue(src, i+1):
			b.WriteByte('"')
			return i
		case r == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')
	return len(src)
}

// EscapeInnerQuotes escapes double quotes that appear inside double quoted values and do not end the value.
// Raw control characters inside strings are escaped too.
func EscapeInnerQuotes(s string) string {
	src := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(src); i++ {
		r := src[i]
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}

		switch {
		case r == '\\' && i+1 < len(src):
			b.WriteRune(r)
			b.WriteRune(src[i+1])
			i++
		case r == '"':
			if closesValue(src, i+1) {
				inString = false
				b.WriteRune(r)
			} else {
				b.WriteString(`\"`)
			}
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// closesValue reports whether a quote just before src[from] ends a string.
func closesValue(src []rune, from int) bool {
	next, ok := nextNonSpace(src, from)
	if !ok {
		return true
	}
	switch src[next] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

func nextNonSpace(src []rune, from int) (int, bool) {
	for i := from; i < len(src); i++ {
		if !unicode.IsSpace(src[i]) {
			return i, true
		}
	}
	return 0, false
}

func isQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '`'
}

func isIdentStart(r rune) bool {
	return r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r < unicode.MaxASCII && unicode.IsDigit(r))
}
