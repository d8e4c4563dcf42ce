package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// seg is a slice of a source line that remembers its byte offset in the line,
// so errors and node positions can report columns.
type seg struct {
	s   string
	off int
}

func (g seg) sub(i, j int) seg { return seg{g.s[i:j], g.off + i} }
func (g seg) from(i int) seg   { return seg{g.s[i:], g.off + i} }
func (g seg) to(j int) seg     { return seg{g.s[:j], g.off} }
func (g seg) col() int         { return g.off + 1 }
func (g seg) empty() bool      { return g.s == "" }

func (g seg) trim() seg { return g.trimLeft().trimRight() }

func (g seg) trimLeft() seg {
	i := 0
	for i < len(g.s) && isSpace(g.s[i]) {
		i++
	}
	return g.from(i)
}

func (g seg) trimRight() seg {
	j := len(g.s)
	for j > 0 && isSpace(g.s[j-1]) {
		j--
	}
	return g.to(j)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// indexTop returns the index of the first pat in s that is outside any {} span and not
// escaped. With quotes set, double-quoted strings at the top level are skipped too.
func indexTop(s, pat string, quotes bool) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '{':
			depth++
		case c == '}':
			if depth > 0 {
				depth--
			}
		case quotes && depth == 0 && c == '"':
			for i++; i < len(s) && s[i] != '"'; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		case depth == 0 && strings.HasPrefix(s[i:], pat):
			return i
		}
	}
	return -1
}

// matchBrace returns the index of the '}' closing the '{' at open, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTop splits g at every top-level, unescaped sep.
func splitTop(g seg, sep string) []seg {
	var parts []seg
	for {
		i := indexTop(g.s, sep, false)
		if i < 0 {
			return append(parts, g)
		}
		parts = append(parts, g.to(i))
		g = g.from(i + len(sep))
	}
}

// unescape drops the backslash of every escape sequence.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// isIdent reports whether s is a valid knot, stitch or variable name.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	return true
}

// isPath reports whether s is a name or a dotted knot.stitch pair.
func isPath(s string) bool {
	knot, stitch, dotted := strings.Cut(s, ".")
	if !dotted {
		return isIdent(knot)
	}
	return isIdent(knot) && isIdent(stitch)
}

// identLen returns the byte length of the name or dotted path at the start of s.
func identLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !isIdentPart(r) && r != '.' {
			break
		}
		n += size
	}
	return n
}
