package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
)

// LineKind is the syntactic role of a source line.
type LineKind int

const (
	LineEmpty LineKind = iota
	LineVar
	LineKnot
	LineStitch
	LineChoice
	LineGather
	LineDivert
	LineText
	LineTags
)

var lineKindNames = [...]string{"empty", "var", "knot", "stitch", "choice", "gather", "divert", "text", "tags"}

func (k LineKind) String() string {
	if int(k) < len(lineKindNames) {
		return lineKindNames[k]
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// Target is a divert target as written in the source.
type Target struct {
	Path string
	Pos  domain.Pos
}

// Line is a classified source line. Which fields are set depends on Kind.
type Line struct {
	Kind LineKind
	No   int
	// Col is the column of the first significant character.
	Col int

	// Name of a knot, stitch or variable.
	Name string
	// Value is the initial value of a variable.
	Value domain.Value

	// Depth is the marker count of a choice or gather.
	Depth      int
	Sticky     bool
	Fallback   bool
	Conditions []domain.Expr
	Selection  domain.Markup
	Content    domain.Markup

	Text      domain.Markup
	GlueBegin bool
	GlueEnd   bool

	Divert *Target
	// Condition guards Divert. Else is taken when it does not hold.
	Condition domain.Expr
	Else      *Target

	Tags []string
}

// ClassifyLine turns one raw source line into exactly one Line variant.
// Knot headers win over stitch headers, then choices, gathers, diverts and plain text.
func ClassifyLine(no int, raw string) (Line, error) {
	p := &lineParser{no: no}
	return p.classify(raw)
}

type lineParser struct {
	no int
}

func (p *lineParser) errorf(format string, args ...any) error {
	return &domain.ParseError{Line: p.no, Msg: fmt.Sprintf(format, args...)}
}

func (p *lineParser) pos(g seg) domain.Pos {
	return domain.Pos{Line: p.no, Col: g.col()}
}

func (p *lineParser) classify(raw string) (Line, error) {
	g := seg{s: strings.TrimRight(raw, "\r")}
	if i := indexTop(g.s, "//", false); i >= 0 {
		g = g.to(i)
	}
	g = g.trim()
	line := Line{No: p.no, Col: g.col()}
	if g.empty() || strings.HasPrefix(g.s, "TODO:") {
		return line, nil
	}

	if i := indexTop(g.s, "#", false); i >= 0 {
		line.Tags = splitTags(g.s[i+1:])
		g = g.to(i).trimRight()
		if g.empty() {
			line.Kind = LineTags
			return line, nil
		}
	}

	switch {
	case strings.HasPrefix(g.s, "VAR ") || strings.HasPrefix(g.s, "VAR\t"):
		return p.variable(line, g.from(3).trim())
	case strings.HasPrefix(g.s, "=="):
		return p.knot(line, g)
	case g.s[0] == '=':
		return p.stitch(line, g.from(1).trim())
	case g.s[0] == '*' || g.s[0] == '+':
		return p.choice(line, g)
	case g.s[0] == '-' && !strings.HasPrefix(g.s, "->"):
		return p.gather(line, g)
	}

	line.Kind = LineText
	if err := p.body(&line, g); err != nil {
		return line, err
	}
	if len(line.Text) == 0 && line.Divert != nil {
		line.Kind = LineDivert
	}
	return line, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, "#") {
		if t = strings.TrimSpace(unescape(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (p *lineParser) variable(line Line, g seg) (Line, error) {
	eq := strings.IndexByte(g.s, '=')
	if eq < 0 {
		return line, p.errorf("VAR needs an initial value")
	}
	name := strings.TrimSpace(g.s[:eq])
	if !isIdent(name) {
		return line, p.errorf("invalid variable name %q", name)
	}
	rhs := g.from(eq + 1).trim()
	if rhs.empty() {
		return line, p.errorf("VAR %s needs an initial value", name)
	}
	e, err := p.expr(rhs)
	if err != nil {
		return line, err
	}
	v, ok := constant(e)
	if !ok {
		return line, p.errorf("VAR %s must be initialised with a literal", name)
	}
	line.Kind, line.Name, line.Value = LineVar, name, v
	return line, nil
}

func (p *lineParser) knot(line Line, g seg) (Line, error) {
	name := strings.TrimSpace(strings.TrimLeft(g.s, "="))
	name = strings.TrimSpace(strings.TrimRight(name, "="))
	if !isIdent(name) {
		return line, p.errorf("invalid knot name %q", name)
	}
	line.Kind, line.Name = LineKnot, name
	return line, nil
}

func (p *lineParser) stitch(line Line, g seg) (Line, error) {
	if !isIdent(g.s) {
		return line, p.errorf("invalid stitch name %q", g.s)
	}
	line.Kind, line.Name = LineStitch, g.s
	return line, nil
}

func (p *lineParser) choice(line Line, g seg) (Line, error) {
	marker := g.s[0]
	i := 0
markers:
	for ; i < len(g.s); i++ {
		switch c := g.s[i]; {
		case c == '*' || c == '+':
			if c != marker {
				return line, p.errorf("choice mixes '*' and '+' markers")
			}
			line.Depth++
		case isSpace(c):
		default:
			break markers
		}
	}
	line.Kind = LineChoice
	line.Sticky = marker == '+'

	rest := g.from(i).trimLeft()
	for strings.HasPrefix(rest.s, "{") {
		end := matchBrace(rest.s, 0)
		if end < 0 {
			return line, p.errorf("unbalanced '{' at column %d", rest.col())
		}
		if !isCondition(rest.s[1:end]) {
			break
		}
		cond, err := p.expr(rest.sub(1, end))
		if err != nil {
			return line, err
		}
		line.Conditions = append(line.Conditions, cond)
		rest = rest.from(end + 1).trimLeft()
	}

	if j := indexTop(rest.s, "->", false); j >= 0 {
		t, err := p.target(rest.from(j + 2).trim())
		if err != nil {
			return line, err
		}
		line.Divert = t
		rest = rest.to(j)
	}
	rest = rest.trim()

	open := indexTop(rest.s, "[", false)
	if open < 0 {
		if c := indexTop(rest.s, "]", false); c >= 0 {
			return line, p.errorf("unmatched ']' at column %d", rest.off+c+1)
		}
		m, err := p.markup(rest)
		if err != nil {
			return line, err
		}
		line.Selection, line.Content = m, m
	} else {
		closing := indexTop(rest.s[open+1:], "]", false)
		if closing < 0 {
			return line, p.errorf("unmatched '[' at column %d", rest.off+open+1)
		}
		closing += open + 1
		after := rest.from(closing + 1)
		if indexTop(after.s, "[", false) >= 0 || indexTop(after.s, "]", false) >= 0 {
			return line, p.errorf("choice text has more than one [...] section")
		}
		before, err := p.markup(rest.to(open))
		if err != nil {
			return line, err
		}
		inside, err := p.markup(rest.sub(open+1, closing))
		if err != nil {
			return line, err
		}
		tail, err := p.markup(after)
		if err != nil {
			return line, err
		}
		line.Selection = slices.Concat(before, inside)
		line.Content = slices.Concat(before, tail)
	}
	line.Fallback = line.Selection.IsEmpty()
	return line, nil
}

// isCondition tells a leading choice condition from inline markup such as an
// alternative or a conditional text span.
func isCondition(body string) bool {
	if strings.HasPrefix(body, "&") || strings.HasPrefix(body, "~") {
		return false
	}
	if indexTop(body, ":", true) >= 0 {
		return false
	}
	return len(splitTop(seg{s: body}, "|")) == 1 || strings.Contains(body, "||")
}

func (p *lineParser) gather(line Line, g seg) (Line, error) {
	i := 0
	for i < len(g.s) {
		c := g.s[i]
		if c == '-' && !strings.HasPrefix(g.s[i:], "->") {
			line.Depth++
		} else if !isSpace(c) {
			break
		}
		i++
	}
	line.Kind = LineGather
	if rest := g.from(i).trim(); !rest.empty() {
		if err := p.body(&line, rest); err != nil {
			return line, err
		}
	}
	return line, nil
}

// body parses the text part of a text or gather line: glue, markup and an optional divert.
func (p *lineParser) body(line *Line, g seg) error {
	if strings.HasPrefix(g.s, "{") && matchBrace(g.s, 0) == len(g.s)-1 {
		ok, err := p.conditionalDivert(line, g.sub(1, len(g.s)-1))
		if ok || err != nil {
			return err
		}
	}

	if j := indexTop(g.s, "->", false); j >= 0 {
		t, err := p.target(g.from(j + 2).trim())
		if err != nil {
			return err
		}
		line.Divert = t
		g = g.to(j).trimRight()
	}

	if strings.HasPrefix(g.s, "<>") {
		line.GlueBegin = true
		g = g.from(2)
	}
	if strings.HasSuffix(g.s, "<>") && len(g.s) >= 2 {
		line.GlueEnd = true
		g = g.to(len(g.s) - 2)
	}
	if strings.TrimSpace(g.s) == "" {
		return nil
	}
	m, err := p.markup(g)
	if err != nil {
		return err
	}
	line.Text = m
	return nil
}

// conditionalDivert handles a whole-line "{cond: -> a}" or "{cond: -> a | -> b}".
// It reports false when the braces hold ordinary markup instead.
func (p *lineParser) conditionalDivert(line *Line, body seg) (bool, error) {
	colon := indexTop(body.s, ":", true)
	if colon < 0 {
		return false, nil
	}
	branches := splitTop(body.from(colon+1), "|")
	for i, b := range branches {
		b = b.trim()
		if !strings.HasPrefix(b.s, "->") {
			return false, nil
		}
		branches[i] = b.from(2).trim()
	}
	if len(branches) > 2 {
		return true, p.errorf("conditional divert has more than two branches")
	}
	cond, err := p.expr(body.to(colon))
	if err != nil {
		return true, err
	}
	line.Condition = cond
	if line.Divert, err = p.target(branches[0]); err != nil {
		return true, err
	}
	if len(branches) == 2 {
		if line.Else, err = p.target(branches[1]); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (p *lineParser) target(g seg) (*Target, error) {
	if g.empty() {
		return nil, p.errorf("divert without a target")
	}
	if !isPath(g.s) {
		return nil, p.errorf("invalid divert target %q", g.s)
	}
	return &Target{Path: g.s, Pos: p.pos(g)}, nil
}
