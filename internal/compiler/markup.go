package compiler

import (
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
)

// markup splits text into literal runs and {} spans. Escapes are resolved here.
func (p *lineParser) markup(g seg) (domain.Markup, error) {
	var (
		out domain.Markup
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, &domain.Literal{Text: buf.String()})
			buf.Reset()
		}
	}
	s := g.s
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
			}
			buf.WriteByte(s[i])
		case '{':
			end := matchBrace(s, i)
			if end < 0 {
				return nil, p.errorf("unbalanced '{' at column %d", g.off+i+1)
			}
			flush()
			span, err := p.span(g.sub(i+1, end), domain.Pos{Line: p.no, Col: g.off + i + 1})
			if err != nil {
				return nil, err
			}
			out = append(out, span)
			i = end
		case '}':
			return nil, p.errorf("unbalanced '}' at column %d", g.off+i+1)
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return out, nil
}

// span parses the body of a {} span opened at pos.
func (p *lineParser) span(body seg, pos domain.Pos) (domain.Span, error) {
	s := body.s
	colon := indexTop(s, ":", true)
	switch {
	case strings.HasPrefix(s, "~"):
		return nil, p.errorf("shuffle alternatives are not supported (column %d)", pos.Col)
	case strings.HasPrefix(s, "&"):
		return p.alternative(body.from(1), pos, domain.AltCycle)
	case strings.HasPrefix(s, "!") && colon < 0:
		return p.alternative(body.from(1), pos, domain.AltOnce)
	case colon >= 0:
		return p.conditional(body, colon)
	}

	if parts := splitTop(body, "|"); len(parts) > 1 {
		// "a || b" is an expression, not an alternative with an empty item.
		if strings.Contains(s, "||") {
			if e, err := p.expr(body); err == nil {
				return &domain.Interpolation{Expr: e}, nil
			}
		}
		return p.alternative(body, pos, domain.AltSequence)
	}
	if strings.TrimSpace(s) == "" {
		return nil, p.errorf("empty {} at column %d", pos.Col)
	}
	e, err := p.expr(body)
	if err != nil {
		return nil, err
	}
	return &domain.Interpolation{Expr: e}, nil
}

func (p *lineParser) conditional(body seg, colon int) (domain.Span, error) {
	cond, err := p.expr(body.to(colon))
	if err != nil {
		return nil, err
	}
	branches := splitTop(body.from(colon+1), "|")
	if len(branches) > 2 {
		return nil, p.errorf("conditional text has more than two branches (column %d)", body.col())
	}
	c := &domain.Conditional{Condition: cond}
	if c.Then, err = p.markup(branches[0].trimLeft()); err != nil {
		return nil, err
	}
	if len(branches) == 2 {
		if c.Else, err = p.markup(branches[1]); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (p *lineParser) alternative(body seg, pos domain.Pos, mode domain.AltMode) (domain.Span, error) {
	alt := &domain.Alternative{ID: pos.String(), Mode: mode}
	for _, part := range splitTop(body, "|") {
		item, err := p.markup(part)
		if err != nil {
			return nil, err
		}
		alt.Items = append(alt.Items, item)
	}
	return alt, nil
}
