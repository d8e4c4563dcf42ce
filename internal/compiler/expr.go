package compiler

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/inkwell/pkg/domain"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokConst
	tokName
	tokOp
)

type token struct {
	kind tokKind
	text string
	val  domain.Value
	col  int
}

// Operator precedence, loosest first.
var binaryPrec = map[string]int{
	"or":  1,
	"and": 2,
	"==":  3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

var twoCharOps = []string{"==", "!=", "<=", ">=", "&&", "||"}

// expr parses a full expression from g.
func (p *lineParser) expr(g seg) (domain.Expr, error) {
	toks, err := p.lex(g)
	if err != nil {
		return nil, err
	}
	ep := &exprParser{lp: p, toks: toks}
	e, err := ep.binary(1)
	if err != nil {
		return nil, err
	}
	if t := ep.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected %q in expression at column %d", t.text, t.col)
	}
	return e, nil
}

func (p *lineParser) lex(g seg) ([]token, error) {
	var toks []token
	s := g.s
	for i := 0; i < len(s); {
		c := s[i]
		col := g.off + i + 1
		switch {
		case isSpace(c):
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			j := i
			for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
				j++
			}
			v, ok := parseNumber(s[i:j])
			if !ok {
				return nil, p.errorf("invalid number %q at column %d", s[i:j], col)
			}
			toks = append(toks, token{kind: tokConst, text: s[i:j], val: v, col: col})
			i = j
		case c == '"':
			var sb strings.Builder
			j := i + 1
			for ; j < len(s) && s[j] != '"'; j++ {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				sb.WriteByte(s[j])
			}
			if j >= len(s) {
				return nil, p.errorf("unterminated string at column %d", col)
			}
			toks = append(toks, token{kind: tokConst, text: s[i : j+1], val: domain.StringValue(sb.String()), col: col})
			i = j + 1
		default:
			r, _ := utf8.DecodeRuneInString(s[i:])
			if isIdentStart(r) {
				n := identLen(s[i:])
				word := s[i : i+n]
				switch word {
				case "true", "false":
					toks = append(toks, token{kind: tokConst, text: word, val: domain.BoolValue(word == "true"), col: col})
				case "and", "or", "not":
					toks = append(toks, token{kind: tokOp, text: word, col: col})
				default:
					toks = append(toks, token{kind: tokName, text: word, col: col})
				}
				i += n
				continue
			}
			op := ""
			for _, two := range twoCharOps {
				if strings.HasPrefix(s[i:], two) {
					op = two
					break
				}
			}
			if op == "" && strings.ContainsRune("+-*/%<>!()", rune(c)) {
				op = string(c)
			}
			if op == "" {
				return nil, p.errorf("unexpected character %q in expression at column %d", r, col)
			}
			i += len(op)
			switch op {
			case "&&":
				op = "and"
			case "||":
				op = "or"
			case "!":
				op = "not"
			}
			toks = append(toks, token{kind: tokOp, text: op, col: col})
		}
	}
	return append(toks, token{kind: tokEOF, col: g.off + len(s) + 1}), nil
}

func parseNumber(s string) (domain.Value, bool) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		return domain.FloatValue(f), err == nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	return domain.IntValue(i), err == nil
}

type exprParser struct {
	lp   *lineParser
	toks []token
	pos  int
}

func (ep *exprParser) peek() token { return ep.toks[ep.pos] }

func (ep *exprParser) next() token {
	t := ep.toks[ep.pos]
	if t.kind != tokEOF {
		ep.pos++
	}
	return t
}

func (ep *exprParser) at(col int) domain.Pos {
	return domain.Pos{Line: ep.lp.no, Col: col}
}

// binary parses operators binding at least as tight as minPrec. Operators are left associative.
func (ep *exprParser) binary(minPrec int) (domain.Expr, error) {
	x, err := ep.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := ep.peek()
		prec, ok := binaryPrec[t.text]
		if t.kind != tokOp || !ok || prec < minPrec {
			return x, nil
		}
		ep.next()
		y, err := ep.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &domain.Binary{Op: t.text, X: x, Y: y, Pos: ep.at(t.col)}
	}
}

func (ep *exprParser) unary() (domain.Expr, error) {
	t := ep.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "not") {
		ep.next()
		x, err := ep.unary()
		if err != nil {
			return nil, err
		}
		return &domain.Unary{Op: t.text, X: x, Pos: ep.at(t.col)}, nil
	}
	return ep.primary()
}

func (ep *exprParser) primary() (domain.Expr, error) {
	t := ep.next()
	switch t.kind {
	case tokConst:
		return &domain.Const{Value: t.val}, nil
	case tokName:
		if !isPath(t.text) {
			return nil, ep.lp.errorf("invalid name %q at column %d", t.text, t.col)
		}
		return &domain.Ref{Name: t.text, Pos: ep.at(t.col)}, nil
	case tokOp:
		if t.text == "(" {
			x, err := ep.binary(1)
			if err != nil {
				return nil, err
			}
			if c := ep.next(); c.text != ")" {
				return nil, ep.lp.errorf("missing ')' at column %d", c.col)
			}
			return x, nil
		}
		return nil, ep.lp.errorf("unexpected %q in expression at column %d", t.text, t.col)
	default:
		return nil, ep.lp.errorf("missing operand at column %d", t.col)
	}
}

// constant folds a literal expression, allowing a leading minus on numbers.
func constant(e domain.Expr) (domain.Value, bool) {
	switch v := e.(type) {
	case *domain.Const:
		return v.Value, true
	case *domain.Unary:
		c, ok := v.X.(*domain.Const)
		if !ok || v.Op != "-" {
			return domain.Value{}, false
		}
		switch c.Value.Kind() {
		case domain.KindInt:
			return domain.IntValue(-c.Value.Int()), true
		case domain.KindFloat:
			return domain.FloatValue(-c.Value.Float()), true
		}
	}
	return domain.Value{}, false
}
