package domain

import (
	"strconv"
	"strings"
)

// Markup is a line of text split into spans that are resolved at display time.
type Markup []Span

// Span is a closed sum type over *Literal text, *Interpolation, *Conditional and *Alternative.
type Span interface {
	span()
}

// Literal is plain text.
type Literal struct {
	Text string
}

// Interpolation prints the value of an expression.
type Interpolation struct {
	Expr Expr
}

// Conditional keeps Then when the condition holds and Else otherwise.
type Conditional struct {
	Condition Expr
	Then      Markup
	Else      Markup
}

// AltMode selects how an Alternative walks its items.
type AltMode string

const (
	// AltSequence shows items in order and then repeats the last one.
	AltSequence AltMode = "sequence"
	// AltCycle wraps around to the first item.
	AltCycle AltMode = "cycle"
	// AltOnce shows items in order and then nothing.
	AltOnce AltMode = "once"
)

// Alternative is a set of variations picked by a per-span visit counter.
type Alternative struct {
	// ID is the source position of the span; it keys the counter in State.Sequences.
	ID    string
	Mode  AltMode
	Items []Markup
}

func (*Literal) span()       {}
func (*Interpolation) span() {}
func (*Conditional) span()   {}
func (*Alternative) span()   {}

// Pick returns the item index for a span visited count times before, or -1 when
// an exhausted once-only span shows nothing.
func (a *Alternative) Pick(count int) int {
	n := len(a.Items)
	if n == 0 {
		return -1
	}
	switch a.Mode {
	case AltCycle:
		return count % n
	case AltOnce:
		if count >= n {
			return -1
		}
		return count
	default:
		if count >= n {
			return n - 1
		}
		return count
	}
}

// IsEmpty reports whether the markup has no spans or only blank literal text.
func (m Markup) IsEmpty() bool {
	for _, s := range m {
		lit, ok := s.(*Literal)
		if !ok || strings.TrimSpace(lit.Text) != "" {
			return false
		}
	}
	return true
}

// PlainText returns the literal parts only. Used for labels in tooling.
func (m Markup) PlainText() string {
	var sb strings.Builder
	for _, s := range m {
		if lit, ok := s.(*Literal); ok {
			sb.WriteString(lit.Text)
		}
	}
	return sb.String()
}

// WalkExprs calls fn for every expression reachable from the markup, including
// expressions nested in conditional branches and alternative items.
func (m Markup) WalkExprs(fn func(Expr)) {
	for _, s := range m {
		switch v := s.(type) {
		case *Interpolation:
			fn(v.Expr)
		case *Conditional:
			fn(v.Condition)
			v.Then.WalkExprs(fn)
			v.Else.WalkExprs(fn)
		case *Alternative:
			for _, item := range v.Items {
				item.WalkExprs(fn)
			}
		}
	}
}

// Expr is a closed sum type over *Const, *Ref, *Unary and *Binary.
type Expr interface {
	expr()
}

// Const is a literal value.
type Const struct {
	Value Value
}

// RefKind tells what a name in an expression refers to.
type RefKind string

const (
	RefUnresolved RefKind = ""
	RefVariable   RefKind = "variable"
	RefVisits     RefKind = "visits"
)

// Ref is a name: a variable, or a knot / stitch whose visit count is read.
type Ref struct {
	Name string
	Pos  Pos

	// Kind and Key are filled in by validation. Key is the variable name or the visit key.
	Kind RefKind
	Key  string
}

// Unary is a prefix operation ("-" or "not").
type Unary struct {
	Op  string
	X   Expr
	Pos Pos
}

// Binary is an infix operation.
type Binary struct {
	Op   string
	X, Y Expr
	Pos  Pos
}

func (*Const) expr()  {}
func (*Ref) expr()    {}
func (*Unary) expr()  {}
func (*Binary) expr() {}

// WalkRefs calls fn for every name reference in the expression tree.
func WalkRefs(e Expr, fn func(*Ref)) {
	switch v := e.(type) {
	case *Ref:
		fn(v)
	case *Unary:
		WalkRefs(v.X, fn)
	case *Binary:
		WalkRefs(v.X, fn)
		WalkRefs(v.Y, fn)
	}
}

// FormatExpr renders an expression back to source form. Nested operations are parenthesised.
func FormatExpr(e Expr) string {
	switch v := e.(type) {
	case *Const:
		if v.Value.Kind() == KindString {
			return strconv.Quote(v.Value.Str())
		}
		if v.Value.Kind() == KindFloat && !strings.ContainsAny(v.Value.String(), ".eE") {
			return v.Value.String() + ".0"
		}
		return v.Value.String()
	case *Ref:
		return v.Name
	case *Unary:
		if v.Op == "not" {
			return "not " + formatOperand(v.X)
		}
		return v.Op + formatOperand(v.X)
	case *Binary:
		return formatOperand(v.X) + " " + v.Op + " " + formatOperand(v.Y)
	default:
		return "?"
	}
}

func formatOperand(e Expr) string {
	if _, ok := e.(*Binary); ok {
		return "(" + FormatExpr(e) + ")"
	}
	return FormatExpr(e)
}
