package runtime

import (
	"cmp"
	"fmt"
	"math"

	"github.com/aretw0/inkwell/pkg/domain"
)

func (r *run) truthy(e domain.Expr) (bool, error) {
	v, err := r.eval(e)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func (r *run) eval(e domain.Expr) (domain.Value, error) {
	switch v := e.(type) {
	case *domain.Const:
		return v.Value, nil
	case *domain.Ref:
		return r.lookup(v)
	case *domain.Unary:
		x, err := r.eval(v.X)
		if err != nil {
			return domain.Value{}, err
		}
		return unary(v, x)
	case *domain.Binary:
		x, err := r.eval(v.X)
		if err != nil {
			return domain.Value{}, err
		}
		// and/or short-circuit.
		switch v.Op {
		case "and":
			if !x.Truthy() {
				return domain.BoolValue(false), nil
			}
			return r.evalBool(v.Y)
		case "or":
			if x.Truthy() {
				return domain.BoolValue(true), nil
			}
			return r.evalBool(v.Y)
		}
		y, err := r.eval(v.Y)
		if err != nil {
			return domain.Value{}, err
		}
		return binary(v, x, y)
	default:
		return domain.Value{}, &domain.EvalError{Msg: fmt.Sprintf("unknown expression %T", e)}
	}
}

func (r *run) evalBool(e domain.Expr) (domain.Value, error) {
	ok, err := r.truthy(e)
	return domain.BoolValue(ok), err
}

// lookup reads a name: host overrides first, then declared values, then visit counts.
func (r *run) lookup(ref *domain.Ref) (domain.Value, error) {
	switch ref.Kind {
	case domain.RefVariable:
		if v, ok := r.st.Variables[ref.Key]; ok {
			return v, nil
		}
		if v, ok := r.e.story.Variables[ref.Key]; ok {
			return v, nil
		}
	case domain.RefVisits:
		return domain.IntValue(int64(r.st.Visits[ref.Key])), nil
	}
	return domain.Value{}, &domain.EvalError{Pos: ref.Pos, Msg: fmt.Sprintf("unresolved name %q", ref.Name)}
}

func unary(u *domain.Unary, x domain.Value) (domain.Value, error) {
	switch u.Op {
	case "not":
		return domain.BoolValue(!x.Truthy()), nil
	case "-":
		switch x.Kind() {
		case domain.KindInt:
			return domain.IntValue(-x.Int()), nil
		case domain.KindFloat:
			return domain.FloatValue(-x.Float()), nil
		}
		return domain.Value{}, &domain.EvalError{Pos: u.Pos, Msg: fmt.Sprintf("cannot negate %s", x.Kind())}
	}
	return domain.Value{}, &domain.EvalError{Pos: u.Pos, Msg: fmt.Sprintf("unknown operator %q", u.Op)}
}

func binary(b *domain.Binary, x, y domain.Value) (domain.Value, error) {
	fail := func(format string, args ...any) (domain.Value, error) {
		return domain.Value{}, &domain.EvalError{Pos: b.Pos, Msg: fmt.Sprintf(format, args...)}
	}

	switch b.Op {
	case "==":
		return domain.BoolValue(x.Equal(y)), nil
	case "!=":
		return domain.BoolValue(!x.Equal(y)), nil
	case "<", "<=", ">", ">=":
		var c int
		switch {
		case x.IsNumber() && y.IsNumber():
			c = compareNumbers(x, y)
		case x.Kind() == domain.KindString && y.Kind() == domain.KindString:
			c = cmp.Compare(x.Str(), y.Str())
		default:
			return fail("cannot compare %s and %s", x.Kind(), y.Kind())
		}
		switch b.Op {
		case "<":
			return domain.BoolValue(c < 0), nil
		case "<=":
			return domain.BoolValue(c <= 0), nil
		case ">":
			return domain.BoolValue(c > 0), nil
		default:
			return domain.BoolValue(c >= 0), nil
		}
	case "+":
		if x.Kind() == domain.KindString || y.Kind() == domain.KindString {
			return domain.StringValue(x.String() + y.String()), nil
		}
	}

	if !x.IsNumber() || !y.IsNumber() {
		return fail("operator %s needs numbers, got %s and %s", b.Op, x.Kind(), y.Kind())
	}
	if x.Kind() == domain.KindInt && y.Kind() == domain.KindInt {
		a, c := x.Int(), y.Int()
		switch b.Op {
		case "+":
			return domain.IntValue(a + c), nil
		case "-":
			return domain.IntValue(a - c), nil
		case "*":
			return domain.IntValue(a * c), nil
		case "/":
			if c == 0 {
				return fail("division by zero")
			}
			return domain.IntValue(a / c), nil
		case "%":
			if c == 0 {
				return fail("division by zero")
			}
			return domain.IntValue(a % c), nil
		}
		return fail("unknown operator %q", b.Op)
	}

	a, c := x.Float(), y.Float()
	switch b.Op {
	case "+":
		return domain.FloatValue(a + c), nil
	case "-":
		return domain.FloatValue(a - c), nil
	case "*":
		return domain.FloatValue(a * c), nil
	case "/":
		if c == 0 {
			return fail("division by zero")
		}
		return domain.FloatValue(a / c), nil
	case "%":
		if c == 0 {
			return fail("division by zero")
		}
		return domain.FloatValue(math.Mod(a, c)), nil
	}
	return fail("unknown operator %q", b.Op)
}

func compareNumbers(x, y domain.Value) int {
	if x.Kind() == domain.KindInt && y.Kind() == domain.KindInt {
		return cmp.Compare(x.Int(), y.Int())
	}
	return cmp.Compare(x.Float(), y.Float())
}
