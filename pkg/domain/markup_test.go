package domain_test

import (
	"testing"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestAlternative_Pick(t *testing.T) {
	items := []domain.Markup{{&domain.Literal{Text: "a"}}, {&domain.Literal{Text: "b"}}, {&domain.Literal{Text: "c"}}}

	tests := []struct {
		mode domain.AltMode
		want []int
	}{
		{domain.AltSequence, []int{0, 1, 2, 2, 2}},
		{domain.AltCycle, []int{0, 1, 2, 0, 1}},
		{domain.AltOnce, []int{0, 1, 2, -1, -1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			alt := &domain.Alternative{ID: "1:1", Mode: tt.mode, Items: items}
			for count, want := range tt.want {
				assert.Equal(t, want, alt.Pick(count), "visit %d", count)
			}
		})
	}
}

func TestMarkup_WalkExprs(t *testing.T) {
	ref := &domain.Ref{Name: "gold"}
	m := domain.Markup{
		&domain.Literal{Text: "You have "},
		&domain.Conditional{
			Condition: &domain.Binary{Op: ">", X: ref, Y: &domain.Const{Value: domain.IntValue(0)}},
			Then:      domain.Markup{&domain.Interpolation{Expr: ref}},
			Else:      domain.Markup{&domain.Literal{Text: "nothing"}},
		},
	}

	var names []string
	m.WalkExprs(func(e domain.Expr) {
		domain.WalkRefs(e, func(r *domain.Ref) { names = append(names, r.Name) })
	})
	assert.Equal(t, []string{"gold", "gold"}, names)
	assert.Equal(t, "You have ", m.PlainText())
	assert.False(t, m.IsEmpty())
	assert.True(t, domain.Markup{&domain.Literal{Text: "  "}}.IsEmpty())
}

func TestJoinLines(t *testing.T) {
	lines := []domain.Line{
		{Text: "We hurried ", Glue: true},
		{Text: "home."},
		{Text: "It was late."},
		{Text: " Very late.", GlueBefore: true},
	}
	assert.Equal(t, "We hurried home.\nIt was late. Very late.", domain.JoinLines(lines))
	assert.Equal(t, "", domain.JoinLines(nil))
}

func TestFormatExpr(t *testing.T) {
	ref := func(name string) domain.Expr { return &domain.Ref{Name: name} }
	num := func(i int64) domain.Expr { return &domain.Const{Value: domain.IntValue(i)} }

	tests := []struct {
		name string
		expr domain.Expr
		want string
	}{
		{"int", num(3), "3"},
		{"whole float", &domain.Const{Value: domain.FloatValue(2)}, "2.0"},
		{"float", &domain.Const{Value: domain.FloatValue(1.5)}, "1.5"},
		{"string", &domain.Const{Value: domain.StringValue(`say "hi"`)}, `"say \"hi\""`},
		{"bool", &domain.Const{Value: domain.BoolValue(true)}, "true"},
		{"ref", ref("gold"), "gold"},
		{"not", &domain.Unary{Op: "not", X: ref("seen")}, "not seen"},
		{"negate", &domain.Unary{Op: "-", X: num(1)}, "-1"},
		{"binary", &domain.Binary{Op: ">", X: ref("gold"), Y: num(1)}, "gold > 1"},
		{
			"nested",
			&domain.Binary{Op: "and",
				X: &domain.Binary{Op: ">", X: ref("gold"), Y: num(1)},
				Y: &domain.Unary{Op: "not", X: &domain.Binary{Op: "==", X: ref("mood"), Y: num(0)}},
			},
			"(gold > 1) and not (mood == 0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.FormatExpr(tt.expr))
		})
	}
}
