package compiler_test

import (
	"testing"

	"github.com/aretw0/inkwell/internal/compiler"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLine_Kinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind compiler.LineKind
		name string
	}{
		{"", compiler.LineEmpty, ""},
		{"   // just a comment", compiler.LineEmpty, ""},
		{"TODO: write the ending", compiler.LineEmpty, ""},
		{"== cellar ==", compiler.LineKnot, "cellar"},
		{"=== cellar", compiler.LineKnot, "cellar"},
		{"= stairs", compiler.LineStitch, "stairs"},
		{"* Go down", compiler.LineChoice, ""},
		{"+ Wait", compiler.LineChoice, ""},
		{"- They met again.", compiler.LineGather, ""},
		{"-> cellar", compiler.LineDivert, ""},
		{"It was dark.", compiler.LineText, ""},
		{"# mood: grim", compiler.LineTags, ""},
		{"VAR gold = 10", compiler.LineVar, "gold"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			l, err := compiler.ClassifyLine(1, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, l.Kind)
			assert.Equal(t, tt.name, l.Name)
		})
	}
}

func TestClassifyLine_Choice(t *testing.T) {
	l, err := compiler.ClassifyLine(3, "  * * {lamp_lit} Open [the door] slowly -> hall # creak")
	require.NoError(t, err)

	assert.Equal(t, compiler.LineChoice, l.Kind)
	assert.Equal(t, 2, l.Depth)
	assert.False(t, l.Sticky)
	assert.Equal(t, 3, l.Col)
	require.Len(t, l.Conditions, 1)
	ref, ok := l.Conditions[0].(*domain.Ref)
	require.True(t, ok)
	assert.Equal(t, "lamp_lit", ref.Name)
	assert.Equal(t, "Open the door", l.Selection.PlainText())
	assert.Equal(t, "Open  slowly", l.Content.PlainText())
	require.NotNil(t, l.Divert)
	assert.Equal(t, "hall", l.Divert.Path)
	assert.Equal(t, []string{"creak"}, l.Tags)
	assert.False(t, l.Fallback)
}

func TestClassifyLine_StickyAndFallback(t *testing.T) {
	l, err := compiler.ClassifyLine(1, "++ Again")
	require.NoError(t, err)
	assert.True(t, l.Sticky)
	assert.Equal(t, 2, l.Depth)

	l, err = compiler.ClassifyLine(1, "* -> give_up")
	require.NoError(t, err)
	assert.True(t, l.Fallback)
	assert.Equal(t, "give_up", l.Divert.Path)
}

func TestClassifyLine_Gather(t *testing.T) {
	l, err := compiler.ClassifyLine(1, "- - Later, -> epilogue")
	require.NoError(t, err)
	assert.Equal(t, compiler.LineGather, l.Kind)
	assert.Equal(t, 2, l.Depth)
	assert.Equal(t, "Later,", l.Text.PlainText())
	assert.Equal(t, "epilogue", l.Divert.Path)
}

func TestClassifyLine_ConditionalDivert(t *testing.T) {
	l, err := compiler.ClassifyLine(1, "{has_key: -> vault | -> street}")
	require.NoError(t, err)
	assert.Equal(t, compiler.LineDivert, l.Kind)
	require.NotNil(t, l.Condition)
	assert.Equal(t, "vault", l.Divert.Path)
	require.NotNil(t, l.Else)
	assert.Equal(t, "street", l.Else.Path)
}

func TestClassifyLine_TextDetails(t *testing.T) {
	l, err := compiler.ClassifyLine(1, "<>and then some <>")
	require.NoError(t, err)
	assert.True(t, l.GlueBegin)
	assert.True(t, l.GlueEnd)
	assert.Equal(t, "and then some ", l.Text.PlainText())

	l, err = compiler.ClassifyLine(1, `Braces \{ok\} and \# hash # tag1 # tag2`)
	require.NoError(t, err)
	assert.Equal(t, "Braces {ok} and # hash", l.Text.PlainText())
	assert.Equal(t, []string{"tag1", "tag2"}, l.Tags)

	l, err = compiler.ClassifyLine(1, "We ran -> away")
	require.NoError(t, err)
	assert.Equal(t, compiler.LineText, l.Kind)
	assert.Equal(t, "We ran", l.Text.PlainText())
	assert.Equal(t, "away", l.Divert.Path)
}

func TestClassifyLine_Spans(t *testing.T) {
	l, err := compiler.ClassifyLine(7, "You have {gold} coins{gold > 1: !|.} {&Tick|Tock} {!Once} {a|b}")
	require.NoError(t, err)

	var kinds []string
	for _, s := range l.Text {
		switch v := s.(type) {
		case *domain.Literal:
			kinds = append(kinds, "lit")
		case *domain.Interpolation:
			kinds = append(kinds, "expr")
		case *domain.Conditional:
			kinds = append(kinds, "cond")
			assert.Equal(t, "!", v.Then.PlainText())
			assert.Equal(t, ".", v.Else.PlainText())
		case *domain.Alternative:
			kinds = append(kinds, string(v.Mode))
		}
	}
	assert.Equal(t, []string{"lit", "expr", "lit", "cond", "lit", "cycle", "lit", "once", "lit", "sequence"}, kinds)

	alt := l.Text[5].(*domain.Alternative)
	assert.Equal(t, "7:38", alt.ID)
	assert.Len(t, alt.Items, 2)
}

func TestClassifyLine_Variables(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Value
	}{
		{"VAR gold = -5", domain.IntValue(-5)},
		{"VAR speed = 1.5", domain.FloatValue(1.5)},
		{"VAR lit = true", domain.BoolValue(true)},
		{`VAR name = "Ana \"the Bold\""`, domain.StringValue(`Ana "the Bold"`)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			l, err := compiler.ClassifyLine(1, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Value)
		})
	}
}

func TestClassifyLine_Errors(t *testing.T) {
	tests := []string{
		"*+ mixed markers",
		"Unbalanced {brace",
		"Stray } brace",
		"{~shuffle|is|unsupported}",
		"* Broken [choice",
		"* Broken ] choice",
		"-> ",
		"-> not a target",
		"== bad name ==",
		"VAR x = y",
		"VAR = 3",
		"{1 +}",
		`{"open}`,
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := compiler.ClassifyLine(4, raw)
			var pe *domain.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 4, pe.Line)
		})
	}
}

func TestClassifyLine_ChoiceLeadingMarkup(t *testing.T) {
	tests := []struct {
		raw        string
		conditions int
	}{
		{"* {seen} Go", 1},
		{"* {a || b} Go", 1},
		{"* {Knock|Bang} on the door", 0},
		{"* {&Left|Right} hand", 0},
		{"* {seen: Again|First} time", 0},
		{"* {seen} {Knock|Bang}", 1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			l, err := compiler.ClassifyLine(1, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, compiler.LineChoice, l.Kind)
			assert.Len(t, l.Conditions, tt.conditions)
			assert.False(t, l.Selection.IsEmpty())
		})
	}
}
