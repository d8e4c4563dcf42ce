package domain_test

import (
	"testing"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	s := domain.NewState("cellar", "stairs")
	s.Status = domain.StatusAwaitingChoice
	s.Stack = []int{2, 0, 1}
	s.Sequences["4:7"] = 3
	s.Visits["cellar"] = 1
	s.Visits["cellar.stairs"] = 2
	s.Consumed["5:1"] = true
	s.Presented = []domain.PresentedChoice{{Node: 1, Text: "Go down", Tags: []string{"dark"}}}
	s.Pending = &domain.Line{Text: "You wait.", Glue: true}
	s.Variables = map[string]domain.Value{"torch": domain.BoolValue(true)}

	data, err := s.Encode()
	require.NoError(t, err)

	got, err := domain.DecodeState(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestState_Clone(t *testing.T) {
	s := domain.NewState("a", "")
	s.Presented = []domain.PresentedChoice{{Node: 0, Text: "x", Tags: []string{"t"}}}
	s.Pending = &domain.Line{Text: "p"}

	c := s.Clone()
	c.Stack[0] = 9
	c.Sequences["1:1"] = 1
	c.Presented[0].Tags[0] = "changed"
	c.Pending.Text = "changed"

	assert.Equal(t, 0, s.Stack[0])
	assert.Empty(t, s.Sequences)
	assert.Equal(t, "t", s.Presented[0].Tags[0])
	assert.Equal(t, "p", s.Pending.Text)
}

func TestDecodeState_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"unknown status", `{"status":"flying","knot":"a","stack":[0]}`},
		{"empty stack", `{"status":"at_line","knot":"a","stack":[]}`},
		{"negative cursor", `{"status":"at_line","knot":"a","stack":[-1]}`},
		{"awaiting without choices", `{"status":"awaiting_choice","knot":"a","stack":[0]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.DecodeState([]byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}
}
