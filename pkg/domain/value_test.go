package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name string
		v    domain.Value
		want string
	}{
		{"int", domain.IntValue(42), "42"},
		{"negative int", domain.IntValue(-3), "-3"},
		{"float shortest", domain.FloatValue(2.5), "2.5"},
		{"whole float", domain.FloatValue(3), "3"},
		{"bool", domain.BoolValue(true), "true"},
		{"string", domain.StringValue("hi"), "hi"},
		{"invalid", domain.Value{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestValue_Truthy(t *testing.T) {
	assert.True(t, domain.BoolValue(true).Truthy())
	assert.False(t, domain.BoolValue(false).Truthy())
	assert.True(t, domain.IntValue(-1).Truthy())
	assert.False(t, domain.IntValue(0).Truthy())
	assert.False(t, domain.FloatValue(0).Truthy())
	assert.True(t, domain.StringValue("x").Truthy())
	assert.False(t, domain.StringValue("").Truthy())
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, domain.IntValue(2).Equal(domain.FloatValue(2)))
	assert.False(t, domain.IntValue(1).Equal(domain.StringValue("1")))
	assert.True(t, domain.StringValue("a").Equal(domain.StringValue("a")))
	assert.False(t, domain.BoolValue(true).Equal(domain.BoolValue(false)))
}

func TestValue_JSONKeepsKind(t *testing.T) {
	in := map[string]domain.Value{
		"i": domain.IntValue(7),
		"f": domain.FloatValue(7),
		"g": domain.FloatValue(0.25),
		"b": domain.BoolValue(false),
		"s": domain.StringValue("seven"),
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out map[string]domain.Value
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, in, out)
	assert.Equal(t, domain.KindFloat, out["f"].Kind())
	assert.Equal(t, domain.KindInt, out["i"].Kind())
}

func TestValueOf(t *testing.T) {
	v, err := domain.ValueOf(3)
	require.NoError(t, err)
	assert.Equal(t, domain.IntValue(3), v)

	v, err = domain.ValueOf(float64(4))
	require.NoError(t, err)
	assert.Equal(t, domain.KindInt, v.Kind(), "whole floats from decoders are ints")

	v, err = domain.ValueOf(1.5)
	require.NoError(t, err)
	assert.Equal(t, domain.FloatValue(1.5), v)

	_, err = domain.ValueOf([]string{"nope"})
	assert.Error(t, err)
}
