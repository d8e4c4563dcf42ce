package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars(map[string]string{
		"gold":  "3",
		"rate":  "1.5",
		"brave": "true",
		"name":  "Ada",
		"code":  "007x",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"gold":  int64(3),
		"rate":  1.5,
		"brave": true,
		"name":  "Ada",
		"code":  "007x",
	}, vars)

	_, err = parseVars(map[string]string{"": "1"})
	assert.Error(t, err)
}
