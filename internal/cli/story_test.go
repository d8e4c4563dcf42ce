package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Validate(writeStory(t, doorStory), &out))
	assert.Equal(t, "✓ door.ink is valid: 1 knot(s), 1 variable(s)\n", out.String())

	out.Reset()
	err := Validate(writeStory(t, "-> nowhere\n== a ==\n-> gone\n"), &out)
	assert.ErrorIs(t, err, ErrInvalidStory)
	assert.ErrorContains(t, err, "2 error(s)")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "nowhere")
	assert.Contains(t, lines[1], "gone")

	assert.Error(t, Validate(filepath.Join(t.TempDir(), "missing.ink"), &out))
}

func TestGraph(t *testing.T) {
	ctx := context.Background()
	cfg := quietConfig(t)
	path := writeStory(t, doorStory)

	var out bytes.Buffer
	require.NoError(t, Graph(ctx, cfg, path, "", &out))
	assert.True(t, strings.HasPrefix(out.String(), "graph TD"))
	assert.Contains(t, out.String(), `k_door(("door"))`)
	assert.NotContains(t, out.String(), "class ")

	p, err := OpenPersistence(ctx, cfg.Store)
	require.NoError(t, err)
	state := domain.NewState("door", "")
	state.Visits["door"] = 1
	require.NoError(t, p.Store.Save(ctx, "s1", state))

	out.Reset()
	require.NoError(t, Graph(ctx, cfg, path, "s1", &out))
	assert.Contains(t, out.String(), "class k_door current;")

	assert.ErrorIs(t, Graph(ctx, cfg, path, "nope", &out), domain.ErrSessionNotFound)
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	cfg := quietConfig(t)

	var out bytes.Buffer
	require.NoError(t, ListSessions(ctx, cfg, &out))
	assert.Equal(t, "No active sessions found.\n", out.String())

	p, err := OpenPersistence(ctx, cfg.Store)
	require.NoError(t, err)
	for _, id := range []string{"s10", "s2"} {
		require.NoError(t, p.Store.Save(ctx, id, domain.NewState("door", "")))
	}

	out.Reset()
	require.NoError(t, ListSessions(ctx, cfg, &out))
	assert.Equal(t, "s2\ns10\n", out.String())

	out.Reset()
	require.NoError(t, InspectSession(ctx, cfg, "s2", &out))
	assert.Contains(t, out.String(), `"knot": "door"`)
	assert.ErrorIs(t, InspectSession(ctx, cfg, "nope", &out), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, RemoveSession(ctx, cfg, "s2", &out))
	assert.Equal(t, "Session 's2' deleted.\n", out.String())
	ids, err := p.Store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s10"}, ids)
}
