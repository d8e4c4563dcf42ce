package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/inkwell/pkg/adapters/memory"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("start", "")
	require.NoError(t, store.Save(ctx, "s", state))
	state.Visits["start"] = 9

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, loaded.Visits["start"])

	loaded.Visits["start"] = 5
	again, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, again.Visits["start"])
}

func TestMemoryStore_ListNaturalOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for _, id := range []string{"run-10", "run-2", "run-1"} {
		require.NoError(t, store.Save(ctx, id, domain.NewState("start", "")))
	}
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1", "run-2", "run-10"}, ids)
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(
		memory.WithTTL(time.Minute),
		memory.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s", domain.NewState("start", "")))

	now = now.Add(30 * time.Second)
	_, err := store.Load(ctx, "s")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Load(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
