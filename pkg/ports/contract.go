package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState("bar", "order")
		state.Status = domain.StatusAwaitingChoice
		state.Stack = []int{2, 0}
		state.Visits["bar"] = 2
		state.Visits["bar.order"] = 1
		state.Sequences["12:1"] = 3
		state.Consumed["14:1"] = true
		state.Presented = []domain.PresentedChoice{{Node: 1, Text: "Leave", Tags: []string{"exit"}}}
		state.Variables = map[string]domain.Value{
			"coins": domain.IntValue(42),
			"rate":  domain.FloatValue(2),
			"name":  domain.StringValue("Ana"),
		}

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		// Kinds survive persistence: a whole float stays a float.
		assert.Equal(t, state, loaded)
	})

	t.Run("Save overwrites", func(t *testing.T) {
		state := domain.NewState("bar", "")
		state.Status = domain.StatusEnded
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusEnded, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewState("start", "")))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is fine")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewState("start", "")))
		require.NoError(t, store.Save(ctx, id2, domain.NewState("start", "")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
		assert.NotContains(t, sessions, sessionID)
	})
}
