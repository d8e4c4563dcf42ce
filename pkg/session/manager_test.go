package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/pkg/adapters/memory"
	"github.com/aretw0/inkwell/pkg/adapters/redis"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counter = `
== count ==
Tick {count}.
+ [Again] -> count
* [Stop] -> END
`

func newManager(t *testing.T, opts ...session.Option) *session.Manager {
	t.Helper()
	eng, err := inkwell.New(counter)
	require.NoError(t, err)
	return session.NewManager(eng, memory.NewStore(), opts...)
}

// slowStore delays every call to make unserialised read-modify-write cycles lose updates.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, id string) (*domain.State, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func (s slowStore) Save(ctx context.Context, id string, st *domain.State) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, id, st)
}

func TestManager_Playback(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	id, st, err := mgr.Create(ctx, "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, st.Visits["count"])

	step, _, err := mgr.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tick 1.", step.Line.Text)

	step, _, err = mgr.Advance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StepChoices, step.Kind)

	_, err = mgr.Select(ctx, id, 0)
	require.NoError(t, err)
	step, st, err = mgr.Advance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tick 2.", step.Line.Text)

	stored, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, st, stored)

	require.NoError(t, mgr.Delete(ctx, id))
	_, _, err = mgr.Advance(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_Continue(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	_, err := mgr.Start(ctx, "c", "count", nil)
	require.NoError(t, err)

	lines, step, st, err := mgr.Continue(ctx, "c")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Tick 1.", lines[0].Text)
	assert.Equal(t, domain.StepChoices, step.Kind)
	assert.Equal(t, domain.StatusAwaitingChoice, st.Status)

	stored, err := mgr.Load(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, st, stored)

	_, _, _, err = mgr.Continue(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_FailedCallKeepsStoredState(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	st, err := mgr.Start(ctx, "s", "count", nil)
	require.NoError(t, err)

	_, err = mgr.Select(ctx, "s", 0)
	assert.ErrorIs(t, err, domain.ErrNotAwaitingChoice)

	stored, err := mgr.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, st, stored)
}

func TestManager_RejectsForeignState(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "foreign", domain.NewState("elsewhere", "")))
	_, err := mgr.Load(ctx, "foreign")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestManager_WithLockSerialisesWrites(t *testing.T) {
	eng, err := inkwell.New(counter)
	require.NoError(t, err)
	mgr := session.NewManager(eng, slowStore{memory.NewStore()})
	ctx := context.Background()

	_, err = mgr.Start(ctx, "race", "", nil)
	require.NoError(t, err)

	// Read-modify-write cycles lose updates unless the manager serialises them.
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "race", func(ctx context.Context) error {
				st, err := mgr.Store().Load(ctx, "race")
				if err != nil {
					return err
				}
				st.Visits["count"]++
				return mgr.Store().Save(ctx, "race", st)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := mgr.Load(ctx, "race")
	require.NoError(t, err)
	assert.Equal(t, 11, st.Visits["count"])
}

func TestManager_LoadOrStart(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := mgr.LoadOrStart(ctx, "atomic-init", "count")
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := mgr.Load(ctx, "atomic-init")
	require.NoError(t, err)
	assert.Equal(t, "count", state.Knot)
	assert.Equal(t, 1, state.Visits["count"], "the second caller loads instead of restarting")

	_, err = mgr.LoadOrStart(ctx, "bad", "nowhere")
	assert.ErrorIs(t, err, domain.ErrUnknownKnot)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	mgr := newManager(t,
		session.WithLocker(redis.NewLocker(client, "test:")),
		session.WithLockTTL(time.Second),
	)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "s", func(context.Context) error {
		assert.True(t, mr.Exists("test:lock:s"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:s"))
}
