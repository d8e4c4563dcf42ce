package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/inkwell/internal/config"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPersistence(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name       string
		cfg        config.StoreConfig
		wantLocker bool
	}{
		{"memory", config.StoreConfig{Driver: config.DriverMemory}, false},
		{"file", config.StoreConfig{Driver: config.DriverFile, Path: t.TempDir()}, false},
		{"sqlite", config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "s.db")}, false},
		{"redis", config.StoreConfig{Driver: config.DriverRedis, URL: "redis://" + mr.Addr(), Prefix: "test:", TTL: time.Hour}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p, err := OpenPersistence(ctx, tt.cfg)
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, tt.wantLocker, p.Locker != nil)

			state := domain.NewState("door", "")
			state.Status = domain.StatusEnded
			require.NoError(t, p.Store.Save(ctx, "abc", state))
			ids, err := p.Store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"abc"}, ids)
		})
	}

	assert.True(t, mr.Exists("test:state:abc"))
}

func TestOpenPersistence_Errors(t *testing.T) {
	_, err := OpenPersistence(context.Background(), config.StoreConfig{Driver: "etcd"})
	assert.ErrorContains(t, err, `unknown store driver "etcd"`)

	_, err = OpenPersistence(context.Background(), config.StoreConfig{Driver: config.DriverRedis, URL: "not a url"})
	assert.Error(t, err)
}

func TestCreateEngine(t *testing.T) {
	engine, err := createEngine(writeStory(t, doorStory), config.Default(), quietConfig(t).Logger())
	require.NoError(t, err)
	assert.Equal(t, "door", engine.Name)

	_, err = createEngine(writeStory(t, "-> nowhere\n"), config.Default(), quietConfig(t).Logger())
	assert.ErrorContains(t, err, "error loading story")
}

func TestOpenPersistence_Middlewares(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	cfg := config.StoreConfig{Driver: config.DriverFile, Path: dir, EncryptionKey: key, Mask: []string{"^name$"}}
	p, err := OpenPersistence(ctx, cfg)
	require.NoError(t, err)

	state := domain.NewState("door", "")
	state.Variables = map[string]domain.Value{"name": domain.StringValue("Ada")}
	require.NoError(t, p.Store.Save(ctx, "s1", state))

	loaded, err := p.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Variables["name"].Str())
	assert.Equal(t, "door", loaded.Knot)

	// Without the key only the envelope is visible.
	plain, err := OpenPersistence(ctx, config.StoreConfig{Driver: config.DriverFile, Path: dir})
	require.NoError(t, err)
	envelope, err := plain.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, envelope.Knot)
	assert.NotContains(t, envelope.Variables, "name")

	_, err = OpenPersistence(ctx, config.StoreConfig{Driver: config.DriverMemory, EncryptionKey: "short"})
	assert.Error(t, err)
}
