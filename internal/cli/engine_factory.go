package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/inkwell"
	"github.com/aretw0/inkwell/internal/config"
	"github.com/aretw0/inkwell/pkg/adapters/file"
	"github.com/aretw0/inkwell/pkg/adapters/memory"
	"github.com/aretw0/inkwell/pkg/adapters/redis"
	"github.com/aretw0/inkwell/pkg/adapters/sqlite"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/observability"
	"github.com/aretw0/inkwell/pkg/persistence/middleware"
	"github.com/aretw0/inkwell/pkg/ports"
)

// createEngine loads a story file with standard CLI conventions.
// Debug logging of every lifecycle event is added in front of the given hooks.
func createEngine(path string, cfg config.Config, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*inkwell.Engine, error) {
	all := append([]domain.LifecycleHooks{observability.LogHooks(logger)}, hooks...)
	engine, err := inkwell.Load(path,
		inkwell.WithLogger(logger),
		inkwell.WithMaxSteps(cfg.MaxSteps),
		inkwell.WithLifecycleHooks(observability.Combine(all...)),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading story: %w", err)
	}
	return engine, nil
}

// Persistence bundles the store selected by the configuration with the resources behind it.
type Persistence struct {
	Store  ports.StateStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases connections held by the store.
func (p *Persistence) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// OpenPersistence builds the state store for the configured driver. Redis also provides
// the distributed locker used by the session manager. Masking and encryption are
// layered on top when configured.
func OpenPersistence(ctx context.Context, cfg config.StoreConfig) (*Persistence, error) {
	p, err := openDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mws, err := storeMiddlewares(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Store = middleware.Chain(p.Store, mws...)
	return p, nil
}

func storeMiddlewares(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Mask)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		keys := append([]string{cfg.EncryptionKey}, cfg.FallbackKeys...)
		for i, k := range keys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				enc.ActiveKey = key
			} else {
				enc.FallbackKeys = append(enc.FallbackKeys, key)
			}
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func openDriver(ctx context.Context, cfg config.StoreConfig) (*Persistence, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return &Persistence{Store: memory.NewStore(memory.WithTTL(cfg.TTL))}, nil

	case config.DriverFile:
		return &Persistence{Store: file.New(cfg.Path)}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &Persistence{Store: store, close: store.Close}, nil

	case config.DriverRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Prefix)}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store, err := redis.New(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		if err := store.Client().Ping(ctx).Err(); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return &Persistence{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), cfg.Prefix),
			close:  store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
