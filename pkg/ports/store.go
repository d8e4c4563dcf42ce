package ports

import (
	"context"
	"time"

	"github.com/aretw0/inkwell/pkg/domain"
)

// StateStore keeps playthrough states by session ID so a story can be left and
// picked up again by another process.
type StateStore interface {
	// Save replaces whatever was stored under sessionID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load fails with domain.ErrSessionNotFound for unknown or expired sessions.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete is a no-op for unknown sessions.
	Delete(ctx context.Context, sessionID string) error

	// List returns the stored session IDs.
	List(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serialises work on one session across server replicas
// sharing a store.
type DistributedLocker interface {
	// Lock waits until key is free or ctx is done. The lock is dropped after
	// ttl if the holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
