package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/inkwell/internal/logging"
	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/aretw0/inkwell/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock is held if its owner dies.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Every playback call loads the state, applies the engine and saves the result while
// holding the session lock, so concurrent requests on one session never interleave.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	engine ports.StatelessEngine
	store  ports.StateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager playing engine's story over store.
func NewManager(engine ports.StatelessEngine, store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Create starts a playthrough under a fresh random session ID.
func (m *Manager) Create(ctx context.Context, knot string, vars map[string]domain.Value) (string, *domain.State, error) {
	id := uuid.NewString()
	state, err := m.Start(ctx, id, knot, vars)
	return id, state, err
}

// Start begins a playthrough under sessionID, replacing any previous one.
func (m *Manager) Start(ctx context.Context, sessionID, knot string, vars map[string]domain.Value) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		if state, err = m.engine.NewState(ctx, knot, vars); err != nil {
			return err
		}
		return m.store.Save(ctx, sessionID, state)
	})
	return state, err
}

// Load retrieves an existing session from the store and checks it against the story.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.load(ctx, sessionID)
		return err
	})
	return state, err
}

func (m *Manager) load(ctx context.Context, sessionID string) (*domain.State, error) {
	state, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Check(state); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return state, nil
}

// LoadOrStart tries to load a session. If not found, it starts a new playthrough at knot.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID, knot string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.load(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		if state, err = m.engine.NewState(ctx, knot, nil); err != nil {
			return err
		}
		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	return state, err
}

// Advance moves a stored playthrough one step forward and saves it.
func (m *Manager) Advance(ctx context.Context, sessionID string) (domain.Step, *domain.State, error) {
	var step domain.Step
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if step, state, err = m.engine.Advance(ctx, current); err != nil {
			return err
		}
		return m.store.Save(ctx, sessionID, state)
	})
	return step, state, err
}

// Continue advances a stored playthrough until it stops producing lines and saves it once.
// It returns the lines read and the step that stopped it: a choice set or the end.
func (m *Manager) Continue(ctx context.Context, sessionID string) ([]domain.Line, domain.Step, *domain.State, error) {
	var (
		lines []domain.Line
		step  domain.Step
		state *domain.State
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		for {
			next, advanced, err := m.engine.Advance(ctx, current)
			if err != nil {
				return err
			}
			current = advanced
			if next.Kind != domain.StepLine {
				step, state = next, current
				break
			}
			lines = append(lines, *next.Line)
		}
		return m.store.Save(ctx, sessionID, state)
	})
	if err != nil {
		return nil, domain.Step{}, nil, err
	}
	return lines, step, state, nil
}

// Select takes a presented choice of a stored playthrough and saves it.
func (m *Manager) Select(ctx context.Context, sessionID string, index int) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		current, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if state, err = m.engine.Select(ctx, current, index); err != nil {
			return err
		}
		return m.store.Save(ctx, sessionID, state)
	})
	return state, err
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.State) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
