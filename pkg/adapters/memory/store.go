// Package memory keeps playthrough states in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/maruel/natural"
)

type entry struct {
	data    []byte
	expires time.Time // zero means never
}

// Store implements ports.StateStore in memory. States are kept encoded, so a
// loaded state never aliases the saved one and goes through the same checks as
// states read from disk or Redis.
// Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	data map[string]entry
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL forgets sessions that were not saved for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save encodes the state and keeps it under sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, err := state.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	e := entry{data: data}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = e
	return nil
}

// Load decodes the state kept under sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[sessionID]
	if !ok || s.expired(e) {
		delete(s.data, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return domain.DecodeState(e.data)
}

func (s *Store) expired(e entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

// Delete removes the state.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns live sessions in natural order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]string, 0, len(s.data))
	for id, e := range s.data {
		if s.expired(e) {
			delete(s.data, id)
			continue
		}
		sessions = append(sessions, id)
	}
	sort.Sort(natural.StringSlice(sessions))
	return sessions, nil
}
