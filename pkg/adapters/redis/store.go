// Package redis keeps playthrough states and session locks in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/maruel/natural"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "inkwell:"

// noExpiry scores index entries of sessions saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// Hash fields of a stored session. Only fieldState is read back; knot and status
// let operators inspect sessions with redis-cli.
const (
	fieldState   = "state"
	fieldKnot    = "knot"
	fieldStatus  = "status"
	fieldUpdated = "updated_at"
)

// Store implements ports.StateStore using Redis.
// Each session is a hash under <prefix>state:<id>; the ZSET <prefix>sessions indexes
// them by expiry time for listing.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires sessions that were not saved for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the prefix of every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a new Redis store connected to a redis:// URL.
func New(url string, opts ...Option) (*Store, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, for instance to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Key returns the hash key of a session.
func (s *Store) Key(sessionID string) string {
	return s.prefix + "state:" + sessionID
}

// IndexKey returns the key of the session index.
func (s *Store) IndexKey() string {
	return s.prefix + "sessions"
}

// Save writes the state and refreshes the session expiry in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	data, err := state.Encode()
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	now := time.Now()
	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(now.Add(s.ttl).Unix())
	}

	key := s.Key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldState, data,
		fieldKnot, domain.VisitKey(state.Knot, state.Stitch),
		fieldStatus, string(state.Status),
		fieldUpdated, now.UTC().Format(time.RFC3339),
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	} else {
		pipe.Persist(ctx, key)
	}
	pipe.ZAdd(ctx, s.IndexKey(), backend.Z{Score: score, Member: sessionID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	val, err := s.client.HGet(ctx, s.Key(sessionID), fieldState).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return domain.DecodeState(val)
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.Key(sessionID))
	pipe.ZRem(ctx, s.IndexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live sessions in natural order, pruning expired entries from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := time.Now().Unix()
	err := s.client.ZRemRangeByScore(ctx, s.IndexKey(), "-inf", fmt.Sprintf("(%d", now+1)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.IndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Sort(natural.StringSlice(sessions))
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
