package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "arbor:snapshot:"

// lockTTL bounds how long a crashed writer can block a key.
const lockTTL = 5 * time.Second

// Store implements ports.SnapshotStore on Redis.
// Snapshots are stored as GeoJSON strings; a sorted set indexes the keys by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	locker ports.DistributedLocker
}

var _ ports.SnapshotStore = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithLocker serializes writes to a key across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Store) {
		s.locker = locker
	}
}

// New connects to addr and returns a store.
func New(addr string, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

// NewFromClient returns a store using an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(key string) string { return s.prefix + key }

func (s *Store) index() string { return s.prefix + "index" }

func (s *Store) lock(ctx context.Context, key string) (ports.UnlockFunc, error) {
	if s.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	return s.locker.Lock(ctx, s.key(key), lockTTL)
}

// Save persists the collection and refreshes its expiry.
func (s *Store) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	raw, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock(ctx)

	score := math.Inf(1)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).UnixMilli())
	}
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(key), raw, s.ttl)
		pipe.ZAdd(ctx, s.index(), backend.Z{Score: score, Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}

// Load retrieves the snapshot.
func (s *Store) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", key, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return fc, nil
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, key string) error {
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock(ctx)

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(key))
		pipe.ZRem(ctx, s.index(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}

// List returns the stored keys. Expired entries are pruned from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.index(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune snapshot index: %w", err)
	}
	keys, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return keys, nil
}
