package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
)

// DefaultLockTTL bounds how long a distributed lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes snapshot operations per key.
// It uses reference counting to drop unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
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

// NewManager creates a Manager over store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
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
// The caller locks entry.mu, then calls release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Locks returns the number of keys currently locked or waited on.
func (m *Manager) Locks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// Load retrieves a snapshot.
func (m *Manager) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	var fc *geojson.FeatureCollection
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		fc, err = m.store.Load(ctx, key)
		return err
	})
	return fc, err
}

// LoadOrCreate loads a snapshot, storing an empty collection first when the key is
// unknown.
func (m *Manager) LoadOrCreate(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	var fc *geojson.FeatureCollection
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		fc, err = m.store.Load(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("failed to check snapshot existence: %w", err)
		}

		fc = geojson.NewFeatureCollection()
		if err := m.store.Save(ctx, key, fc); err != nil {
			return fmt.Errorf("failed to initialize snapshot: %w", err)
		}
		return nil
	})
	return fc, err
}

// Update runs a read-modify-write cycle on a snapshot. fn receives an empty
// collection when the key is unknown.
func (m *Manager) Update(ctx context.Context, key string, fn func(*geojson.FeatureCollection) error) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		fc, err := m.store.Load(ctx, key)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			fc, err = geojson.NewFeatureCollection(), nil
		}
		if err != nil {
			return err
		}
		if err := fn(fc); err != nil {
			return err
		}
		return m.store.Save(ctx, key, fc)
	})
}

// Save persists a snapshot.
func (m *Manager) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Save(ctx, key, fc)
	})
}

// Delete removes a snapshot.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes fn while holding the lock of key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
