package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/paulmach/orb/geojson"
)

// Store implements ports.SnapshotStore in memory.
// Snapshots are kept encoded so that callers never share feature maps with the store.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists the collection in memory.
func (s *Store) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	raw, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return nil
}

// Load retrieves a decoded copy of the snapshot.
func (s *Store) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return geojson.UnmarshalFeatureCollection(raw)
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns stored keys in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
