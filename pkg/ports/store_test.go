package ports_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
)

// MockStore is an in-memory implementation of SnapshotStore for testing purposes.
type MockStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string][]byte),
	}
}

func (m *MockStore) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	// Serialize to simulate a real backend
	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *MockStore) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	m.mu.Lock()
	data, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return geojson.UnmarshalFeatureCollection(data)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, NewMockStore())
}

func TestChangeEvent(t *testing.T) {
	if got := ports.ChangeEvent("visible"); got != "change:visible" {
		t.Errorf("ChangeEvent() = %q, want %q", got, "change:visible")
	}
}
