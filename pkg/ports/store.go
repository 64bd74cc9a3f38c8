package ports

import (
	"context"

	"github.com/paulmach/orb/geojson"
)

// SnapshotStore persists feature collections in the data projection.
// This allows a features container to be restored after the node tree is rebuilt.
type SnapshotStore interface {
	// Save persists the collection under key, replacing any previous snapshot.
	Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error

	// Load retrieves the snapshot stored under key.
	// Returns domain.ErrSnapshotNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*geojson.FeatureCollection, error)

	// Delete removes the snapshot stored under key.
	Delete(ctx context.Context, key string) error

	// List returns all stored keys.
	List(ctx context.Context) ([]string, error)
}
