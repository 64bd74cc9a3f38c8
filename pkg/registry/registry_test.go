package registry_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct{ name string }

func TestMakeIdent(t *testing.T) {
	assert.Equal(t, "map.layers_collection", registry.MakeIdent("map", "", "layers_collection"))
	assert.Equal(t, "", registry.MakeIdent("", ""))
	assert.Equal(t, "a", registry.MakeIdent("a"))
}

func TestSetInstance_Holders(t *testing.T) {
	r := registry.NewRegistry()
	obj := &object{"a"}

	require.NoError(t, r.SetInstance("k", obj))
	require.NoError(t, r.SetInstance("k", obj))
	assert.Equal(t, 2, r.Holders("k"))

	err := r.SetInstance("k", &object{"b"})
	assert.ErrorIs(t, err, domain.ErrInstanceConflict)

	r.UnsetInstance("k")
	assert.True(t, r.HasInstance("k"))
	r.UnsetInstance("k")
	assert.False(t, r.HasInstance("k"))

	// unknown keys are a no-op
	r.UnsetInstance("k")
	r.UnsetInstance("missing")
}

func TestMoveInstance_PreservesIdentity(t *testing.T) {
	r := registry.NewRegistry()
	obj := &object{"a"}
	require.NoError(t, r.SetInstance("old", obj))

	require.NoError(t, r.MoveInstance("new", "old"))

	assert.False(t, r.HasInstance("old"))
	got, ok := r.Instance("new")
	require.True(t, ok)
	assert.Same(t, obj, got)

	assert.ErrorIs(t, r.MoveInstance("x", "missing"), domain.ErrObjectUndefined)
	assert.NoError(t, r.MoveInstance("new", "new"))
}

func TestMoveInstance_SharedKeepsOtherHolder(t *testing.T) {
	r := registry.NewRegistry()
	obj := &object{"a"}
	require.NoError(t, r.SetInstance("old", obj))
	require.NoError(t, r.SetInstance("old", obj))

	require.NoError(t, r.MoveInstance("new", "old"))

	assert.Equal(t, 1, r.Holders("old"))
	assert.Equal(t, 1, r.Holders("new"))
}

func TestInstanceFactoryCall_SharesInstance(t *testing.T) {
	r := registry.NewRegistry()
	var calls atomic.Int32
	factory := func() (any, error) {
		calls.Add(1)
		return &object{"shared"}, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := r.InstanceFactoryCall("map.layer", factory)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
	assert.Equal(t, len(results), r.Holders("map.layer"))
}

func TestInstanceFactoryCall_EmptyKey(t *testing.T) {
	r := registry.NewRegistry()
	var calls int
	factory := func() (any, error) {
		calls++
		return &object{}, nil
	}

	a, err := r.InstanceFactoryCall("", factory)
	require.NoError(t, err)
	b, err := r.InstanceFactoryCall("", factory)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.NotSame(t, a, b)
	assert.Empty(t, r.Keys())
}

func TestInstanceFactoryCall_Error(t *testing.T) {
	r := registry.NewRegistry()
	boom := errors.New("boom")

	_, err := r.InstanceFactoryCall("k", func() (any, error) { return nil, boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, r.HasInstance("k"))
}
