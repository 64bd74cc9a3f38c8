package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/aretw0/arbor/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStub struct{ name string }

func TestCompose_NearestAncestorWins(t *testing.T) {
	root := services.Compose(nil, services.Descriptors{
		services.Map:             services.Value(&mapStub{"root"}),
		services.LayersContainer: services.Value("root-layers"),
	})
	group := services.Compose(root, services.Descriptors{
		services.LayersContainer: services.Value("group-layers"),
	})

	v, ok := services.Lookup[string](group, services.LayersContainer)
	require.True(t, ok)
	assert.Equal(t, "group-layers", v)

	m, ok := services.Lookup[*mapStub](group, services.Map)
	require.True(t, ok)
	assert.Equal(t, "root", m.name)

	_, ok = services.Lookup[int](group, services.Map)
	assert.False(t, ok, "wrong type")
	_, ok = services.Lookup[string](nil, services.Map)
	assert.False(t, ok)
}

func TestCompose_NilGetterFallsThrough(t *testing.T) {
	var m *mapStub
	root := services.Compose(nil, services.Descriptors{services.Map: services.Value(&mapStub{"root"})})
	child := services.Compose(root, services.Descriptors{services.Map: func() any { return m }})

	got, ok := services.Lookup[*mapStub](child, services.Map)
	require.True(t, ok)
	assert.Equal(t, "root", got.name)
}

func TestWaitFor_BecomesAvailable(t *testing.T) {
	var ready atomic.Pointer[mapStub]
	p := services.Compose(nil, services.Descriptors{
		services.Map: func() any { return ready.Load() },
	})

	go func() {
		time.Sleep(30 * time.Millisecond)
		ready.Store(&mapStub{"late"})
	}()

	v, err := services.WaitFor(context.Background(), p, services.Map)
	require.NoError(t, err)
	assert.Equal(t, "late", v.(*mapStub).name)
}

func TestWaitFor_Timeout(t *testing.T) {
	p := services.Compose(nil)

	_, err := services.WaitFor(context.Background(), p, services.Map, services.WithTimeout(20*time.Millisecond))

	var werr *domain.WaitError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, services.Map, werr.Capability)
	assert.ErrorIs(t, err, domain.ErrWaitTimeout)
	assert.Contains(t, err.Error(), "wait for map injection")
}

func TestWaitFor_Abort(t *testing.T) {
	bus := rx.NewBus()
	boom := errors.New("map failed")
	abort := rx.Map(bus.Observe(string(domain.EventCreateError)), func(m rx.Message) error { return m.Err })

	go func() {
		time.Sleep(20 * time.Millisecond)
		bus.Emit(rx.Message{Name: string(domain.EventCreateError), Err: boom})
	}()

	_, err := services.WaitFor(context.Background(), services.Compose(nil), services.Map,
		services.WithAbort(abort), services.WithTimeout(time.Second))

	assert.ErrorIs(t, err, boom)
}
