package memory_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_SetFiresChangeOnlyOnDifference(t *testing.T) {
	obj := memory.NewObject(map[string]any{"visible": true})

	var events []ports.Event
	off := obj.On(ports.ChangeEvent("visible"), func(e ports.Event) { events = append(events, e) })
	defer off()

	obj.Set("visible", true)
	assert.Empty(t, events)

	obj.Set("visible", false)
	require.Len(t, events, 1)
	assert.Equal(t, false, events[0].Value)
	assert.Equal(t, true, events[0].OldValue)
}

func TestObject_SetPropertiesSharesTx(t *testing.T) {
	obj := memory.NewObject(nil)

	var txs []uint64
	obj.On(ports.EventPropertyChange, func(e ports.Event) { txs = append(txs, e.Tx) })

	obj.SetProperties(map[string]any{"a": 1, "b": 2})

	require.Len(t, txs, 2)
	assert.Equal(t, txs[0], txs[1])
}

func TestObject_OffAndOwners(t *testing.T) {
	obj := memory.NewObject(nil)
	calls := 0
	off := obj.On(ports.EventChange, func(ports.Event) { calls++ })

	obj.Changed()
	off()
	off()
	obj.Changed()

	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(2), obj.Revision())
	assert.Zero(t, obj.Listeners())

	owner := "node-1"
	assert.True(t, obj.Attach(owner))
	assert.False(t, obj.Attach(owner))
	assert.Equal(t, []any{owner}, obj.Owners())
	obj.Detach(owner)
	assert.Empty(t, obj.Owners())
}

func TestObject_ID(t *testing.T) {
	obj := memory.NewObject(nil)
	var got string
	obj.On(ports.ChangeEvent(ports.PropID), func(e ports.Event) { got = e.Value.(string) })

	obj.SetID("abc")

	assert.Equal(t, "abc", obj.ID())
	assert.Equal(t, "abc", got)
}

func TestCollection_Events(t *testing.T) {
	c := memory.NewCollection()
	a, b := memory.NewObject(nil), memory.NewObject(nil)

	var added, removed []ports.Object
	c.On(ports.EventAdd, func(e ports.Event) { added = append(added, e.Element) })
	c.On(ports.EventRemove, func(e ports.Event) { removed = append(removed, e.Element) })

	c.Push(a)
	c.Push(b)
	assert.True(t, c.Remove(a))
	assert.False(t, c.Remove(a))
	c.Clear()

	assert.Equal(t, []ports.Object{a, b}, added)
	assert.Equal(t, []ports.Object{a, b}, removed)
	assert.Zero(t, c.Len())
}

func TestFeature_GeometryChangeBubbles(t *testing.T) {
	f := memory.NewFeature()
	g := memory.NewGeometry(orb.Point{1, 2})
	f.SetGeometry(g)

	changes := 0
	f.On(ports.EventChange, func(ports.Event) { changes++ })

	g.SetShape(orb.Point{3, 4})
	assert.Equal(t, 1, changes)

	f.SetGeometry(memory.NewCircle(geom.Circle{Center: orb.Point{0, 0}, Radius: 5}))
	g.SetShape(orb.Point{5, 6})
	assert.Equal(t, 2, changes, "detached geometry must not bubble")
	assert.Equal(t, geom.TypeCircle, f.Geometry().Type())
}
