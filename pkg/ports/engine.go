package ports

import (
	"github.com/aretw0/arbor/pkg/geom"
	"github.com/paulmach/orb"
)

// Native event names emitted by engine objects and collections.
const (
	EventChange         = "change"
	EventPropertyChange = "propertychange"
	EventAdd            = "add"
	EventRemove         = "remove"
)

// PropID is the property key under which objects expose their identifier.
const PropID = "id"

// ChangeEvent returns the per-property change event name ("change:visible").
func ChangeEvent(key string) string {
	return EventChange + ":" + key
}

// Event is a native engine notification.
type Event struct {
	Type string
	// Key and Value describe a property change (change:<key>, propertychange).
	Key      string
	Value    any
	OldValue any
	// Element is the member added to or removed from a Collection.
	Element Object
	// Tx groups events fired by one engine transaction. Listeners may use it to
	// coalesce several property changes into a single reaction.
	Tx uint64
}

// Handler receives native engine events.
type Handler func(Event)

// Observable is a native event source.
type Observable interface {
	// On registers h for the event type and returns a function removing it.
	On(eventType string, h Handler) (off func())
}

// Object is an opaque engine object handle.
type Object interface {
	Observable

	ID() string
	SetID(id string)

	Get(key string) any
	Set(key string, value any)
	// SetProperties applies several properties inside one transaction.
	SetProperties(props map[string]any)
	Properties() map[string]any

	// Changed increments the object revision and fires EventChange.
	Changed()

	// Attach records a back-reference to a node using this object.
	// It returns false when the owner was already attached.
	Attach(owner any) bool
	Detach(owner any)
	Owners() []any
}

// Collection is an ordered list of engine objects.
type Collection interface {
	Observable

	Push(item Object) int
	Remove(item Object) bool
	Clear()
	Items() []Object
	Len() int
}

// Geometry is an engine geometry expressed in the view projection.
// A geometry holds either a standard shape or a circle.
type Geometry interface {
	Object

	// Type returns the GeoJSON type of the shape or geom.TypeCircle.
	Type() string
	// Shape returns the standard shape, nil for circles.
	Shape() orb.Geometry
	SetShape(shape orb.Geometry)
	// Circle returns the circle and true when the geometry is a circle.
	Circle() (geom.Circle, bool)
	SetCircle(c geom.Circle)
}

// Feature is an engine feature holding an optional geometry and style list.
type Feature interface {
	Object

	Geometry() Geometry
	SetGeometry(g Geometry)
	Style() []Object
	SetStyle(styles []Object)
}

// Factory constructs engine objects.
type Factory interface {
	NewObject() Object
	NewCollection() Collection
	NewFeature() Feature
	NewGeometry(shape orb.Geometry) Geometry
	NewCircle(c geom.Circle) Geometry
}
