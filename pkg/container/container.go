// Package container implements the ordered, id-unique collections held by map,
// source and group nodes: layers, features, overlays and interactions.
//
// A container wraps an engine collection. Every member gets its own change
// subscription bumping the owner's revision, and collection add/remove events are
// forwarded as add<kind>/remove<kind> messages.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/debounce"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// Resolver is implemented by nodes: adding a node adds its engine object.
type Resolver interface {
	Resolve(ctx context.Context) (ports.Object, error)
}

// Options shared by every container kind.
type config struct {
	frame  time.Duration
	rev    *binding.Revision
	emit   func(name string, value any)
	logger *slog.Logger
}

// Option configures a container.
type Option func(*config)

// WithRevision bumps rev on every membership or member change.
func WithRevision(rev *binding.Revision) Option {
	return func(c *config) { c.rev = rev }
}

// WithEmitter receives add<kind>/remove<kind> messages.
func WithEmitter(emit func(name string, value any)) Option {
	return func(c *config) { c.emit = emit }
}

// WithFrame sets the window used to coalesce outward update messages.
func WithFrame(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.frame = d
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Container is an ordered set of T keyed by id.
type Container[T ports.Object] struct {
	kind string
	coll ports.Collection
	cfg  config

	// initialize turns an Add argument into a member.
	initialize func(ctx context.Context, item any) (T, error)
	// onMember is called for every member change event after the revision bump.
	onMember func(member T, e ports.Event)
	// identify returns the member id addressed by a Remove argument.
	identify func(ctx context.Context, item any) (string, error)
	// onChange is called after every revision bump caused by the container.
	onChange func()

	addMu  *guard
	mu     sync.Mutex
	subs   map[ports.Object]func()
	off    []func()
	paused atomic.Bool
	closed bool
}

// New wraps coll. Members already in coll are subscribed without emitting.
func New[T ports.Object](kind string, coll ports.Collection, opts ...Option) *Container[T] {
	cfg := config{frame: debounce.Frame, rev: &binding.Revision{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	c := &Container[T]{
		kind: kind,
		coll: coll,
		cfg:  cfg,
		subs: make(map[ports.Object]func()),
	}
	c.addMu = acquireGuard(coll)
	c.initialize = c.resolve
	c.identify = c.idOf

	for _, item := range coll.Items() {
		if m, ok := item.(T); ok {
			c.watch(m)
		}
	}
	c.off = append(c.off,
		coll.On(ports.EventAdd, c.handleAdd),
		coll.On(ports.EventRemove, c.handleRemove),
	)
	return c
}

// Kind returns the member kind ("layer", "feature"...).
func (c *Container[T]) Kind() string { return c.kind }

// Revision returns the counter bumped by membership and member changes.
func (c *Container[T]) Revision() *binding.Revision { return c.cfg.rev }

// Collection returns the underlying engine collection.
func (c *Container[T]) Collection() ports.Collection { return c.coll }

func (c *Container[T]) resolve(ctx context.Context, item any) (T, error) {
	var zero T
	if r, ok := item.(Resolver); ok {
		obj, err := r.Resolve(ctx)
		if err != nil {
			return zero, err
		}
		item = obj
	}
	m, ok := item.(T)
	if !ok || any(m) == nil {
		return zero, fmt.Errorf("%s container: %T: %w", c.kind, item, domain.ErrWrongType)
	}
	return m, nil
}

func (c *Container[T]) idOf(ctx context.Context, item any) (string, error) {
	if id, ok := item.(string); ok {
		return id, nil
	}
	m, err := c.resolve(ctx, item)
	if err != nil {
		return "", err
	}
	return m.ID(), nil
}

// Add appends item unless a member with the same id exists. item may be a member,
// or a Resolver yielding one.
func (c *Container[T]) Add(ctx context.Context, item any) error {
	m, err := c.initialize(ctx, item)
	if err != nil {
		return err
	}
	id := m.ID()
	if id == "" {
		return fmt.Errorf("%s container: %w", c.kind, domain.ErrInvalidID)
	}

	c.addMu.Lock()
	defer c.addMu.Unlock()
	if _, ok := c.ByID(id); ok {
		return nil
	}
	c.coll.Push(m)
	return nil
}

// AddAll adds items concurrently and returns the first error.
func (c *Container[T]) AddAll(ctx context.Context, items ...any) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error { return c.Add(ctx, item) })
	}
	return g.Wait()
}

// Remove drops the member with the id of item. Unknown members are ignored.
func (c *Container[T]) Remove(ctx context.Context, item any) error {
	id, err := c.identify(ctx, item)
	if err != nil {
		return err
	}

	c.addMu.Lock()
	defer c.addMu.Unlock()
	if m, ok := c.ByID(id); ok {
		c.coll.Remove(m)
	}
	return nil
}

// RemoveAll removes items concurrently and returns the first error.
func (c *Container[T]) RemoveAll(ctx context.Context, items ...any) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		g.Go(func() error { return c.Remove(ctx, item) })
	}
	return g.Wait()
}

// Clear removes every member.
func (c *Container[T]) Clear() {
	c.addMu.Lock()
	defer c.addMu.Unlock()
	c.coll.Clear()
}

// ByID returns the member with the given id.
func (c *Container[T]) ByID(id string) (T, bool) {
	for _, item := range c.coll.Items() {
		if m, ok := item.(T); ok && m.ID() == id {
			return m, true
		}
	}
	var zero T
	return zero, false
}

// Items returns the members in order.
func (c *Container[T]) Items() []T {
	items := c.coll.Items()
	out := make([]T, 0, len(items))
	for _, item := range items {
		if m, ok := item.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

// IDs returns the member ids in order.
func (c *Container[T]) IDs() []string {
	items := c.Items()
	ids := make([]string, len(items))
	for i, m := range items {
		ids[i] = m.ID()
	}
	return ids
}

// Len returns the number of members.
func (c *Container[T]) Len() int { return c.coll.Len() }

// Close releases the collection and member subscriptions. The collection keeps its
// members.
func (c *Container[T]) Close() {
	c.mu.Lock()
	offs := c.off
	subs := c.subs
	closed := c.closed
	c.off = nil
	c.subs = make(map[ports.Object]func())
	c.closed = true
	c.mu.Unlock()

	if !closed {
		releaseGuard(c.coll)
	}

	for _, off := range offs {
		off()
	}
	for _, off := range subs {
		off()
	}
}

// reorder replaces the collection content with items without membership events.
func (c *Container[T]) reorder(items []T) {
	c.addMu.Lock()
	defer c.addMu.Unlock()

	c.paused.Store(true)
	defer c.paused.Store(false)
	c.coll.Clear()
	for _, m := range items {
		c.coll.Push(m)
	}
	c.cfg.rev.Bump()
	c.changed()
}

func (c *Container[T]) watch(m T) {
	handler := func(e ports.Event) {
		c.cfg.rev.Accept(e.Tx)
		if c.onMember != nil {
			c.onMember(m, e)
		}
		c.changed()
	}
	offChange := m.On(ports.EventChange, handler)
	offProp := m.On(ports.EventPropertyChange, handler)

	c.mu.Lock()
	if prev, ok := c.subs[m]; ok {
		prev()
	}
	c.subs[m] = func() {
		offChange()
		offProp()
	}
	c.mu.Unlock()
}

func (c *Container[T]) unwatch(obj ports.Object) {
	c.mu.Lock()
	off, ok := c.subs[obj]
	delete(c.subs, obj)
	c.mu.Unlock()
	if ok {
		off()
	}
}

func (c *Container[T]) handleAdd(e ports.Event) {
	if c.paused.Load() {
		return
	}
	m, ok := e.Element.(T)
	if !ok {
		c.cfg.logger.Warn("foreign object in container", "kind", c.kind, "type", fmt.Sprintf("%T", e.Element))
		return
	}
	c.watch(m)
	c.cfg.rev.Bump()
	if c.cfg.emit != nil {
		c.cfg.emit(ports.EventAdd+c.kind, m)
	}
	c.changed()
}

func (c *Container[T]) handleRemove(e ports.Event) {
	if c.paused.Load() {
		return
	}
	c.unwatch(e.Element)
	c.cfg.rev.Bump()
	if c.cfg.emit != nil {
		c.cfg.emit(ports.EventRemove+c.kind, e.Element)
	}
	c.changed()
}

func (c *Container[T]) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
