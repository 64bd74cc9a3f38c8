package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/validator"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/config"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/format"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/aretw0/arbor/pkg/snapshot"
	"github.com/paulmach/orb/geojson"
)

// App is the high-level entry point of the library. It owns the services shared by
// every node of its trees: the identity registry, the process-wide event bus, the
// lifecycle hooks and the snapshot store.
type App struct {
	cfg      config.Config
	env      *component.Env
	registry *registry.Registry
	bus      *rx.Bus
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	metrics  *observability.Metrics
	store    ports.SnapshotStore
	locker   ports.DistributedLocker
	snaps    *snapshot.Manager

	mu      sync.RWMutex
	nodes   []*lifecycle.Node
	sources []*component.Source
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithConfig replaces the default settings.
func WithConfig(cfg config.Config) Option {
	return func(a *App) { a.cfg = cfg }
}

// WithEngine sets the graphics engine factory. The default is the in-memory engine.
func WithEngine(engine ports.Factory) Option {
	return func(a *App) {
		if a.env == nil {
			a.env = &component.Env{}
		}
		a.env.Engine = engine
	}
}

// WithObjectFactory overrides engine object creation for one node kind.
func WithObjectFactory(kind string, factory component.ObjectFactory) Option {
	return func(a *App) {
		if a.env == nil {
			a.env = &component.Env{}
		}
		if a.env.Objects == nil {
			a.env.Objects = make(map[string]component.ObjectFactory)
		}
		a.env.Objects[kind] = factory
	}
}

// WithLifecycleHooks registers observability hooks, run after the built-in ones.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) { a.hooks = hooks }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetrics records lifecycle metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithStore sets the snapshot store used by SaveSource and RestoreSource.
func WithStore(store ports.SnapshotStore) Option {
	return func(a *App) { a.store = store }
}

// WithLocker serializes snapshot writes across processes sharing the store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *App) { a.locker = locker }
}

// WithRegistry shares an identity registry between applications.
func WithRegistry(r *registry.Registry) Option {
	return func(a *App) { a.registry = r }
}

// New creates an application.
func New(opts ...Option) (*App, error) {
	a := &App{cfg: config.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	if a.env == nil {
		a.env = &component.Env{}
	}
	if a.env.Engine == nil {
		a.env.Engine = memory.NewEngine()
	}
	a.env.Precision = a.cfg.Precision
	a.env.GeoJSON = append(a.env.GeoJSON, format.WithCircleSides(a.cfg.CircleSides))

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.registry == nil {
		a.registry = registry.NewRegistry()
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	snapOpts := []snapshot.Option{snapshot.WithLogger(a.logger)}
	if a.locker != nil {
		snapOpts = append(snapOpts, snapshot.WithLocker(a.locker))
	}
	a.snaps = snapshot.NewManager(a.store, snapOpts...)
	if a.metrics == nil {
		a.metrics = observability.NewMetrics("arbor")
	}
	a.bus = rx.NewBus()
	a.hooks = domain.ChainHooks(a.metrics.Hooks(), observability.LogHooks(a.logger), a.hooks)
	return a, nil
}

// Config returns the settings in use.
func (a *App) Config() config.Config { return a.cfg }

// Env returns the engine environment handed to components.
func (a *App) Env() *component.Env { return a.env }

// Registry returns the identity registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// Bus returns the process-wide bus carrying the lifecycle events of every node.
func (a *App) Bus() *rx.Bus { return a.bus }

// Metrics returns the lifecycle metrics.
func (a *App) Metrics() *observability.Metrics { return a.metrics }

// Store returns the snapshot store.
func (a *App) Store() ports.SnapshotStore { return a.store }

// Snapshots returns the manager serializing snapshot access.
func (a *App) Snapshots() *snapshot.Manager { return a.snaps }

// nodeOptions places a node under parent with the application services. Caller
// options come last and win.
func (a *App) nodeOptions(parent *lifecycle.Node, opts []lifecycle.Option) []lifecycle.Option {
	base := []lifecycle.Option{
		lifecycle.WithRegistry(a.registry),
		lifecycle.WithBus(a.bus),
		lifecycle.WithLifecycleHooks(a.hooks),
		lifecycle.WithLogger(a.logger),
		lifecycle.WithFrame(a.cfg.Frame),
		lifecycle.WithWaitTimeout(a.cfg.WaitTimeout),
	}
	if parent != nil {
		base = append(base, lifecycle.WithParent(parent))
	}
	return append(base, opts...)
}

func (a *App) track(n *lifecycle.Node) {
	a.mu.Lock()
	a.nodes = append(a.nodes, n)
	a.mu.Unlock()
}

// NewMap creates a root map node using the configured projections.
func (a *App) NewMap(opts ...lifecycle.Option) *component.Map {
	m := component.NewMap(a.env, a.nodeOptions(nil, opts)...)
	// structural inputs of an unstarted node cannot fail to decode
	_ = m.SetProps(context.Background(), map[string]any{
		"projection":     a.cfg.ViewProjection,
		"dataProjection": a.cfg.DataProjection,
	})
	a.track(m.Node)
	return m
}

// NewLayer creates a layer under parent.
func (a *App) NewLayer(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Layer {
	l := component.NewLayer(a.env, a.nodeOptions(parent, opts)...)
	a.track(l.Node)
	return l
}

// NewSource creates a vector source under parent.
func (a *App) NewSource(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Source {
	s := component.NewSource(a.env, a.nodeOptions(parent, opts)...)
	a.track(s.Node)
	a.mu.Lock()
	a.sources = append(a.sources, s)
	a.mu.Unlock()
	return s
}

// NewFeature creates a feature under parent.
func (a *App) NewFeature(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Feature {
	f := component.NewFeature(a.env, a.nodeOptions(parent, opts)...)
	a.track(f.Node)
	return f
}

// NewGeometry creates a geometry under parent.
func (a *App) NewGeometry(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Geometry {
	g := component.NewGeometry(a.env, a.nodeOptions(parent, opts)...)
	a.track(g.Node)
	return g
}

// NewStyle creates a style under parent.
func (a *App) NewStyle(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Style {
	s := component.NewStyle(a.env, a.nodeOptions(parent, opts)...)
	a.track(s.Node)
	return s
}

// NewInteraction creates an interaction under parent.
func (a *App) NewInteraction(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Interaction {
	i := component.NewInteraction(a.env, a.nodeOptions(parent, opts)...)
	a.track(i.Node)
	return i
}

// NewOverlay creates an overlay under parent.
func (a *App) NewOverlay(parent *lifecycle.Node, opts ...lifecycle.Option) *component.Overlay {
	o := component.NewOverlay(a.env, a.nodeOptions(parent, opts)...)
	a.track(o.Node)
	return o
}

// declarative is the part of a component Mount drives.
type declarative interface {
	SetProps(ctx context.Context, props map[string]any) error
	Start(ctx context.Context) error
}

// Mount validates the described trees, creates their nodes and starts them,
// parents before children. It returns the root nodes. On error the nodes created
// so far stay tracked and are released by Close.
func (a *App) Mount(ctx context.Context, roots ...dsl.Node) ([]*lifecycle.Node, error) {
	if err := validator.ValidateTree(roots...); err != nil {
		return nil, err
	}
	out := make([]*lifecycle.Node, 0, len(roots))
	for _, root := range roots {
		n, err := a.mount(ctx, root, nil)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (a *App) mount(ctx context.Context, d dsl.Node, parent *lifecycle.Node) (*lifecycle.Node, error) {
	var opts []lifecycle.Option
	if d.ID != "" {
		opts = append(opts, lifecycle.WithID(d.ID))
	}
	if d.Ident != "" {
		opts = append(opts, lifecycle.WithIdent(d.Ident))
	}

	var (
		node *lifecycle.Node
		comp declarative
	)
	switch d.Kind {
	case component.KindMap:
		c := a.NewMap(opts...)
		node, comp = c.Node, c
	case component.KindLayer:
		c := a.NewLayer(parent, opts...)
		node, comp = c.Node, c
	case component.KindSource:
		c := a.NewSource(parent, opts...)
		node, comp = c.Node, c
	case component.KindFeature:
		c := a.NewFeature(parent, opts...)
		node, comp = c.Node, c
	case component.KindGeometry:
		c := a.NewGeometry(parent, opts...)
		node, comp = c.Node, c
	case component.KindStyle:
		c := a.NewStyle(parent, opts...)
		node, comp = c.Node, c
	case component.KindInteraction:
		c := a.NewInteraction(parent, opts...)
		node, comp = c.Node, c
	case component.KindOverlay:
		c := a.NewOverlay(parent, opts...)
		node, comp = c.Node, c
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTree, d.Kind)
	}

	if len(d.Props) > 0 {
		if err := comp.SetProps(ctx, d.Props); err != nil {
			return nil, fmt.Errorf("%s props: %w", d.Kind, err)
		}
	}
	if err := comp.Start(ctx); err != nil {
		return nil, err
	}
	for _, child := range d.Children {
		if _, err := a.mount(ctx, child, node); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Nodes describes every node created through the application, in creation order.
func (a *App) Nodes() []httpAdapter.NodeStatus {
	a.mu.RLock()
	nodes := slices.Clone(a.nodes)
	a.mu.RUnlock()

	out := make([]httpAdapter.NodeStatus, 0, len(nodes))
	for _, n := range nodes {
		st := httpAdapter.NodeStatus{
			NodeInfo: n.Info(),
			State:    n.State().String(),
			Revision: n.Revision().Value(),
		}
		if p := n.Parent(); p != nil {
			st.Parent = p.ID()
		}
		out = append(out, st)
	}
	return out
}

// Source returns the source node with the given id.
func (a *App) Source(id string) (*component.Source, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, s := range a.sources {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("source %q: %w", id, domain.ErrObjectUndefined)
}

func (a *App) features(id string) (*component.Source, error) {
	s, err := a.Source(id)
	if err != nil {
		return nil, err
	}
	if s.Features() == nil {
		return nil, fmt.Errorf("source %q features: %w", id, domain.ErrObjectUndefined)
	}
	return s, nil
}

// SourceFeatures returns the features of a source in its data projection.
func (a *App) SourceFeatures(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	s, err := a.features(id)
	if err != nil {
		return nil, err
	}
	return s.Features().FeatureCollection(), nil
}

// AddSourceFeatures adds the features of fc to a source, patching members that
// share an id.
func (a *App) AddSourceFeatures(ctx context.Context, id string, fc *geojson.FeatureCollection) error {
	s, err := a.features(id)
	if err != nil {
		return err
	}
	for _, f := range fc.Features {
		if err := s.Features().AddFeature(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// SaveSource stores the features of a source under key.
func (a *App) SaveSource(ctx context.Context, id, key string) error {
	s, err := a.Source(id)
	if err != nil {
		return err
	}
	return a.snaps.WithLock(ctx, key, func(ctx context.Context) error {
		return s.Save(ctx, a.snaps.Store(), key)
	})
}

// RestoreSource replaces the features of a source with the snapshot under key.
func (a *App) RestoreSource(ctx context.Context, id, key string) error {
	s, err := a.Source(id)
	if err != nil {
		return err
	}
	return a.snaps.WithLock(ctx, key, func(ctx context.Context) error {
		return s.Restore(ctx, a.snaps.Store(), key)
	})
}

// Handler returns the introspection API of the application.
func (a *App) Handler() http.Handler {
	return httpAdapter.NewHandler(a,
		httpAdapter.WithMetrics(a.metrics.Handler()),
		httpAdapter.WithEvents(a.bus),
		httpAdapter.WithLogger(a.logger),
		httpAdapter.WithVersion(Version),
	)
}

// Unmount destroys the given roots with their descendants, children before
// parents, and forgets them.
func (a *App) Unmount(ctx context.Context, roots ...*lifecycle.Node) error {
	within := func(n *lifecycle.Node) bool {
		for _, r := range roots {
			if n == r || n.IsDescendantOf(r) {
				return true
			}
		}
		return false
	}

	a.mu.Lock()
	var doomed []*lifecycle.Node
	kept := a.nodes[:0:0]
	for _, n := range a.nodes {
		if within(n) {
			doomed = append(doomed, n)
		} else {
			kept = append(kept, n)
		}
	}
	a.nodes = kept
	a.sources = slices.DeleteFunc(a.sources, func(s *component.Source) bool { return within(s.Node) })
	a.mu.Unlock()

	var errs []error
	for _, n := range slices.Backward(doomed) {
		errs = append(errs, n.Destroy(ctx))
	}
	return errors.Join(errs...)
}

// Close destroys every node, children before parents.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	nodes := a.nodes
	a.nodes, a.sources = nil, nil
	a.mu.Unlock()

	var errs []error
	for _, n := range slices.Backward(nodes) {
		errs = append(errs, n.Destroy(ctx))
	}
	return errors.Join(errs...)
}
