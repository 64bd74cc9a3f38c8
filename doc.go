/*
Package arbor binds a declarative tree of map components to the object graph of a
graphics engine and keeps both sides in sync.

# Concept

Every component (map, layer, source, feature, geometry, style, interaction, overlay) is
a node running an asynchronous create, mount, unmount and destroy state machine. A node
creates its engine object once the capabilities it needs are exposed by an ancestor,
mounts it into the nearest container (the map's layers, a source's features...) and
pushes declarative property changes to it. Changes made on the engine side flow back as
"update:<prop>" messages.

# Key Features

  - Lifecycle: per-node state machine with debounced remount, recreate and refresh.
  - Property sync: debounced, equality guarded and loop free.
  - Identity: engine objects shared between nodes through a registry key.
  - Projections: coordinates are exchanged in the data projection and stored in the
    view projection.
  - Trees: built with pkg/dsl, parsed from YAML or JSON, or loaded from a directory.
  - Persistence: feature snapshots in memory, files or Redis, optionally masked and
    encrypted, serialized per key.
  - Observability: slog logging, Prometheus metrics, an HTTP introspection API and an
    MCP server.

# Usage

	app, err := arbor.New()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	defer app.Close(ctx)

	b := dsl.New()
	b.Map("map").Layer("roads").Source("roads-source").Prop("features", featureCollection)
	roots, err := app.Mount(ctx, b.Build()...)

Nodes can also be built one by one:

	m := app.NewMap()
	layer := app.NewLayer(m.Node, lifecycle.WithID("roads"))
	source := app.NewSource(layer.Node, lifecycle.WithID("roads-source"))
	_ = source.SetProps(ctx, map[string]any{"features": featureCollection})

	for _, n := range []*lifecycle.Node{m.Node, layer.Node, source.Node} {
		if err := n.Start(ctx); err != nil {
			log.Fatal(err)
		}
	}
*/
package arbor
