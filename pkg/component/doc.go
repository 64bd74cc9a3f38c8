/*
Package component provides the concrete node kinds of a map tree: Map, Layer,
Source, Feature, Geometry, Style, Interaction and Overlay.

Each kind embeds a *lifecycle.Node and plugs into its lifecycle: it builds its engine
object through an Env, declares its reactive properties on the node bridge,
publishes capabilities to its descendants and mounts itself into the nearest
ancestor exposing the matching container.

	env := &component.Env{Engine: memory.NewEngine()}
	m := component.NewMap(env)
	layer := component.NewLayer(env, lifecycle.WithParent(m.Node), lifecycle.WithID("roads"))
	_ = m.Start(ctx)
	_ = layer.Start(ctx)
*/
package component
