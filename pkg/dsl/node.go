package dsl

// Node is the declarative description of one tree node.
type Node struct {
	Kind     string         `json:"kind" yaml:"kind" mapstructure:"kind"`
	ID       string         `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	Ident    string         `json:"ident,omitempty" yaml:"ident,omitempty" mapstructure:"ident"`
	Props    map[string]any `json:"props,omitempty" yaml:"props,omitempty" mapstructure:"props"`
	Children []Node         `json:"children,omitempty" yaml:"children,omitempty" mapstructure:"children"`
}

// Walk visits n and its descendants depth first, parents before children. The
// parent of a root is nil.
func Walk(n Node, fn func(n, parent *Node) error) error {
	return walk(&n, nil, fn)
}

func walk(n, parent *Node, fn func(n, parent *Node) error) error {
	if err := fn(n, parent); err != nil {
		return err
	}
	for i := range n.Children {
		if err := walk(&n.Children[i], n, fn); err != nil {
			return err
		}
	}
	return nil
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node     Node
	children []*NodeBuilder
}

// Prop sets one declarative property.
func (n *NodeBuilder) Prop(name string, value any) *NodeBuilder {
	if n.node.Props == nil {
		n.node.Props = make(map[string]any)
	}
	n.node.Props[name] = value
	return n
}

// Props sets several declarative properties.
func (n *NodeBuilder) Props(props map[string]any) *NodeBuilder {
	for k, v := range props {
		n.Prop(k, v)
	}
	return n
}

// Ident shares the engine object of the node under ident.
func (n *NodeBuilder) Ident(ident string) *NodeBuilder {
	n.node.Ident = ident
	return n
}

// Child appends a child of the given kind and returns its builder.
func (n *NodeBuilder) Child(kind, id string) *NodeBuilder {
	c := &NodeBuilder{node: Node{Kind: kind, ID: id}}
	n.children = append(n.children, c)
	return c
}

// Layer appends a vector layer.
func (n *NodeBuilder) Layer(id string) *NodeBuilder { return n.Child("layer", id) }

// Source appends a vector source.
func (n *NodeBuilder) Source(id string) *NodeBuilder { return n.Child("source", id) }

// Feature appends a feature.
func (n *NodeBuilder) Feature(id string) *NodeBuilder { return n.Child("feature", id) }

// Interaction appends an interaction.
func (n *NodeBuilder) Interaction(id string) *NodeBuilder { return n.Child("interaction", id) }

// Overlay appends an overlay positioned at position, in the data projection.
func (n *NodeBuilder) Overlay(id string, position []float64) *NodeBuilder {
	return n.Child("overlay", id).Prop("position", position)
}

// Geometry appends a geometry of GeoJSON type typ and returns the receiver, since
// geometries have no children.
func (n *NodeBuilder) Geometry(typ string, coordinates any) *NodeBuilder {
	n.Child("geometry", "").Prop("type", typ).Prop("coordinates", coordinates)
	return n
}

// Circle appends a circle geometry with a radius in view units.
func (n *NodeBuilder) Circle(center []float64, radius float64) *NodeBuilder {
	n.Child("geometry", "").
		Prop("type", "Circle").
		Prop("coordinates", center).
		Prop("radius", radius)
	return n
}

// Style appends a style and returns the receiver.
func (n *NodeBuilder) Style(props map[string]any) *NodeBuilder {
	n.Child("style", "").Props(props)
	return n
}

// Build returns the node with its children.
func (n *NodeBuilder) Build() Node {
	out := n.node
	out.Children = make([]Node, 0, len(n.children))
	for _, c := range n.children {
		out.Children = append(out.Children, c.Build())
	}
	if len(out.Children) == 0 {
		out.Children = nil
	}
	return out
}
