package dsl

// Builder manages the construction of one or more trees.
type Builder struct {
	roots []*NodeBuilder
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{}
}

// Map adds a root map node.
func (b *Builder) Map(id string) *NodeBuilder {
	nb := &NodeBuilder{node: Node{Kind: "map", ID: id}}
	b.roots = append(b.roots, nb)
	return nb
}

// Build returns the described trees in declaration order.
func (b *Builder) Build() []Node {
	out := make([]Node, 0, len(b.roots))
	for _, r := range b.roots {
		out = append(out, r.Build())
	}
	return out
}
