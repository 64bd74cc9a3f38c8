package dsl_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Tree(t *testing.T) {
	b := dsl.New()
	m := b.Map("map").Prop("projection", "EPSG:3857")
	src := m.Layer("roads").Prop("opacity", 0.5).Source("roads-source")
	src.Feature("f1").
		Geometry("LineString", [][]float64{{0, 0}, {1, 1}}).
		Style(map[string]any{"stroke": "blue"})
	m.Interaction("select").Ident("shared-select")

	roots := b.Build()
	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, "map", root.Kind)
	assert.Equal(t, "EPSG:3857", root.Props["projection"])
	require.Len(t, root.Children, 2)

	layer := root.Children[0]
	assert.Equal(t, "roads", layer.ID)
	assert.Equal(t, 0.5, layer.Props["opacity"])

	feature := layer.Children[0].Children[0]
	require.Len(t, feature.Children, 2)
	assert.Equal(t, "geometry", feature.Children[0].Kind)
	assert.Equal(t, "LineString", feature.Children[0].Props["type"])
	assert.Equal(t, "style", feature.Children[1].Kind)
	assert.Nil(t, feature.Children[0].Children)

	assert.Equal(t, "shared-select", root.Children[1].Ident)
}

func TestBuilder_Circle(t *testing.T) {
	b := dsl.New()
	b.Map("m").Layer("l").Source("s").Feature("f").Circle([]float64{1, 2}, 100)

	g := b.Build()[0].Children[0].Children[0].Children[0].Children[0]
	assert.Equal(t, "Circle", g.Props["type"])
	assert.Equal(t, 100.0, g.Props["radius"])
}

func TestWalk_ParentsFirst(t *testing.T) {
	b := dsl.New()
	m := b.Map("m")
	m.Layer("a").Source("s")
	m.Layer("b")

	var visited, parents []string
	err := dsl.Walk(b.Build()[0], func(n, parent *dsl.Node) error {
		visited = append(visited, n.ID)
		if parent != nil {
			parents = append(parents, parent.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"m", "a", "s", "b"}, visited)
	assert.Equal(t, []string{"m", "a", "m"}, parents)
}
