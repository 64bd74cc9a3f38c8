package compiler_test

import (
	"testing"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeYAML = `
trees:
  - kind: map
    id: map
    props:
      projection: EPSG:3857
    children:
      - kind: layer
        id: roads
        props:
          opacity: 0.5
        children:
          - kind: source
            id: roads-source
            children:
              - kind: feature
                id: f1
                children:
                  - kind: geometry
                    props:
                      type: Point
                      coordinates: [10, 20]
                  - kind: style
                    props:
                      fill: red
`

func TestParser_Document(t *testing.T) {
	roots, err := compiler.NewParser().Parse([]byte(treeYAML))
	require.NoError(t, err)
	require.Len(t, roots, 1)

	m := roots[0]
	assert.Equal(t, "map", m.Kind)
	assert.Equal(t, "EPSG:3857", m.Props["projection"])

	layer := m.Children[0]
	assert.Equal(t, 0.5, layer.Props["opacity"])
	geom := layer.Children[0].Children[0].Children[0]
	assert.Equal(t, "Point", geom.Props["type"])
	assert.Equal(t, []any{10, 20}, geom.Props["coordinates"])
}

func TestParser_SingleRootJSON(t *testing.T) {
	roots, err := compiler.NewParser().Parse([]byte(`{"kind": "map", "id": "m", "children": [{"kind": "layer", "id": "l"}]}`))
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "l", roots[0].Children[0].ID)
}

func TestParser_Errors(t *testing.T) {
	p := compiler.NewParser()

	_, err := p.Parse([]byte("kind: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse tree")

	_, err = p.Parse([]byte(""))
	assert.ErrorContains(t, err, "empty")

	_, err = p.Parse([]byte("kind: map\nchildrn: []\n"))
	assert.ErrorContains(t, err, "failed to decode tree")

	_, err = p.Parse([]byte("kind: source\nid: s\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidTree)
}
