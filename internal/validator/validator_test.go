package validator_test

import (
	"testing"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTree_Valid(t *testing.T) {
	b := dsl.New()
	m := b.Map("map")
	m.Layer("roads").Source("roads-source").Feature("f1").
		Geometry("Point", []float64{1, 2}).
		Style(map[string]any{"fill": "red"})
	m.Interaction("select")
	m.Overlay("popup", []float64{1, 2})

	assert.NoError(t, validator.ValidateTree(b.Build()...))
}

func TestValidateTree_ReportsEveryProblem(t *testing.T) {
	roots := []dsl.Node{
		{Kind: "layer", ID: "orphan"},
		{Kind: "map", ID: "m", Children: []dsl.Node{
			{Kind: "source", ID: "misplaced"},
			{Kind: "layer", ID: "l", Children: []dsl.Node{
				{Kind: "source", ID: "s1"},
				{Kind: "source", ID: "s2"},
			}},
			{Kind: "layer", ID: "orphan"},
			{Kind: "tile", ID: "t"},
		}},
	}

	err := validator.ValidateTree(roots...)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTree)
	msg := err.Error()
	assert.Contains(t, msg, "found 5 errors")
	assert.Contains(t, msg, "Root layer 'orphan' must be a map")
	assert.Contains(t, msg, "source 'misplaced' cannot be nested under map 'm'")
	assert.Contains(t, msg, "layer 'l' has 2 source children")
	assert.Contains(t, msg, "Duplicate id 'orphan'")
	assert.Contains(t, msg, "Unknown kind 'tile'")
}

func TestValidateTree_GeometryType(t *testing.T) {
	root := dsl.Node{Kind: "map", Children: []dsl.Node{
		{Kind: "layer", Children: []dsl.Node{
			{Kind: "source", Children: []dsl.Node{
				{Kind: "feature", Children: []dsl.Node{
					{Kind: "geometry", Props: map[string]any{"coordinates": []float64{0, 0}}},
				}},
			}},
		}},
	}}

	err := validator.ValidateTree(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geometry has no type")
}
