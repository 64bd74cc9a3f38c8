package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/component"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

// parents lists the kinds each kind may be nested under. Maps are roots.
var parents = map[string][]string{
	component.KindMap:         nil,
	component.KindLayer:       {component.KindMap},
	component.KindInteraction: {component.KindMap},
	component.KindOverlay:     {component.KindMap},
	component.KindSource:      {component.KindLayer},
	component.KindFeature:     {component.KindSource},
	component.KindGeometry:    {component.KindFeature},
	component.KindStyle:       {component.KindFeature},
}

// single lists child kinds a node holds at most once.
var single = map[string]string{
	component.KindLayer:   component.KindSource,
	component.KindFeature: component.KindGeometry,
}

// ValidateTree checks kinds, nesting, identifiers and geometry types of the given
// trees. Every problem is reported, not only the first.
func ValidateTree(roots ...dsl.Node) error {
	var errors []string
	ids := make(map[string]string)

	for _, root := range roots {
		_ = dsl.Walk(root, func(n, parent *dsl.Node) error {
			name := describe(n)

			allowed, known := parents[n.Kind]
			switch {
			case !known:
				errors = append(errors, fmt.Sprintf("Unknown kind '%s' at %s", n.Kind, name))
			case parent == nil && allowed != nil:
				errors = append(errors, fmt.Sprintf("Root %s must be a map", name))
			case parent != nil && !slices.Contains(allowed, parent.Kind):
				errors = append(errors, fmt.Sprintf("%s cannot be nested under %s", name, describe(parent)))
			}

			if n.ID != "" {
				if prev, dup := ids[n.ID]; dup {
					errors = append(errors, fmt.Sprintf("Duplicate id '%s' (%s and %s)", n.ID, prev, n.Kind))
				} else {
					ids[n.ID] = n.Kind
				}
			}

			if n.Kind == component.KindGeometry {
				if typ, _ := n.Props["type"].(string); typ == "" {
					errors = append(errors, fmt.Sprintf("%s has no type", name))
				}
			}

			if kind, ok := single[n.Kind]; ok {
				count := 0
				for _, c := range n.Children {
					if c.Kind == kind {
						count++
					}
				}
				if count > 1 {
					errors = append(errors, fmt.Sprintf("%s has %d %s children, at most one allowed", name, count, kind))
				}
			}
			return nil
		})
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w: found %d errors:\n- %s", domain.ErrInvalidTree, len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

func describe(n *dsl.Node) string {
	if n.ID == "" {
		return n.Kind
	}
	return n.Kind + " '" + n.ID + "'"
}
