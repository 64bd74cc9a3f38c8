package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/dsl"
)

// Vertex is one node of the drawn tree.
type Vertex struct {
	ID     string
	Kind   string
	Label  string
	Parent string
	// State is the lifecycle state of a live node, empty for descriptions.
	State string
}

// FromTrees flattens tree descriptions. Nodes without an id get a path-like one
// built from their parent and position, and are labeled with their kind.
func FromTrees(roots ...dsl.Node) []Vertex {
	var out []Vertex
	var visit func(n dsl.Node, id, parent string)
	visit = func(n dsl.Node, id, parent string) {
		label := n.ID
		if label == "" {
			label = n.Kind
		}
		out = append(out, Vertex{ID: id, Kind: n.Kind, Label: label, Parent: parent})
		for i, c := range n.Children {
			cid := c.ID
			if cid == "" {
				cid = fmt.Sprintf("%s/%s%d", id, c.Kind, i)
			}
			visit(c, cid, id)
		}
	}
	for i, r := range roots {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("%s%d", r.Kind, i)
		}
		visit(r, id, "")
	}
	return out
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a list of
// vertices. Shapes follow the node kind:
// - Map: ((Circle))
// - Source: [(Database)]
// - Geometry and Style: {{Hexagon}}
// - Interaction: >Flag]
// - Overlay: [/Parallelogram/]
// - Default: [Rectangle]
// Vertices with a state are styled as mounted, failed or pending.
func GenerateMermaid(vertices []Vertex) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	styled := false
	for _, v := range vertices {
		safeID := sanitizeMermaidID(v.ID)

		opener, closer := "[", "]"
		switch v.Kind {
		case "map":
			opener, closer = "((", "))"
		case "source":
			opener, closer = "[(", ")]"
		case "geometry", "style":
			opener, closer = "{{", "}}"
		case "interaction":
			opener, closer = ">", "]"
		case "overlay":
			opener, closer = "[/", "/]"
		}

		label := v.Label
		if label == "" {
			label = v.ID
		}
		label = strings.ReplaceAll(label, "\"", "'")
		if v.Kind != "" && label != v.Kind {
			label = v.Kind + ": " + label
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if v.Parent != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(v.Parent), safeID))
		}
		if v.State != "" {
			styled = true
		}
	}

	if styled {
		sb.WriteString("\n    %% State Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef mounted fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef pending fill:#fff8e1,stroke:#f9a825,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		for _, v := range vertices {
			if v.State == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(v.ID), stateClass(v.State)))
		}
	}

	return sb.String()
}

func stateClass(state string) string {
	switch state {
	case "mounted":
		return "mounted"
	case "undef":
		return "failed"
	default:
		return "pending"
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
