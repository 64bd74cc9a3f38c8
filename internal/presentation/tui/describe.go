package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/dsl"
)

// Describe produces a markdown report of tree descriptions: one section per tree
// with a table of its nodes, indented by depth.
func Describe(roots ...dsl.Node) string {
	var sb strings.Builder
	for _, root := range roots {
		fmt.Fprintf(&sb, "# %s\n\n", title(root))
		sb.WriteString("| Node | Kind | Props |\n")
		sb.WriteString("|------|------|-------|\n")
		row(&sb, root, 0)
		sb.WriteString("\n")
	}
	return sb.String()
}

func row(sb *strings.Builder, n dsl.Node, depth int) {
	name := n.ID
	if name == "" {
		name = "_" + n.Kind + "_"
	}
	fmt.Fprintf(sb, "| %s%s | %s | %s |\n", strings.Repeat("· ", depth), name, n.Kind, props(n.Props))
	for _, c := range n.Children {
		row(sb, c, depth+1)
	}
}

func title(n dsl.Node) string {
	if n.ID == "" {
		return n.Kind
	}
	return n.Kind + " `" + n.ID + "`"
}

func props(p map[string]any) string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for _, k := range slices.Sorted(maps.Keys(p)) {
		v := fmt.Sprintf("%v", p[k])
		if len(v) > 40 {
			v = v[:37] + "..."
		}
		v = strings.ReplaceAll(v, "|", "\\|")
		parts = append(parts, fmt.Sprintf("`%s`=%s", k, v))
	}
	return strings.Join(parts, ", ")
}
