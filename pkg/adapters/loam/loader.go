package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/loam"
)

// Loader reads tree descriptions stored as documents of a Loam repository: JSON or
// YAML files, or Markdown files whose frontmatter holds the tree.
type Loader struct {
	Repo *loam.TypedRepository[dsl.Node]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[dsl.Node]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only repository over dir.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[dsl.Node](repo)), nil
}

// Tree returns the tree stored in the document id.
func (l *Loader) Tree(ctx context.Context, id string) (dsl.Node, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return dsl.Node{}, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	return normalizeTree(doc.ID, doc.Data), nil
}

type storedTree struct {
	docID string
	tree  dsl.Node
}

// Trees returns every stored tree ordered by document id. A document without a
// root id takes its file name, extension stripped.
func (l *Loader) Trees(ctx context.Context) ([]dsl.Node, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	stored := make([]storedTree, 0, len(docs))
	for _, doc := range docs {
		stored = append(stored, storedTree{docID: doc.ID, tree: normalizeTree(doc.ID, doc.Data)})
	}
	slices.SortFunc(stored, func(a, b storedTree) int {
		return strings.Compare(a.docID, b.docID)
	})

	seen := make(map[string]string)
	trees := make([]dsl.Node, 0, len(stored))
	for _, s := range stored {
		if existing, ok := seen[s.tree.ID]; ok {
			return nil, fmt.Errorf("collision detected: tree '%s' is defined in both '%s' and '%s'", s.tree.ID, existing, s.docID)
		}
		seen[s.tree.ID] = s.docID
		trees = append(trees, s.tree)
	}
	return trees, nil
}

// Watch reports the id of every changed tree document until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func normalizeTree(docID string, n dsl.Node) dsl.Node {
	if n.Kind == "" {
		n.Kind = "map"
	}
	if n.ID == "" {
		n.ID = trimExtension(docID)
	}
	return normalizeNode(n)
}

// normalizeNode turns YAML maps with interface keys into string keyed maps, so
// props can be re-encoded as JSON.
func normalizeNode(n dsl.Node) dsl.Node {
	if n.Props != nil {
		n.Props = normalizeValue(n.Props).(map[string]any)
	}
	for i := range n.Children {
		n.Children[i] = normalizeNode(n.Children[i])
	}
	return n
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalizeValue(sub)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalizeValue(sub)
		}
		return out
	default:
		return v
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
