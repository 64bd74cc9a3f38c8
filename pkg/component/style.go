package component

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/binding"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/services"
)

// StyleHost is implemented by objects holding a style list (features).
type StyleHost interface {
	Style() []ports.Object
	SetStyle(styles []ports.Object)
}

// Style is one entry of the style list of its host.
type Style struct {
	*lifecycle.Node
	env *Env

	Fill        *binding.Property[string]
	Stroke      *binding.Property[string]
	StrokeWidth *binding.Property[float64]
	ZIndex      *binding.Property[int]
}

// NewStyle creates a style node.
func NewStyle(env *Env, opts ...lifecycle.Option) *Style {
	s := &Style{env: env}
	s.Node = lifecycle.New(KindStyle, styleHooks{s}, opts...)
	s.Fill = binding.NewProperty[string]("fill", s.Node)
	s.Stroke = binding.NewProperty[string]("stroke", s.Node)
	s.StrokeWidth = binding.NewProperty[float64]("strokeWidth", s.Node)
	s.ZIndex = binding.NewProperty[int]("zIndex", s.Node)
	s.Bridge().Add(s.Fill, s.Stroke, s.StrokeWidth, s.ZIndex)
	return s
}

// styleHooks drives the lifecycle of a Style.
type styleHooks struct{ *Style }

func (s styleHooks) CreateObject(ctx context.Context, n *lifecycle.Node) (ports.Object, error) {
	return s.env.createObject(ctx, n)
}

func (s styleHooks) BeforeInit(ctx context.Context, n *lifecycle.Node) error {
	_, err := n.WaitFor(ctx, services.StyleContainer)
	return err
}

func (s styleHooks) host(n *lifecycle.Node) (StyleHost, error) {
	h, ok := services.Lookup[StyleHost](n.Upstream(), services.StyleContainer)
	if !ok {
		return nil, fmt.Errorf("%s: %w", services.StyleContainer, domain.ErrObjectUndefined)
	}
	return h, nil
}

func (s styleHooks) Mount(ctx context.Context, n *lifecycle.Node) error {
	h, err := s.host(n)
	if err != nil {
		return err
	}
	styles := h.Style()
	if !slices.Contains(styles, n.Object()) {
		h.SetStyle(append(styles, n.Object()))
	}
	return nil
}

func (s styleHooks) Unmount(ctx context.Context, n *lifecycle.Node) error {
	h, err := s.host(n)
	if err != nil {
		return err
	}
	styles := h.Style()
	if i := slices.Index(styles, n.Object()); i >= 0 {
		h.SetStyle(slices.Delete(styles, i, i+1))
	}
	return nil
}
