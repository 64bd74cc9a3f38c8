package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks logs lifecycle events: successes at Info, failures at Error and state
// transitions at Debug.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "node_transition",
				"kind", e.Node.Kind,
				"id", e.Node.ID,
				"from", e.From.String(),
				"to", e.To.String(),
			)
		},
		OnEvent: func(ctx context.Context, e *domain.NodeEvent) {
			attrs := []any{"kind", e.Node.Kind, "id", e.Node.ID, "event", string(e.Event)}
			if e.Node.Ident != "" {
				attrs = append(attrs, "ident", e.Node.Ident)
			}
			if e.Event.IsError() {
				logger.ErrorContext(ctx, "node_event", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "node_event", attrs...)
		},
	}
}
