package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/lifecycle"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okComponent() lifecycle.Component {
	return lifecycle.ComponentFunc(func(context.Context, *lifecycle.Node) (ports.Object, error) {
		return memory.NewObject(nil), nil
	})
}

func TestMetrics_LifecycleCounters(t *testing.T) {
	m := observability.NewMetrics("")
	ctx := context.Background()

	n := lifecycle.New("layer", okComponent(), lifecycle.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, n.Start(ctx))

	expected := `
# HELP arbor_node_events_total Lifecycle events (created, mounterror, ...) by node kind
# TYPE arbor_node_events_total counter
arbor_node_events_total{event="created",kind="layer"} 1
arbor_node_events_total{event="mounted",kind="layer"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), bytes.NewBufferString(expected), "arbor_node_events_total"))

	mounted := `
# HELP arbor_node_state Number of nodes currently in each lifecycle state
# TYPE arbor_node_state gauge
arbor_node_state{kind="layer",state="created"} 0
arbor_node_state{kind="layer",state="creating"} 0
arbor_node_state{kind="layer",state="mounted"} 1
arbor_node_state{kind="layer",state="mounting"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), bytes.NewBufferString(mounted), "arbor_node_state"))

	require.NoError(t, n.Destroy(ctx))
	count, err := testutil.GatherAndCount(m.Registry(), "arbor_node_transitions_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 4)
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics("test")
	hooks := m.Hooks()
	hooks.OnEvent(context.Background(), &domain.NodeEvent{
		Node:  domain.NodeInfo{Kind: "map", ID: "m"},
		Event: domain.EventCreateError,
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_node_events_total{event="createerror",kind="map"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(logging.NewWithWriter(&buf, slog.LevelInfo))
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{Node: domain.NodeInfo{Kind: "map", ID: "m"}})
	hooks.OnEvent(ctx, &domain.NodeEvent{Node: domain.NodeInfo{Kind: "map", ID: "m"}, Event: domain.EventCreated})
	hooks.OnEvent(ctx, &domain.NodeEvent{
		Node:  domain.NodeInfo{Kind: "layer", ID: "l", Ident: "shared"},
		Event: domain.EventMountError,
		Err:   errors.New("no container"),
	})

	out := buf.String()
	assert.NotContains(t, out, "node_transition")
	assert.Contains(t, out, "event=created")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "ident=shared")
	assert.Contains(t, out, `err="no container"`)
}
