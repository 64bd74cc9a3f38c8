package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTree struct {
	nodes   []arborhttp.NodeStatus
	sources map[string]*geojson.FeatureCollection
}

func (m *mockTree) Nodes() []arborhttp.NodeStatus { return m.nodes }

func (m *mockTree) SourceFeatures(_ context.Context, id string) (*geojson.FeatureCollection, error) {
	fc, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", id, domain.ErrObjectUndefined)
	}
	return fc, nil
}

func (m *mockTree) AddSourceFeatures(_ context.Context, id string, fc *geojson.FeatureCollection) error {
	cur, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source %q: %w", id, domain.ErrObjectUndefined)
	}
	cur.Features = append(cur.Features, fc.Features...)
	return nil
}

func newTree() *mockTree {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{1, 2})
	f.ID = "p"
	fc.Append(f)
	return &mockTree{
		nodes: []arborhttp.NodeStatus{
			{NodeInfo: domain.NodeInfo{Kind: "map", ID: "m"}, State: "mounted"},
			{NodeInfo: domain.NodeInfo{Kind: "source", ID: "s"}, State: "mounted", Parent: "m", Revision: 3},
		},
		sources: map[string]*geojson.FeatureCollection{"s": fc},
	}
}

func TestNodes(t *testing.T) {
	handler := arborhttp.NewHandler(newTree())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes?kind=source", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var nodes []arborhttp.NodeStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "s", nodes[0].ID)
	assert.Equal(t, uint64(3), nodes[0].Revision)
}

func TestGraph(t *testing.T) {
	handler := arborhttp.NewHandler(newTree())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graph", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `m(("map: m"))`)
	assert.Contains(t, body, "m --> s")
	assert.Contains(t, body, "class s mounted;")
}

func TestFeatures_GetAndPost(t *testing.T) {
	tree := newTree()
	handler := arborhttp.NewHandler(tree)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources/s/features", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)

	body := `{"type":"FeatureCollection","features":[{"type":"Feature","id":"q","geometry":{"type":"Point","coordinates":[3,4]},"properties":{}}]}`
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sources/s/features", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, tree.sources["s"].Features, 2)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sources/missing/features", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sources/s/features", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "arbor_up 1")
	})

	rec := httptest.NewRecorder()
	arborhttp.NewHandler(newTree()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	arborhttp.NewHandler(newTree(), arborhttp.WithMetrics(metrics)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "arbor_up 1", rec.Body.String())
}

type infoSource struct{ info domain.NodeInfo }

func (s infoSource) Info() domain.NodeInfo { return s.info }

func TestSubscribeEvents(t *testing.T) {
	bus := rx.NewBus()
	srv := httptest.NewServer(arborhttp.NewHandler(newTree(), arborhttp.WithEvents(bus)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?events=createerror", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	src := infoSource{domain.NodeInfo{Kind: "layer", ID: "l"}}
	bus.Emit(rx.Message{Name: "created", Source: src})
	bus.Emit(rx.Message{Name: "createerror", Source: src, Err: errors.New("boom")})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			break
		}
	}
	var ev arborhttp.Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev))
	assert.Equal(t, "createerror", ev.Name)
	assert.Equal(t, "l", ev.Node.ID)
	assert.Equal(t, "boom", ev.Error)
}

func TestInfoAndSpec(t *testing.T) {
	handler := arborhttp.NewHandler(newTree(), arborhttp.WithVersion("1.2.3\n"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
}

func TestGetSwagger(t *testing.T) {
	doc, err := arborhttp.GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/sources/{id}/features"))
}

func TestRequestValidation(t *testing.T) {
	tree := newTree()
	handler := arborhttp.NewHandler(tree)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes?kind=tree", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sources/s/features", strings.NewReader(`{"type":"Feature"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, tree.sources["s"].Features, 1)
}
