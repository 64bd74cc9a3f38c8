// Package http exposes a read-mostly introspection API over a node tree.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/rx"
	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"
)

// NodeStatus describes one node of the tree.
type NodeStatus struct {
	domain.NodeInfo
	State    string `json:"state"`
	Parent   string `json:"parent,omitempty"`
	Revision uint64 `json:"revision"`
}

// Tree is the application surface served by the handler.
type Tree interface {
	Nodes() []NodeStatus
	// SourceFeatures returns the features of a source in the data projection.
	// Returns domain.ErrObjectUndefined for unknown sources.
	SourceFeatures(ctx context.Context, id string) (*geojson.FeatureCollection, error)
	// AddSourceFeatures adds or patches features of a source.
	AddSourceFeatures(ctx context.Context, id string, fc *geojson.FeatureCollection) error
}

// Event is the SSE payload of a lifecycle message.
type Event struct {
	Name  string          `json:"name"`
	Node  domain.NodeInfo `json:"node"`
	Error string          `json:"error,omitempty"`
}

type server struct {
	tree    Tree
	metrics http.Handler
	events  *rx.Bus
	logger  *slog.Logger
	version string
}

// Option configures the handler.
type Option func(*server)

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *server) { s.metrics = h }
}

// WithEvents streams bus lifecycle messages at /events.
func WithEvents(bus *rx.Bus) Option {
	return func(s *server) { s.events = bus }
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *server) { s.logger = logger }
}

// WithVersion sets the application version reported by /info.
func WithVersion(v string) Option {
	return func(s *server) { s.version = v }
}

// NewHandler creates the HTTP handler. Requests to documented routes are
// validated against the OpenAPI document served at /openapi.yaml.
func NewHandler(tree Tree, opts ...Option) http.Handler {
	s := &server{tree: tree, logger: logging.NewNop(), version: "unknown"}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	if doc, err := GetSwagger(); err != nil {
		s.logger.Error("request validation disabled", "error", err)
	} else if validate, err := s.validateRequests(doc); err != nil {
		s.logger.Error("request validation disabled", "error", err)
	} else {
		r.Use(validate)
	}
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", s.getSpec)
	r.Get("/nodes", s.listNodes)
	r.Get("/graph", s.getGraph)
	r.Get("/sources/{id}/features", s.getFeatures)
	r.Post("/sources/{id}/features", s.postFeatures)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.events != nil {
		r.Get("/events", s.subscribeEvents)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *server) fail(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrObjectUndefined):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrWrongType), errors.Is(err, domain.ErrInvalidID):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", op, err), status)
}

func (s *server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSwagger(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(s.version),
		"api_version": apiVersion,
	})
}

func (s *server) getSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPISpec())
}

func (s *server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.tree.Nodes()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := nodes[:0:0]
		for _, n := range nodes {
			if n.Kind == kind {
				filtered = append(filtered, n)
			}
		}
		nodes = filtered
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// getGraph renders the live tree as a Mermaid flowchart.
func (s *server) getGraph(w http.ResponseWriter, r *http.Request) {
	nodes := s.tree.Nodes()
	vertices := make([]graph.Vertex, 0, len(nodes))
	for _, n := range nodes {
		vertices = append(vertices, graph.Vertex{
			ID:     n.ID,
			Kind:   n.Kind,
			Label:  n.ID,
			Parent: n.Parent,
			State:  n.State,
		})
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(vertices)))
}

func (s *server) getFeatures(w http.ResponseWriter, r *http.Request) {
	fc, err := s.tree.SourceFeatures(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "features", err)
		return
	}
	s.writeJSON(w, http.StatusOK, fc)
}

func (s *server) postFeatures(w http.ResponseWriter, r *http.Request) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r.Body).Decode(&fc); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("postFeatures: invalid request body", "error", err)
		return
	}
	if err := s.tree.AddSourceFeatures(r.Context(), chi.URLParam(r, "id"), &fc); err != nil {
		s.fail(w, "add features", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscribeEvents handles GET /events (SSE). The optional "events" query parameter
// is a comma separated list of message names.
func (s *server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	names := []string{rx.Any}
	if q := r.URL.Query().Get("events"); q != "" {
		names = strings.Split(q, ",")
	}

	ch := make(chan Event, 10)
	var subs rx.Subscriptions
	for _, name := range names {
		subs.Add(s.events.On(strings.TrimSpace(name), func(m rx.Message) {
			ev := Event{Name: m.Name}
			if src, ok := m.Source.(interface{ Info() domain.NodeInfo }); ok {
				ev.Node = src.Info()
			}
			if m.Err != nil {
				ev.Error = m.Err.Error()
			}
			select {
			case ch <- ev:
			default:
				// Drop message if channel is full (slow client)
				s.logger.Warn("SSE: client buffer full, dropping message", "event", m.Name)
			}
		}))
	}
	defer subs.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
