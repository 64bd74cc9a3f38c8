package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/paulmach/orb/geojson"
)

// NodesURI is the resource listing the nodes of the application.
const NodesURI = "arbor://nodes"

// Tree is the application surface exposed to MCP clients.
type Tree interface {
	httpAdapter.Tree
	SaveSource(ctx context.Context, id, key string) error
	RestoreSource(ctx context.Context, id, key string) error
}

// Server wraps an application and exposes it as an MCP Server.
type Server struct {
	tree      Tree
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(tree Tree, version string, logger *slog.Logger) *Server {
	s := &Server{
		tree:      tree,
		mcpServer: server.NewMCPServer("arbor-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the nodes of every tree with their kind, parent and lifecycle state."),
		mcp.WithString("kind", mcp.Description("Only list nodes of this kind (optional)")),
	), s.handleListNodes)

	s.mcpServer.AddTool(mcp.NewTool("get_features",
		mcp.WithDescription("Get the features of a vector source as a GeoJSON FeatureCollection in the data projection."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source node ID")),
	), s.handleGetFeatures)

	s.mcpServer.AddTool(mcp.NewTool("add_features",
		mcp.WithDescription("Add features to a vector source. Features sharing an id with a member replace its geometry and properties."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("features", mcp.Required(), mcp.Description("GeoJSON FeatureCollection in the data projection")),
	), s.handleAddFeatures)

	s.mcpServer.AddTool(mcp.NewTool("save_source",
		mcp.WithDescription("Store the features of a source as a snapshot."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Snapshot key")),
	), s.handleSaveSource)

	s.mcpServer.AddTool(mcp.NewTool("restore_source",
		mcp.WithDescription("Replace the features of a source with a stored snapshot."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Snapshot key")),
	), s.handleRestoreSource)
}

func (s *Server) nodes(kind string) []httpAdapter.NodeStatus {
	nodes := s.tree.Nodes()
	if kind == "" {
		return nodes
	}
	filtered := nodes[:0:0]
	for _, n := range nodes {
		if n.Kind == kind {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func (s *Server) handleListNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(s.nodes(request.GetString("kind", "")))
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetFeatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fc, err := s.tree.SourceFeatures(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get features failed: %v", err)), nil
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleAddFeatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("features")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fc, err := geojson.UnmarshalFeatureCollection([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid features: %v", err)), nil
	}
	if err := s.tree.AddSourceFeatures(ctx, id, fc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add features failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %d features to %s", len(fc.Features), id)), nil
}

func (s *Server) handleSaveSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.snapshot(ctx, request, "saved", s.tree.SaveSource)
}

func (s *Server) handleRestoreSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.snapshot(ctx, request, "restored", s.tree.RestoreSource)
}

func (s *Server) snapshot(ctx context.Context, request mcp.CallToolRequest, verb string, op func(ctx context.Context, id, key string) error) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := op(ctx, id, key); err != nil {
		s.logger.Warn("MCP snapshot failed", "source", id, "key", key, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s %s: %v", id, key, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s as %s", verb, id, key)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(NodesURI, "Tree nodes",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.tree.Nodes())
		if err != nil {
			return nil, fmt.Errorf("failed to encode nodes: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      NodesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
