package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/libragen/libragen/internal/collection"
	"github.com/libragen/libragen/internal/embed"
	"github.com/libragen/libragen/internal/pack"
	"github.com/libragen/libragen/internal/search"
	"github.com/libragen/libragen/internal/store"
	"github.com/libragen/libragen/internal/update"
	"github.com/libragen/libragen/pkg/version"
)

// Server is the MCP server exposing list/search/uninstall/update to an
// AI host, bridging it to the Pack Manager, Searcher, and Update Planner.
type Server struct {
	mcp *mcp.Server

	manager  *pack.Manager
	embedder *embed.Embedder
	reranker search.Reranker
	client   *collection.Client // nil disables update/install-via-collection

	logger *slog.Logger

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer creates a new MCP server. client may be nil if no collection
// sources are configured; the update tool then reports an empty result
// for every pack instead of erroring.
func NewServer(manager *pack.Manager, embedder *embed.Embedder, reranker search.Reranker, client *collection.Client) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("pack manager is required")
	}

	s := &Server{
		manager:  manager,
		embedder: embedder,
		reranker: reranker,
		client:   client,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "libragen", Version: version.Version},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "libragen", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "list", Description: "Enumerate installed packs with their manifest fields."},
		{Name: "search", Description: "Hybrid search across one or more installed packs, aggregated and ranked by score."},
		{Name: "uninstall", Description: "Remove an installed pack by name."},
		{Name: "update", Description: "List and/or apply updates for installed packs with a collection origin."},
	}
}

// Serve starts the server over the given transport ("stdio" is the only
// transport currently supported).
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "stdio", "":
		s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unsupported transport %q", transport)
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list",
		Description: "Enumerate installed packs with their manifest fields.",
	}, s.handleList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid search across one or more installed packs.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "uninstall",
		Description: "Remove an installed pack by name.",
	}, s.handleUninstall)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update",
		Description: "List and/or apply updates for installed packs.",
	}, s.handleUpdate)

	s.logger.Debug("MCP tools registered", slog.Int("count", 4))
}

// openSearcher opens rec's pack read-only and wraps it in a Searcher
// sharing this server's embedder/reranker. The caller must close the
// returned pack once done.
func (s *Server) openSearcher(rec pack.Record) (*store.Pack, *search.Searcher, error) {
	p, err := store.Open(rec.Path, store.OpenOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return p, search.New(p, s.embedder, s.reranker), nil
}

func installedFromRecords(records []pack.Record) []update.Installed {
	out := make([]update.Installed, 0, len(records))
	for _, r := range records {
		out = append(out, update.Installed{
			Name:           r.Name,
			Version:        r.Version,
			ContentVersion: r.Manifest.ContentVersion,
			Collection:     r.Manifest.Collection,
		})
	}
	return out
}
