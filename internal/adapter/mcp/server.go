// Package mcp exposes the factory's orchestration surface over the
// Model Context Protocol, so agent clients can submit content requests
// and inspect runs through the same operations the HTTP API offers.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/profile"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/run"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
)

// RequestSubmitter accepts content requests for orchestration.
type RequestSubmitter interface {
	Submit(ctx context.Context, req request.ContentRequest) (*run.Run, error)
}

// RunReader reads runs from the store.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*run.Run, error)
	ListRuns(ctx context.Context, filter database.RunFilter) ([]run.Run, error)
}

// ServerConfig holds MCP server settings. An empty APIKey disables
// transport auth.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps holds what the tools and resources call into. A nil entry
// turns the corresponding tools into error results instead of panics,
// so a partially wired server still starts.
type ServerDeps struct {
	Submitter RequestSubmitter
	Runs      RunReader
	Profiles  *profile.Catalog
	Agents    *agent.Catalog
}

// Server exposes factory tools and resources to MCP clients over the
// streamable HTTP transport.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithResourceCapabilities(false, true),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start binds the configured address and serves the MCP transport in
// the background until Stop. Bind errors return synchronously.
func (s *Server) Start() error {
	handler := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	s.httpServer = &http.Server{
		Handler:           AuthMiddleware(s.cfg.APIKey, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}
	slog.Info("mcp server listening", "addr", ln.Addr().String())

	go func() {
		if serr := s.httpServer.Serve(ln); serr != nil && serr != http.ErrServerClosed {
			slog.Error("mcp server", "error", serr)
		}
	}()
	return nil
}

// Stop shuts the transport down gracefully. Safe to call before Start.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// toolResultJSON wraps pre-marshaled JSON as a text content result.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}
