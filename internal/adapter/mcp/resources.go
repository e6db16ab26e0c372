package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/database"
)

// recentRunsLimit caps the runs resource payload.
const recentRunsLimit = 50

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"factory://runs",
			"Recent Runs",
			mcplib.WithResourceDescription("Most recent orchestration runs"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRunsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"factory://profiles",
			"Domain Profiles",
			mcplib.WithResourceDescription("All domain profiles the factory can orchestrate"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleProfilesResource,
	)
}

func (s *Server) handleRunsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Runs == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"run reader not configured"}`,
			},
		}, nil
	}
	runs, err := s.deps.Runs.ListRuns(ctx, database.RunFilter{Limit: recentRunsLimit})
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(runs)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleProfilesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Profiles == nil {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     `{"error":"profile catalog not configured"}`,
			},
		}, nil
	}
	data, err := json.Marshal(s.deps.Profiles.Profiles())
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
