package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.submitRequestTool(),
		s.getRunStatusTool(),
		s.listProfilesTool(),
		s.listAgentsTool(),
		s.inferDomainTool(),
	)
}

func (s *Server) submitRequestTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("submit_request",
		mcplib.WithDescription("Submit a content request for multi-agent orchestration and return the created run"),
		mcplib.WithString("topic",
			mcplib.Required(),
			mcplib.Description("Subject the content should cover"),
		),
		mcplib.WithString("content_type",
			mcplib.Description("Kind of content to produce, such as article or landing_page"),
		),
		mcplib.WithString("description",
			mcplib.Description("Free-form elaboration of the request"),
		),
		mcplib.WithString("domain",
			mcplib.Description("Domain profile name; inferred from the request when omitted"),
		),
		mcplib.WithString("complexity",
			mcplib.Description("One of minimal, standard, comprehensive or expert; defaults to standard"),
		),
		mcplib.WithString("audience",
			mcplib.Description("Intended audience of the content"),
		),
		mcplib.WithString("objectives",
			mcplib.Description("Comma-separated objectives the content must meet"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleSubmitRequest,
	}
}

func (s *Server) getRunStatusTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_run_status",
		mcplib.WithDescription("Get the status of an orchestration run by run ID"),
		mcplib.WithString("run_id",
			mcplib.Required(),
			mcplib.Description("The run ID to check"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleGetRunStatus,
	}
}

func (s *Server) listProfilesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_profiles",
		mcplib.WithDescription("List all domain profiles the factory can orchestrate"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListProfiles,
	}
}

func (s *Server) listAgentsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_agents",
		mcplib.WithDescription("List all agent definitions in the catalog"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListAgents,
	}
}

func (s *Server) inferDomainTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("infer_domain",
		mcplib.WithDescription("Infer the best matching domain profile for a set of requirements"),
		mcplib.WithString("requirements",
			mcplib.Required(),
			mcplib.Description("Comma-separated requirement terms to match against the profiles"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleInferDomain,
	}
}

func (s *Server) handleSubmitRequest(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Submitter == nil {
		return mcplib.NewToolResultError("request submitter not configured"), nil
	}
	args := req.GetArguments()
	topic, ok := args["topic"].(string)
	if !ok || strings.TrimSpace(topic) == "" {
		return mcplib.NewToolResultError("topic is required"), nil
	}
	complexity, err := request.ParseComplexity(stringArg(args, "complexity"))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid complexity", err), nil
	}
	cr := request.ContentRequest{
		Topic:       topic,
		ContentType: stringArg(args, "content_type"),
		Description: stringArg(args, "description"),
		Domain:      stringArg(args, "domain"),
		Audience:    stringArg(args, "audience"),
		Complexity:  complexity,
		Objectives:  listArg(args, "objectives"),
	}
	r, err := s.deps.Submitter.Submit(ctx, cr)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to submit request", err), nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal run", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleGetRunStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runs == nil {
		return mcplib.NewToolResultError("run reader not configured"), nil
	}
	args := req.GetArguments()
	runID, ok := args["run_id"].(string)
	if !ok || runID == "" {
		return mcplib.NewToolResultError("run_id is required"), nil
	}
	r, err := s.deps.Runs.GetRun(ctx, runID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(
			fmt.Sprintf("failed to get run %s", runID), err,
		), nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal run", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListProfiles(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Profiles == nil {
		return mcplib.NewToolResultError("profile catalog not configured"), nil
	}
	data, err := json.Marshal(s.deps.Profiles.Profiles())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal profiles", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListAgents(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Agents == nil {
		return mcplib.NewToolResultError("agent catalog not configured"), nil
	}
	data, err := json.Marshal(s.deps.Agents.Definitions())
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal agents", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// inferDomainResult is the infer_domain tool response.
type inferDomainResult struct {
	Profile         string       `json:"profile"`
	Confidence      float64      `json:"confidence"`
	PreferredAgents []agent.Kind `json:"preferred_agents"`
}

func (s *Server) handleInferDomain(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Profiles == nil {
		return mcplib.NewToolResultError("profile catalog not configured"), nil
	}
	terms := listArg(req.GetArguments(), "requirements")
	if len(terms) == 0 {
		return mcplib.NewToolResultError("requirements is required"), nil
	}
	p, confidence := s.deps.Profiles.InferDomain(terms)
	data, err := json.Marshal(inferDomainResult{
		Profile:         p.Name,
		Confidence:      confidence,
		PreferredAgents: p.PreferredAgents,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal inference", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// stringArg returns the named argument when it is a string, else "".
func stringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}

// listArg accepts either a JSON array of strings or one comma-separated
// string for the named argument.
func listArg(args map[string]any, name string) []string {
	var out []string
	switch v := args[name].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
