// Package httpexec dispatches invocation units to a remote agent
// service over HTTP. One POST per unit; the executor's per-unit context
// bounds each call.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
)

const backendName = "http"

// Backend POSTs each invocation to {base_url}/agents/{kind}/invoke.
type Backend struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates an HTTP backend. Config keys: "base_url" (required) and
// "token" (optional bearer token).
func New(config map[string]string) (*Backend, error) {
	baseURL := config["base_url"]
	if baseURL == "" {
		return nil, errors.New("httpexec: base_url is required")
	}
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      config["token"],
		httpClient: &http.Client{},
	}, nil
}

// Name returns "http".
func (b *Backend) Name() string { return backendName }

// Capabilities returns what the HTTP backend supports.
func (b *Backend) Capabilities() agentexec.Capabilities {
	return agentexec.Capabilities{Concurrent: true, Stateful: true}
}

// invokeResponse is the wire shape the agent service replies with.
type invokeResponse struct {
	Content         string  `json:"content"`
	QualityEstimate float64 `json:"quality_estimate"`
	Backend         string  `json:"backend,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Invoke sends the unit to the remote agent service and decodes its
// contribution. Connection failures and 5xx/429 responses are
// transient; other non-2xx responses are permanent.
func (b *Backend) Invoke(ctx context.Context, inv agentexec.Invocation) (*agentexec.Result, error) {
	start := time.Now()

	body, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("httpexec: marshal invocation: %w", err)
	}

	url := fmt.Sprintf("%s/agents/%s/invoke", b.baseURL, inv.AgentKind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpexec: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("httpexec: %v: %w", err, agentexec.ErrTransient)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("httpexec: read response: %w", agentexec.ErrTransient)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("httpexec: agent service %d: %s: %w", resp.StatusCode, truncate(data), agentexec.ErrTransient)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("httpexec: agent service %d: %s", resp.StatusCode, truncate(data))
	}

	var out invokeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("httpexec: unmarshal response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("httpexec: agent error: %s", out.Error)
	}

	res := &agentexec.Result{
		UnitID:          inv.UnitID,
		AgentKind:       inv.AgentKind,
		Content:         out.Content,
		QualityEstimate: out.QualityEstimate,
		Duration:        time.Since(start),
		Backend:         backendName,
	}
	if out.Backend != "" {
		res.Backend = out.Backend
	}
	return res, nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

func truncate(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
