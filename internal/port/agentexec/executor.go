// Package agentexec defines the agent executor port (interface) and capabilities.
package agentexec

import (
	"context"
	"errors"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
)

// ErrTransient marks an invocation failure worth retrying. Backends wrap
// recoverable conditions (timeouts, connection loss, throttling) with it.
var ErrTransient = errors.New("transient execution failure")

// Transient reports whether err should be retried.
func Transient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Capabilities declares which features an executor backend supports.
type Capabilities struct {
	Streaming  bool `json:"streaming"`
	Stateful   bool `json:"stateful"`
	Concurrent bool `json:"concurrent"`
}

// Invocation is one unit of agent work handed to a backend.
type Invocation struct {
	RunID     string                 `json:"run_id"`
	UnitID    string                 `json:"unit_id"`
	AgentKind agent.Kind             `json:"agent_kind"`
	Role      string                 `json:"role,omitempty"`
	Request   request.ContentRequest `json:"request"`
	// Context carries upstream contributions keyed by agent kind so
	// dependent agents can build on earlier phases.
	Context map[string]string `json:"context,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
	Attempt int               `json:"attempt"`
}

// Result is what a backend produced for one invocation.
type Result struct {
	UnitID          string        `json:"unit_id"`
	AgentKind       agent.Kind    `json:"agent_kind"`
	Content         string        `json:"content"`
	QualityEstimate float64       `json:"quality_estimate"`
	Duration        time.Duration `json:"duration"`
	Backend         string        `json:"backend,omitempty"`
}

// Executor is the port interface for invoking content agents.
type Executor interface {
	// Name returns the unique identifier for this backend (e.g. "stub", "http", "nats").
	Name() string

	// Capabilities returns what this backend supports.
	Capabilities() Capabilities

	// Invoke runs one unit of agent work and returns its contribution.
	Invoke(ctx context.Context, inv Invocation) (*Result, error)

	// Close releases backend resources.
	Close() error
}
