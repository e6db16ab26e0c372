// Package natsexec dispatches invocation units to remote agent workers
// over NATS request and reply. Workers subscribe on units.invoke.{kind}
// and answer with a unit result payload; the executor's per-unit
// context bounds each exchange.
package natsexec

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/messagequeue"
)

const backendName = "nats"

// Backend sends each invocation as a request on units.invoke.{kind}.
// Any worker in the queue group for that kind may answer.
type Backend struct {
	queue messagequeue.Queue
}

// New creates a NATS backend on an established queue connection.
func New(queue messagequeue.Queue) *Backend {
	return &Backend{queue: queue}
}

// Register makes the backend available under "nats". Unlike the
// self-registering backends it needs a live queue connection, so the
// caller registers it explicitly after connecting.
func Register(queue messagequeue.Queue) {
	agentexec.Register(backendName, func(_ map[string]string) (agentexec.Executor, error) {
		return New(queue), nil
	})
}

// Name returns "nats".
func (b *Backend) Name() string { return backendName }

// Capabilities returns what the NATS backend supports.
func (b *Backend) Capabilities() agentexec.Capabilities {
	return agentexec.Capabilities{Concurrent: true}
}

// Invoke publishes the unit on its kind subject and waits for one
// worker reply. Transport failures, including an empty worker fleet,
// are transient; errors reported by the worker itself are permanent.
func (b *Backend) Invoke(ctx context.Context, inv agentexec.Invocation) (*agentexec.Result, error) {
	start := time.Now()

	payload := messagequeue.UnitInvokePayload{
		RunID:          inv.RunID,
		UnitID:         inv.UnitID,
		AgentKind:      string(inv.AgentKind),
		Role:           inv.Role,
		Topic:          inv.Request.Topic,
		Description:    inv.Request.Description,
		Audience:       inv.Request.Audience,
		Context:        inv.Context,
		Attempt:        inv.Attempt,
		TimeoutSeconds: int(inv.Timeout / time.Second),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("natsexec: marshal invocation: %w", err)
	}

	subject := messagequeue.SubjectUnitInvoke + "." + string(inv.AgentKind)
	reply, err := b.queue.Request(ctx, subject, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("natsexec: %v: %w", err, agentexec.ErrTransient)
	}

	var out messagequeue.UnitResultPayload
	if err := json.Unmarshal(reply, &out); err != nil {
		return nil, fmt.Errorf("natsexec: unmarshal reply: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("natsexec: agent error: %s", out.Error)
	}

	return &agentexec.Result{
		UnitID:          inv.UnitID,
		AgentKind:       inv.AgentKind,
		Content:         out.Content,
		QualityEstimate: out.QualityEstimate,
		Duration:        time.Since(start),
		Backend:         backendName,
	}, nil
}

// Close is a no-op; the queue connection is owned by the caller.
func (b *Backend) Close() error { return nil }
