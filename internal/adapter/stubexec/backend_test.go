package stubexec

import (
	"context"
	"strings"
	"testing"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
)

func testInvocation(kind agent.Kind) agentexec.Invocation {
	return agentexec.Invocation{
		RunID:     "run-1",
		UnitID:    "unit-1",
		AgentKind: kind,
		Request:   request.ContentRequest{ContentType: "article", Topic: "edge caching"},
	}
}

func TestNewRejectsBadLatency(t *testing.T) {
	if _, err := New(map[string]string{"latency": "not-a-duration"}); err == nil {
		t.Fatal("expected error for invalid latency")
	}
}

func TestInvokeIsDeterministic(t *testing.T) {
	b, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inv := testInvocation(agent.KindResearch)
	first, err := b.Invoke(context.Background(), inv)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	second, err := b.Invoke(context.Background(), inv)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if first.Content != second.Content {
		t.Errorf("content differs between identical invocations")
	}
	if first.QualityEstimate != second.QualityEstimate {
		t.Errorf("quality differs: %v vs %v", first.QualityEstimate, second.QualityEstimate)
	}
	if first.QualityEstimate < 0.70 || first.QualityEstimate > 0.95 {
		t.Errorf("quality %v outside [0.70, 0.95]", first.QualityEstimate)
	}
	if first.Backend != "stub" {
		t.Errorf("backend = %q, want stub", first.Backend)
	}
}

func TestInvokeVariesByKind(t *testing.T) {
	b, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	research, _ := b.Invoke(context.Background(), testInvocation(agent.KindResearch))
	writing, _ := b.Invoke(context.Background(), testInvocation(agent.KindWriting))

	if research.Content == writing.Content {
		t.Error("expected different content per agent kind")
	}
	if !strings.Contains(research.Content, "edge caching") {
		t.Errorf("content should mention the topic: %q", research.Content)
	}
}

func TestInvokeAcknowledgesContext(t *testing.T) {
	b, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	inv := testInvocation(agent.KindWriting)
	inv.Context = map[string]string{
		"structure": "outline",
		"research":  "notes",
	}
	res, err := b.Invoke(context.Background(), inv)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(res.Content, "research, structure") {
		t.Errorf("expected sorted upstream kinds in content: %q", res.Content)
	}
}

func TestInvokeHonorsCancellation(t *testing.T) {
	b, err := New(map[string]string{"latency": "5s"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Invoke(ctx, testInvocation(agent.KindResearch)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRegisteredWithFactory(t *testing.T) {
	exec, err := agentexec.New("stub", nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if exec.Name() != "stub" {
		t.Errorf("name = %q, want stub", exec.Name())
	}
}
