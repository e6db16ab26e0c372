package httpexec_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/adapter/httpexec"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/request"
	"github.com/Lambertain/ai-agent-factory-sub002/internal/port/agentexec"
)

func testInvocation() agentexec.Invocation {
	return agentexec.Invocation{
		RunID:     "run-1",
		UnitID:    "unit-1",
		AgentKind: agent.KindResearch,
		Request:   request.ContentRequest{ContentType: "article", Topic: "load shedding"},
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := httpexec.New(nil); err == nil {
		t.Fatal("expected error without base_url")
	}
}

func TestInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/research/invoke" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Fatalf("unexpected auth: %q", auth)
		}

		var inv agentexec.Invocation
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			t.Fatalf("decode invocation: %v", err)
		}
		if inv.UnitID != "unit-1" {
			t.Fatalf("unit id = %q", inv.UnitID)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":"findings on load shedding","quality_estimate":0.82}`))
	}))
	defer srv.Close()

	b, err := httpexec.New(map[string]string{"base_url": srv.URL, "token": "test-token"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := b.Invoke(context.Background(), testInvocation())
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res.Content != "findings on load shedding" {
		t.Errorf("content = %q", res.Content)
	}
	if res.QualityEstimate != 0.82 {
		t.Errorf("quality = %v, want 0.82", res.QualityEstimate)
	}
	if res.AgentKind != agent.KindResearch {
		t.Errorf("kind = %q", res.AgentKind)
	}
}

func TestInvokeServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b, err := httpexec.New(map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = b.Invoke(context.Background(), testInvocation())
	if err == nil {
		t.Fatal("expected error")
	}
	if !agentexec.Transient(err) {
		t.Errorf("5xx should be transient, got %v", err)
	}
}

func TestInvokeClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such agent", http.StatusNotFound)
	}))
	defer srv.Close()

	b, err := httpexec.New(map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = b.Invoke(context.Background(), testInvocation())
	if err == nil {
		t.Fatal("expected error")
	}
	if agentexec.Transient(err) {
		t.Errorf("4xx should be permanent, got %v", err)
	}
}

func TestInvokeConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close()

	b, err := httpexec.New(map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = b.Invoke(context.Background(), testInvocation())
	if err == nil {
		t.Fatal("expected error")
	}
	if !agentexec.Transient(err) {
		t.Errorf("connection failure should be transient, got %v", err)
	}
}

func TestInvokeAgentErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"model refused"}`))
	}))
	defer srv.Close()

	b, err := httpexec.New(map[string]string{"base_url": srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = b.Invoke(context.Background(), testInvocation())
	if err == nil {
		t.Fatal("expected error from error field")
	}
	if agentexec.Transient(err) {
		t.Errorf("agent-reported error should be permanent, got %v", err)
	}
}
