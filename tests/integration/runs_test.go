//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// runView mirrors the composed status payload of GET /api/v1/runs/{id}.
type runView struct {
	Run struct {
		ID         string     `json:"id"`
		RequestID  string     `json:"request_id"`
		Domain     string     `json:"domain"`
		Status     string     `json:"status"`
		PlanID     string     `json:"plan_id"`
		ArtifactID string     `json:"artifact_id"`
		Reason     string     `json:"reason"`
		Version    int        `json:"version"`
		FinishedAt *time.Time `json:"finished_at"`
	} `json:"run"`
	Contributions int `json:"contributions"`
}

func isTerminal(status string) bool {
	return status == "passed" || status == "failed" || status == "aborted"
}

func submitRun(t *testing.T, body map[string]any) string {
	t.Helper()
	payload, _ := json.Marshal(body)
	resp, err := http.Post(testServer.URL+"/api/v1/runs", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit: expected 202, got %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created run: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected non-empty run ID")
	}
	return created.ID
}

func getRun(t *testing.T, id string) runView {
	t.Helper()
	resp, err := http.Get(testServer.URL + "/api/v1/runs/" + id)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get run: expected 200, got %d", resp.StatusCode)
	}
	var view runView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	return view
}

func waitTerminal(t *testing.T, id string) runView {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		view := getRun(t, id)
		if isTerminal(view.Run.Status) {
			return view
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("run %s did not reach a terminal state", id)
	return runView{}
}

func TestRunLifecycle(t *testing.T) {
	cleanDB(testPool)

	// 1. List runs, expecting an empty page.
	resp, err := http.Get(testServer.URL + "/api/v1/runs")
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var runs []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected 0 runs, got %d", len(runs))
	}

	// 2. Submit a content request
	id := submitRun(t, map[string]any{
		"topic":        "observability for microservices",
		"content_type": "article",
		"complexity":   "standard",
		"audience":     "platform engineers",
		"objectives":   []string{"explain tracing", "compare metric stores"},
	})

	// 3. Poll until the pipeline finishes
	final := waitTerminal(t, id)

	if final.Run.FinishedAt == nil {
		t.Error("expected finished_at on terminal run")
	}
	if final.Run.Domain == "" {
		t.Error("expected resolved domain on terminal run")
	}
	if final.Run.Status != "aborted" {
		if final.Run.PlanID == "" {
			t.Error("expected plan_id on completed run")
		}
		if final.Contributions == 0 {
			t.Error("expected stored contributions on completed run")
		}
	}

	// 4. Plan, contributions and timeline are all retrievable
	for _, path := range []string{"/plan", "/contributions", "/events", "/stats"} {
		r2, err := http.Get(testServer.URL + "/api/v1/runs/" + id + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		_ = r2.Body.Close()
		if r2.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, r2.StatusCode)
		}
	}

	// 5. A passed run has an artifact and a validation report
	if final.Run.Status == "passed" {
		for _, path := range []string{"/artifact", "/report"} {
			r3, err := http.Get(testServer.URL + "/api/v1/runs/" + id + path)
			if err != nil {
				t.Fatalf("get %s: %v", path, err)
			}
			_ = r3.Body.Close()
			if r3.StatusCode != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", path, r3.StatusCode)
			}
		}
	}

	// 6. The run shows up in the list
	resp4, err := http.Get(testServer.URL + "/api/v1/runs")
	if err != nil {
		t.Fatalf("list after submit: %v", err)
	}
	defer func() { _ = resp4.Body.Close() }()

	var listed []map[string]any
	if err := json.NewDecoder(resp4.Body).Decode(&listed); err != nil {
		t.Fatalf("decode listed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 run, got %d", len(listed))
	}
}

func TestSubmitValidation(t *testing.T) {
	// Missing topic should return 400
	body, _ := json.Marshal(map[string]any{
		"content_type": "article",
	})

	resp, err := http.Post(testServer.URL+"/api/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit without topic: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetNonexistentRun(t *testing.T) {
	resp, err := http.Get(testServer.URL + "/api/v1/runs/00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("get nonexistent: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCancelRun(t *testing.T) {
	cleanDB(testPool)

	id := submitRun(t, map[string]any{
		"topic":      "capacity planning worksheet",
		"complexity": "comprehensive",
	})

	resp, err := http.Post(testServer.URL+"/api/v1/runs/"+id+"/cancel", "application/json", http.NoBody)
	if err != nil {
		t.Fatalf("cancel run: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	final := waitTerminal(t, id)
	// The pipeline may already have finished when the cancel landed, so
	// any terminal state is acceptable; the normal outcome is aborted.
	if final.Run.Status == "aborted" && final.Run.Reason == "" {
		t.Error("expected a reason on the aborted run")
	}
}
