package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boobootoo2/medbilldozer-sub001/internal/core/domain"
	"github.com/boobootoo2/medbilldozer-sub001/internal/infrastructure/resilience"
)

func newTestClient(url string) *Client {
	return New(url, 0, 0, resilience.NewExecutor(resilience.Policy{
		MaxAttempts:    1,
		BreakerEnabled: false,
	}))
}

func TestRunnerSendsModelAndTokenBudget(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"facts\":{}}"}`))
	}))
	defer server.Close()

	runner := NewRunner(newTestClient(server.URL), "llama3.2")
	out, err := runner.RunStructuredPrompt(context.Background(), "extract", 1024)
	if err != nil {
		t.Fatalf("RunStructuredPrompt() error = %v", err)
	}
	if out != `{"facts":{}}` {
		t.Fatalf("unexpected response text: %s", out)
	}
	if captured["model"] != "llama3.2" {
		t.Errorf("model = %v, want llama3.2", captured["model"])
	}
	options, _ := captured["options"].(map[string]any)
	if options["num_predict"] != float64(1024) {
		t.Errorf("num_predict = %v, want 1024", options["num_predict"])
	}
}

func TestGenerateSurfacesHTTPBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	runner := NewRunner(newTestClient(server.URL), "missing")
	_, err := runner.RunStructuredPrompt(context.Background(), "extract", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestProviderMapsFindings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := `{"issues": [{"type": "Duplicate Charge", "summary": "99213 billed twice",
"evidence": "lines 4 and 9", "estimated_savings": "$150.00", "confidence": 0.8},
{"type": "", "summary": ""}]}`
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	defer server.Close()

	provider := NewProvider(newTestClient(server.URL), "llama3.2", "")
	if provider.Name() != "ollama/llama3.2" {
		t.Fatalf("default name = %s", provider.Name())
	}

	issues, err := provider.AnalyzeDocument(context.Background(), "doc text", domain.NewFactSet())
	if err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1 (blank summary dropped)", len(issues))
	}
	issue := issues[0]
	if issue.Type != domain.IssueDuplicateCharge {
		t.Errorf("type = %s, want %s", issue.Type, domain.IssueDuplicateCharge)
	}
	if issue.MaxSavingsCents != 15000 {
		t.Errorf("savings = %d, want 15000", issue.MaxSavingsCents)
	}
	if issue.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", issue.Confidence)
	}
	if issue.Source != domain.IssueSourceExternal {
		t.Errorf("source = %s, want external", issue.Source)
	}
}

func TestProviderRepairsTruncatedFindings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := `{"issues": [{"type": "upcoding", "summary": "99215 for a brief visit", "estimated_savings": 120.50`
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	defer server.Close()

	provider := NewProvider(newTestClient(server.URL), "llama3.2", "auditor")
	issues, err := provider.AnalyzeDocument(context.Background(), "doc text", domain.NewFactSet())
	if err != nil {
		t.Fatalf("AnalyzeDocument() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].MaxSavingsCents != 12050 {
		t.Errorf("savings = %d, want 12050", issues[0].MaxSavingsCents)
	}
	if issues[0].Confidence != domain.ConfidenceMedium {
		t.Errorf("missing confidence should default to medium, got %v", issues[0].Confidence)
	}
}

func TestProviderHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer healthy.Close()

	provider := NewProvider(newTestClient(healthy.URL), "llama3.2", "auditor")
	if !provider.HealthCheck(context.Background()) {
		t.Fatalf("expected healthy provider")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading", http.StatusServiceUnavailable)
	}))
	down.Close()

	provider = NewProvider(newTestClient(down.URL), "llama3.2", "auditor")
	if provider.HealthCheck(context.Background()) {
		t.Fatalf("expected unhealthy provider")
	}
}
