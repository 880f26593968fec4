package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/autodevcrew/crew/internal/provider/shared"
)

func TestGenerate(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response":          "print('hello')",
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        34,
		})
	}))
	defer ts.Close()

	p := NewProvider(ts.URL, "codellama", nil)
	resp, err := p.Generate(context.Background(), &shared.Request{
		System:      "be terse",
		Prompt:      "print hello",
		Temperature: 0.4,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if resp.Text != "print('hello')" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 34 {
		t.Errorf("tokens = %d/%d, want 12/34", resp.InputTokens, resp.OutputTokens)
	}
	if resp.CostUSD != 0 {
		t.Errorf("CostUSD = %f, want 0 for local inference", resp.CostUSD)
	}

	if gotBody["model"] != "codellama" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
	opts, ok := gotBody["options"].(map[string]any)
	if !ok {
		t.Fatalf("options missing: %v", gotBody)
	}
	if opts["num_predict"] != float64(256) {
		t.Errorf("num_predict = %v, want 256", opts["num_predict"])
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"empty response", http.StatusOK, `{"response":"","done":true}`},
		{"invalid json", http.StatusOK, `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer ts.Close()

			p := NewProvider(ts.URL, "codellama", nil)
			if _, err := p.Generate(context.Background(), &shared.Request{Prompt: "x"}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s, want /api/tags", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewProvider(ts.URL, "", nil)
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error: %v", err)
	}

	down := NewProvider("http://127.0.0.1:1", "", nil)
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Error("expected error for unreachable runtime")
	}
}
