package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSummarizeWithoutProvider(t *testing.T) {
	s := NewSummarizer(nil)

	summary := s.Summarize(context.Background(), "build a calculator", "code", "tests ok", "deployed", true, 3*time.Second)
	if !summary.Success {
		t.Error("Success = false, want true")
	}
	if summary.ExecutionTime != 3 {
		t.Errorf("ExecutionTime = %f, want 3", summary.ExecutionTime)
	}
	if summary.Narrative != "" {
		t.Errorf("Narrative should be empty without a provider, got %q", summary.Narrative)
	}
	if !strings.Contains(summary.SummaryReport, "Status: SUCCESS") {
		t.Errorf("report missing status: %s", summary.SummaryReport)
	}
	if !strings.Contains(summary.SummaryReport, "tests ok") {
		t.Errorf("report missing test section: %s", summary.SummaryReport)
	}
}

func TestSummarizeNarrative(t *testing.T) {
	fake := &fakeProvider{text: "  Everything went fine.  "}
	s := NewSummarizer(fake)

	summary := s.Summarize(context.Background(), "task", "code", "report", "status", true, time.Second)
	if summary.Narrative != "Everything went fine." {
		t.Errorf("Narrative = %q, want trimmed model text", summary.Narrative)
	}
	if fake.lastRequest.Temperature != 0.2 {
		t.Errorf("narrative temperature = %f, want 0.2", fake.lastRequest.Temperature)
	}
}

func TestSummarizeProviderFailureKeepsReport(t *testing.T) {
	fake := &fakeProvider{err: errors.New("model down")}
	s := NewSummarizer(fake)

	summary := s.Summarize(context.Background(), "task", "code", "report", "status", false, time.Second)
	if summary.Narrative != "" {
		t.Errorf("Narrative should be empty on provider failure, got %q", summary.Narrative)
	}
	if !strings.Contains(summary.SummaryReport, "Status: FAILED") {
		t.Errorf("deterministic report missing: %s", summary.SummaryReport)
	}
}
