package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/autodevcrew/crew/internal/provider"
	"github.com/autodevcrew/crew/internal/provider/shared"
)

// Summary is the final report handed back to the user.
type Summary struct {
	SummaryReport string  `json:"summary_report"`
	Narrative     string  `json:"narrative,omitempty"`
	Success       bool    `json:"success"`
	ExecutionTime float64 `json:"execution_time"`
}

// Summarizer condenses a pipeline run into a report. The model narrative is
// best-effort: every run gets a deterministic report even when the provider
// is blocked or down.
type Summarizer struct {
	provider provider.Provider
}

// NewSummarizer creates the Summarizer agent. A nil provider disables the
// narrative and keeps only the deterministic report.
func NewSummarizer(p provider.Provider) *Summarizer {
	return &Summarizer{provider: p}
}

// Summarize produces the final report for a run.
func (s *Summarizer) Summarize(ctx context.Context, task, code, testReport, deployStatus string, success bool, elapsed time.Duration) *Summary {
	summary := &Summary{
		Success:       success,
		ExecutionTime: elapsed.Seconds(),
	}

	summary.SummaryReport = buildReport(task, code, testReport, deployStatus, success, elapsed)

	if s.provider != nil {
		narrative, err := s.narrative(ctx, task, testReport, deployStatus)
		if err != nil {
			log.Printf("[Summarizer] Narrative unavailable: %v", err)
		} else {
			summary.Narrative = narrative
		}
	}

	return summary
}

func (s *Summarizer) narrative(ctx context.Context, task, testReport, deployStatus string) (string, error) {
	req := &shared.Request{
		System: "You summarize software delivery runs in two sentences for a status report.",
		Prompt: fmt.Sprintf("Task: %s\nTest report: %s\nDeployment: %s", task, testReport, deployStatus),
		// Low temperature: reports should be stable
		Temperature: 0.2,
		MaxTokens:   256,
	}
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func buildReport(task, code, testReport, deployStatus string, success bool, elapsed time.Duration) string {
	status := "FAILED"
	if success {
		status = "SUCCESS"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Execution time: %.2fs\n", elapsed.Seconds())
	fmt.Fprintf(&b, "Generated code: %d lines\n", strings.Count(code, "\n")+1)
	b.WriteString("\n--- Test Report ---\n")
	b.WriteString(testReport)
	b.WriteString("\n\n--- Deployment ---\n")
	b.WriteString(deployStatus)
	return b.String()
}
