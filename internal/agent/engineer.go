package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/autodevcrew/crew/internal/provider"
	"github.com/autodevcrew/crew/internal/provider/shared"
)

// Engineer generates code for a task description via the configured model.
type Engineer struct {
	provider    provider.Provider
	language    string
	temperature float64
	maxTokens   int
}

// NewEngineer creates the Engineer agent.
func NewEngineer(p provider.Provider, language string, temperature float64, maxTokens int) *Engineer {
	if language == "" {
		language = "python"
	}
	return &Engineer{
		provider:    p,
		language:    language,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Language returns the target language for generated code.
func (e *Engineer) Language() string { return e.language }

// Generate asks the model for an implementation of the task.
func (e *Engineer) Generate(ctx context.Context, task string) (*shared.Response, string, error) {
	req := &shared.Request{
		System: fmt.Sprintf(
			"You are a senior %s engineer. Respond with a single fenced code block containing a complete, runnable implementation. No explanation outside the block.",
			e.language),
		Prompt:      fmt.Sprintf("Task: %s", task),
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("engineer: %w", err)
	}

	code := ExtractCode(resp.Text)
	if strings.TrimSpace(code) == "" {
		return resp, "", fmt.Errorf("engineer: model returned no code")
	}
	return resp, code, nil
}

// ExtractCode pulls the first fenced code block out of a model response.
// Responses without fences are returned as-is.
func ExtractCode(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return strings.TrimSpace(text)
	}

	rest := text[start+3:]
	// Drop the language tag on the fence line
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		firstLine := strings.TrimSpace(rest[:nl])
		if len(firstLine) <= 20 && !strings.ContainsAny(firstLine, " \t") {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}
