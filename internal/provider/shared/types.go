// Package shared holds the request/response types common to all model
// providers.
package shared

// Request is a single text generation request against a model.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response carries the model output and accounting information.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}
