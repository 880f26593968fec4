package provider

import (
	"fmt"
	"net/http"

	"github.com/autodevcrew/crew/internal/provider/ollama"
	"github.com/autodevcrew/crew/internal/provider/openai"
)

// Config contains provider configuration
type Config struct {
	// Provider name: "ollama" or "openai"
	Name string

	// Model identifier passed through to the backend
	Model string

	// Ollama configuration
	OllamaBaseURL string

	// OpenAI-compatible configuration
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// HTTPClient carries the privacy network guard; nil means default client
	HTTPClient *http.Client
}

// NewProvider creates a provider based on configuration
func NewProvider(cfg *Config) (Provider, error) {
	switch cfg.Name {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewProvider(baseURL, cfg.Model, cfg.HTTPClient), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY is required")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model, cfg.HTTPClient), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: ollama, openai)", cfg.Name)
	}
}
