package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config/development.yaml"

// Config holds all configuration for the crew service
type Config struct {
	// Privacy settings
	PrivacyLevel    string `yaml:"privacy_level"`    // "strict", "moderate" or "open"
	RetentionPolicy string `yaml:"retention_policy"` // "local_only", "encrypted" or "auto_purge"
	Lightweight     bool   `yaml:"lightweight"`

	// Model provider settings
	Provider      string  `yaml:"provider"` // "ollama" or "openai"
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	OllamaBaseURL string  `yaml:"ollama_base_url"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`

	// Server settings
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Persistence
	DatabasePath string `yaml:"database_path"`

	// Generated code settings
	Language    string `yaml:"language"`
	TestCommand string `yaml:"test_command"`
	RunCommand  string `yaml:"run_command"`

	// Dispatcher settings
	DispatcherWorkers           int     `yaml:"dispatcher_workers"`
	DispatcherQueueSize         int     `yaml:"dispatcher_queue_size"`
	DispatcherMaxAttempts       int     `yaml:"dispatcher_max_attempts"`
	DispatcherRetrySeconds      int     `yaml:"dispatcher_retry_seconds"`
	DispatcherRetryMaxSeconds   int     `yaml:"dispatcher_retry_max_seconds"`
	DispatcherBackoffMultiplier float64 `yaml:"dispatcher_backoff_multiplier"`

	// Derived from the retry second counts after load
	DispatcherRetryInitial time.Duration `yaml:"-"`
	DispatcherRetryMax     time.Duration `yaml:"-"`

	// Cost control
	DailyCallLimit   int     `yaml:"daily_call_limit"`
	PerTaskCostLimit float64 `yaml:"per_task_cost_limit"`
	CostAlertLevel   float64 `yaml:"cost_alert_level"`

	// GitHub integration (secrets come from the environment only)
	GitHubAppID         string `yaml:"github_app_id"`
	GitHubPrivateKey    string `yaml:"-"`
	GitHubWebhookSecret string `yaml:"-"`
	GitHubToken         string `yaml:"-"`
	GitHubRepository    string `yaml:"github_repository"`

	// Deployment
	HuggingFaceToken string `yaml:"-"`
	SpaceName        string `yaml:"space_name"`
	SpaceVisibility  string `yaml:"space_visibility"`
	HardwareTier     string `yaml:"hardware_tier"`
}

// Load reads the YAML config file (if present) and applies environment
// variable overrides. A missing file is not an error: every field has a
// default or an env source.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDispatcherDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		PrivacyLevel:                "strict",
		RetentionPolicy:             "local_only",
		Provider:                    "ollama",
		Model:                       "codellama",
		Temperature:                 0.7,
		MaxTokens:                   2048,
		OllamaBaseURL:               "http://localhost:11434",
		Host:                        "0.0.0.0",
		Port:                        8000,
		DatabasePath:                "crew.db",
		Language:                    "python",
		DispatcherWorkers:           4,
		DispatcherQueueSize:         16,
		DispatcherMaxAttempts:       3,
		DispatcherRetrySeconds:      15,
		DispatcherRetryMaxSeconds:   300,
		DispatcherBackoffMultiplier: 2.0,
		DailyCallLimit:              200,
		PerTaskCostLimit:            2.0,
		CostAlertLevel:              10.0,
		SpaceName:                   "crew",
		SpaceVisibility:             "public",
		HardwareTier:                "cpu-basic",
	}
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv() {
	c.PrivacyLevel = getEnv("CREW_PRIVACY_LEVEL", c.PrivacyLevel)
	c.RetentionPolicy = getEnv("CREW_RETENTION_POLICY", c.RetentionPolicy)
	c.Provider = getEnv("CREW_PROVIDER", c.Provider)
	c.Model = getEnv("CREW_MODEL", c.Model)
	c.Temperature = getEnvFloat("CREW_TEMPERATURE", c.Temperature)
	c.MaxTokens = getEnvInt("CREW_MAX_TOKENS", c.MaxTokens)
	c.OllamaBaseURL = getEnv("OLLAMA_BASE_URL", c.OllamaBaseURL)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.Host = getEnv("CREW_HOST", c.Host)
	c.Port = getEnvInt("CREW_PORT", c.Port)
	c.DatabasePath = getEnv("CREW_DATABASE_PATH", c.DatabasePath)
	c.Language = getEnv("CREW_LANGUAGE", c.Language)

	c.DispatcherWorkers = getEnvInt("DISPATCHER_WORKERS", c.DispatcherWorkers)
	c.DispatcherQueueSize = getEnvInt("DISPATCHER_QUEUE_SIZE", c.DispatcherQueueSize)
	c.DispatcherMaxAttempts = getEnvInt("DISPATCHER_MAX_ATTEMPTS", c.DispatcherMaxAttempts)
	c.DispatcherRetrySeconds = getEnvInt("DISPATCHER_RETRY_SECONDS", c.DispatcherRetrySeconds)
	c.DispatcherRetryMaxSeconds = getEnvInt("DISPATCHER_RETRY_MAX_SECONDS", c.DispatcherRetryMaxSeconds)
	c.DispatcherBackoffMultiplier = getEnvFloat("DISPATCHER_BACKOFF_MULTIPLIER", c.DispatcherBackoffMultiplier)

	c.GitHubAppID = getEnv("GITHUB_APP_ID", c.GitHubAppID)
	c.GitHubPrivateKey = normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY"))
	c.GitHubWebhookSecret = getEnv("GITHUB_WEBHOOK_SECRET", c.GitHubWebhookSecret)
	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
	c.GitHubRepository = getEnv("GITHUB_REPOSITORY", c.GitHubRepository)

	c.HuggingFaceToken = getEnv("HF_TOKEN", c.HuggingFaceToken)
}

func (c *Config) applyDispatcherDefaults() {
	if c.DispatcherWorkers <= 0 {
		c.DispatcherWorkers = 4
	}
	if c.DispatcherQueueSize <= 0 {
		c.DispatcherQueueSize = 16
	}
	if c.DispatcherMaxAttempts <= 0 {
		c.DispatcherMaxAttempts = 3
	}
	if c.DispatcherRetrySeconds <= 0 {
		c.DispatcherRetrySeconds = 15
	}
	if c.DispatcherRetryMaxSeconds < c.DispatcherRetrySeconds {
		c.DispatcherRetryMaxSeconds = 300
	}
	if c.DispatcherBackoffMultiplier < 1 {
		c.DispatcherBackoffMultiplier = 2
	}
	c.DispatcherRetryInitial = time.Duration(c.DispatcherRetrySeconds) * time.Second
	c.DispatcherRetryMax = time.Duration(c.DispatcherRetryMaxSeconds) * time.Second
}

// validate checks that configuration values are usable
func (c *Config) validate() error {
	switch c.PrivacyLevel {
	case "strict", "moderate", "open":
	default:
		return fmt.Errorf("invalid privacy level: %s (must be 'strict', 'moderate' or 'open')", c.PrivacyLevel)
	}

	switch c.Provider {
	case "ollama":
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("ollama_base_url is required for ollama provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai provider")
		}
	default:
		return fmt.Errorf("invalid provider: %s (must be 'ollama' or 'openai')", c.Provider)
	}

	switch c.RetentionPolicy {
	case "local_only", "encrypted", "auto_purge":
	default:
		return fmt.Errorf("invalid retention policy: %s (must be 'local_only', 'encrypted' or 'auto_purge')", c.RetentionPolicy)
	}

	switch c.Language {
	case "python", "go", "javascript":
	default:
		return fmt.Errorf("invalid language: %s (must be 'python', 'go' or 'javascript')", c.Language)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be greater than 0")
	}

	return nil
}

// Address returns the host:port the server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
