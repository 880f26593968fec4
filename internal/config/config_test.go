package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.PrivacyLevel != "strict" {
		t.Errorf("PrivacyLevel = %s, want strict (default)", cfg.PrivacyLevel)
	}
	if cfg.RetentionPolicy != "local_only" {
		t.Errorf("RetentionPolicy = %s, want local_only (default)", cfg.RetentionPolicy)
	}
	if cfg.Provider != "ollama" {
		t.Errorf("Provider = %s, want ollama (default)", cfg.Provider)
	}
	if cfg.Model != "codellama" {
		t.Errorf("Model = %s, want codellama (default)", cfg.Model)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000 (default)", cfg.Port)
	}
	if cfg.DatabasePath != "crew.db" {
		t.Errorf("DatabasePath = %s, want crew.db (default)", cfg.DatabasePath)
	}
	if cfg.DispatcherWorkers != 4 {
		t.Errorf("DispatcherWorkers = %d, want 4", cfg.DispatcherWorkers)
	}
	if cfg.DispatcherRetryInitial != 15*time.Second {
		t.Errorf("DispatcherRetryInitial = %s, want 15s", cfg.DispatcherRetryInitial)
	}
	if cfg.DispatcherRetryMax != 300*time.Second {
		t.Errorf("DispatcherRetryMax = %s, want 5m", cfg.DispatcherRetryMax)
	}
	if cfg.Address() != "0.0.0.0:8000" {
		t.Errorf("Address() = %s, want 0.0.0.0:8000", cfg.Address())
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "crew.yaml")
	content := `
privacy_level: moderate
provider: ollama
model: mistral
temperature: 0.3
max_tokens: 1024
port: 9000
language: go
database_path: /tmp/test-crew.db
daily_call_limit: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PrivacyLevel != "moderate" {
		t.Errorf("PrivacyLevel = %s, want moderate", cfg.PrivacyLevel)
	}
	if cfg.Model != "mistral" {
		t.Errorf("Model = %s, want mistral", cfg.Model)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("Temperature = %f, want 0.3", cfg.Temperature)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.Language != "go" {
		t.Errorf("Language = %s, want go", cfg.Language)
	}
	if cfg.DailyCallLimit != 50 {
		t.Errorf("DailyCallLimit = %d, want 50", cfg.DailyCallLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREW_PRIVACY_LEVEL", "open")
	t.Setenv("CREW_MODEL", "llama3")
	t.Setenv("CREW_PORT", "7777")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PrivacyLevel != "open" {
		t.Errorf("PrivacyLevel = %s, want open", cfg.PrivacyLevel)
	}
	if cfg.Model != "llama3" {
		t.Errorf("Model = %s, want llama3", cfg.Model)
	}
	if cfg.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Port)
	}
	if cfg.OllamaBaseURL != "http://ollama:11434" {
		t.Errorf("OllamaBaseURL = %s", cfg.OllamaBaseURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "invalid privacy level",
			env:     map[string]string{"CREW_PRIVACY_LEVEL": "paranoid"},
			wantErr: "invalid privacy level",
		},
		{
			name:    "invalid provider",
			env:     map[string]string{"CREW_PROVIDER": "claude"},
			wantErr: "invalid provider",
		},
		{
			name:    "openai without key",
			env:     map[string]string{"CREW_PROVIDER": "openai"},
			wantErr: "OPENAI_API_KEY is required",
		},
		{
			name:    "port out of range",
			env:     map[string]string{"CREW_PORT": "70000"},
			wantErr: "invalid port",
		},
		{
			name:    "temperature out of range",
			env:     map[string]string{"CREW_TEMPERATURE": "3.5"},
			wantErr: "temperature must be between",
		},
		{
			name:    "invalid retention policy",
			env:     map[string]string{"CREW_RETENTION_POLICY": "forever"},
			wantErr: "invalid retention policy",
		},
		{
			name:    "unsupported language",
			env:     map[string]string{"CREW_LANGUAGE": "rust"},
			wantErr: "invalid language",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePrivateKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "-----BEGIN KEY-----\nabc\n-----END KEY-----", "-----BEGIN KEY-----\nabc\n-----END KEY-----"},
		{"escaped newlines", `-----BEGIN KEY-----\nabc\n-----END KEY-----`, "-----BEGIN KEY-----\nabc\n-----END KEY-----"},
		{"quoted", `"-----BEGIN KEY-----\nabc\n-----END KEY-----"`, "-----BEGIN KEY-----\nabc\n-----END KEY-----"},
		{"crlf", "-----BEGIN KEY-----\r\nabc\r\n-----END KEY-----", "-----BEGIN KEY-----\nabc\n-----END KEY-----"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePrivateKey(tt.in); got != tt.want {
				t.Errorf("normalizePrivateKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

// clearEnv unsets every variable Load reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CREW_PRIVACY_LEVEL", "CREW_PROVIDER", "CREW_MODEL", "CREW_TEMPERATURE",
		"CREW_MAX_TOKENS", "OLLAMA_BASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"CREW_HOST", "CREW_PORT", "CREW_DATABASE_PATH", "CREW_LANGUAGE",
		"CREW_RETENTION_POLICY",
		"DISPATCHER_WORKERS", "DISPATCHER_QUEUE_SIZE", "DISPATCHER_MAX_ATTEMPTS",
		"DISPATCHER_RETRY_SECONDS", "DISPATCHER_RETRY_MAX_SECONDS", "DISPATCHER_BACKOFF_MULTIPLIER",
		"GITHUB_APP_ID", "GITHUB_PRIVATE_KEY", "GITHUB_WEBHOOK_SECRET",
		"GITHUB_TOKEN", "GITHUB_REPOSITORY", "HF_TOKEN",
	} {
		t.Setenv(key, "")
	}
}
