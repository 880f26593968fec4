package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Target identifies a supported deployment destination.
type Target string

const (
	TargetHuggingFace Target = "huggingface"
	TargetColab       Target = "colab"
)

// ParseTarget validates a deployment target name.
func ParseTarget(s string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case TargetHuggingFace:
		return TargetHuggingFace, nil
	case TargetColab:
		return TargetColab, nil
	default:
		return "", fmt.Errorf("unknown deployment target: %q (expected huggingface or colab)", s)
	}
}

// Options configure a deployment run.
type Options struct {
	SpaceName string
	SDK       string // gradio, docker or static
	Hardware  string // cpu-basic, cpu-upgrade, t4-small, ...
	Token     string
	Port      int
	Private   bool

	// HTTPClient is used for Hub API calls. When nil http.DefaultClient
	// is used, so callers should pass a privacy-guarded client.
	HTTPClient *http.Client
}

// Result describes the outcome of a deployment.
type Result struct {
	Target     Target   `json:"target"`
	Status     string   `json:"status"` // packaged or uploaded
	StagingDir string   `json:"staging_dir,omitempty"`
	URL        string   `json:"url,omitempty"`
	Files      []string `json:"files"`
	NextSteps  []string `json:"next_steps,omitempty"`
}

// Deployer packages a generated application for cloud platforms.
type Deployer struct {
	stagingRoot string
}

// New creates a Deployer that stages artifacts under root. An empty root
// defaults to "deploy_staging".
func New(root string) *Deployer {
	if root == "" {
		root = "deploy_staging"
	}
	return &Deployer{stagingRoot: root}
}

// Deploy packages code for the given target and, when credentials allow,
// uploads it.
func (d *Deployer) Deploy(ctx context.Context, target Target, code string, opts Options) (*Result, error) {
	switch target {
	case TargetHuggingFace:
		return d.deployHuggingFace(ctx, code, opts)
	case TargetColab:
		return d.packageColab(code, opts)
	default:
		return nil, fmt.Errorf("unknown deployment target: %q", target)
	}
}

func (d *Deployer) deployHuggingFace(ctx context.Context, code string, opts Options) (*Result, error) {
	if opts.SpaceName == "" {
		opts.SpaceName = fmt.Sprintf("crew-app-%d", time.Now().Unix())
	}
	if opts.SDK == "" {
		opts.SDK = "docker"
	}
	if opts.Hardware == "" {
		opts.Hardware = "cpu-basic"
	}
	if opts.Port == 0 {
		opts.Port = 7860
	}

	staging := filepath.Join(d.stagingRoot, opts.SpaceName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	files := map[string]string{
		"main.go":    code,
		"README.md":  spaceReadme(opts),
		"go.mod":     spaceGoMod(opts.SpaceName),
		".gitignore": "*.db\n*.log\n",
	}
	if opts.SDK == "docker" {
		files["Dockerfile"] = spaceDockerfile(opts.Port)
	}

	written := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(staging, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}

	result := &Result{
		Target:     TargetHuggingFace,
		Status:     "packaged",
		StagingDir: staging,
		Files:      written,
	}

	if opts.Token == "" {
		result.NextSteps = []string{
			"Set HF_TOKEN to enable automatic upload",
			fmt.Sprintf("Or push %s manually with `huggingface-cli upload`", staging),
		}
		return result, nil
	}

	url, err := d.createSpace(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, name := range written {
		if err := d.uploadFile(ctx, opts, filepath.Join(staging, name), name); err != nil {
			return nil, err
		}
	}

	result.Status = "uploaded"
	result.URL = url
	log.Printf("[Deployer] Space ready at %s", url)
	return result, nil
}

func (d *Deployer) createSpace(ctx context.Context, opts Options) (string, error) {
	payload := map[string]any{
		"name":     opts.SpaceName,
		"type":     "space",
		"sdk":      opts.SDK,
		"hardware": opts.Hardware,
		"private":  opts.Private,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal space request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://huggingface.co/api/repos/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create space request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+opts.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client(opts).Do(req)
	if err != nil {
		return "", fmt.Errorf("create space: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the space already exists, which is fine for re-deploys.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Hub API error: %d - %s", resp.StatusCode, string(data))
	}

	var created struct {
		URL string `json:"url"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	if created.URL != "" {
		return created.URL, nil
	}
	return "https://huggingface.co/spaces/" + opts.SpaceName, nil
}

func (d *Deployer) uploadFile(ctx context.Context, opts Options, localPath, remoteName string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	url := fmt.Sprintf("https://huggingface.co/api/spaces/%s/upload/main/%s", opts.SpaceName, remoteName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+opts.Token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client(opts).Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", remoteName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Hub API error uploading %s: %d - %s", remoteName, resp.StatusCode, string(body))
	}
	return nil
}

func (d *Deployer) client(opts Options) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	return http.DefaultClient
}

// packageColab writes a notebook that carries the generated code in a code
// cell, ready to open in Colab.
func (d *Deployer) packageColab(code string, opts Options) (*Result, error) {
	name := opts.SpaceName
	if name == "" {
		name = fmt.Sprintf("crew-notebook-%d", time.Now().Unix())
	}

	staging := filepath.Join(d.stagingRoot, name)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	notebook := map[string]any{
		"nbformat":       4,
		"nbformat_minor": 0,
		"metadata": map[string]any{
			"colab":      map[string]any{"provenance": []any{}},
			"kernelspec": map[string]any{"name": "python3", "display_name": "Python 3"},
		},
		"cells": []map[string]any{
			{
				"cell_type": "markdown",
				"metadata":  map[string]any{},
				"source":    []string{"# " + name + "\n", "Generated application code.\n"},
			},
			{
				"cell_type":       "code",
				"metadata":        map[string]any{},
				"execution_count": nil,
				"outputs":         []any{},
				"source":          notebookLines(code),
			},
		},
	}

	data, err := json.MarshalIndent(notebook, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal notebook: %w", err)
	}

	path := filepath.Join(staging, name+".ipynb")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write notebook: %w", err)
	}

	return &Result{
		Target:     TargetColab,
		Status:     "packaged",
		StagingDir: staging,
		Files:      []string{name + ".ipynb"},
		NextSteps: []string{
			"Upload the notebook at https://colab.research.google.com",
			"Or open it via File > Upload notebook",
		},
	}, nil
}

// notebookLines splits code into nbformat source lines, each keeping its
// trailing newline except the last.
func notebookLines(code string) []string {
	lines := strings.SplitAfter(code, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func spaceReadme(opts Options) string {
	front := map[string]any{
		"title":    opts.SpaceName,
		"emoji":    "🤖",
		"colorFrom": "blue",
		"colorTo":  "green",
		"sdk":      opts.SDK,
		"pinned":   false,
	}
	if opts.SDK == "docker" {
		front["app_port"] = opts.Port
	}

	meta, _ := yaml.Marshal(front)

	return fmt.Sprintf("---\n%s---\n\n# %s\n\nGenerated by the crew pipeline.\n", string(meta), opts.SpaceName)
}

func spaceDockerfile(port int) string {
	return fmt.Sprintf(`FROM golang:1.24-alpine AS build
WORKDIR /src
COPY . .
RUN go build -o /app/server .

FROM alpine:3.20
COPY --from=build /app/server /app/server
EXPOSE %d
CMD ["/app/server"]
`, port)
}

func spaceGoMod(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, name)
	return fmt.Sprintf("module %s\n\ngo 1.24\n", safe)
}
