package github

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// WorkflowOptions tunes the generated GitHub Actions workflow.
type WorkflowOptions struct {
	Name            string
	Branches        []string
	Environments    []string
	AdditionalSteps []map[string]any
}

// GenerateWorkflow builds the Actions workflow YAML that runs the pipeline
// on workflow_dispatch, pushes and pull requests.
func GenerateWorkflow(opts WorkflowOptions) (string, error) {
	if opts.Name == "" {
		opts.Name = "crew-pipeline"
	}
	if len(opts.Branches) == 0 {
		opts.Branches = []string{"main", "master"}
	}
	if len(opts.Environments) == 0 {
		opts.Environments = []string{"development", "staging", "production"}
	}

	steps := []map[string]any{
		{
			"name": "Checkout repository",
			"uses": "actions/checkout@v4",
		},
		{
			"name": "Set up Go",
			"uses": "actions/setup-go@v5",
			"with": map[string]any{"go-version": "stable"},
		},
		{
			"name": "Build crew",
			"run":  "go build ./...",
		},
		{
			"name": "Run crew pipeline",
			"env": map[string]any{
				"GITHUB_TOKEN":     "${{ secrets.GITHUB_TOKEN }}",
				"TASK_DESCRIPTION": "${{ github.event.inputs.task_description }}",
			},
			"run": `./crew --task "$TASK_DESCRIPTION" --project github-actions`,
		},
		{
			"name": "Upload artifacts",
			"uses": "actions/upload-artifact@v4",
			"with": map[string]any{
				"name": "crew-output",
				"path": "crew.db",
			},
		},
	}
	steps = append(steps, opts.AdditionalSteps...)

	workflow := map[string]any{
		"name": opts.Name,
		"on": map[string]any{
			"workflow_dispatch": map[string]any{
				"inputs": map[string]any{
					"task_description": map[string]any{
						"description": "Pipeline task description",
						"required":    true,
						"type":        "string",
					},
					"environment": map[string]any{
						"description": "Deployment environment",
						"required":    false,
						"default":     "development",
						"type":        "choice",
						"options":     opts.Environments,
					},
				},
			},
			"push": map[string]any{
				"branches": opts.Branches,
			},
			"pull_request": map[string]any{
				"branches": opts.Branches,
			},
		},
		"jobs": map[string]any{
			"crew-pipeline": map[string]any{
				"runs-on": "ubuntu-latest",
				"steps":   steps,
			},
			"deploy": map[string]any{
				"runs-on": "ubuntu-latest",
				"needs":   []string{"crew-pipeline"},
				"if":      "github.event.inputs.environment == 'production'",
				"steps": []map[string]any{
					{
						"name": "Deploy to production",
						"run":  "echo 'Deploying generated code to production...'",
					},
				},
			},
		},
	}

	out, err := yaml.Marshal(workflow)
	if err != nil {
		return "", fmt.Errorf("marshal workflow: %w", err)
	}
	return string(out), nil
}

// WriteWorkflow generates the default workflow and saves it to outputPath.
func WriteWorkflow(outputPath string) (string, error) {
	content, err := GenerateWorkflow(WorkflowOptions{})
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("create workflow dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write workflow: %w", err)
	}
	return outputPath, nil
}
