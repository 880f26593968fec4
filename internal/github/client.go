package github

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/v66/github"
)

// Client wraps the GitHub API for the integration features: issue reports,
// workflow dispatch and webhook registration.
type Client struct {
	api   *gogithub.Client
	owner string
	repo  string
}

// NewClient creates a client for repo in "owner/repo" form.
func NewClient(token, repo string) (*Client, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid repo format: %s (expected owner/repo)", repo)
	}

	api := gogithub.NewClient(nil)
	if token != "" {
		api = api.WithAuthToken(token)
	}

	return &Client{
		api:   api,
		owner: parts[0],
		repo:  parts[1],
	}, nil
}

// TaskResult carries the fields the issue report needs.
type TaskResult struct {
	Task             string
	Success          bool
	ExecutionTime    float64
	GeneratedCode    string
	TestReport       string
	DeploymentStatus string
}

// CreateIssueFromResult opens a GitHub issue summarizing a pipeline run.
func (c *Client) CreateIssueFromResult(ctx context.Context, result *TaskResult) (string, error) {
	status := "Failed"
	if result.Success {
		status = "Success"
	}

	code := result.GeneratedCode
	if len(code) > 1000 {
		code = code[:1000] + "\n..."
	}

	body := fmt.Sprintf(`## Pipeline Task Result

**Task**: %s

### Results
- **Status**: %s
- **Execution Time**: %.2fs

### Generated Code
`+"```"+`
%s
`+"```"+`

### Test Results
%s

### Deployment
%s

### Next Steps
1. Review generated code
2. Run additional tests if needed
3. Merge if satisfactory
`, result.Task, status, result.ExecutionTime, code, result.TestReport, result.DeploymentStatus)

	title := result.Task
	if len(title) > 50 {
		title = title[:50] + "..."
	}
	title = "crew: " + title

	labels := []string{"crew", "generated"}
	issue, _, err := c.api.Issues.Create(ctx, c.owner, c.repo, &gogithub.IssueRequest{
		Title:  &title,
		Body:   &body,
		Labels: &labels,
	})
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	return issue.GetHTMLURL(), nil
}

// TriggerWorkflow fires the workflow_dispatch event for the pipeline
// workflow on branch.
func (c *Client) TriggerWorkflow(ctx context.Context, taskDescription, branch string) error {
	if branch == "" {
		branch = "main"
	}
	req := gogithub.CreateWorkflowDispatchEventRequest{
		Ref: branch,
		Inputs: map[string]interface{}{
			"task_description": taskDescription,
			"environment":      "development",
		},
	}
	_, err := c.api.Actions.CreateWorkflowDispatchEventByFileName(ctx, c.owner, c.repo, "crew.yml", req)
	if err != nil {
		return fmt.Errorf("trigger workflow: %w", err)
	}
	return nil
}

// CreateWebhook registers a webhook pointing at webhookURL and returns the
// generated shared secret.
func (c *Client) CreateWebhook(ctx context.Context, webhookURL string, events []string) (string, error) {
	if len(events) == 0 {
		events = []string{"push", "pull_request", "issues"}
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hook := &gogithub.Hook{
		Active: gogithub.Bool(true),
		Events: events,
		Config: &gogithub.HookConfig{
			URL:         gogithub.String(webhookURL),
			ContentType: gogithub.String("json"),
			Secret:      gogithub.String(secret),
		},
	}

	_, _, err := c.api.Repositories.CreateHook(ctx, c.owner, c.repo, hook)
	if err != nil {
		return "", fmt.Errorf("create webhook: %w", err)
	}
	return secret, nil
}
