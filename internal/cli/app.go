package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/autodevcrew/crew/internal/agent"
	"github.com/autodevcrew/crew/internal/config"
	"github.com/autodevcrew/crew/internal/costcontrol"
	"github.com/autodevcrew/crew/internal/deploy"
	"github.com/autodevcrew/crew/internal/dispatcher"
	crewgithub "github.com/autodevcrew/crew/internal/github"
	"github.com/autodevcrew/crew/internal/history"
	"github.com/autodevcrew/crew/internal/lightweight"
	"github.com/autodevcrew/crew/internal/orchestrator"
	"github.com/autodevcrew/crew/internal/privacy"
	"github.com/autodevcrew/crew/internal/provider"
	"github.com/autodevcrew/crew/internal/server"
	"github.com/autodevcrew/crew/internal/taskstore"
)

// App bundles the assembled pipeline components for one process.
type App struct {
	Cfg     *config.Config
	Privacy *privacy.Manager
	Light   *lightweight.Mode
	Tester  *agent.Tester
	Orch    *orchestrator.Orchestrator
	Tracker *costcontrol.CostTracker
	Store   *taskstore.Store
	History *history.Store
}

// NewApp wires the agents, stores and guards from configuration. It is used
// by both the CLI and the MCP server entry points.
func NewApp(cfg *config.Config) (*App, error) {
	level, err := privacy.ParseLevel(cfg.PrivacyLevel)
	if err != nil {
		return nil, err
	}
	pm, err := privacy.NewManager(level, "")
	if err != nil {
		return nil, fmt.Errorf("initialize privacy manager: %w", err)
	}
	if cfg.RetentionPolicy != "" {
		retention, err := privacy.ParseRetention(cfg.RetentionPolicy)
		if err != nil {
			return nil, err
		}
		pm.SetRetention(retention)
	}

	model := cfg.Model
	maxTokens := cfg.MaxTokens
	simulateDeploy := pm.Retention() == privacy.RetainAutoPurge

	var light *lightweight.Mode
	if cfg.Lightweight {
		light = lightweight.New("")
		preset := light.AgentPreset("engineer")
		if name, ok := preset["model"].(string); ok {
			model = name
		}
		if tokens, ok := preset["max_tokens"].(int); ok {
			maxTokens = tokens
		}
		if devopsPreset := light.AgentPreset("devops"); devopsPreset["simulate_only"] == true {
			simulateDeploy = true
		}
		log.Printf("[App] Lightweight mode: quantization=%s model=%s", light.Quantization, model)
	}

	p, err := provider.NewProvider(&provider.Config{
		Name:          cfg.Provider,
		Model:         model,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		HTTPClient:    pm.Client(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize provider: %w", err)
	}
	log.Printf("[App] Provider: %s", p.Name())

	engineer := agent.NewEngineer(p, cfg.Language, cfg.Temperature, maxTokens)
	tester := agent.NewTester(cfg.Language)
	devops := agent.NewDevOps(cfg.Language, cfg.TestCommand, cfg.RunCommand, simulateDeploy)
	summarizer := agent.NewSummarizer(p)

	tracker := costcontrol.NewCostTracker(cfg.DailyCallLimit, cfg.PerTaskCostLimit, cfg.CostAlertLevel)
	store := taskstore.NewStore()

	hist, err := history.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open task history: %w", err)
	}

	orch := orchestrator.New(engineer, tester, devops, summarizer).
		WithTracker(tracker).
		WithStore(store).
		WithHistory(hist).
		WithPrivacy(pm)

	return &App{
		Cfg:     cfg,
		Privacy: pm,
		Light:   light,
		Tester:  tester,
		Orch:    orch,
		Tracker: tracker,
		Store:   store,
		History: hist,
	}, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}

// RunTask executes one pipeline run synchronously and returns the result.
func (a *App) RunTask(ctx context.Context, description, project, priority string) (*orchestrator.Result, error) {
	task := &orchestrator.Task{
		ID:          uuid.NewString(),
		Description: description,
		Project:     project,
		Priority:    priority,
	}

	if err := a.Store.Create(&taskstore.Task{
		ID:          task.ID,
		Description: task.Description,
		Project:     task.Project,
		Priority:    task.Priority,
	}); err != nil {
		return nil, err
	}

	return a.Orch.Run(ctx, task)
}

// Serve starts the HTTP API and task UI, blocking until the listener fails.
func (a *App) Serve(ctx context.Context) error {
	if a.Privacy.Level() == privacy.LevelStrict && !a.Privacy.AllowHost(a.Cfg.Host) {
		return fmt.Errorf("strict privacy level forbids binding to %s; use localhost or lower the privacy level", a.Cfg.Host)
	}

	d := dispatcher.New(a.Orch, dispatcher.Config{
		Workers:           a.Cfg.DispatcherWorkers,
		QueueSize:         a.Cfg.DispatcherQueueSize,
		MaxAttempts:       a.Cfg.DispatcherMaxAttempts,
		InitialBackoff:    a.Cfg.DispatcherRetryInitial,
		BackoffMultiplier: a.Cfg.DispatcherBackoffMultiplier,
		MaxBackoff:        a.Cfg.DispatcherRetryMax,
	})
	defer d.Shutdown(ctx)

	srv := server.New(d, a.Store).
		WithHistory(a.History).
		WithPrivacy(a.Privacy).
		WithTracker(a.Tracker).
		WithWebhookSecret(a.Cfg.GitHubWebhookSecret)

	router, err := srv.Router()
	if err != nil {
		return err
	}

	addr := a.Cfg.Address()
	log.Printf("[App] Server listening on %s", addr)
	log.Printf("[App] Task UI: http://%s/", addr)
	log.Printf("[App] API: http://%s/api/tasks", addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

// gitHubClient builds an authenticated client from config, refusing when the
// privacy level forbids external API traffic. A personal access token wins;
// App credentials mint an installation token as the fallback.
func (a *App) gitHubClient(ctx context.Context) (*crewgithub.Client, error) {
	if !a.Privacy.AllowOperation("github_api") {
		return nil, fmt.Errorf("privacy level %s forbids GitHub API access", a.Privacy.Level())
	}
	if a.Cfg.GitHubRepository == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY is not configured")
	}

	token := a.Cfg.GitHubToken
	if token == "" && a.Cfg.GitHubAppID != "" && a.Cfg.GitHubPrivateKey != "" {
		auth := &crewgithub.AppAuth{
			AppID:      a.Cfg.GitHubAppID,
			PrivateKey: a.Cfg.GitHubPrivateKey,
			HTTPClient: a.Privacy.Client(),
		}
		minted, err := auth.InstallationTokenFor(ctx, a.Cfg.GitHubRepository)
		if err != nil {
			return nil, fmt.Errorf("mint App installation token: %w", err)
		}
		token = minted.Token
	}
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN (or GITHUB_APP_ID with GITHUB_PRIVATE_KEY) is not configured")
	}

	return crewgithub.NewClient(token, a.Cfg.GitHubRepository)
}

// issueFromHistory files a GitHub issue describing a stored task run.
func (a *App) issueFromHistory(ctx context.Context, client *crewgithub.Client, taskID int64) (string, error) {
	record, err := a.History.Task(taskID)
	if err != nil {
		return "", err
	}
	code, err := a.History.Code(taskID)
	if err != nil {
		return "", err
	}

	var summary agent.Summary
	result := &crewgithub.TaskResult{
		Task:          record.Description,
		GeneratedCode: code,
	}
	if err := a.History.TaskSummary(taskID, &summary); err == nil {
		result.Success = summary.Success
		result.ExecutionTime = summary.ExecutionTime
		result.TestReport = summary.SummaryReport
	}

	return client.CreateIssueFromResult(ctx, result)
}

// DeployCode packages code for the target platform through the privacy guard.
func (a *App) DeployCode(ctx context.Context, target deploy.Target, code string) (*deploy.Result, error) {
	if !a.Privacy.AllowOperation("space_upload") {
		return nil, fmt.Errorf("privacy level %s forbids cloud deployment", a.Privacy.Level())
	}

	opts := deploy.Options{
		SpaceName:  a.Cfg.SpaceName,
		Hardware:   a.Cfg.HardwareTier,
		Token:      a.Cfg.HuggingFaceToken,
		Private:    a.Cfg.SpaceVisibility == "private",
		HTTPClient: a.Privacy.Client(),
	}
	return deploy.New("").Deploy(ctx, target, code, opts)
}
