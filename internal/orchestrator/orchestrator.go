// Package orchestrator coordinates the agent pipeline:
// User -> Engineer -> Tester -> DevOps -> Summarizer -> User.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/autodevcrew/crew/internal/agent"
	"github.com/autodevcrew/crew/internal/costcontrol"
	"github.com/autodevcrew/crew/internal/history"
	"github.com/autodevcrew/crew/internal/privacy"
	"github.com/autodevcrew/crew/internal/taskstore"
)

// Task is one unit of work submitted to the pipeline.
type Task struct {
	ID          string
	Description string
	Project     string
	Priority    string
	Attempt     int
}

// Message records one hop of agent collaboration.
type Message struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the outcome of a full pipeline execution.
type Result struct {
	Success          bool           `json:"success"`
	Task             string         `json:"task"`
	GeneratedCode    string         `json:"generated_code"`
	TestReport       string         `json:"test_report"`
	DeploymentStatus string         `json:"deployment_status"`
	Summary          *agent.Summary `json:"summary"`
	ExecutionTime    float64        `json:"execution_time"`
	History          []Message      `json:"history"`
	HistoryID        int64          `json:"history_id"`
}

// Orchestrator wires the agents together and persists each run.
type Orchestrator struct {
	engineer   *agent.Engineer
	tester     *agent.Tester
	devops     *agent.DevOps
	summarizer *agent.Summarizer

	tracker *costcontrol.CostTracker
	store   *taskstore.Store
	history *history.Store
	privacy *privacy.Manager
}

// New creates an orchestrator. The taskstore, history store and privacy
// manager are optional; a nil store simply skips that concern.
func New(engineer *agent.Engineer, tester *agent.Tester, devops *agent.DevOps, summarizer *agent.Summarizer) *Orchestrator {
	return &Orchestrator{
		engineer:   engineer,
		tester:     tester,
		devops:     devops,
		summarizer: summarizer,
	}
}

// WithTracker attaches a cost tracker.
func (o *Orchestrator) WithTracker(t *costcontrol.CostTracker) *Orchestrator {
	o.tracker = t
	return o
}

// WithStore attaches a live task store for UI visibility.
func (o *Orchestrator) WithStore(s *taskstore.Store) *Orchestrator {
	o.store = s
	return o
}

// WithHistory attaches the persistent history store.
func (o *Orchestrator) WithHistory(h *history.Store) *Orchestrator {
	o.history = h
	return o
}

// WithPrivacy attaches the privacy manager for retention handling.
func (o *Orchestrator) WithPrivacy(m *privacy.Manager) *Orchestrator {
	o.privacy = m
	return o
}

// Execute runs the pipeline for the dispatcher, discarding the result.
func (o *Orchestrator) Execute(ctx context.Context, task *Task) error {
	_, err := o.Run(ctx, task)
	return err
}

// Run executes the full agent chain for a task and returns the result.
func (o *Orchestrator) Run(ctx context.Context, task *Task) (*Result, error) {
	if o.tracker != nil && !o.tracker.CanMakeCall() {
		return nil, NewNonRetryable("daily model call budget exhausted")
	}
	if o.tracker != nil && !o.tracker.CanSpend(task.ID, 0) {
		return nil, NewNonRetryable(fmt.Sprintf("task %s reached its cost budget", task.ID))
	}

	start := time.Now()
	log.Printf("[Orchestrator] Mission started: %s", truncate(task.Description, 50))

	var historyID int64
	if o.history != nil {
		id, err := o.history.SaveTask(task.Description, task.Project, task.Priority)
		if err != nil {
			return nil, fmt.Errorf("persist task: %w", err)
		}
		historyID = id
		o.storeHistoryID(task.ID, id)
	}

	var messages []Message
	record := func(sender, receiver, content string) {
		messages = append(messages, Message{
			Sender:    sender,
			Receiver:  receiver,
			Size:      len(content),
			Timestamp: time.Now(),
		})
		log.Printf("[Orchestrator] Collaboration: %s -> %s | content size: %d", sender, receiver, len(content))
	}

	o.setStatus(task.ID, taskstore.StatusRunning)

	// 1. User -> Engineer
	record("User", string(agent.RoleEngineer), task.Description)
	o.setPhase(task.ID, taskstore.PhaseEngineering)
	resp, code, err := o.engineer.Generate(ctx, task.Description)
	if err != nil {
		o.fail(task.ID, err)
		return nil, err
	}
	if resp != nil {
		o.recordCost(task.ID, resp.CostUSD)
	}
	o.log(task.ID, "info", fmt.Sprintf("Engineer produced %d bytes of code", len(code)))

	// 2. Engineer -> Tester
	record(string(agent.RoleEngineer), string(agent.RoleTester), code)
	o.setPhase(task.ID, taskstore.PhaseTesting)
	valid, testReport := o.tester.Validate(code)
	if valid {
		o.log(task.ID, "info", "Validation passed")
	} else {
		o.log(task.ID, "error", "Validation failed")
	}

	// 3. Tester -> DevOps
	record(string(agent.RoleTester), string(agent.RoleDevOps), testReport)
	o.setPhase(task.ID, taskstore.PhaseDeploying)
	deploySuccess := false
	deployStatus := "Blocked: code validation failed"
	if valid {
		deploySuccess, deployStatus = o.devops.Deploy(ctx, code)
	}

	// 4. DevOps -> Summarizer
	record(string(agent.RoleDevOps), string(agent.RoleSummarizer), deployStatus)
	o.setPhase(task.ID, taskstore.PhaseSummarizing)
	success := valid && deploySuccess

	// When the engineer call spent the remaining task budget, cancel the
	// narrative call; the deterministic report is still built.
	sumCtx := ctx
	if o.tracker != nil && !o.tracker.CanSpend(task.ID, 0) {
		o.log(task.ID, "info", "Task cost budget reached; skipping model narrative")
		var cancel context.CancelFunc
		sumCtx, cancel = context.WithCancel(ctx)
		cancel()
	}
	summary := o.summarizer.Summarize(sumCtx, task.Description, code, testReport, deployStatus, success, time.Since(start))

	// 5. Summarizer -> User
	record(string(agent.RoleSummarizer), "User", summary.SummaryReport)

	result := &Result{
		Success:          success,
		Task:             task.Description,
		GeneratedCode:    code,
		TestReport:       testReport,
		DeploymentStatus: deployStatus,
		Summary:          summary,
		ExecutionTime:    time.Since(start).Seconds(),
		History:          messages,
		HistoryID:        historyID,
	}

	if err := o.persist(task, result); err != nil {
		o.fail(task.ID, err)
		return nil, err
	}

	o.setPhase(task.ID, taskstore.PhaseDone)
	if success {
		o.setStatus(task.ID, taskstore.StatusCompleted)
		o.log(task.ID, "success", "Pipeline completed")
	} else {
		o.setStatus(task.ID, taskstore.StatusFailed)
		o.log(task.ID, "error", "Pipeline finished with failures")
	}

	return result, nil
}

// persist saves the run artifacts and applies the retention policy.
func (o *Orchestrator) persist(task *Task, result *Result) error {
	if o.history != nil {
		if err := o.history.SaveCode(result.HistoryID, result.GeneratedCode); err != nil {
			return err
		}
		if err := o.history.SaveTestLog(result.HistoryID, result.TestReport); err != nil {
			return err
		}
		if err := o.history.SaveDeploymentLog(result.HistoryID, result.DeploymentStatus); err != nil {
			return err
		}
		if err := o.history.SaveFinalReport(result.HistoryID, result.Summary); err != nil {
			return err
		}
	}

	if o.privacy != nil {
		blob, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if _, err := o.privacy.StoreTaskData(task.ID, blob); err != nil {
			return err
		}
		if err := o.privacy.Cleanup(task.ID); err != nil {
			log.Printf("[Orchestrator] Retention cleanup failed for %s: %v", task.ID, err)
		}
	}
	return nil
}

func (o *Orchestrator) recordCost(taskID string, cost float64) {
	if o.tracker != nil {
		o.tracker.RecordCost(taskID, cost)
	}
	if o.store != nil && cost > 0 {
		o.store.AddCost(taskID, cost)
	}
}

func (o *Orchestrator) setStatus(id string, status taskstore.TaskStatus) {
	if o.store != nil && id != "" {
		o.store.UpdateStatus(id, status)
	}
}

func (o *Orchestrator) setPhase(id string, phase taskstore.Phase) {
	if o.store != nil && id != "" {
		o.store.UpdatePhase(id, phase)
	}
}

func (o *Orchestrator) storeHistoryID(id string, historyID int64) {
	if o.store != nil && id != "" {
		o.store.SetHistoryID(id, historyID)
	}
}

func (o *Orchestrator) log(id, level, message string) {
	if o.store != nil && id != "" {
		o.store.AddLog(id, level, message)
	}
}

func (o *Orchestrator) fail(id string, err error) {
	o.setStatus(id, taskstore.StatusFailed)
	if o.store != nil && id != "" {
		o.store.SetError(id, err.Error())
	}
	o.log(id, "error", err.Error())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
