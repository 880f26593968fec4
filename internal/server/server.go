package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/autodevcrew/crew/internal/costcontrol"
	"github.com/autodevcrew/crew/internal/dispatcher"
	crewgithub "github.com/autodevcrew/crew/internal/github"
	"github.com/autodevcrew/crew/internal/history"
	"github.com/autodevcrew/crew/internal/lightweight"
	"github.com/autodevcrew/crew/internal/orchestrator"
	"github.com/autodevcrew/crew/internal/privacy"
	"github.com/autodevcrew/crew/internal/taskstore"
	"github.com/autodevcrew/crew/internal/web"
)

// Server exposes the pipeline over HTTP: a JSON API, a GitHub webhook
// receiver and the task UI.
type Server struct {
	dispatcher    *dispatcher.Dispatcher
	store         *taskstore.Store
	history       *history.Store
	privacy       *privacy.Manager
	tracker       *costcontrol.CostTracker
	webhookSecret string
}

// New creates a server. history, privacy and tracker are optional.
func New(d *dispatcher.Dispatcher, store *taskstore.Store) *Server {
	return &Server{dispatcher: d, store: store}
}

// WithHistory attaches the persistent task history.
func (s *Server) WithHistory(h *history.Store) *Server {
	s.history = h
	return s
}

// WithPrivacy attaches the privacy manager for the /api/privacy report.
func (s *Server) WithPrivacy(m *privacy.Manager) *Server {
	s.privacy = m
	return s
}

// WithTracker attaches the cost tracker for /api/stats.
func (s *Server) WithTracker(t *costcontrol.CostTracker) *Server {
	s.tracker = t
	return s
}

// WithWebhookSecret enables signature verification on /webhook/github.
func (s *Server) WithWebhookSecret(secret string) *Server {
	s.webhookSecret = secret
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() (*mux.Router, error) {
	r := mux.NewRouter()

	// API endpoints
	r.HandleFunc("/api/tasks", s.handleCreateTask).Methods("POST")
	r.HandleFunc("/api/tasks", s.handleListTasks).Methods("GET")
	r.HandleFunc("/api/tasks/{id}", s.handleGetTask).Methods("GET")
	r.HandleFunc("/api/history", s.handleHistory).Methods("GET")
	r.HandleFunc("/api/privacy", s.handlePrivacy).Methods("GET")
	r.HandleFunc("/api/stats", s.handleStats).Methods("GET")

	// Webhook endpoint
	r.HandleFunc("/webhook/github", s.handleWebhook).Methods("POST")

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Root info endpoint
	r.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "crew",
			"status":  "running",
		})
	}).Methods("GET")

	// Task UI
	webHandler, err := web.NewHandler(s.store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize web handler: %w", err)
	}
	webHandler.RegisterRoutes(r)

	return r, nil
}

type createTaskRequest struct {
	Task     string `json:"task"`
	Project  string `json:"project"`
	Priority string `json:"priority"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "task description is required")
		return
	}

	task := &orchestrator.Task{
		ID:          uuid.NewString(),
		Description: req.Task,
		Project:     req.Project,
		Priority:    req.Priority,
	}

	if err := s.store.Create(&taskstore.Task{
		ID:          task.ID,
		Description: task.Description,
		Project:     task.Project,
		Priority:    task.Priority,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.dispatcher.Enqueue(task); err != nil {
		s.store.SetError(task.ID, err.Error())
		s.store.UpdateStatus(task.ID, taskstore.StatusFailed)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	log.Printf("[Server] Task %s queued: %s", task.ID, truncate(task.Description, 80))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     task.ID,
		"status": string(taskstore.StatusPending),
	})
}

type taskView struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Project     string  `json:"project,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	Status      string  `json:"status"`
	Phase       string  `json:"phase"`
	CostUSD     float64 `json:"cost_usd"`
	HistoryID   int64   `json:"history_id,omitempty"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func viewOf(t *taskstore.Task) taskView {
	return taskView{
		ID:          t.ID,
		Description: t.Description,
		Project:     t.Project,
		Priority:    t.Priority,
		Status:      string(t.Status),
		Phase:       string(t.Phase),
		CostUSD:     t.CostUSD,
		HistoryID:   t.HistoryID,
		Error:       t.ErrorMsg,
		CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.store.List()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, viewOf(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": views})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, err := s.store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	view := viewOf(task)
	logs := make([]map[string]string, 0, len(task.Logs))
	for _, entry := range task.Logs {
		logs = append(logs, map[string]string{
			"timestamp": entry.Timestamp.Format("15:04:05"),
			"level":     entry.Level,
			"message":   entry.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": view, "logs": logs})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history store not configured")
		return
	}

	records, err := s.history.RecentTasks(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	if s.privacy == nil {
		writeError(w, http.StatusServiceUnavailable, "privacy manager not configured")
		return
	}

	report, err := s.privacy.GenerateReport()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{}

	if s.tracker != nil {
		calls, spend := s.tracker.DailyStats()
		stats["daily_calls"] = calls
		stats["daily_spend_usd"] = spend
	}

	if sys, err := lightweight.CurrentStats(); err == nil {
		stats["system"] = sys
	} else {
		log.Printf("[Server] System stats unavailable: %v", err)
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	if s.webhookSecret != "" {
		sig := r.Header.Get("X-Hub-Signature-256")
		if err := crewgithub.ValidateSignatureHeader(sig); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if !crewgithub.VerifySignature(payload, sig, s.webhookSecret) {
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	event, err := crewgithub.ParseEvent(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if event.Type != "new_issue" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "event": event.Type})
		return
	}

	task := &orchestrator.Task{
		ID:          uuid.NewString(),
		Description: event.TaskDescription,
		Project:     "github",
	}
	if err := s.store.Create(&taskstore.Task{
		ID:          task.ID,
		Description: task.Description,
		Project:     task.Project,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.dispatcher.Enqueue(task); err != nil {
		s.store.SetError(task.ID, err.Error())
		s.store.UpdateStatus(task.ID, taskstore.StatusFailed)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	log.Printf("[Server] Webhook issue #%d queued as task %s", event.IssueNumber, task.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "id": task.ID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
