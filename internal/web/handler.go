package web

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/autodevcrew/crew/internal/taskstore"
)

//go:embed templates/*
var templatesFS embed.FS

// Handler handles web UI requests
type Handler struct {
	store     *taskstore.Store
	templates *template.Template
}

// NewHandler creates a new web handler
func NewHandler(store *taskstore.Store) (*Handler, error) {
	tmpl := template.New("").Funcs(template.FuncMap{
		"statusColor":   statusColor,
		"statusIcon":    statusIcon,
		"phaseLabel":    phaseLabel,
		"logLevelColor": logLevelColor,
	})
	tmpl, err := tmpl.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		store:     store,
		templates: tmpl,
	}, nil
}

// RegisterRoutes registers web UI routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleTaskList).Methods("GET")
	r.HandleFunc("/task/{id}", h.handleTaskDetail).Methods("GET")
}

// handleTaskList renders the task list page
func (h *Handler) handleTaskList(w http.ResponseWriter, r *http.Request) {
	tasks := h.store.List()

	data := struct {
		Tasks []*taskstore.Task
	}{
		Tasks: tasks,
	}

	if err := h.templates.ExecuteTemplate(w, "task_list.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTaskDetail renders the task detail page
func (h *Handler) handleTaskDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskID := vars["id"]

	task, err := h.store.Get(taskID)
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	data := struct {
		Task *taskstore.Task
	}{
		Task: task,
	}

	if err := h.templates.ExecuteTemplate(w, "task_detail.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Helper functions for templates
func statusColor(status taskstore.TaskStatus) string {
	switch status {
	case taskstore.StatusPending:
		return "#6c757d"
	case taskstore.StatusRunning:
		return "#0d6efd"
	case taskstore.StatusCompleted:
		return "#198754"
	case taskstore.StatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func statusIcon(status taskstore.TaskStatus) string {
	switch status {
	case taskstore.StatusPending:
		return "○"
	case taskstore.StatusRunning:
		return "⟳"
	case taskstore.StatusCompleted:
		return "✓"
	case taskstore.StatusFailed:
		return "✗"
	default:
		return "○"
	}
}

func phaseLabel(phase taskstore.Phase) string {
	switch phase {
	case taskstore.PhaseQueued:
		return "Queued"
	case taskstore.PhaseEngineering:
		return "Engineering"
	case taskstore.PhaseTesting:
		return "Testing"
	case taskstore.PhaseDeploying:
		return "Deploying"
	case taskstore.PhaseSummarizing:
		return "Summarizing"
	case taskstore.PhaseDone:
		return "Done"
	default:
		return string(phase)
	}
}

func logLevelColor(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return "#dc3545"
	case "success":
		return "#198754"
	case "info":
		return "#0d6efd"
	default:
		return "#6c757d"
	}
}
