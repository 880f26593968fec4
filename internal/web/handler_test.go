package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/autodevcrew/crew/internal/taskstore"
)

func newTestHandler(t *testing.T) (*Handler, *taskstore.Store, *mux.Router) {
	t.Helper()

	store := taskstore.NewStore()
	h, err := NewHandler(store)
	if err != nil {
		t.Fatalf("NewHandler() error: %v", err)
	}
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return h, store, r
}

func TestTaskListPage(t *testing.T) {
	_, store, router := newTestHandler(t)

	store.Create(&taskstore.Task{ID: "t1", Description: "build a fizzbuzz CLI"})
	store.UpdateStatus("t1", taskstore.StatusRunning)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "build a fizzbuzz CLI") {
		t.Error("task description missing from list page")
	}
	if !strings.Contains(body, "#0d6efd") {
		t.Error("running status colour missing")
	}
}

func TestTaskDetailPage(t *testing.T) {
	_, store, router := newTestHandler(t)

	store.Create(&taskstore.Task{ID: "t1", Description: "add a health endpoint"})
	store.AddLog("t1", "info", "Engineer started")
	store.AddLog("t1", "error", "validation failed")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/task/t1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "add a health endpoint") {
		t.Error("description missing from detail page")
	}
	if !strings.Contains(body, "Engineer started") || !strings.Contains(body, "validation failed") {
		t.Error("log entries missing from detail page")
	}
}

func TestTaskDetailNotFound(t *testing.T) {
	_, _, router := newTestHandler(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/task/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTemplateHelpers(t *testing.T) {
	if statusColor(taskstore.StatusCompleted) != "#198754" {
		t.Error("completed colour mismatch")
	}
	if statusIcon(taskstore.StatusFailed) != "✗" {
		t.Error("failed icon mismatch")
	}
	if phaseLabel(taskstore.PhaseEngineering) != "Engineering" {
		t.Error("phase label mismatch")
	}
	if logLevelColor("ERROR") != "#dc3545" {
		t.Error("log level colour should be case insensitive")
	}
}
