package history

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "crew.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndLoadTask(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveTask("build a parser", "proj", "high")
	if err != nil {
		t.Fatalf("SaveTask() error: %v", err)
	}
	if id == 0 {
		t.Fatal("SaveTask() returned zero id")
	}

	record, err := store.Task(id)
	if err != nil {
		t.Fatalf("Task() error: %v", err)
	}
	if record.Description != "build a parser" {
		t.Errorf("Description = %q", record.Description)
	}
	if record.Project != "proj" || record.Priority != "high" {
		t.Errorf("Project/Priority = %q/%q", record.Project, record.Priority)
	}

	if _, err := store.Task(9999); err == nil {
		t.Error("Task() on unknown id should error")
	}
}

func TestTaskMalformedTimestamp(t *testing.T) {
	store := openTestStore(t)

	res, err := store.db.Exec(
		"INSERT INTO tasks (description, created_at) VALUES ('legacy row', 'not-a-timestamp')")
	if err != nil {
		t.Fatal(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatal(err)
	}

	record, err := store.Task(id)
	if err != nil {
		t.Fatalf("Task() error: %v", err)
	}
	if !record.CreatedAt.IsZero() {
		t.Errorf("CreatedAt = %s, want zero time for malformed value", record.CreatedAt)
	}

	records, err := store.RecentTasks(10)
	if err != nil {
		t.Fatalf("RecentTasks() error: %v", err)
	}
	if len(records) != 1 || records[0].Description != "legacy row" {
		t.Errorf("records = %+v", records)
	}
}

func TestSaveArtifacts(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveTask("task", "", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SaveCode(id, "print('v1')"); err != nil {
		t.Fatalf("SaveCode() error: %v", err)
	}
	if err := store.SaveCode(id, "print('v2')"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveTestLog(id, "all passed"); err != nil {
		t.Fatalf("SaveTestLog() error: %v", err)
	}
	if err := store.SaveDeploymentLog(id, "deployed"); err != nil {
		t.Fatalf("SaveDeploymentLog() error: %v", err)
	}

	// Latest code version wins
	code, err := store.Code(id)
	if err != nil {
		t.Fatalf("Code() error: %v", err)
	}
	if code != "print('v2')" {
		t.Errorf("Code() = %q, want latest version", code)
	}

	if _, err := store.Code(9999); err == nil {
		t.Error("Code() on unknown task should error")
	}
}

func TestFinalReportRoundTrip(t *testing.T) {
	store := openTestStore(t)

	id, err := store.SaveTask("task", "", "")
	if err != nil {
		t.Fatal(err)
	}

	type summary struct {
		Success       bool    `json:"success"`
		ExecutionTime float64 `json:"execution_time"`
	}

	if err := store.SaveFinalReport(id, summary{Success: true, ExecutionTime: 1.5}); err != nil {
		t.Fatalf("SaveFinalReport() error: %v", err)
	}

	var loaded summary
	if err := store.TaskSummary(id, &loaded); err != nil {
		t.Fatalf("TaskSummary() error: %v", err)
	}
	if !loaded.Success || loaded.ExecutionTime != 1.5 {
		t.Errorf("loaded = %+v", loaded)
	}

	var none summary
	if err := store.TaskSummary(9999, &none); err == nil {
		t.Error("TaskSummary() on unknown task should error")
	}
}

func TestRecentTasks(t *testing.T) {
	store := openTestStore(t)

	for _, desc := range []string{"first", "second", "third"} {
		if _, err := store.SaveTask(desc, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.RecentTasks(2)
	if err != nil {
		t.Fatalf("RecentTasks() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("RecentTasks(2) returned %d records", len(records))
	}
	if records[0].Description != "third" {
		t.Errorf("newest first: got %q", records[0].Description)
	}
	if records[1].Description != "second" {
		t.Errorf("second newest: got %q", records[1].Description)
	}
}

func TestOpenInitializesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crew.db")

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveTask("task", "", ""); err != nil {
		t.Fatal(err)
	}
	store.Close()

	// Reopening an existing database must not fail or lose data
	store2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store2.Close()

	records, err := store2.RecentTasks(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("records after reopen = %d, want 1", len(records))
	}
}
