package taskstore

import (
	"fmt"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	store := NewStore()

	task := &Task{ID: "t1", Description: "build a thing"}
	if err := store.Create(task); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := store.Get("t1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %s, want pending default", got.Status)
	}
	if got.Phase != PhaseQueued {
		t.Errorf("Phase = %s, want queued default", got.Phase)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	if _, err := store.Get("missing"); err == nil {
		t.Error("Get() on missing task should error")
	}
}

func TestCreateValidation(t *testing.T) {
	store := NewStore()

	if err := store.Create(&Task{}); err == nil {
		t.Error("empty ID should be rejected")
	}

	if err := store.Create(&Task{ID: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(&Task{ID: "dup"}); err == nil {
		t.Error("duplicate ID should be rejected")
	}
}

func TestListOrder(t *testing.T) {
	store := NewStore()

	for i := 0; i < 3; i++ {
		if err := store.Create(&Task{ID: fmt.Sprintf("t%d", i)}); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	tasks := store.List()
	if len(tasks) != 3 {
		t.Fatalf("List() returned %d tasks, want 3", len(tasks))
	}
	if tasks[0].ID != "t2" || tasks[2].ID != "t0" {
		t.Errorf("List() not newest-first: %s, %s, %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestUpdates(t *testing.T) {
	store := NewStore()
	if err := store.Create(&Task{ID: "t1"}); err != nil {
		t.Fatal(err)
	}

	store.UpdateStatus("t1", StatusRunning)
	store.UpdatePhase("t1", PhaseEngineering)
	store.AddCost("t1", 0.25)
	store.AddCost("t1", 0.25)
	store.SetHistoryID("t1", 42)
	store.AddLog("t1", "info", "started")
	store.SetError("t1", "boom")

	task, err := store.Get("t1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusRunning {
		t.Errorf("Status = %s", task.Status)
	}
	if task.Phase != PhaseEngineering {
		t.Errorf("Phase = %s", task.Phase)
	}
	if task.CostUSD != 0.5 {
		t.Errorf("CostUSD = %f, want 0.5", task.CostUSD)
	}
	if task.HistoryID != 42 {
		t.Errorf("HistoryID = %d, want 42", task.HistoryID)
	}
	if len(task.Logs) != 1 || task.Logs[0].Message != "started" {
		t.Errorf("Logs = %+v", task.Logs)
	}
	if task.ErrorMsg != "boom" {
		t.Errorf("ErrorMsg = %q", task.ErrorMsg)
	}

	// Updates to unknown IDs are silently ignored
	store.UpdateStatus("nope", StatusFailed)
	store.AddLog("nope", "info", "ignored")
}

func TestGetReturnsSnapshot(t *testing.T) {
	store := NewStore()
	if err := store.Create(&Task{ID: "t1"}); err != nil {
		t.Fatal(err)
	}

	before, err := store.Get("t1")
	if err != nil {
		t.Fatal(err)
	}

	store.UpdateStatus("t1", StatusRunning)
	store.AddLog("t1", "info", "started")

	if before.Status != StatusPending {
		t.Errorf("snapshot status changed to %s after store update", before.Status)
	}
	if len(before.Logs) != 0 {
		t.Errorf("snapshot logs grew to %d after store update", len(before.Logs))
	}

	// Mutating a snapshot must not leak back into the store
	before.Logs = append(before.Logs, LogEntry{Message: "rogue"})
	before.Status = StatusFailed

	after, err := store.Get("t1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != StatusRunning {
		t.Errorf("store status = %s, want running", after.Status)
	}
	if len(after.Logs) != 1 || after.Logs[0].Message != "started" {
		t.Errorf("store logs = %+v", after.Logs)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	store := NewStore()
	if err := store.Create(&Task{ID: "t1"}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			store.AddLog("t1", "info", "tick")
			store.AddCost("t1", 0.001)
			store.UpdateStatus("t1", StatusRunning)
		}
	}()

	// Readers range over snapshots while the writer keeps mutating
	for i := 0; i < 1000; i++ {
		task, err := store.Get("t1")
		if err != nil {
			t.Fatal(err)
		}
		for _, entry := range task.Logs {
			_ = entry.Message
		}
		for _, listed := range store.List() {
			_ = listed.Status
			_ = len(listed.Logs)
		}
	}
	<-done
}
