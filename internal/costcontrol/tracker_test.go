package costcontrol

import (
	"testing"
	"time"
)

func TestCanMakeCall(t *testing.T) {
	ct := NewCostTracker(2, 1.0, 10.0)

	if !ct.CanMakeCall() {
		t.Error("fresh tracker should allow calls")
	}

	ct.RecordCost("task-1", 0.1)
	if !ct.CanMakeCall() {
		t.Error("one call under the limit of two should be allowed")
	}

	ct.RecordCost("task-1", 0.1)
	if ct.CanMakeCall() {
		t.Error("daily call limit reached, call should be refused")
	}
}

func TestCanSpend(t *testing.T) {
	ct := NewCostTracker(100, 1.0, 10.0)

	if !ct.CanSpend("task-1", 0.5) {
		t.Error("spend within limit should be allowed")
	}

	ct.RecordCost("task-1", 0.75)
	if ct.CanSpend("task-1", 0.5) {
		t.Error("spend exceeding the per-task limit should be refused")
	}
	if !ct.CanSpend("task-1", 0.25) {
		t.Error("spend exactly at the limit should be allowed")
	}

	// Other tasks have their own budget
	if !ct.CanSpend("task-2", 1.0) {
		t.Error("a different task has an untouched budget")
	}
}

func TestTaskCostAndDailyStats(t *testing.T) {
	ct := NewCostTracker(100, 10.0, 100.0)

	ct.RecordCost("task-1", 0.25)
	ct.RecordCost("task-1", 0.25)
	ct.RecordCost("task-2", 0.5)

	if got := ct.TaskCost("task-1"); got != 0.5 {
		t.Errorf("TaskCost(task-1) = %f, want 0.5", got)
	}
	if got := ct.TaskCost("unknown"); got != 0 {
		t.Errorf("TaskCost(unknown) = %f, want 0", got)
	}

	calls, cost := ct.DailyStats()
	if calls != 3 {
		t.Errorf("daily calls = %d, want 3", calls)
	}
	if cost != 1.0 {
		t.Errorf("daily cost = %f, want 1.0", cost)
	}
}

func TestDailyReset(t *testing.T) {
	ct := NewCostTracker(100, 10.0, 100.0)
	ct.RecordCost("task-1", 1.0)

	// Force the reset boundary into the past
	ct.mu.Lock()
	ct.dailyResetTime = time.Now().Add(-time.Minute)
	ct.mu.Unlock()

	calls, cost := ct.DailyStats()
	if calls != 0 || cost != 0 {
		t.Errorf("after reset: calls = %d, cost = %f, want 0/0", calls, cost)
	}

	// Per-task accumulation survives the daily reset
	if got := ct.TaskCost("task-1"); got != 1.0 {
		t.Errorf("TaskCost after reset = %f, want 1.0", got)
	}
}
