package taskstore

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskStatus represents the execution status of a task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Phase names the pipeline stage a running task is in
type Phase string

const (
	PhaseQueued      Phase = "queued"
	PhaseEngineering Phase = "engineering"
	PhaseTesting     Phase = "testing"
	PhaseDeploying   Phase = "deploying"
	PhaseSummarizing Phase = "summarizing"
	PhaseDone        Phase = "done"
)

// Task represents a live pipeline execution
type Task struct {
	ID          string
	Description string
	Project     string
	Priority    string
	Status      TaskStatus
	Phase       Phase
	Logs        []LogEntry
	CostUSD     float64
	HistoryID   int64
	ErrorMsg    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LogEntry represents a single log message
type LogEntry struct {
	Timestamp time.Time
	Level     string // info, error, success
	Message   string
}

// clone returns a snapshot copy so callers never share memory with the
// store's live record.
func (t *Task) clone() *Task {
	c := *t
	c.Logs = append([]LogEntry(nil), t.Logs...)
	return &c
}

// Store manages live task state with thread-safe operations
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewStore creates a new task store
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*Task),
	}
}

// Create adds a new task to the store
func (s *Store) Create(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID cannot be empty")
	}
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.Phase == "" {
		task.Phase = PhaseQueued
	}
	if task.Logs == nil {
		task.Logs = []LogEntry{}
	}

	s.tasks[task.ID] = task.clone()
	return nil
}

// Get retrieves a snapshot of a task by ID. Only store methods mutate task
// state, so the snapshot stays valid while workers keep writing.
func (s *Store) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return task.clone(), nil
}

// List returns snapshots of all tasks sorted by creation time (newest first)
func (s *Store) List() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// UpdateStatus updates a task's status
func (s *Store) UpdateStatus(id string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.Status = status
		task.UpdatedAt = time.Now()
	}
}

// UpdatePhase updates the pipeline phase of a running task
func (s *Store) UpdatePhase(id string, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.Phase = phase
		task.UpdatedAt = time.Now()
	}
}

// SetError records a task failure message
func (s *Store) SetError(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.ErrorMsg = msg
		task.UpdatedAt = time.Now()
	}
}

// SetHistoryID links the live task to its persisted history record
func (s *Store) SetHistoryID(id string, historyID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.HistoryID = historyID
		task.UpdatedAt = time.Now()
	}
}

// AddCost accumulates model spend on a task
func (s *Store) AddCost(id string, cost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.CostUSD += cost
		task.UpdatedAt = time.Now()
	}
}

// AddLog appends a log entry to a task
func (s *Store) AddLog(id, level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.Logs = append(task.Logs, LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
		})
		task.UpdatedAt = time.Now()
	}
}
