// Package history persists completed task runs to SQLite for later lookup.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    description TEXT NOT NULL,
    project TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS generated_code (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER,
    code TEXT NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE TABLE IF NOT EXISTS test_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER,
    test_results TEXT NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE TABLE IF NOT EXISTS deployment_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER,
    deployment_status TEXT NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE TABLE IF NOT EXISTS final_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id INTEGER,
    summary TEXT NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);
`

// Record is a condensed view of a stored task.
type Record struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Project     string    `json:"project"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store wraps the SQLite database holding task history.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// modernc sqlite allows one writer; serialize access through one conn
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTask inserts a task record and returns its id.
func (s *Store) SaveTask(description, project, priority string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO tasks (description, project, priority) VALUES (?, ?, ?)",
		description, project, priority,
	)
	if err != nil {
		return 0, fmt.Errorf("save task: %w", err)
	}
	return res.LastInsertId()
}

// SaveCode stores the generated code for a task.
func (s *Store) SaveCode(taskID int64, code string) error {
	_, err := s.db.Exec("INSERT INTO generated_code (task_id, code) VALUES (?, ?)", taskID, code)
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

// SaveTestLog stores the test report for a task.
func (s *Store) SaveTestLog(taskID int64, results string) error {
	_, err := s.db.Exec("INSERT INTO test_logs (task_id, test_results) VALUES (?, ?)", taskID, results)
	if err != nil {
		return fmt.Errorf("save test log: %w", err)
	}
	return nil
}

// SaveDeploymentLog stores the deployment status for a task.
func (s *Store) SaveDeploymentLog(taskID int64, status string) error {
	_, err := s.db.Exec("INSERT INTO deployment_logs (task_id, deployment_status) VALUES (?, ?)", taskID, status)
	if err != nil {
		return fmt.Errorf("save deployment log: %w", err)
	}
	return nil
}

// SaveFinalReport stores the summary (serialized as JSON) for a task.
func (s *Store) SaveFinalReport(taskID int64, summary any) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.db.Exec("INSERT INTO final_reports (task_id, summary) VALUES (?, ?)", taskID, string(blob))
	if err != nil {
		return fmt.Errorf("save final report: %w", err)
	}
	return nil
}

// TaskSummary loads the stored summary JSON for a task into out.
func (s *Store) TaskSummary(taskID int64, out any) error {
	var blob string
	err := s.db.QueryRow("SELECT summary FROM final_reports WHERE task_id = ? ORDER BY id DESC LIMIT 1", taskID).Scan(&blob)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no summary for task %d", taskID)
	}
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}
	return json.Unmarshal([]byte(blob), out)
}

// Code returns the stored generated code for a task.
func (s *Store) Code(taskID int64) (string, error) {
	var code string
	err := s.db.QueryRow("SELECT code FROM generated_code WHERE task_id = ? ORDER BY id DESC LIMIT 1", taskID).Scan(&code)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no code for task %d", taskID)
	}
	if err != nil {
		return "", fmt.Errorf("load code: %w", err)
	}
	return code, nil
}

// Task returns the stored record for a single task.
func (s *Store) Task(taskID int64) (*Record, error) {
	var r Record
	var created string
	err := s.db.QueryRow(
		"SELECT id, description, project, priority, created_at FROM tasks WHERE id = ?", taskID).
		Scan(&r.ID, &r.Description, &r.Project, &r.Priority, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no task %d", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	r.CreatedAt = parseCreatedAt(r.ID, created)
	return &r, nil
}

// parseCreatedAt decodes the SQLite CURRENT_TIMESTAMP format. A malformed
// value is logged and left as the zero time rather than failing the lookup.
func parseCreatedAt(taskID int64, created string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", created)
	if err != nil {
		log.Printf("[History] Unparseable created_at %q for task %d: %v", created, taskID, err)
		return time.Time{}
	}
	return t
}

// RecentTasks returns up to limit most recent task records.
func (s *Store) RecentTasks(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		"SELECT id, description, project, priority, created_at FROM tasks ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.Description, &r.Project, &r.Priority, &created); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		r.CreatedAt = parseCreatedAt(r.ID, created)
		records = append(records, r)
	}
	return records, rows.Err()
}
