// Package agent implements the four pipeline agents: Engineer, Tester,
// DevOps and Summarizer.
package agent

// Metrics is a lightweight health snapshot used by the diagnostics menu.
type Metrics struct {
	Status string `json:"status"`
	Load   string `json:"load"`
}

// Role names an agent's position in the pipeline.
type Role string

const (
	RoleEngineer   Role = "Engineer"
	RoleTester     Role = "Tester"
	RoleDevOps     Role = "DevOps"
	RoleSummarizer Role = "Summarizer"
)

// DefaultMetrics reports an idle, healthy agent.
func DefaultMetrics() Metrics {
	return Metrics{Status: "active", Load: "low"}
}
