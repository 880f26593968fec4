package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/autodevcrew/crew/internal/cli"
	"github.com/autodevcrew/crew/internal/config"
)

// handler owns the assembled pipeline shared by all tool calls.
type handler struct {
	app *cli.App
}

func newHandler(cfg *config.Config) (*handler, error) {
	app, err := cli.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	return &handler{app: app}, nil
}

func (h *handler) Close() {
	if err := h.app.Close(); err != nil {
		log.Printf("[MCP Server] Close error: %v", err)
	}
}

// RunTaskParams defines the input parameters for the run_task tool
type RunTaskParams struct {
	Task     string `json:"task" jsonschema:"The task description to run through the pipeline"`
	Project  string `json:"project,omitempty" jsonschema:"Optional project name used to group tasks"`
	Priority string `json:"priority,omitempty" jsonschema:"Optional priority label"`
}

// HandleRunTask handles the run_task tool call
func (h *handler) HandleRunTask(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params RunTaskParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP Server] Received run_task request")

	if params.Task == "" {
		return nil, nil, fmt.Errorf("task parameter is required")
	}

	result, err := h.app.RunTask(ctx, params.Task, params.Project, params.Priority)
	if err != nil {
		log.Printf("[MCP Server] Pipeline failed: %v", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
			},
			IsError: true,
		}, nil, nil
	}

	payload, err := json.MarshalIndent(map[string]any{
		"success":           result.Success,
		"generated_code":    result.GeneratedCode,
		"test_report":       result.TestReport,
		"deployment_status": result.DeploymentStatus,
		"execution_time":    result.ExecutionTime,
		"history_id":        result.HistoryID,
	}, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}

	log.Printf("[MCP Server] Pipeline finished (success=%v, %.2fs)", result.Success, result.ExecutionTime)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil, nil
}

// TaskHistoryParams defines the input parameters for the task_history tool
type TaskHistoryParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of records to return (default 10)"`
}

// HandleTaskHistory handles the task_history tool call
func (h *handler) HandleTaskHistory(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params TaskHistoryParams,
) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	records, err := h.app.History.RecentTasks(limit)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
			},
			IsError: true,
		}, nil, nil
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal history: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(payload)},
		},
	}, nil, nil
}
