package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/autodevcrew/crew/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CREW_CONFIG"))
	if err != nil {
		log.Fatalf("[MCP Server] Failed to load configuration: %v", err)
	}

	handler, err := newHandler(cfg)
	if err != nil {
		log.Fatalf("[MCP Server] Failed to initialize pipeline: %v", err)
	}
	defer handler.Close()

	log.Println("[MCP Server] Starting Crew Pipeline MCP Server v1.0.0")
	log.Printf("[MCP Server] Provider: %s, privacy level: %s", cfg.Provider, cfg.PrivacyLevel)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crew-pipeline-server",
		Version: "v1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_task",
		Description: "Run a task through the Engineer/Tester/DevOps/Summarizer pipeline and return the generated code and report",
	}, handler.HandleRunTask)
	log.Println("[MCP Server] Registered tool: run_task")

	mcp.AddTool(server, &mcp.Tool{
		Name:        "task_history",
		Description: "List recent pipeline tasks from the history database",
	}, handler.HandleTaskHistory)
	log.Println("[MCP Server] Registered tool: task_history")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Server] Received shutdown signal")
		cancel()
	}()

	log.Println("[MCP Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP Server] Server error: %v", err)
	}
	log.Println("[MCP Server] Server stopped gracefully")
}
