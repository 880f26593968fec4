package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/autodevcrew/crew/internal/deploy"
	crewgithub "github.com/autodevcrew/crew/internal/github"
	"github.com/autodevcrew/crew/internal/lightweight"
)

// runMenu drives the interactive console loop.
func runMenu(ctx context.Context, app *App) error {
	reader := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println()
		fmt.Println("=== Crew Pipeline ===")
		fmt.Println("1. Run a single task")
		fmt.Println("2. Show task history")
		fmt.Println("3. System diagnostics")
		fmt.Println("4. Cloud deployment")
		fmt.Println("5. GitHub integration")
		fmt.Println("6. Privacy status")
		fmt.Println("7. Performance report")
		fmt.Println("8. Generate tests for a past task")
		fmt.Println("9. Exit")

		choice := prompt(reader, "Choice: ")

		var err error
		switch choice {
		case "1":
			err = menuRunTask(ctx, app, reader)
		case "2":
			err = menuHistory(app)
		case "3":
			err = menuDiagnostics(app)
		case "4":
			err = menuDeploy(ctx, app, reader)
		case "5":
			err = menuGitHub(ctx, app, reader)
		case "6":
			err = menuPrivacy(app)
		case "7":
			menuPerformance(app)
		case "8":
			err = menuGenerateTests(app, reader)
		case "9", "q", "exit":
			fmt.Println("Bye.")
			return nil
		default:
			fmt.Println("Invalid choice.")
		}

		if err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func prompt(reader *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !reader.Scan() {
		return ""
	}
	return strings.TrimSpace(reader.Text())
}

func menuRunTask(ctx context.Context, app *App, reader *bufio.Scanner) error {
	task := prompt(reader, "Task description: ")
	if task == "" {
		return fmt.Errorf("task description is required")
	}
	project := prompt(reader, "Project (optional): ")
	return runSingleTask(ctx, app, task, project, "")
}

func menuHistory(app *App) error {
	records, err := app.History.RecentTasks(10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No tasks recorded yet.")
		return nil
	}

	fmt.Println()
	fmt.Println("Recent tasks:")
	for _, rec := range records {
		line := fmt.Sprintf("  [%d] %s", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"))
		if rec.Project != "" {
			line += " | " + rec.Project
		}
		fmt.Printf("%s | %s\n", line, rec.Description)
	}
	return nil
}

func menuDiagnostics(app *App) error {
	profile := lightweight.DetectHardware()
	fmt.Println()
	fmt.Printf("CPU cores:   %d\n", profile.CPUCores)
	fmt.Printf("Memory:      %.1f GB\n", profile.RAMGB)
	if profile.HasGPU {
		fmt.Printf("GPU:         %s (%.1f GB VRAM)\n", profile.GPUModel, profile.VRAMGB)
	} else {
		fmt.Println("GPU:         none detected")
	}

	stats, err := lightweight.CurrentStats()
	if err != nil {
		return err
	}
	fmt.Printf("CPU usage:   %.1f%%\n", stats.CPUPercent)
	fmt.Printf("Memory used: %.1f%%\n", stats.MemoryPercent)

	calls, spend := app.Tracker.DailyStats()
	fmt.Printf("Model calls today: %d ($%.4f)\n", calls, spend)
	return nil
}

func menuDeploy(ctx context.Context, app *App, reader *bufio.Scanner) error {
	idText := prompt(reader, "History task ID to deploy: ")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task ID: %q", idText)
	}

	code, err := app.History.Code(id)
	if err != nil {
		return err
	}

	targetText := prompt(reader, "Target (huggingface/colab): ")
	target, err := deploy.ParseTarget(targetText)
	if err != nil {
		return err
	}

	result, err := app.DeployCode(ctx, target, code)
	if err != nil {
		return err
	}
	printDeployment(result)
	return nil
}

func menuGitHub(ctx context.Context, app *App, reader *bufio.Scanner) error {
	fmt.Println()
	fmt.Println("1. Generate Actions workflow file")
	fmt.Println("2. Trigger pipeline workflow")
	fmt.Println("3. File an issue for a past task")
	choice := prompt(reader, "Choice: ")

	switch choice {
	case "1":
		path, err := crewgithub.WriteWorkflow(".github/workflows/crew.yml")
		if err != nil {
			return err
		}
		fmt.Printf("Workflow written to %s\n", path)
		return nil

	case "2":
		client, err := app.gitHubClient(ctx)
		if err != nil {
			return err
		}
		task := prompt(reader, "Task description: ")
		if task == "" {
			return fmt.Errorf("task description is required")
		}
		if err := client.TriggerWorkflow(ctx, task, ""); err != nil {
			return err
		}
		fmt.Println("Workflow dispatched.")
		return nil

	case "3":
		client, err := app.gitHubClient(ctx)
		if err != nil {
			return err
		}
		idText := prompt(reader, "History task ID: ")
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task ID: %q", idText)
		}
		url, err := app.issueFromHistory(ctx, client, id)
		if err != nil {
			return err
		}
		fmt.Printf("Issue created: %s\n", url)
		return nil

	default:
		return fmt.Errorf("invalid choice")
	}
}

func menuPrivacy(app *App) error {
	report, err := app.Privacy.GenerateReport()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Privacy level:    %s\n", report.Level)
	fmt.Printf("Retention policy: %s\n", report.Retention)
	fmt.Printf("Local cache:      %d bytes\n", report.LocalCacheBytes)
	fmt.Printf("Allowed hosts:    %d\n", report.AllowedHostCount)
	fmt.Printf("Encryption:       %v\n", report.EncryptionEnabled)
	return nil
}

func menuPerformance(app *App) {
	mode := app.Light
	if mode == nil {
		mode = lightweight.New("")
	}
	report := mode.Report()

	fmt.Println()
	fmt.Printf("Quantization:      %s\n", report.Quantization)
	fmt.Printf("Simplified agents: %v\n", report.SimplifiedAgents)
	fmt.Printf("Basic workflow:    %v\n", report.BasicWorkflow)
	fmt.Printf("Model offloading:  %v\n", report.ModelOffloading)
	fmt.Printf("Estimated memory:  %.1f GB\n", report.EstimatedMemGB)
	if len(report.AvailableModels) > 0 {
		fmt.Printf("Local models:      %s\n", strings.Join(report.AvailableModels, ", "))
	}
}

func menuGenerateTests(app *App, reader *bufio.Scanner) error {
	idText := prompt(reader, "History task ID: ")
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task ID: %q", idText)
	}

	code, err := app.History.Code(id)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(app.Tester.GenerateTests(code))
	return nil
}
