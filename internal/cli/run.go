package cli

import (
	"context"
	"fmt"

	"github.com/autodevcrew/crew/internal/deploy"
	"github.com/autodevcrew/crew/internal/orchestrator"
)

// runSingleTask executes one pipeline run and prints the outcome.
func runSingleTask(ctx context.Context, app *App, description, project, priority string) error {
	result, err := app.RunTask(ctx, description, project, priority)
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

// runDeploy executes the pipeline, then packages the generated code for the
// chosen platform.
func runDeploy(ctx context.Context, app *App, target deploy.Target, description, project string) error {
	result, err := app.RunTask(ctx, description, project, "")
	if err != nil {
		return err
	}
	printResult(result)

	if !result.Success {
		return fmt.Errorf("pipeline failed; skipping deployment")
	}

	deployment, err := app.DeployCode(ctx, target, result.GeneratedCode)
	if err != nil {
		return err
	}
	printDeployment(deployment)
	return nil
}

func printResult(result *orchestrator.Result) {
	status := "FAILED"
	if result.Success {
		status = "SUCCESS"
	}

	fmt.Println()
	fmt.Println("==========================================")
	fmt.Printf("  Pipeline %s (%.2fs)\n", status, result.ExecutionTime)
	fmt.Println("==========================================")
	fmt.Printf("Task:       %s\n", result.Task)
	fmt.Printf("Tests:      %s\n", result.TestReport)
	fmt.Printf("Deployment: %s\n", result.DeploymentStatus)
	if result.HistoryID != 0 {
		fmt.Printf("History ID: %d\n", result.HistoryID)
	}
	if result.Summary != nil && result.Summary.Narrative != "" {
		fmt.Println()
		fmt.Println(result.Summary.Narrative)
	}
	fmt.Println()
	fmt.Println("Generated code:")
	fmt.Println("------------------------------------------")
	fmt.Println(result.GeneratedCode)
	fmt.Println("------------------------------------------")
}

func printDeployment(result *deploy.Result) {
	fmt.Println()
	fmt.Printf("Deployment (%s): %s\n", result.Target, result.Status)
	if result.URL != "" {
		fmt.Printf("URL: %s\n", result.URL)
	}
	if result.StagingDir != "" {
		fmt.Printf("Staging dir: %s\n", result.StagingDir)
	}
	for _, step := range result.NextSteps {
		fmt.Printf("  - %s\n", step)
	}
}
