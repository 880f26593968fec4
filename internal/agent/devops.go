package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DevOps runs the generated code's tests and a smoke execution in a scratch
// workspace, then reports deployment status. Simulation mode skips execution
// entirely; it is forced when privacy policy forbids running foreign code.
type DevOps struct {
	language    string
	testCommand string
	runCommand  string
	simulate    bool
	timeout     time.Duration
}

// NewDevOps creates the DevOps agent. Empty commands fall back to language
// defaults.
func NewDevOps(language, testCommand, runCommand string, simulate bool) *DevOps {
	if language == "" {
		language = "python"
	}
	d := &DevOps{
		language:    language,
		testCommand: testCommand,
		runCommand:  runCommand,
		simulate:    simulate,
		timeout:     2 * time.Minute,
	}
	if d.testCommand == "" {
		switch language {
		case "python":
			d.testCommand = "python3 -m pytest"
		case "go":
			d.testCommand = "go test ./..."
		case "javascript":
			d.testCommand = "node --test"
		}
	}
	if d.runCommand == "" {
		switch language {
		case "python":
			d.runCommand = "python3"
		case "go":
			d.runCommand = "go run"
		case "javascript":
			d.runCommand = "node"
		}
	}
	return d
}

// SetSimulate toggles simulation mode.
func (d *DevOps) SetSimulate(v bool) { d.simulate = v }

// Deploy writes the code to a temp workspace, runs tests and a smoke
// execution, and returns (success, combined log).
func (d *DevOps) Deploy(ctx context.Context, code string) (bool, string) {
	var log []string

	if d.simulate {
		log = append(log,
			"--- Testing Phase ---",
			"Simulated: tests skipped.",
			"",
			"--- Execution Phase ---",
			"Simulated: execution skipped.",
			"",
			"Deployed to virtual environment (simulated).")
		return true, strings.Join(log, "\n")
	}

	dir, err := os.MkdirTemp("", "crew_deploy_")
	if err != nil {
		return false, fmt.Sprintf("deployment error: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "main"+d.extension())
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return false, fmt.Sprintf("deployment error: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log = append(log, "--- Testing Phase ---")
	testOut, testErr := d.runCommandLine(runCtx, dir, d.testCommand+" "+path)
	if testErr != nil && !isNoTestsError(testOut) {
		log = append(log, fmt.Sprintf("Tests failed:\n%s", testOut))
		return false, strings.Join(log, "\n")
	}
	log = append(log, "Tests passed (or none found).")

	log = append(log, "", "--- Execution Phase ---")
	execOut, execErr := d.runCommandLine(runCtx, dir, d.runCommand+" "+path)
	if execErr != nil {
		log = append(log, fmt.Sprintf("Execution failed:\n%s", execOut))
		return false, strings.Join(log, "\n")
	}
	if strings.TrimSpace(execOut) != "" {
		log = append(log, "Output:", execOut)
	} else {
		log = append(log, "Code executed with no direct output.")
	}

	log = append(log, "", "Deployed to virtual environment.")
	return true, strings.Join(log, "\n")
}

func (d *DevOps) extension() string {
	switch d.language {
	case "go":
		return ".go"
	case "javascript":
		return ".js"
	default:
		return ".py"
	}
}

func (d *DevOps) runCommandLine(ctx context.Context, dir, commandLine string) (string, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// pytest exits 5 when no tests were collected; that is not a failure here.
func isNoTestsError(output string) bool {
	return strings.Contains(output, "no tests ran") ||
		strings.Contains(output, "collected 0 items")
}
