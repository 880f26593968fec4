// Package cli implements the crew command-line interface.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/autodevcrew/crew/internal/config"
	"github.com/autodevcrew/crew/internal/deploy"
)

var (
	flagTask        string
	flagProject     string
	flagPriority    string
	flagLightweight bool
	flagPrivacy     string
	flagMode        string
	flagDeployTo    string
	flagHost        string
	flagPort        int
	flagConfig      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crew",
	Short: "Multi-agent software development pipeline",
	Long: `crew runs a four-agent pipeline (Engineer, Tester, DevOps, Summarizer)
that turns a task description into validated, deployable code.

Quick start:
  crew --task "Write a fizzbuzz program"    Run one pipeline task
  crew                                      Open the interactive menu
  crew --mode api --port 8000               Start the HTTP API and task UI
  crew --mode deploy --deploy-to huggingface --task "..."`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagTask, "task", "", "task description to run through the pipeline")
	flags.StringVar(&flagProject, "project", "", "project name used to group tasks")
	flags.StringVar(&flagPriority, "priority", "", "task priority label")
	flags.BoolVar(&flagLightweight, "lightweight", false, "enable lightweight mode for constrained hardware")
	flags.StringVar(&flagPrivacy, "privacy", "", "privacy level: strict, moderate or open")
	flags.StringVar(&flagMode, "mode", "cli", "run mode: cli, api, ui or deploy")
	flags.StringVar(&flagDeployTo, "deploy-to", "", "deployment target: huggingface or colab")
	flags.StringVar(&flagHost, "host", "", "server bind host (api/ui modes)")
	flags.IntVar(&flagPort, "port", 0, "server port (api/ui modes)")
	flags.StringVar(&flagConfig, "config", "", "config file path (default config/development.yaml)")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	// Flags override file and environment settings.
	if flagPrivacy != "" {
		cfg.PrivacyLevel = flagPrivacy
	}
	if flagLightweight {
		cfg.Lightweight = true
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()

	switch strings.ToLower(flagMode) {
	case "cli":
		if flagTask != "" {
			return runSingleTask(ctx, app, flagTask, flagProject, flagPriority)
		}
		return runMenu(ctx, app)

	case "api", "ui":
		return app.Serve(ctx)

	case "deploy":
		if flagTask == "" {
			return fmt.Errorf("deploy mode requires --task")
		}
		target, err := deploy.ParseTarget(flagDeployTo)
		if err != nil {
			return err
		}
		return runDeploy(ctx, app, target, flagTask, flagProject)

	default:
		return fmt.Errorf("unknown mode: %s (expected cli, api, ui or deploy)", flagMode)
	}
}
