package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qualgate/internal/aggregate"
	"github.com/fyrsmithlabs/qualgate/internal/orchestrator"
	"github.com/fyrsmithlabs/qualgate/internal/plan"
)

var (
	// runMode overrides the configured default plan mode.
	runMode string
	// runFormat selects the human output rendering.
	runFormat string
	// runRoots are the workspace roots, repeatable for monorepos.
	runRoots []string
	// runIncremental restricts detection to files changed since the
	// last run.
	runIncremental bool
	// runNoFeedback disables incident-report generation on failure.
	runNoFeedback bool
	// runOutput writes the JSON report artifact to a file.
	runOutput string
	// runJSON forces JSON output regardless of CI detection.
	runJSON bool
)

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "plan mode: fast, auto, or full (default from config)")
	runCmd.Flags().StringVar(&runFormat, "format", aggregate.FormatSummary, "output format: summary, detailed, or table")
	runCmd.Flags().StringArrayVar(&runRoots, "root", nil, "workspace root (repeatable; default current directory)")
	runCmd.Flags().BoolVar(&runIncremental, "incremental", false, "only consider files changed since the last run")
	runCmd.Flags().BoolVar(&runNoFeedback, "no-feedback", false, "skip incident report generation on failure")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the JSON report to a file")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the JSON report instead of the human summary")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality gate against the workspace",
	Long: `Run the quality gate: detect the change context, select a plan for
the chosen mode, execute the tools, and report.

Examples:
  # Validate only what changed, quickly
  qualgate run --mode fast

  # Full definition-of-done validation
  qualgate run --mode full --format table

  # Monorepo with two roots
  qualgate run --root services/api --root web`,
	RunE: runRun,
}

// runRun handles the run command.
func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	mode := plan.Mode(runMode)
	if runMode == "" {
		mode = plan.Mode(a.cfg.Execution.Mode)
	}

	roots := runRoots
	if len(roots) == 0 {
		roots = a.cfg.Workspace.Roots
	}
	dir := "."
	if len(roots) > 0 {
		dir = roots[0]
	}

	orch := a.orchestrator(dir)

	ci := inCI()
	if !ci && !runJSON {
		orch.OnProgress(func(p orchestrator.StageProgress) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %-12s", p.Percentage, p.Stage)
			if p.Percentage == 100 {
				fmt.Fprintln(os.Stderr)
			}
		})
	}

	outcome, runErr := orch.Run(cmd.Context(), orchestrator.Options{
		Mode:        mode,
		Roots:       roots,
		Incremental: runIncremental,
		Feedback:    !runNoFeedback,
	})

	emitOutput(a, outcome, ci)

	code := orchestrator.ExitCodeFor(runErr, outcome)
	if runErr != nil {
		return &exitError{code: code, msg: runErr.Error()}
	}
	if code != orchestrator.ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}

// emitOutput writes the report in the right shape for the audience:
// JSON is the single source of truth in CI, humans get the formatted
// view.
func emitOutput(a *app, outcome *orchestrator.Outcome, ci bool) {
	if outcome == nil || outcome.Report == nil {
		return
	}

	if ci || runJSON {
		fmt.Println(string(outcome.JSON))
	} else {
		view, err := aggregate.FormatResults(outcome.Report.Results, runFormat)
		if err != nil {
			view, _ = aggregate.FormatResults(outcome.Report.Results, aggregate.FormatSummary)
		}
		fmt.Print(view)
	}

	if runOutput != "" {
		if err := os.WriteFile(runOutput, outcome.JSON, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write report artifact: %v\n", err)
		}
	}

	// CI gate output for pipeline steps that consume key=value files.
	if ghOut := os.Getenv("GITHUB_OUTPUT"); ci && ghOut != "" {
		f, err := os.OpenFile(ghOut, os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "passed=%t\n", outcome.Report.Passed())
			f.Close()
		}
	}

	if outcome.Feedback != nil {
		fmt.Fprintf(os.Stderr, "incident report saved: %s\n", outcome.Feedback.FilePath)
		if _, doc, err := a.feedback.Store().Get(outcome.Feedback.ReportID); err == nil {
			if issue, err := a.feedback.IssueURLFor(outcome.Feedback, doc); err == nil {
				fmt.Fprintf(os.Stderr, "file an issue: %s\n", issue.URL)
			}
		}
	}
}

// inCI detects CI-platform environment markers.
func inCI() bool {
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" || os.Getenv("GITLAB_CI") != ""
}
