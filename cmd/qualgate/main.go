// Package main implements the qualgate CLI, the quality-gate
// orchestration engine for workspace validation runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// cfgPath overrides the default config file location.
	cfgPath string
	// verbose enables debug logging.
	verbose bool
	// version information
	version = "dev"
)

// exitError carries a specific process exit code out of a RunE
// handler.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, ee.msg)
			}
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qualgate",
	Short: "Quality-gate orchestration for workspace validation",
	Long: `qualgate detects the change context of a workspace, selects an
execution plan across external analysis tools, runs them under the
chosen concurrency strategy, and aggregates the results into a single
scored report.

Exit codes: 0 success, 1 critical failure, 2 configuration error,
3 timeout, 4 permission error, 130 interrupt.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.config/qualgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reportsCmd)
}
