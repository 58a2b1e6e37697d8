package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qualgate/internal/feedback"
)

var (
	// reportsTool filters the listing by tool id.
	reportsTool string
	// reportsIssueURL prints the generated issue URL with show.
	reportsIssueURL bool
)

func init() {
	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsDeleteCmd)
	reportsCmd.AddCommand(reportsCleanupCmd)

	reportsListCmd.Flags().StringVar(&reportsTool, "tool", "", "only list reports for this tool")
	reportsShowCmd.Flags().BoolVar(&reportsIssueURL, "issue-url", false, "also print the issue-tracker URL")
}

// reportsCmd is the parent command for feedback report operations.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage persisted incident reports",
	Long: `Manage the incident reports the feedback pipeline persists on
failed runs.

Examples:
  qualgate reports list
  qualgate reports show 4f7c2a1e-...
  qualgate reports cleanup`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted incident reports",
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print an incident report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsShow,
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <report-id>",
	Short: "Delete an incident report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportsDelete,
}

var reportsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete reports older than the retention window",
	RunE:  runReportsCleanup,
}

func runReportsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	entries := a.feedback.Store().List(feedback.ListFilter{Tool: reportsTool})
	if len(entries) == 0 {
		fmt.Println("no reports")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n", e.ReportID, e.Timestamp.Format("2006-01-02 15:04"), e.Tool)
	}
	return nil
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	report, doc, err := a.feedback.Store().Get(args[0])
	if err != nil {
		return err
	}
	fmt.Print(doc)

	if reportsIssueURL {
		issue, err := a.feedback.IssueURLFor(report, doc)
		if err != nil {
			return err
		}
		fmt.Printf("\nissue URL (%s): %s\n", issue.Method, issue.URL)
	}
	return nil
}

func runReportsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.feedback.Store().Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func runReportsCleanup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.feedback.Store().CleanupOld()
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d report(s) past retention\n", n)
	return nil
}
