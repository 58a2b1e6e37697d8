package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/qualgate/internal/detect"
)

var (
	// detectJSON prints the context as JSON.
	detectJSON bool
	// detectRoots are the roots to inspect.
	detectRoots []string
)

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the context as JSON")
	detectCmd.Flags().StringArrayVar(&detectRoots, "root", nil, "workspace root (repeatable)")
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show the detected execution context",
	Long: `Detect and print the execution context qualgate would plan against:
branch classification, modified files, technology stacks, change scope,
and the confidence score.

Examples:
  qualgate detect
  qualgate detect --json --root services/api`,
	RunE: runDetect,
}

// runDetect handles the detect command.
func runDetect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	roots := detectRoots
	if len(roots) == 0 {
		roots = a.cfg.Workspace.Roots
	}
	roots, err = detect.ExpandRoots(roots)
	if err != nil {
		return err
	}

	ctx, err := a.detector.Detect(cmd.Context(), roots, detect.Options{})
	if err != nil {
		return err
	}

	if detectJSON {
		data, err := json.MarshalIndent(ctx, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("branch:     %s (%s)\n", ctx.Branch, ctx.Kind)
	if ctx.TaskID != "" {
		fmt.Printf("task:       %s\n", ctx.TaskID)
	}
	fmt.Printf("scope:      %s, %d lines changed\n", ctx.Scope.Impact, ctx.Scope.LinesChanged)
	fmt.Printf("modified:   %d files\n", len(ctx.ModifiedFiles))
	for _, s := range ctx.Stacks {
		name := s.Language
		if s.Framework != "" {
			name += "/" + s.Framework
		}
		fmt.Printf("stack:      %s (tools: %v)\n", name, s.RecommendedTools)
	}
	fmt.Printf("confidence: %.2f\n", ctx.Confidence)

	return nil
}
