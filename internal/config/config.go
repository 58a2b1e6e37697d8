// Package config provides configuration loading for qualgate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for a qualgate invocation.
type Config struct {
	Workspace WorkspaceConfig `koanf:"workspace"`
	Execution ExecutionConfig `koanf:"execution"`
	Reports   ReportsConfig   `koanf:"reports"`
	History   HistoryConfig   `koanf:"history"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// WorkspaceConfig describes the workspace under validation.
type WorkspaceConfig struct {
	// Roots are the project roots to inspect. Empty means the current
	// working directory.
	Roots []string `koanf:"roots"`

	// BaseBranch is the reference the modified-file diff is computed
	// against.
	BaseBranch string `koanf:"base_branch"`
}

// ExecutionConfig bounds tool execution.
type ExecutionConfig struct {
	// Mode is the default plan mode when the run command does not
	// specify one: fast, auto, or full.
	Mode string `koanf:"mode"`

	// Workers bounds concurrent tool subprocesses under the parallel
	// strategy.
	Workers int `koanf:"workers"`

	// ToolTimeout bounds a single tool subprocess.
	ToolTimeout time.Duration `koanf:"tool_timeout"`
}

// ReportsConfig configures the feedback report store.
type ReportsConfig struct {
	// Dir is the directory feedback reports are persisted under.
	Dir string `koanf:"dir"`

	// RetentionDays is the age past which cleanup deletes a report.
	RetentionDays int `koanf:"retention_days"`

	// IssueRepo is the "owner/name" slug issue URLs are generated for.
	IssueRepo string `koanf:"issue_repo"`
}

// HistoryConfig configures the branch-pattern accuracy store.
type HistoryConfig struct {
	// Path is the sqlite database file holding pattern history.
	Path string `koanf:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.Execution.Mode {
	case "fast", "auto", "full":
	default:
		return fmt.Errorf("invalid execution.mode %q (want fast, auto, or full)", c.Execution.Mode)
	}

	if c.Execution.Workers < 1 {
		return fmt.Errorf("execution.workers must be at least 1, got %d", c.Execution.Workers)
	}
	if c.Execution.ToolTimeout <= 0 {
		return fmt.Errorf("execution.tool_timeout must be positive, got %s", c.Execution.ToolTimeout)
	}
	if c.Reports.RetentionDays < 1 {
		return fmt.Errorf("reports.retention_days must be at least 1, got %d", c.Reports.RetentionDays)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q (want json or console)", c.Logging.Format)
	}

	return nil
}

// applyDefaults sets default values for fields the file and environment
// left unset.
func applyDefaults(cfg *Config) {
	if cfg.Workspace.BaseBranch == "" {
		cfg.Workspace.BaseBranch = "main"
	}

	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = "auto"
	}
	if cfg.Execution.Workers == 0 {
		cfg.Execution.Workers = 4
	}
	if cfg.Execution.ToolTimeout == 0 {
		cfg.Execution.ToolTimeout = 2 * time.Minute
	}

	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = defaultUserPath("reports")
	}
	if cfg.Reports.RetentionDays == 0 {
		cfg.Reports.RetentionDays = 30
	}

	if cfg.History.Path == "" {
		cfg.History.Path = defaultUserPath("history.db")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// defaultUserPath returns a path under the user qualgate config dir.
// Falls back to a relative .qualgate directory when the home directory
// cannot be resolved.
func defaultUserPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".qualgate", name)
	}
	return filepath.Join(home, ".config", "qualgate", name)
}
