package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Missing file: defaults apply across the board.
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Workspace.BaseBranch)
	assert.Equal(t, "auto", cfg.Execution.Mode)
	assert.Equal(t, 4, cfg.Execution.Workers)
	assert.Equal(t, 2*time.Minute, cfg.Execution.ToolTimeout)
	assert.Equal(t, 30, cfg.Reports.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Reports.Dir)
	assert.NotEmpty(t, cfg.History.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
workspace:
  base_branch: develop
execution:
  mode: fast
  workers: 8
  tool_timeout: 90s
reports:
  retention_days: 7
  issue_repo: acme/widgets
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.Workspace.BaseBranch)
	assert.Equal(t, "fast", cfg.Execution.Mode)
	assert.Equal(t, 8, cfg.Execution.Workers)
	assert.Equal(t, 90*time.Second, cfg.Execution.ToolTimeout)
	assert.Equal(t, 7, cfg.Reports.RetentionDays)
	assert.Equal(t, "acme/widgets", cfg.Reports.IssueRepo)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
execution:
  mode: fast
`)
	t.Setenv("QUALGATE_EXECUTION_MODE", "full")
	t.Setenv("QUALGATE_REPORTS_RETENTION_DAYS", "14")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Execution.Mode)
	assert.Equal(t, 14, cfg.Reports.RetentionDays)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := writeConfig(t, `
execution:
  mode: turbo
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution.mode")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "execution: [not: a: mapping")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidateBounds(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Execution.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Execution.ToolTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Reports.RetentionDays = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}
