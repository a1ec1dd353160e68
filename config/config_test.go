package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "vtask", cfg.Name)
	assert.GreaterOrEqual(t, cfg.Carriers, 1)
	assert.Equal(t, 100, cfg.HistoryCapacity)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.DaemonDefault)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, "vtask", cfg.Metrics.Namespace)
	assert.Equal(t, time.Second, cfg.Metrics.PollInterval)
	assert.Empty(t, cfg.Metrics.Listen)
}

func TestLoadReader_YAMLOverridesDefaults(t *testing.T) {
	yml := `
name: bench
carriers: 4
history_capacity: 16
shutdown_timeout: 250ms
daemon_default: true
log:
  level: debug
metrics:
  namespace: demo
  poll_interval: 2s
  listen: ":9102"
`
	cfg, err := LoadReader(strings.NewReader(yml))
	require.NoError(t, err)

	assert.Equal(t, "bench", cfg.Name)
	assert.Equal(t, 4, cfg.Carriers)
	assert.Equal(t, 16, cfg.HistoryCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.ShutdownTimeout)
	assert.True(t, cfg.DaemonDefault)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
	assert.Equal(t, 2*time.Second, cfg.Metrics.PollInterval)
	assert.Equal(t, ":9102", cfg.Metrics.Listen)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vtask.yml")
	require.NoError(t, os.WriteFile(path, []byte("carriers: 2\nlog:\n  level: warn\n"), 0o600))

	t.Setenv("VTASK_CARRIERS", "8")
	t.Setenv("VTASK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Carriers)
	assert.Equal(t, logrus.ErrorLevel, cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadReader_ReportsAllInvalidValues(t *testing.T) {
	yml := `
carriers: 0
shutdown_timeout: soon
log:
  level: loud
`
	_, err := LoadReader(strings.NewReader(yml))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, PropCarriers)
	assert.Contains(t, msg, PropShutdownTimeout)
	assert.Contains(t, msg, PropLogLevel)
}

func TestRuntimeConfig_SchedulerConfig(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader("name: conv\ncarriers: 3\ndaemon_default: true\nhistory_capacity: 7\n"))
	require.NoError(t, err)

	sc := cfg.SchedulerConfig(nil)

	assert.Equal(t, "conv", sc.Name)
	assert.Equal(t, 3, sc.Carriers)
	assert.Equal(t, 7, sc.HistoryCapacity)
	assert.True(t, sc.DaemonByDefault)
	assert.NotNil(t, sc.Logger)
	assert.NotNil(t, sc.PanicHandler)
	assert.NotNil(t, sc.RejectedTaskHandler)
	assert.NotNil(t, sc.Metrics)
}

func TestRuntimeConfig_NewLoggerLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = logrus.WarnLevel

	assert.Equal(t, logrus.WarnLevel, cfg.NewLogger().GetLevel())
}
