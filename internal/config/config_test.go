package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefaultsWhenDefaultPathMissing(t *testing.T) {
	chdir(t, t.TempDir())
	m := NewConfigManager("")
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPath, m.Path())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console)
	assert.Equal(t, DefaultLogFile, cfg.Logging.File.Path)
	assert.Equal(t, int64(DefaultLogMaxBytes), cfg.Logging.File.MaxBytes)
	assert.Equal(t, "none", cfg.Storage.Driver)
	assert.Len(t, cfg.Jobs, 6)
	assert.Same(t, cfg, m.Get())

	d, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
	g, err := cfg.ShutdownGrace()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, g)
}

func TestDefaultPathFlagValueMayBeMissing(t *testing.T) {
	chdir(t, t.TempDir())
	for _, p := range []string{DefaultPath, "chronod.yaml"} {
		cfg, err := NewConfigManager(p).Load()
		require.NoError(t, err, p)
		assert.Len(t, cfg.Jobs, 6)
	}

	require.NoError(t, os.WriteFile("chronod.yaml", []byte("jobs: []\n"), 0o644))
	cfg, err := NewConfigManager(DefaultPath).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Jobs, "an existing default file is still read")
}

func TestExplicitMissingPathIsAnError(t *testing.T) {
	_, err := NewConfigManager(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	p := writeFile(t, "chronod.yaml", `
logging:
  level: debug
  file:
    enabled: false
scheduler:
  timezone: UTC
  poll_interval: 250ms
jobs:
  - name: standup
    schedule: weekday 09:30
    message: hi
`)
	_, err := NewConfigManager(p).Parse()
	require.Error(t, err, "weekday is not a day name")

	p = writeFile(t, "chronod.yaml", `
logging:
  level: debug
  file:
    enabled: false
scheduler:
  timezone: UTC
  poll_interval: 250ms
jobs:
  - name: standup
    schedule: every monday at 09:30
    message: hi
`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Console, "omitted fields keep defaults")
	assert.False(t, cfg.Logging.File.Enabled)
	assert.Equal(t, "json", cfg.Logging.File.Format)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)
	assert.Equal(t, "5s", cfg.Scheduler.ShutdownGrace)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, JobConfig{Name: "standup", Schedule: "every monday at 09:30", Message: "hi"}, cfg.Jobs[0])
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	p := writeFile(t, "chronod.json", `{"logging":{"level":"info","colour":true}}`)
	_, err := NewConfigManager(p).Parse()
	assert.ErrorContains(t, err, "colour")

	p = writeFile(t, "chronod.json", `{"logging":{"level":"info"}}{}`)
	_, err = NewConfigManager(p).Parse()
	assert.ErrorContains(t, err, "trailing")
}

func TestEmptyJobsListMeansNoJobs(t *testing.T) {
	p := writeFile(t, "chronod.yaml", "jobs: []\n")
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.NotNil(t, cfg.Jobs)
	assert.Empty(t, cfg.Jobs)

	p = writeFile(t, "empty.yaml", "")
	cfg, err = NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.Len(t, cfg.Jobs, 6)
}

func TestJobsDoNotInheritDefaultFields(t *testing.T) {
	p := writeFile(t, "chronod.json", `{"jobs":[{"name":"solo","schedule":"every 1m"}]}`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 1)
	assert.Empty(t, cfg.Jobs[0].Message)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_LOG_FILE", "/tmp/other.log")
	t.Setenv("SCHEDULER_LOG_FORMAT", "TEXT")
	t.Setenv("SCHEDULER_LOG_LEVEL", "warn")
	t.Setenv("SCHEDULER_LOG_MAX_BYTES", "2048")
	t.Setenv("SCHEDULER_LOG_BACKUP_COUNT", "2")
	t.Setenv("SCHEDULER_POLL_INTERVAL", "2")
	t.Setenv("SCHEDULER_SHUTDOWN_GRACE_PERIOD", "10")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	p := writeFile(t, "chronod.yaml", "logging:\n  level: debug\n  file:\n    enabled: false\n")
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)

	assert.True(t, cfg.Logging.File.Enabled)
	assert.Equal(t, "/tmp/other.log", cfg.Logging.File.Path)
	assert.Equal(t, "text", cfg.Logging.File.Format)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, int64(2048), cfg.Logging.File.MaxBytes)
	assert.Equal(t, 2, cfg.Logging.File.Backups)
	assert.Equal(t, "UTC", cfg.Scheduler.Timezone)

	d, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
	g, err := cfg.ShutdownGrace()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, g)
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("SCHEDULER_LOG_MAX_BYTES", "lots")
	p := writeFile(t, "chronod.yaml", "{}\n")
	_, err := NewConfigManager(p).Parse()
	assert.ErrorContains(t, err, "SCHEDULER_LOG_MAX_BYTES")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))
	assert.Error(t, Validate(nil))

	bad := Default()
	bad.Logging.Level = "loud"
	bad.Logging.File.Format = "xml"
	bad.Scheduler.Timezone = "Mars/Olympus"
	bad.Scheduler.PollInterval = "0s"
	bad.Scheduler.ShutdownGrace = "-1s"
	bad.Storage.Driver = "postgres"
	bad.Jobs = append(bad.Jobs,
		JobConfig{Name: "morning", Schedule: "daily 07:00"},
		JobConfig{Name: "", Schedule: "daily 07:00"},
		JobConfig{Name: "broken", Schedule: "daily 25:00"},
	)

	sqlite := Default()
	sqlite.Storage.Driver = "sqlite3"
	require.NoError(t, Validate(sqlite))

	err := Validate(bad)
	require.Error(t, err)
	for _, want := range []string{
		"logging.level", "logging.file.format", "scheduler.timezone", "scheduler.poll_interval",
		"scheduler.shutdown_grace", "storage.driver", `duplicate job "morning"`, "jobs[7].name", `"broken"`,
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := Default()
	b := Default()
	changed, _ := SummarizeConfigChange(a, b)
	assert.Empty(t, changed)

	b.Logging.Level = "debug"
	b.Jobs = b.Jobs[:2]
	b.Scheduler.PollInterval = "2s"
	changed, attrs := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"logging", "scheduler", "jobs"}, changed)
	assert.NotEmpty(t, attrs)
	assert.Equal(t, []string{"scheduler", "jobs"}, RestartRequired(changed))
}

func TestWatchPublishesValidChanges(t *testing.T) {
	p := writeFile(t, "chronod.yaml", "logging:\n  level: info\n")
	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(_ context.Context, cfg *Config) error { return nil })

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Keep rewriting until the watcher is up and picks the change.
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-ch:
			assert.Equal(t, "debug", cfg.Logging.Level)
			assert.Equal(t, "debug", m.Get().Logging.Level)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: debug\n"), 0o644))
		case <-ctx.Done():
			t.Fatal("no config published")
		}
	}
}

func TestReloadSkipsInvalidAndUnchanged(t *testing.T) {
	p := writeFile(t, "chronod.yaml", "logging:\n  level: info\n")
	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)

	assert.False(t, m.reload(context.Background()), "unchanged")

	require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: shouty\n"), 0o644))
	assert.False(t, m.reload(context.Background()), "invalid")
	assert.Equal(t, "info", m.Get().Logging.Level)

	require.NoError(t, os.WriteFile(p, []byte("jobs:\n  - name: x\n    schedule: at\n"), 0o644))
	assert.False(t, m.reload(context.Background()), "bad schedule")
	assert.Len(t, m.Get().Jobs, 6)

	require.NoError(t, os.WriteFile(p, []byte("logging:\n  level: warn\n"), 0o644))
	m.SetValidator(func(context.Context, *Config) error { return assert.AnError })
	assert.False(t, m.reload(context.Background()), "rejected by validator")

	m.SetValidator(nil)
	assert.True(t, m.reload(context.Background()))
	assert.Equal(t, "warn", m.Get().Logging.Level)
}
