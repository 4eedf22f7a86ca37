package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronod/internal/config"
	"chronod/internal/runtime/lifecycle"
	"chronod/internal/storage"
	"chronod/internal/task/scheduler"
	logx "chronod/pkg/logx"
)

func writeConfig(t *testing.T, jobs string) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	body := `
logging:
  level: debug
  console: false
  file:
    enabled: true
    path: ` + filepath.Join(dir, "scheduler.log") + `
scheduler:
  timezone: UTC
  poll_interval: 20ms
  shutdown_grace: 1s
storage:
  driver: file
  path: ` + filepath.Join(dir, "store") + `
systemd:
  notify: false
` + jobs
	cfgPath = filepath.Join(dir, "chronod.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, dir
}

func TestBuildRegistry(t *testing.T) {
	reg, err := BuildRegistry([]config.JobConfig{
		{Name: "morning", Schedule: "daily 08:00", Message: "coffee"},
		{Name: "weekly", Schedule: "monday 09:00"},
		{Name: "interval", Schedule: "every 10m"},
	}, logx.Nop())
	require.NoError(t, err)

	var got []string
	for _, j := range reg.All() {
		got = append(got, j.Name()+"|"+j.Recurrence().String())
	}
	assert.Equal(t, []string{
		"morning|daily at 08:00",
		"weekly|every Monday at 09:00",
		"interval|every 10m0s",
	}, got)

	_, err = BuildRegistry([]config.JobConfig{
		{Name: "ok", Schedule: "every 1m"},
		{Name: "bad", Schedule: "daily 24:00"},
	}, logx.Nop())
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorContains(t, err, "jobs[1]")

	_, err = BuildRegistry([]config.JobConfig{
		{Name: "twice", Schedule: "every 1m"},
		{Name: "twice", Schedule: "every 2m"},
	}, logx.Nop())
	assert.True(t, IsValidation(err))

	_, err = BuildRegistry([]config.JobConfig{{Name: " ", Schedule: "every 1m"}}, logx.Nop())
	assert.True(t, IsValidation(err))
}

func TestMessageAction(t *testing.T) {
	var buf strings.Builder
	log := logx.NewWriter(&buf, "info")
	require.NoError(t, messageAction(log, "morning", "coffee")(context.Background()))
	require.NoError(t, messageAction(log, "silent", "")(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "coffee")
	assert.Contains(t, out, "morning")
	assert.Contains(t, out, "job triggered")
}

func TestToRunRecord(t *testing.T) {
	started := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	r := toRunRecord(scheduler.RunEvent{
		RunID: "r1", Job: "j", Recurrence: "every 1m0s",
		Started: started, Duration: 1500 * time.Millisecond,
		NextDue: started.Add(time.Minute),
	})
	assert.True(t, r.OK)
	assert.Equal(t, int64(1500), r.TookMS)
	assert.Equal(t, started.Add(time.Minute), r.NextDue)

	r = toRunRecord(scheduler.RunEvent{Job: "j", Error: "boom"})
	assert.False(t, r.OK)
	assert.Equal(t, "boom", r.Error)
}

func TestMapStorageConfig(t *testing.T) {
	cfg := config.Default()
	_, enabled, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.False(t, enabled)

	cfg.Storage = config.StorageConfig{Driver: "FILE", Keep: 10}
	sc, enabled, err := mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, storage.Config{Driver: "file", Path: config.DefaultStoragePath, Keep: 10}, sc)

	cfg.Storage = config.StorageConfig{Driver: "sqlite3", Path: "x.db", BusyTimeout: "250ms"}
	sc, _, err = mapStorageConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", sc.Driver)
	assert.Equal(t, 250*time.Millisecond, sc.BusyTimeout)

	cfg.Storage = config.StorageConfig{Driver: "redis"}
	_, _, err = mapStorageConfig(cfg)
	assert.Error(t, err)
}

func TestNewAppRejectsInvalidJob(t *testing.T) {
	p, _ := writeConfig(t, "jobs:\n  - name: broken\n    schedule: every 0s\n")
	_, err := NewApp(p)
	assert.Error(t, err)
}

func TestAppRunsRecordsAndStops(t *testing.T) {
	p, dir := writeConfig(t, "jobs:\n  - name: fast\n    schedule: every 100ms\n    message: tick tock\n")
	a, err := NewApp(p)
	require.NoError(t, err)
	require.NotNil(t, a.Store())

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx), "second start")

	require.Eventually(t, func() bool {
		runs, err := a.Store().RecentRuns(ctx, "fast", 0)
		return err == nil && len(runs) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	snap := a.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, "UTC", snap.Timezone)
	require.Len(t, snap.Jobs, 1)
	assert.GreaterOrEqual(t, snap.Jobs[0].Runs, uint64(2))

	select {
	case <-a.Done():
		t.Fatal("done before stop was requested")
	default:
	}

	assert.True(t, a.RequestStop(StopSIGTERM))
	assert.False(t, a.RequestStop(StopSIGINT))
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("done not closed after stop request")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(stopCtx, StopAppStop))
	assert.NoError(t, a.Err())
	assert.Equal(t, lifecycle.Stopped, a.Lifecycle().State())
	assert.Equal(t, StopSIGTERM, a.Lifecycle().Reason(), "first reason wins")
	assert.False(t, a.Snapshot().Running)

	_, err = a.Store().RecentRuns(ctx, "", 0)
	assert.ErrorIs(t, err, storage.ErrClosed)

	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.RecentRuns(ctx, "fast", 0)
	require.NoError(t, err)
	require.NotEmpty(t, runs)
	assert.True(t, runs[0].OK)
	assert.Equal(t, "every 100ms", runs[0].Recurrence)
	assert.NotEmpty(t, runs[0].RunID)

	b, err := os.ReadFile(filepath.Join(dir, "scheduler.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "tick tock")
	assert.Contains(t, string(b), "scheduler is shutting down")
	assert.Contains(t, string(b), "job summary")

	cfg, err := config.NewConfigManager(p).Parse()
	require.NoError(t, err)
	last, err := History(ctx, cfg, "fast", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, runs[0].RunID, last[0].RunID)
}

func TestStopWithoutStart(t *testing.T) {
	p, _ := writeConfig(t, "jobs: []\n")
	a, err := NewApp(p)
	require.NoError(t, err)

	require.NoError(t, a.Stop(context.Background(), StopAppStop))
	assert.Equal(t, lifecycle.Stopped, a.Lifecycle().State())
	assert.Equal(t, StopAppStop, a.Lifecycle().Reason())
	assert.NoError(t, a.Err())
}

func TestPlan(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.Timezone = "UTC"
	cfg.Jobs = []config.JobConfig{
		{Name: "morning", Schedule: "daily 08:00"},
		{Name: "interval", Schedule: "every 10m"},
		{Name: "weekly", Schedule: "monday 09:00"},
	}
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) // a Monday

	plan, err := Plan(cfg, now)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.True(t, plan[0].NextDue.Equal(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)), "%v", plan[0].NextDue)
	assert.True(t, plan[1].NextDue.Equal(now.Add(10*time.Minute)), "%v", plan[1].NextDue)
	assert.True(t, plan[2].NextDue.Equal(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)), "%v", plan[2].NextDue)
	assert.Zero(t, plan[0].Runs)

	cfg.Jobs = append(cfg.Jobs, config.JobConfig{Name: "bad", Schedule: "at"})
	_, err = Plan(cfg, now)
	assert.True(t, IsValidation(err))
}

func TestHistoryDisabled(t *testing.T) {
	_, err := History(context.Background(), config.Default(), "", 5)
	assert.ErrorContains(t, err, "disabled")
}
