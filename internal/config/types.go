package config

import "time"

// Config is the on-disk configuration (JSON or YAML).
//
// Omitted fields keep the values from Default(); an omitted jobs list keeps the
// built-in jobs, an explicit empty list means no jobs.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Systemd   SystemdConfig   `json:"systemd"`
	Jobs      []JobConfig     `json:"jobs"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

// LoggingFile is the rotated log file sink.
type LoggingFile struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path"`
	Format   string `json:"format"` // json|text
	MaxBytes int64  `json:"max_bytes"`
	Backups  int    `json:"backups"`
}

// SchedulerConfig durations are Go duration strings (e.g. "1s", "500ms").
type SchedulerConfig struct {
	// Timezone is an IANA name, e.g. "Europe/Berlin". Empty means Local.
	Timezone      string `json:"timezone,omitempty"`
	PollInterval  string `json:"poll_interval"`
	ShutdownGrace string `json:"shutdown_grace"`
}

// StorageConfig controls the optional run history store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./chronod_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	// Keep bounds the history kept by the file driver; 0 means unbounded.
	Keep int `json:"keep,omitempty"`
}

type SystemdConfig struct {
	Notify bool `json:"notify"`
}

// JobConfig defines one job. Schedule uses the scheduler's human syntax,
// e.g. "daily 08:00", "monday 09:00" or "every 10m".
type JobConfig struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Message  string `json:"message"`
}

// PollInterval resolves scheduler.poll_interval (default 1s).
func (c *Config) PollInterval() (time.Duration, error) {
	return ParseDurationOrDefault("scheduler.poll_interval", c.Scheduler.PollInterval, time.Second)
}

// ShutdownGrace resolves scheduler.shutdown_grace. Zero disables the grace wait.
func (c *Config) ShutdownGrace() (time.Duration, error) {
	return ParseDurationField("scheduler.shutdown_grace", c.Scheduler.ShutdownGrace)
}
