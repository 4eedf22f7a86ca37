package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"chronod/internal/task/scheduler"
	logx "chronod/pkg/logx"
)

var storageDrivers = map[string]bool{"": true, "none": true, "file": true, "sqlite": true, "sqlite3": true}

// Validate checks cfg without side effects. Job schedules are parsed with
// scheduler.ParseSchedule so a bad schedule is caught before anything starts.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	l := cfg.Logging
	if !logx.ValidLevel(l.Level) {
		add(errors.Newf("logging.level: unknown level %q", l.Level))
	}
	if f := strings.ToLower(strings.TrimSpace(l.File.Format)); f != "" && f != "json" && f != "text" {
		add(errors.Newf("logging.file.format: want json or text, got %q", l.File.Format))
	}
	if l.File.MaxBytes < 0 {
		add(errors.New("logging.file.max_bytes: must be >= 0"))
	}
	if l.File.Backups < 0 {
		add(errors.New("logging.file.backups: must be >= 0"))
	}
	if l.File.Enabled && strings.TrimSpace(l.File.Path) == "" {
		add(errors.New("logging.file.path: required when the file sink is enabled"))
	}

	s := cfg.Scheduler
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(errors.WithHint(errors.Wrap(err, "scheduler.timezone"), "use an IANA name like Europe/Berlin"))
		}
	}
	if d, err := ParseDurationField("scheduler.poll_interval", s.PollInterval); err != nil {
		add(err)
	} else if strings.TrimSpace(s.PollInterval) != "" && d == 0 {
		add(errors.New("scheduler.poll_interval: must be > 0"))
	}
	_, err := ParseDurationField("scheduler.shutdown_grace", s.ShutdownGrace)
	add(err)

	drv := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if !storageDrivers[drv] {
		add(errors.Newf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	seen := map[string]bool{}
	for i, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			add(errors.Newf("jobs[%d].name: required", i))
			continue
		}
		if seen[name] {
			add(errors.Newf("jobs[%d].name: duplicate job %q", i, name))
		}
		seen[name] = true
		if _, err := scheduler.ParseSchedule(j.Schedule); err != nil {
			add(errors.Wrapf(err, "jobs[%d] %q", i, name))
		}
	}

	return errors.Join(errs...)
}
