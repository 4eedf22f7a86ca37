package app

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"chronod/internal/config"
	"chronod/internal/storage"
	logx "chronod/pkg/logx"
)

func mapStorageConfig(cfg *Config) (storage.Config, bool, error) {
	if cfg == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		path = config.DefaultStoragePath
	}

	switch driver {
	case "file":
		return storage.Config{Driver: driver, Path: path, Keep: sc.Keep}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, errors.Newf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLoggingConfig(cfg *Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled:  lc.File.Enabled,
			Path:     lc.File.Path,
			Format:   lc.File.Format,
			MaxBytes: lc.File.MaxBytes,
			Backups:  lc.File.Backups,
		},
	}
}

// History reads up to limit recent runs (newest first) from the store
// configured in cfg. An empty job matches all jobs.
func History(ctx context.Context, cfg *Config, job string, limit int) ([]storage.RunRecord, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, errors.WithHint(errors.New("run history is disabled"), "set storage.driver to file or sqlite")
	}
	st, err := storage.Open(sc, logx.Nop())
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.RecentRuns(ctx, job, limit)
}
