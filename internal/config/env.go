package config

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "SCHEDULER"

// Environment keys, bound as SCHEDULER_<KEY>.
var envKeys = []string{
	"log_file",
	"log_format",
	"log_level",
	"log_max_bytes",
	"log_backup_count",
	"poll_interval",
	"shutdown_grace_period",
	"timezone",
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// applyEnv overlays SCHEDULER_* variables on cfg. Env wins over the file.
func applyEnv(cfg *Config) error {
	v := newEnv()
	get := func(k string) (string, bool) {
		s := strings.TrimSpace(v.GetString(k))
		return s, s != ""
	}

	if s, ok := get("log_file"); ok {
		cfg.Logging.File.Enabled = true
		cfg.Logging.File.Path = s
	}
	if s, ok := get("log_format"); ok {
		cfg.Logging.File.Format = strings.ToLower(s)
	}
	if s, ok := get("log_level"); ok {
		cfg.Logging.Level = strings.ToLower(s)
	}
	if s, ok := get("log_max_bytes"); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "%s_LOG_MAX_BYTES", EnvPrefix)
		}
		cfg.Logging.File.MaxBytes = n
	}
	if s, ok := get("log_backup_count"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.Wrapf(err, "%s_LOG_BACKUP_COUNT", EnvPrefix)
		}
		cfg.Logging.File.Backups = n
	}
	if s, ok := get("poll_interval"); ok {
		d, err := parseSecondsOrDuration(EnvPrefix+"_POLL_INTERVAL", s)
		if err != nil {
			return err
		}
		cfg.Scheduler.PollInterval = d
	}
	if s, ok := get("shutdown_grace_period"); ok {
		d, err := parseSecondsOrDuration(EnvPrefix+"_SHUTDOWN_GRACE_PERIOD", s)
		if err != nil {
			return err
		}
		cfg.Scheduler.ShutdownGrace = d
	}
	if s, ok := get("timezone"); ok {
		cfg.Scheduler.Timezone = s
	}
	return nil
}
