package config

const (
	DefaultPath          = "./chronod.yaml"
	DefaultLogFile       = "scheduler.log"
	DefaultLogMaxBytes   = 1_000_000
	DefaultLogBackups    = 5
	DefaultPollInterval  = "1s"
	DefaultShutdownGrace = "5s"
	DefaultStoragePath   = "./chronod_store"
)

// DefaultJobs are used when the config omits the jobs list.
func DefaultJobs() []JobConfig {
	return []JobConfig{
		{Name: "morning", Schedule: "daily 08:00", Message: "Good morning! Time to start the day with some coffee."},
		{Name: "afternoon", Schedule: "daily 12:00", Message: "Good afternoon! Time for a quick walk."},
		{Name: "evening", Schedule: "daily 18:00", Message: "Good evening! Time to wind down and relax."},
		{Name: "midnight", Schedule: "daily 00:00", Message: "It's midnight! Time to review your day and plan for tomorrow."},
		{Name: "interval", Schedule: "every 10m", Message: "This is a recurring task running every 10 minutes."},
		{Name: "weekly", Schedule: "monday 09:00", Message: "This is your weekly Monday 9:00 AM reminder."},
	}
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File: LoggingFile{
				Enabled:  true,
				Path:     DefaultLogFile,
				Format:   "json",
				MaxBytes: DefaultLogMaxBytes,
				Backups:  DefaultLogBackups,
			},
		},
		Scheduler: SchedulerConfig{
			PollInterval:  DefaultPollInterval,
			ShutdownGrace: DefaultShutdownGrace,
		},
		Storage: StorageConfig{Driver: "none", Path: DefaultStoragePath},
		Systemd: SystemdConfig{Notify: true},
		Jobs:    DefaultJobs(),
	}
}
