package app

import (
	"chronod/internal/config"
	"chronod/internal/runtime/supervisor"
	"chronod/internal/task/scheduler"
)

// ---- Config ----

type Config = config.Config

type ConfigManager = config.ConfigManager

var NewConfigManager = config.NewConfigManager

var SummarizeConfigChange = config.SummarizeConfigChange

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.New

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

// ---- Scheduler ----

type Snapshot = scheduler.Snapshot

type JobInfo = scheduler.JobInfo

// IsValidation reports whether err is a job or schedule validation failure.
var IsValidation = scheduler.IsValidation
