package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"chronod/internal/config"
	"chronod/internal/task/scheduler"
	logx "chronod/pkg/logx"
)

// BuildRegistry turns config job entries into a registry, in config order.
// The first invalid entry aborts with a wrapped scheduler.ValidationError.
func BuildRegistry(jobs []config.JobConfig, log logx.Logger) (*scheduler.Registry, error) {
	reg := scheduler.NewRegistry()
	for i, jc := range jobs {
		rec, err := scheduler.ParseSchedule(jc.Schedule)
		if err != nil {
			return nil, errors.Wrapf(err, "jobs[%d] %q", i, jc.Name)
		}
		job, err := scheduler.NewJob(jc.Name, rec, messageAction(log, jc.Name, jc.Message))
		if err != nil {
			return nil, errors.Wrapf(err, "jobs[%d]", i)
		}
		if err := reg.Add(job); err != nil {
			return nil, errors.Wrapf(err, "jobs[%d]", i)
		}
	}
	return reg, nil
}

// messageAction logs the job's message at info.
func messageAction(log logx.Logger, name, msg string) scheduler.Action {
	if msg == "" {
		msg = "job triggered"
	}
	return func(context.Context) error {
		log.Info(msg, logx.String("job", name))
		return nil
	}
}

// Plan lists the jobs of cfg with the due time each would get if the
// scheduler started at now, in the configured timezone.
func Plan(cfg *Config, now time.Time) ([]JobInfo, error) {
	reg, err := BuildRegistry(cfg.Jobs, logx.Nop())
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if tz := cfg.Scheduler.Timezone; tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, errors.Wrapf(err, "scheduler.timezone %q", tz)
		}
	}
	now = now.In(loc)
	out := make([]JobInfo, 0, reg.Len())
	for _, j := range reg.All() {
		info := j.Info()
		info.NextDue = scheduler.ComputeNext(j.Recurrence(), now, time.Time{})
		out = append(out, info)
	}
	return out, nil
}
