package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	logx "chronod/pkg/logx"
)

type runResult struct {
	id      string
	started time.Time
	dur     time.Duration
	err     *ActionError
}

// invoke runs the job's action, turning a returned error or a panic into an ActionError.
// Durations are wall time; the scheduler clock may be fake.
func (s *Scheduler) invoke(ctx context.Context, j *Job) (res runResult) {
	res.id = uuid.NewString()
	res.started = s.clock.Now()
	start := time.Now()
	defer func() {
		res.dur = time.Since(start)
		if r := recover(); r != nil {
			res.err = &ActionError{Job: j.name, Panic: r, Stack: string(debug.Stack())}
		}
	}()
	if err := j.action(ctx); err != nil {
		res.err = &ActionError{Job: j.name, Err: err}
	}
	return res
}

// report logs the outcome of one run and publishes a job.run event.
func (s *Scheduler) report(j *Job, res runResult, next time.Time) {
	ev := RunEvent{
		RunID:      res.id,
		Job:        j.name,
		Recurrence: j.recurrence.String(),
		Started:    res.started,
		Duration:   res.dur,
		NextDue:    next,
	}
	if res.err != nil {
		ev.Error = res.err.Error()
		fields := []logx.Field{
			logx.String("job", j.name),
			logx.String("run", res.id),
			logx.Duration("dur", res.dur),
			logx.Time("next", next),
			logx.Err(res.err),
		}
		if res.err.Panic != nil {
			fields = append(fields, logx.Stack(res.err.Stack))
		}
		s.log.Error("job failed", fields...)
	} else {
		s.log.Info("job ran",
			logx.String("job", j.name),
			logx.String("run", res.id),
			logx.Duration("dur", res.dur),
			logx.Time("next", next),
		)
	}
	s.publish(EventJobRun, res.started, ev)
}
