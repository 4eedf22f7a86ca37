package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Action is the body of a job. A returned error or a panic counts as a failure.
type Action func(ctx context.Context) error

// Job is a named recurring rule bound to an action.
//
// The recurrence is fixed at construction. nextDue and lastRun are owned by the
// scheduler loop; the mutex only exists so Info can be read from other goroutines.
type Job struct {
	name       string
	recurrence Recurrence
	action     Action

	mu       sync.Mutex
	primed   bool
	nextDue  time.Time
	lastRun  time.Time
	runs     uint64
	failures uint64
	lastErr  string
}

// NewJob validates and builds a job.
func NewJob(name string, r Recurrence, action Action) (*Job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", nil, "job name required")
	}
	if r == nil {
		return nil, invalid("recurrence", name, "recurrence required")
	}
	if action == nil {
		return nil, invalid("action", name, "action required")
	}
	return &Job{name: name, recurrence: r, action: action}, nil
}

func (j *Job) Name() string           { return j.name }
func (j *Job) Recurrence() Recurrence { return j.recurrence }

// NextDue returns the zero time until the job has been primed.
func (j *Job) NextDue() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextDue
}

// LastRun returns the zero time if the job never fired.
func (j *Job) LastRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// JobInfo is a copy of a job's state for diagnostics.
type JobInfo struct {
	Name       string
	Recurrence string
	Kind       Kind
	NextDue    time.Time
	LastRun    time.Time
	Runs       uint64
	Failures   uint64
	LastError  string
}

func (j *Job) Info() JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobInfo{
		Name:       j.name,
		Recurrence: j.recurrence.String(),
		Kind:       j.recurrence.Kind(),
		NextDue:    j.nextDue,
		LastRun:    j.lastRun,
		Runs:       j.runs,
		Failures:   j.failures,
		LastError:  j.lastErr,
	}
}

// prime sets the first due time. It reports false if the job was already primed.
func (j *Job) prime(now time.Time) (time.Time, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.primed {
		return j.nextDue, false, nil
	}
	next := ComputeNext(j.recurrence, now, time.Time{})
	if !next.After(now) {
		return time.Time{}, false, invariantErr(j.name, now, next)
	}
	j.primed = true
	j.nextDue = next
	return next, true, nil
}

func (j *Job) due(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.primed && !j.nextDue.After(now)
}

// complete records a fire at now and reschedules the job.
func (j *Job) complete(now time.Time, runErr error) (time.Time, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	if runErr != nil {
		j.failures++
		j.lastErr = runErr.Error()
	} else {
		j.lastErr = ""
	}
	j.lastRun = now
	next := ComputeNext(j.recurrence, now, j.lastRun)
	if !next.After(now) {
		return time.Time{}, invariantErr(j.name, now, next)
	}
	j.nextDue = next
	return next, nil
}
