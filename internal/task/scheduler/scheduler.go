package scheduler

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"

	"chronod/internal/eventbus"
	logx "chronod/pkg/logx"
)

// Scheduler drives the jobs of a Registry from a single goroutine.
type Scheduler struct {
	cfg   Config
	reg   *Registry
	log   logx.Logger
	bus   eventbus.Bus
	clock clockwork.Clock
	hook  TickHook
	loc   *time.Location

	running atomic.Bool
	ticks   atomic.Uint64
}

func New(cfg Config, reg *Registry, log logx.Logger, opts ...Option) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	if reg == nil {
		reg = NewRegistry()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	s := &Scheduler{
		cfg:   cfg,
		reg:   reg,
		log:   log,
		clock: clockwork.NewRealClock(),
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
	s.loc = s.loadLocation()
	return s
}

func (s *Scheduler) Registry() *Registry         { return s.reg }
func (s *Scheduler) Location() *time.Location    { return s.loc }
func (s *Scheduler) PollInterval() time.Duration { return s.cfg.PollInterval }

func (s *Scheduler) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Run primes every job, then ticks until stop is requested or ctx ends.
// A stop requested mid-tick takes effect once the tick's due jobs have run.
// Only clock and engine faults are returned; job failures are contained.
func (s *Scheduler) Run(ctx context.Context, stop StopSignal) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.WithStack(ErrAlreadyRunning)
	}
	defer s.running.Store(false)
	if stop == nil {
		stop = neverStop{}
	}

	now, err := s.now()
	if err != nil {
		return err
	}
	if err := s.announce(now); err != nil {
		return err
	}
	s.publish(EventStarted, now, s.reg.Len())
	defer func() { s.publish(EventStopped, s.clock.Now(), s.ticks.Load()) }()

	for !stop.StopRequested() {
		if _, err := s.Tick(ctx); err != nil {
			s.log.Error("scheduler loop failed", logx.Err(err))
			return err
		}
		if stop.StopRequested() || !s.wait(ctx, stop) {
			break
		}
	}
	s.log.Info("scheduler is shutting down", logx.Uint64("ticks", s.ticks.Load()))
	return nil
}

// announce primes all jobs and logs the schedule.
func (s *Scheduler) announce(now time.Time) error {
	jobs := s.reg.All()
	s.log.Info("scheduled jobs",
		logx.Int("jobs", len(jobs)),
		logx.String("tz", s.loc.String()),
		logx.Duration("poll", s.cfg.PollInterval),
	)
	for _, j := range jobs {
		next, _, err := j.prime(now)
		if err != nil {
			return err
		}
		s.log.Info("job",
			logx.String("job", j.name),
			logx.String("recurrence", j.recurrence.String()),
			logx.Time("next", next),
		)
	}
	return nil
}

// wait blocks for one poll interval. It returns false when the loop should exit.
func (s *Scheduler) wait(ctx context.Context, stop StopSignal) bool {
	t := s.clock.NewTimer(s.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop.Done():
		return false
	case <-t.Chan():
		return true
	}
}

// Tick runs one pass at the current clock time.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	now, err := s.now()
	if err != nil {
		return TickReport{}, err
	}
	return s.tick(ctx, now)
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) (TickReport, error) {
	rep := TickReport{Now: now}
	for _, j := range s.reg.All() {
		// Jobs added after Run started are primed here and never fire on the same pass.
		next, primed, err := j.prime(now)
		if err != nil {
			return rep, err
		}
		if primed {
			rep.Primed = append(rep.Primed, j.name)
			s.log.Debug("job primed", logx.String("job", j.name), logx.Time("next", next))
			continue
		}
		if !j.due(now) {
			continue
		}

		res := s.invoke(ctx, j)
		var runErr error
		if res.err != nil {
			runErr = res.err
		}
		next, err = j.complete(now, runErr)
		if err != nil {
			return rep, err
		}
		rep.Fired = append(rep.Fired, j.name)
		if res.err != nil {
			rep.Failures = append(rep.Failures, res.err)
		}
		s.report(j, res, next)
	}
	s.ticks.Add(1)
	if s.hook != nil {
		s.hook(rep)
	}
	return rep, nil
}

func (s *Scheduler) now() (time.Time, error) {
	t := s.clock.Now()
	if t.IsZero() {
		return time.Time{}, errors.WithStack(ErrClock)
	}
	return t.In(s.loc), nil
}

func (s *Scheduler) publish(typ string, at time.Time, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: at, Data: data})
}

type neverStop struct{}

func (neverStop) StopRequested() bool   { return false }
func (neverStop) Done() <-chan struct{} { return nil }
