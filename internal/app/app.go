package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"chronod/internal/config"
	"chronod/internal/eventbus"
	"chronod/internal/runtime/lifecycle"
	"chronod/internal/storage"
	"chronod/internal/task/scheduler"
	logx "chronod/pkg/logx"
	"chronod/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor
	lc   *lifecycle.Controller

	log    logx.Logger
	logs   *logx.Service
	bus    eventbus.Bus
	store  storage.Store
	notify *systemd.Notifier

	sched *scheduler.Scheduler

	// drained is closed when the scheduler loop has returned.
	drained chan struct{}
	done    chan struct{}
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	poll, err := cfg.PollInterval()
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	grace, err := cfg.ShutdownGrace()
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	reg, err := BuildRegistry(cfg.Jobs, log.With(logx.String("comp", "jobs")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	bus := eventbus.New()
	notify := systemd.New(cfg.Systemd.Notify, log.With(logx.String("comp", "systemd")))
	lc := lifecycle.New(grace, lifecycle.WithLogger(log.With(logx.String("comp", "lifecycle"))))

	sched := scheduler.New(scheduler.Config{
		Timezone:     cfg.Scheduler.Timezone,
		PollInterval: poll,
	}, reg, log.With(logx.String("comp", "scheduler")),
		scheduler.WithBus(bus),
		scheduler.WithTickHook(func(scheduler.TickReport) { notify.Watchdog() }),
	)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		lc:      lc,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		notify:  notify,
		sched:   sched,
		drained: make(chan struct{}),
	}, nil
}

func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

func (a *App) Lifecycle() *lifecycle.Controller { return a.lc }

// Store is nil when storage is disabled.
func (a *App) Store() storage.Store { return a.store }

func (a *App) Snapshot() Snapshot { return a.sched.Snapshot() }

// RequestStop asks the scheduler to stop after the current tick. It never
// blocks and is safe to call from a signal handler goroutine.
func (a *App) RequestStop(reason StopReason) bool {
	return a.lc.RequestStop(reason)
}

// Done is closed once a stop was requested or the app supervisor context is
// canceled (fatal error).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.done
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))
	a.done = make(chan struct{})
	go func() {
		select {
		case <-a.lc.Done():
		case <-a.sup.Context().Done():
		}
		close(a.done)
	}()

	// transactional config reload: validate before commit/publish
	a.cfgm.SetValidator(func(_ context.Context, cfg *Config) error {
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		_, err := BuildRegistry(cfg.Jobs, logx.Nop())
		return err
	})

	// Subscribe before the loop starts so no run is missed.
	if a.store != nil {
		events, unsub := a.bus.Subscribe(256, scheduler.EventJobRun)
		hlog := a.log.With(logx.String("comp", "history"))
		a.sup.Go("history", func(c context.Context) error {
			defer unsub()
			return recordHistory(c, events, a.store, hlog)
		})
	}

	a.sup.Go("scheduler", func(c context.Context) error {
		defer close(a.drained)
		return a.sched.Run(c, a.lc)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.applyConfigChanges(c, sub)
		return nil
	})

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	}, time.Second, 0)

	a.notify.Ready()
	a.notify.Status(fmt.Sprintf("%d jobs scheduled", a.sched.Registry().Len()))
	a.log.Info("app started", logx.Int("jobs", a.sched.Registry().Len()))
	return nil
}

// applyConfigChanges applies logging changes live. Everything else only
// takes effect after a restart.
func (a *App) applyConfigChanges(ctx context.Context, sub <-chan *Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			if newCfg == nil {
				continue
			}

			sections, attrs := SummarizeConfigChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}
			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)

			if ch := config.RestartRequired(sections); len(ch) > 0 {
				a.log.Warn("config changed; restart required for changes to take effect",
					logx.String("sections", strings.Join(ch, ",")))
			}
			a.logs.Apply(mapLoggingConfig(newCfg))
		}
	}
}

// Stop runs the shutdown sequence once a stop has been requested (reason is
// recorded if not). Individual step failures are logged and never abort the
// sequence.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.lc.RequestStop(reason)
	if a.sup == nil {
		a.closeStore()
		a.lc.MarkStopped()
		return a.closeLogs()
	}
	a.log.Info("stopping", logx.String("reason", string(a.lc.Reason())))
	a.notify.Stopping()

	// Let the in-flight tick finish within the grace period.
	a.step(ctx, "scheduler", a.lc.Grace()+time.Second, func(c context.Context) error {
		if !a.lc.AwaitGrace(c, a.drained) {
			return errors.Newf("scheduler still running after grace period %s", a.lc.Grace())
		}
		return nil
	})

	// Cancel the run context; actions still running see ctx.Done().
	a.sup.Cancel()
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		a.closeStore()
		return nil
	})

	for _, j := range a.Snapshot().Jobs {
		a.log.Info("job summary",
			logx.String("job", j.Name),
			logx.Uint64("runs", j.Runs),
			logx.Uint64("failures", j.Failures),
			logx.Time("last_run", j.LastRun),
		)
	}

	a.lc.MarkStopped()
	a.log.Info("app stopped", logx.String("reason", string(a.lc.Reason())))
	return a.closeLogs()
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
}

func (a *App) closeLogs() error {
	if a.logs == nil {
		return nil
	}
	if err := a.logs.Close(); err != nil {
		return errors.Wrap(err, "close log sinks")
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't stall the whole stop.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	stepCtx := ctx
	if limit > 0 {
		// respect the caller's deadline; never extend it
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < limit {
				limit = max(rem, 0)
			}
		}
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errors.Newf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			if err := <-done; err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err))
			}
		}()
	}
}
