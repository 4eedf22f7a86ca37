// Package lifecycle owns the process run/stop state.
//
// States move in one direction: Running, StopRequested, Stopped. RequestStop only flips
// the state and never blocks, so it is safe to call from a signal goroutine. The grace
// wait is a separate step taken on the ordinary stop path.
package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	logx "chronod/pkg/logx"
)

type State int32

const (
	Running State = iota
	StopRequested
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case StopRequested:
		return "stop_requested"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Controller struct {
	state  atomic.Int32
	reason atomic.Value // StopReason

	grace time.Duration
	clock clockwork.Clock
	log   logx.Logger

	done        chan struct{}
	stopped     chan struct{}
	doneOnce    sync.Once
	stoppedOnce sync.Once
}

type Option func(*Controller)

func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(ctl *Controller) { ctl.log = log }
}

// New returns a controller in the Running state. A negative grace is treated as zero.
func New(grace time.Duration, opts ...Option) *Controller {
	if grace < 0 {
		grace = 0
	}
	c := &Controller{
		grace:   grace,
		clock:   clockwork.NewRealClock(),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	c.reason.Store(StopUnknown)
	return c
}

func (c *Controller) State() State          { return State(c.state.Load()) }
func (c *Controller) Grace() time.Duration  { return c.grace }
func (c *Controller) StopRequested() bool   { return c.State() != Running }
func (c *Controller) Done() <-chan struct{} { return c.done }

// Stopped is closed by MarkStopped.
func (c *Controller) Stopped() <-chan struct{} { return c.stopped }

func (c *Controller) Reason() StopReason {
	r, _ := c.reason.Load().(StopReason)
	return r
}

// RequestStop moves Running to StopRequested and closes Done.
// It reports false if a stop was already requested; the second request is only logged.
func (c *Controller) RequestStop(reason StopReason) bool {
	if reason == "" {
		reason = StopUnknown
	}
	if !c.state.CompareAndSwap(int32(Running), int32(StopRequested)) {
		c.log.Info("stop already requested",
			logx.String("reason", string(reason)),
			logx.String("first_reason", string(c.Reason())),
		)
		return false
	}
	c.reason.Store(reason)
	c.doneOnce.Do(func() { close(c.done) })
	c.log.Info("stop requested", logx.String("reason", string(reason)), logx.Duration("grace", c.grace))
	return true
}

// AwaitGrace waits until drained is closed, the grace period elapses or ctx ends.
// It reports whether drained closed in time. With zero grace it does not wait.
func (c *Controller) AwaitGrace(ctx context.Context, drained <-chan struct{}) bool {
	select {
	case <-drained:
		return true
	default:
	}
	if c.grace <= 0 {
		return false
	}

	start := c.clock.Now()
	t := c.clock.NewTimer(c.grace)
	defer t.Stop()
	select {
	case <-drained:
		c.log.Debug("drained within grace", logx.Duration("took", c.clock.Since(start)))
		return true
	case <-t.Chan():
		c.log.Warn("grace period elapsed", logx.Duration("grace", c.grace))
		return false
	case <-ctx.Done():
		return false
	}
}

// MarkStopped is the terminal transition. It is idempotent.
func (c *Controller) MarkStopped() {
	if c.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		c.doneOnce.Do(func() { close(c.done) })
	} else {
		c.state.Store(int32(Stopped))
	}
	c.stoppedOnce.Do(func() {
		close(c.stopped)
		c.log.Info("stopped", logx.String("reason", string(c.Reason())))
	})
}
