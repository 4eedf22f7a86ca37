package scheduler

import (
	"time"

	"github.com/jonboulle/clockwork"

	"chronod/internal/eventbus"
)

// DefaultPollInterval is the wait between two passes when Config.PollInterval is unset.
const DefaultPollInterval = time.Second

// Event types published on the bus.
const (
	EventStarted = "scheduler.started"
	EventJobRun  = "job.run"
	EventStopped = "scheduler.stopped"
)

// Config controls the scheduler loop.
type Config struct {
	Timezone     string // IANA TZ, e.g. "Europe/Berlin"; empty means Local
	PollInterval time.Duration
}

// StopSignal is polled by the loop between ticks.
// Done is closed once a stop has been requested.
type StopSignal interface {
	StopRequested() bool
	Done() <-chan struct{}
}

// RunEvent is the Data of a job.run event.
type RunEvent struct {
	RunID      string
	Job        string
	Recurrence string
	Started    time.Time
	Duration   time.Duration
	Error      string
	NextDue    time.Time
}

// TickReport describes one pass over the registry.
type TickReport struct {
	Now      time.Time
	Primed   []string
	Fired    []string
	Failures []*ActionError
}

// TickHook is called after every pass with its report.
type TickHook func(TickReport)

type Option func(*Scheduler)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithBus(b eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = b }
}

func WithTickHook(h TickHook) Option {
	return func(s *Scheduler) { s.hook = h }
}
