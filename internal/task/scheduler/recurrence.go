package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind identifies a recurrence variant.
type Kind int

const (
	KindDaily Kind = iota
	KindWeekly
	KindInterval
)

func (k Kind) String() string {
	switch k {
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindInterval:
		return "interval"
	default:
		return "unknown"
	}
}

// Recurrence is the rule describing when a job fires.
//
// The set is closed: DailyAt, WeeklyAt and EveryInterval are the only implementations.
type Recurrence interface {
	Kind() Kind
	String() string
	next(now, lastRun time.Time) time.Time
}

// ComputeNext returns the next due time of r strictly after now.
// lastRun is the zero time when the job has never run.
func ComputeNext(r Recurrence, now, lastRun time.Time) time.Time {
	if r == nil {
		return time.Time{}
	}
	return r.next(now, lastRun)
}

// SecondOptional allows both 5-field and 6-field (with seconds) specs.
var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// clockSchedule builds the cron schedule for a fixed wall-clock time.
// dow < 0 means every day. The schedule is evaluated in the location of the time passed to Next.
func clockSchedule(hour, minute, dow int) cron.Schedule {
	spec := fmt.Sprintf("0 %d %d * * *", minute, hour)
	if dow >= 0 {
		spec = fmt.Sprintf("0 %d %d * * %d", minute, hour, dow)
	}
	sched, err := specParser.Parse(spec)
	if err != nil {
		// Unreachable for validated fields.
		panic(fmt.Sprintf("scheduler: bad clock spec %q: %v", spec, err))
	}
	return sched
}

// DailyAt fires once per calendar day at hour:minute local time.
type DailyAt struct {
	hour, minute int
	sched        cron.Schedule
}

// NewDailyAt validates hour (0-23) and minute (0-59).
func NewDailyAt(hour, minute int) (DailyAt, error) {
	if err := validateClock(hour, minute); err != nil {
		return DailyAt{}, err
	}
	return DailyAt{hour: hour, minute: minute, sched: clockSchedule(hour, minute, -1)}, nil
}

func (d DailyAt) Hour() int      { return d.hour }
func (d DailyAt) Minute() int    { return d.minute }
func (d DailyAt) Kind() Kind     { return KindDaily }
func (d DailyAt) String() string { return fmt.Sprintf("daily at %02d:%02d", d.hour, d.minute) }

func (d DailyAt) next(now, _ time.Time) time.Time {
	sched := d.sched
	if sched == nil {
		sched = clockSchedule(d.hour, d.minute, -1)
	}
	return sched.Next(now)
}

// WeeklyAt fires once per week on weekday at hour:minute local time.
type WeeklyAt struct {
	weekday      time.Weekday
	hour, minute int
	sched        cron.Schedule
}

// NewWeeklyAt validates weekday (Sunday-Saturday), hour and minute.
func NewWeeklyAt(weekday time.Weekday, hour, minute int) (WeeklyAt, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return WeeklyAt{}, invalid("weekday", int(weekday), "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if err := validateClock(hour, minute); err != nil {
		return WeeklyAt{}, err
	}
	return WeeklyAt{weekday: weekday, hour: hour, minute: minute, sched: clockSchedule(hour, minute, int(weekday))}, nil
}

func (w WeeklyAt) Weekday() time.Weekday { return w.weekday }
func (w WeeklyAt) Hour() int             { return w.hour }
func (w WeeklyAt) Minute() int           { return w.minute }
func (w WeeklyAt) Kind() Kind            { return KindWeekly }
func (w WeeklyAt) String() string {
	return fmt.Sprintf("every %s at %02d:%02d", w.weekday, w.hour, w.minute)
}

func (w WeeklyAt) next(now, _ time.Time) time.Time {
	sched := w.sched
	if sched == nil {
		sched = clockSchedule(w.hour, w.minute, int(w.weekday))
	}
	return sched.Next(now)
}

// EveryInterval fires repeatedly, one interval after the job was primed or last fired.
type EveryInterval struct {
	every time.Duration
}

// NewEveryInterval validates that d is positive.
func NewEveryInterval(d time.Duration) (EveryInterval, error) {
	if d <= 0 {
		return EveryInterval{}, invalid("interval", d, "must be > 0")
	}
	return EveryInterval{every: d}, nil
}

func (e EveryInterval) Every() time.Duration { return e.every }
func (e EveryInterval) Kind() Kind           { return KindInterval }
func (e EveryInterval) String() string       { return "every " + e.every.String() }

// next never catches up: all missed intervals collapse into one fire, one interval after now.
func (e EveryInterval) next(now, lastRun time.Time) time.Time {
	if e.every <= 0 {
		return time.Time{}
	}
	if !lastRun.IsZero() {
		if t := lastRun.Add(e.every); t.After(now) {
			return t
		}
	}
	return now.Add(e.every)
}

func validateClock(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return invalid("hour", hour, "must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return invalid("minute", minute, "must be between 0 and 59")
	}
	return nil
}

// parseHHMM parses a wall-clock time like "08:00".
func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, invalid("time", s, "expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, invalid("time", s, "hour is not a number")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, invalid("time", s, "minute is not a number")
	}
	if err := validateClock(h, m); err != nil {
		return 0, 0, err
	}
	return h, m, nil
}
