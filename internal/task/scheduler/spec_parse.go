package scheduler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseSchedule parses a human schedule string into a Recurrence.
//
// Supported forms (case-insensitive, "at" is optional):
//   - Daily:    "daily 08:00", "every day at 08:00", "daily:08:00"
//   - Weekly:   "monday 09:00", "every mon at 09:00", "weekly monday 09:00", "weekly:monday 09:00"
//   - Interval: "every 10m", "every 10 minutes", "interval:2h30m", "every:00:50", "10m"
//
// A bare HH:MM without a daily/weekly keyword is an interval ("00:50" is 50 minutes).
func ParseSchedule(raw string) (Recurrence, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, invalid("schedule", nil, "schedule required")
	}

	// Explicit prefixes become the leading keyword.
	for _, p := range []string{"daily:", "weekly:", "every:", "interval:"} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSuffix(p, ":") + " " + strings.TrimSpace(s[len(p):])
			break
		}
	}

	f := dropAt(strings.Fields(s))
	if len(f) == 0 {
		return nil, invalid("schedule", raw, "no rule after dropping \"at\"")
	}
	switch {
	case len(f) == 1:
		return intervalFrom(raw, f[0])

	case f[0] == "daily" || f[0] == "day":
		if len(f) != 2 {
			break
		}
		return dailyFrom(f[1])

	case f[0] == "weekly":
		if len(f) != 3 {
			break
		}
		return weeklyFrom(raw, f[1], f[2])

	case f[0] == "every" || f[0] == "interval":
		rest := f[1:]
		switch {
		case len(rest) == 2 && rest[0] == "day":
			return dailyFrom(rest[1])
		case len(rest) == 2 && isWeekday(rest[0]):
			return weeklyFrom(raw, rest[0], rest[1])
		case len(rest) == 2:
			return intervalUnits(raw, rest[0], rest[1])
		case len(rest) == 1:
			return intervalFrom(raw, rest[0])
		}

	case len(f) == 2 && isWeekday(f[0]):
		return weeklyFrom(raw, f[0], f[1])
	}

	return nil, invalid("schedule", raw,
		"use 'daily 08:00', 'monday 09:00', or 'every 10m'")
}

func dropAt(f []string) []string {
	out := f[:0:0]
	for _, tok := range f {
		if tok == "at" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func dailyFrom(hhmm string) (Recurrence, error) {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		return nil, err
	}
	return NewDailyAt(h, m)
}

func weeklyFrom(raw, day, hhmm string) (Recurrence, error) {
	wd, ok := parseWeekday(day)
	if !ok {
		return nil, invalid("weekday", day, "unknown weekday in "+strconv.Quote(raw))
	}
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		return nil, err
	}
	return NewWeeklyAt(wd, h, m)
}

func intervalFrom(raw, v string) (Recurrence, error) {
	d, err := parseInterval(v)
	if err != nil {
		return nil, err
	}
	return NewEveryInterval(d)
}

var unitDurations = map[string]time.Duration{
	"second": time.Second, "seconds": time.Second,
	"minute": time.Minute, "minutes": time.Minute,
	"hour": time.Hour, "hours": time.Hour,
}

// intervalUnits parses "10 minutes".
func intervalUnits(raw, n, unit string) (Recurrence, error) {
	u, ok := unitDurations[unit]
	if !ok {
		return nil, invalid("schedule", raw, "unknown interval unit "+strconv.Quote(unit))
	}
	k, err := strconv.Atoi(n)
	if err != nil {
		return nil, invalid("schedule", raw, "interval count is not a number")
	}
	return NewEveryInterval(time.Duration(k) * u)
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, invalid("interval", nil, "interval required")
	}
	if reHHMM.MatchString(v) {
		return parseHHMMDuration(v)
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, invalid("interval", v, "use HH:MM or a Go duration like '55m'/'2h30m'")
	}
	if d <= 0 {
		return 0, invalid("interval", v, "must be > 0")
	}
	return d, nil
}

// parseHHMMDuration reads "02:30" as 2h30m. Hours may go up to 999.
func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, invalid("interval", v, "expected HH:MM")
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, invalid("interval", v, "minutes must be between 0 and 59")
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, invalid("interval", v, "must be > 0")
	}
	return d, nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

func isWeekday(s string) bool {
	_, ok := parseWeekday(s)
	return ok
}
