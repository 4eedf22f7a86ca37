package scheduler

import "time"

type Snapshot struct {
	Timezone     string
	PollInterval time.Duration
	Running      bool
	Ticks        uint64
	Jobs         []JobInfo
}

// Snapshot is safe to call while Run is active.
func (s *Scheduler) Snapshot() Snapshot {
	jobs := s.reg.All()
	items := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, j.Info())
	}
	return Snapshot{
		Timezone:     s.loc.String(),
		PollInterval: s.cfg.PollInterval,
		Running:      s.running.Load(),
		Ticks:        s.ticks.Load(),
		Jobs:         items,
	}
}
