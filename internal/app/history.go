package app

import (
	"context"
	"time"

	"chronod/internal/eventbus"
	"chronod/internal/storage"
	"chronod/internal/task/scheduler"
	logx "chronod/pkg/logx"
)

const historyFlushTimeout = time.Second

// recordHistory stores every job.run event until ctx is done, then flushes
// whatever is still buffered.
func recordHistory(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) error {
	for {
		select {
		case <-ctx.Done():
			flush, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyFlushTimeout)
			defer cancel()
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return nil
					}
					appendRun(flush, e, store, log)
				default:
					return nil
				}
			}
		case e, ok := <-events:
			if !ok {
				return nil
			}
			appendRun(ctx, e, store, log)
		}
	}
}

func appendRun(ctx context.Context, e eventbus.Event, store storage.Store, log logx.Logger) {
	ev, ok := e.Data.(scheduler.RunEvent)
	if !ok {
		return
	}
	if err := store.AppendRun(ctx, toRunRecord(ev)); err != nil {
		log.Warn("run history append failed", logx.String("job", ev.Job), logx.Err(err))
	}
}

func toRunRecord(ev scheduler.RunEvent) storage.RunRecord {
	return storage.RunRecord{
		RunID:      ev.RunID,
		Job:        ev.Job,
		Recurrence: ev.Recurrence,
		Started:    ev.Started,
		TookMS:     ev.Duration.Milliseconds(),
		OK:         ev.Error == "",
		Error:      ev.Error,
		NextDue:    ev.NextDue,
	}
}
