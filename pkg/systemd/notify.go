// Package systemd reports service state to systemd via sd_notify.
// Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/time/rate"

	logx "chronod/pkg/logx"
)

type Notifier struct {
	enabled  bool
	log      logx.Logger
	interval time.Duration
	limiter  *rate.Limiter
	send     func(state string) (bool, error)
	failed   atomic.Bool
}

// New reads WATCHDOG_USEC once. Watchdog pings are limited to two per watchdog interval.
func New(enabled bool, log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	n := &Notifier{
		enabled: enabled,
		log:     log,
		send:    func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
	if enabled {
		if d, err := daemon.SdWatchdogEnabled(false); err != nil {
			log.Warn("invalid watchdog settings", logx.Err(err))
		} else {
			n.setInterval(d)
		}
	}
	return n
}

func (n *Notifier) setInterval(d time.Duration) {
	n.interval = d
	if d > 0 {
		n.limiter = rate.NewLimiter(rate.Every(d/2), 1)
	}
}

// WatchdogInterval is zero when the watchdog is off.
func (n *Notifier) WatchdogInterval() time.Duration { return n.interval }

func (n *Notifier) Ready()          { n.notify(daemon.SdNotifyReady) }
func (n *Notifier) Stopping()       { n.notify(daemon.SdNotifyStopping) }
func (n *Notifier) Status(s string) { n.notify("STATUS=" + s) }

// Watchdog pings the watchdog if enough time passed since the last ping.
func (n *Notifier) Watchdog() {
	if n.limiter == nil || !n.limiter.Allow() {
		return
	}
	n.notify(daemon.SdNotifyWatchdog)
}

func (n *Notifier) notify(state string) {
	if n == nil || !n.enabled {
		return
	}
	sent, err := n.send(state)
	if err != nil {
		// Log the first failure only; the socket will not recover.
		if n.failed.CompareAndSwap(false, true) {
			n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		}
		return
	}
	if sent {
		n.log.Debug("sd_notify", logx.String("state", state))
	}
}
