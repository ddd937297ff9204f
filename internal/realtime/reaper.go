package realtime

import (
	"context"
	"time"

	"restaurant-ops/internal/logger"
)

// Reaper bounds the lifetime of half-open or silently-dead connections. It
// never evicts on idleness alone: an idle connection whose transport is
// still open gets a liveness probe; a probe write to a dead transport fails,
// the writer closes the connection, and the next sweep removes it.
type Reaper struct {
	reg       *Registry
	interval  time.Duration
	idleAfter time.Duration
	lg        *logger.Logger
}

func NewReaper(reg *Registry, interval, idleAfter time.Duration, lg *logger.Logger) *Reaper {
	return &Reaper{reg: reg, interval: interval, idleAfter: idleAfter, lg: lg}
}

func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep(time.Now())
		}
	}
}

// Sweep examines every connection once. Safe to call repeatedly; evicting a
// connection that is already gone is a no-op.
func (r *Reaper) Sweep(now time.Time) {
	probed, evicted := 0, 0
	for _, c := range r.reg.Snapshot() {
		if c.Closed() {
			if r.reg.Remove(c) {
				evicted++
			}
			continue
		}
		if now.Sub(c.LastActivity()) < r.idleAfter {
			continue
		}
		c.Send(TypePing, nil)
		probed++
	}
	if probed > 0 || evicted > 0 {
		r.lg.Debug("reaper_sweep", map[string]any{"probed": probed, "evicted": evicted})
	}
}
