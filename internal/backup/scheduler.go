package backup

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCooldown is the minimum gap between two triggered snapshots.
const DefaultCooldown = time.Minute

// Trigger requests a snapshot without blocking. Requests made while one is
// pending are merged into it.
func (m *Manager) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// Run takes a snapshot every interval and on Trigger until ctx is cancelled.
// A trigger arriving within cooldown of the previous snapshot is postponed
// until the cooldown has passed; triggers pending at that point share one
// snapshot. A non-positive interval disables the periodic snapshot. Failures
// are logged.
func (m *Manager) Run(ctx context.Context, interval, cooldown time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	var (
		last    time.Time
		delay   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if delay != nil {
			delay.Stop()
		}
	}()

	snap := func(reason string) {
		// Any snapshot covers the changes a postponed trigger was waiting for.
		if delay != nil {
			delay.Stop()
			delay, pending = nil, nil
		}
		if _, err := m.Snapshot(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Error("backup failed", slog.String("reason", reason), slog.String("error", err.Error()))
			return
		}
		last = m.now()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			snap("interval")
		case <-pending:
			delay, pending = nil, nil
			snap("trigger")
		case <-m.trigger:
			if wait := cooldown - m.now().Sub(last); !last.IsZero() && wait > 0 {
				if delay == nil {
					delay = time.NewTimer(wait)
					pending = delay.C
				}
				continue
			}
			snap("trigger")
		}
	}
}
