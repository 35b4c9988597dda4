// internal/monitor/runner.go
package monitor

import (
	"context"
	"time"
)

// Run starts the ticker loop until ctx is cancelled.
// One goroutine per session. No overlap: a slow reconnect delays the next tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Interval returns the tick period.
func (m *Monitor) Interval() time.Duration { return m.cfg.Interval }
