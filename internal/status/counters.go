// internal/status/counters.go
package status

import (
	"sync/atomic"
	"time"
)

// Counters is the shared link health state.
// The decoder writes the drop count, the monitor and session write the
// reconnect bookkeeping. Every field is a single atomic scalar: readers may
// see a value one tick stale, never a torn one.
type Counters struct {
	dropped       atomic.Int64
	reconnects    atomic.Int64
	lastReconnect atomic.Int64 // unix nanos, 0 = never
	interval      atomic.Int64 // nanos between reconnect attempts
	lastError     atomic.Uint32
}

// NewCounters returns zeroed counters with the given reconnect spacing.
func NewCounters(reconnectInterval time.Duration) *Counters {
	c := &Counters{}
	c.interval.Store(int64(reconnectInterval))
	return c
}

// ---- dropped frames ----

func (c *Counters) IncDropped() int64 { return c.dropped.Add(1) }
func (c *Counters) ResetDropped()     { c.dropped.Store(0) }
func (c *Counters) Dropped() int64    { return c.dropped.Load() }

// ---- reconnects ----

// MarkReconnect records one reconnect attempt at t.
func (c *Counters) MarkReconnect(t time.Time) {
	c.reconnects.Add(1)
	c.lastReconnect.Store(t.UnixNano())
}

func (c *Counters) Reconnects() int64 { return c.reconnects.Load() }

// LastReconnect returns the zero time if no reconnect happened yet.
func (c *Counters) LastReconnect() time.Time {
	ns := c.lastReconnect.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (c *Counters) ReconnectInterval() time.Duration {
	return time.Duration(c.interval.Load())
}

// ReconnectDue reports whether enough time passed since the last attempt.
func (c *Counters) ReconnectDue(now time.Time) bool {
	last := c.LastReconnect()
	return last.IsZero() || now.Sub(last) >= c.ReconnectInterval()
}

// ---- last error ----

func (c *Counters) SetLastError(code uint16) { c.lastError.Store(uint32(code)) }
func (c *Counters) LastError() uint16        { return uint16(c.lastError.Load()) }
