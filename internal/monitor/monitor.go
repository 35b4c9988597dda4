// internal/monitor/monitor.go
package monitor

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/bci-streamer/internal/status"
	"github.com/tamzrod/bci-streamer/internal/stream"
)

// Target is the session the monitor supervises.
type Target interface {
	State() stream.State
	Reconnect() error
}

// Publisher delivers link health snapshots (optional).
type Publisher interface {
	WriteStatus(s status.Snapshot) error
}

// Config is the minimal runtime config the monitor needs.
type Config struct {
	Interval  time.Duration
	Threshold int64 // dropped frames tolerated before a reconnect
}

// Monitor is a dumb, clock-driven health check.
//
// On each tick: a Streaming target with more than Threshold dropped frames is
// reconnected, a Faulted target is reconnected, a Stopped target is left
// alone. Attempts are unbounded; a failed attempt waits for the next tick.
type Monitor struct {
	cfg      Config
	counters *status.Counters
	target   Target
	pub      Publisher
	log      *logrus.Entry
	now      func() time.Time

	// runner-owned publish state
	unhealthySince time.Time
}

// New creates a monitor with immutable config. pub may be nil.
func New(cfg Config, counters *status.Counters, target Target, pub Publisher, log *logrus.Entry) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("monitor: interval must be > 0")
	}
	if cfg.Threshold < 0 {
		return nil, errors.New("monitor: threshold must be >= 0")
	}
	if counters == nil || target == nil {
		return nil, errors.New("monitor: counters and target required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Monitor{
		cfg:      cfg,
		counters: counters,
		target:   target,
		pub:      pub,
		log:      log,
		now:      time.Now,
	}, nil
}

// Check performs exactly one tick and reports whether a reconnect was attempted.
func (m *Monitor) Check() bool {
	now := m.now()
	st := m.target.State()
	dropped := m.counters.Dropped()

	reconnect := false
	switch st {
	case stream.Streaming:
		reconnect = dropped > m.cfg.Threshold
	case stream.Faulted:
		reconnect = true
	}

	if reconnect && !m.counters.ReconnectDue(now) {
		m.log.WithField("last", m.counters.LastReconnect()).Debug("reconnect deferred")
		reconnect = false
	}

	if reconnect {
		m.log.WithFields(logrus.Fields{
			"state":   st.String(),
			"dropped": dropped,
		}).Warn("connection unhealthy, reconnecting")

		if err := m.target.Reconnect(); err != nil {
			m.log.WithError(err).Warn("reconnect attempt failed")
		}
	}

	m.publish(now)
	return reconnect
}

// Snapshot derives the current link health.
func (m *Monitor) Snapshot(now time.Time) status.Snapshot {
	st := m.target.State()
	dropped := m.counters.Dropped()

	var health uint16
	switch {
	case st == stream.Stopped:
		health = status.HealthDisabled
	case st == stream.Faulted:
		health = status.HealthError
	case st == stream.Reconnecting || dropped > 0:
		health = status.HealthStale
	default:
		health = status.HealthOK
	}

	var seconds uint16
	if health == status.HealthError || health == status.HealthStale {
		if m.unhealthySince.IsZero() {
			m.unhealthySince = now
		}
		seconds = status.Saturate(int64(now.Sub(m.unhealthySince) / time.Second))
	} else {
		m.unhealthySince = time.Time{}
	}

	return status.Snapshot{
		Health:         health,
		LastErrorCode:  m.counters.LastError(),
		SecondsInError: seconds,
		PacketsDropped: status.Saturate(dropped),
		Reconnects:     status.Saturate(m.counters.Reconnects()),
	}
}

func (m *Monitor) publish(now time.Time) {
	if m.pub == nil {
		return
	}
	if err := m.pub.WriteStatus(m.Snapshot(now)); err != nil {
		m.log.WithError(err).Warn("status write failed")
	}
}
