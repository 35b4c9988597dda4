// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// BOARD
	// ------------------------------------------------------------

	b := cfg.Board

	if b.Type != "" && !strings.EqualFold(b.Type, DefaultBoardType) {
		return fmt.Errorf("board.type %q: only %q boards are supported", b.Type, DefaultBoardType)
	}
	if b.BaudRate < 0 {
		return fmt.Errorf("board.baud_rate must be > 0, got %d", b.BaudRate)
	}
	if b.TimeoutMs < 0 {
		return fmt.Errorf("board.timeout_ms must be >= 0, got %d", b.TimeoutMs)
	}
	if len(b.Channels) > 16 {
		return fmt.Errorf("board.channels: at most 16 entries, got %d", len(b.Channels))
	}
	for i, v := range b.Channels {
		if v != 0 && v != 1 {
			return fmt.Errorf("board.channels[%d]: must be 0 or 1, got %d", i, v)
		}
	}
	if !b.Daisy {
		for i := 8; i < len(b.Channels); i++ {
			if b.Channels[i] != 0 {
				return fmt.Errorf("board.channels[%d]: channel %d requires daisy", i, i+1)
			}
		}
	}

	// ------------------------------------------------------------
	// STREAM
	// ------------------------------------------------------------

	if cfg.Stream.TimeLimitMs < 0 {
		return fmt.Errorf("stream.time_limit_ms must be >= 0, got %d", cfg.Stream.TimeLimitMs)
	}
	if cfg.Stream.MaxBytesToSkip < 0 {
		return fmt.Errorf("stream.max_bytes_to_skip must be >= 0, got %d", cfg.Stream.MaxBytesToSkip)
	}
	if v := cfg.Stream.SettleMs; v != nil && *v < 0 {
		return fmt.Errorf("stream.settle_ms must be >= 0, got %d", *v)
	}

	// ------------------------------------------------------------
	// MONITOR
	// ------------------------------------------------------------

	m := cfg.Monitor
	if m.IntervalMs < 0 {
		return fmt.Errorf("monitor.interval_ms must be > 0, got %d", m.IntervalMs)
	}
	if m.MaxPacketsToSkip != nil && *m.MaxPacketsToSkip < 0 {
		return fmt.Errorf("monitor.max_packets_to_skip must be >= 0, got %d", *m.MaxPacketsToSkip)
	}
	if m.ReconnectIntervalMs < 0 {
		return fmt.Errorf("monitor.reconnect_interval_ms must be >= 0, got %d", m.ReconnectIntervalMs)
	}
	if m.ReconnectPauseMs != nil && *m.ReconnectPauseMs < 0 {
		return fmt.Errorf("monitor.reconnect_pause_ms must be >= 0, got %d", *m.ReconnectPauseMs)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q: unknown level", cfg.Logging.Level)
	}

	// ------------------------------------------------------------
	// STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if s := cfg.Status; s != nil {
		if s.Endpoint == "" {
			return fmt.Errorf("status: endpoint required when status is set")
		}
		// device_name sanity (ASCII only)
		for i := 0; i < len(s.DeviceName); i++ {
			if s.DeviceName[i] > 0x7F {
				return fmt.Errorf("status.device_name must contain ASCII characters only")
			}
		}
		if s.TimeoutMs < 0 {
			return fmt.Errorf("status.timeout_ms must be >= 0, got %d", s.TimeoutMs)
		}
	}

	return nil
}
