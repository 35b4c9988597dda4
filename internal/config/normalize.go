// internal/config/normalize.go
package config

// Defaults applied by Normalize.
const (
	DefaultBoardType         = "cyton"
	DefaultPort              = PortAuto
	DefaultBaudRate          = 115200
	DefaultTimeoutMs         = 1000
	DefaultMaxBytesToSkip    = 3000
	DefaultSettleMs          = 1000
	DefaultMonitorIntervalMs = 2000
	DefaultMaxPacketsToSkip  = 10
	DefaultReconnectPauseMs  = 500
	DefaultLogLevel          = "info"
	DefaultStatusTimeoutMs   = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// BOARD
	// ------------------------------------------------------------

	b := &cfg.Board
	if b.Type == "" {
		b.Type = DefaultBoardType
	}
	if b.Port == "" {
		b.Port = DefaultPort
	}
	if b.BaudRate == 0 {
		b.BaudRate = DefaultBaudRate
	}
	if b.TimeoutMs == 0 {
		b.TimeoutMs = DefaultTimeoutMs
	}

	// Expand the channel mask to the full logical channel count.
	// Missing entries are enabled; extra entries are dropped.
	n := b.ChannelCount()
	mask := make([]int, n)
	for i := range mask {
		mask[i] = 1
		if i < len(b.Channels) && b.Channels[i] == 0 {
			mask[i] = 0
		}
	}
	b.Channels = mask

	// ------------------------------------------------------------
	// STREAM
	// ------------------------------------------------------------

	if cfg.Stream.MaxBytesToSkip == 0 {
		cfg.Stream.MaxBytesToSkip = DefaultMaxBytesToSkip
	}
	if cfg.Stream.SettleMs == nil {
		v := DefaultSettleMs
		cfg.Stream.SettleMs = &v
	}

	// ------------------------------------------------------------
	// MONITOR
	// ------------------------------------------------------------

	if cfg.Monitor.IntervalMs == 0 {
		cfg.Monitor.IntervalMs = DefaultMonitorIntervalMs
	}
	if cfg.Monitor.MaxPacketsToSkip == nil {
		v := DefaultMaxPacketsToSkip
		cfg.Monitor.MaxPacketsToSkip = &v
	}
	if cfg.Monitor.ReconnectPauseMs == nil {
		v := DefaultReconnectPauseMs
		cfg.Monitor.ReconnectPauseMs = &v
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	// ------------------------------------------------------------
	// STATUS BLOCK (OPT-IN)
	// ------------------------------------------------------------

	if s := cfg.Status; s != nil {
		// ASCII already validated; truncate to 16 characters.
		if len(s.DeviceName) > 16 {
			s.DeviceName = s.DeviceName[:16]
		}
		if s.DeviceName == "" {
			s.DeviceName = b.Type
		}
		if s.TimeoutMs == 0 {
			s.TimeoutMs = DefaultStatusTimeoutMs
		}
	}
}
