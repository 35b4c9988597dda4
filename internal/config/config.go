// internal/config/config.go
package config

// Config is the session configuration.
// It is built once, validated, normalized and then passed by pointer into
// each component. Nothing reads it through globals.
type Config struct {
	Board   BoardConfig   `yaml:"board"`
	Stream  StreamConfig  `yaml:"stream"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
	Status  *StatusConfig `yaml:"status"` // optional health export
}

// ---- BOARD ----

// Port values with special meaning.
const (
	PortAuto = "AUTO"
	PortMock = "MOCK"
)

type BoardConfig struct {
	Type      string `yaml:"type"`
	Port      string `yaml:"port"` // device path, AUTO or MOCK
	BaudRate  int    `yaml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Daisy     bool   `yaml:"daisy"`

	// Channels is the enable mask, one 0/1 entry per channel starting at channel 1.
	// Missing entries are enabled.
	Channels []int `yaml:"channels"`

	Scaling   bool  `yaml:"scaling"`
	Filtering *bool `yaml:"filtering"` // nil => enabled
}

// ---- STREAM ----

type StreamConfig struct {
	TimeLimitMs    int  `yaml:"time_limit_ms"` // 0 => until stopped
	MaxBytesToSkip int  `yaml:"max_bytes_to_skip"`
	SettleMs       *int `yaml:"settle_ms"` // board settle time after open/reset
}

// ---- MONITOR ----

type MonitorConfig struct {
	IntervalMs          int  `yaml:"interval_ms"`
	MaxPacketsToSkip    *int `yaml:"max_packets_to_skip"`
	ReconnectIntervalMs int  `yaml:"reconnect_interval_ms"` // 0 => every tick
	ReconnectPauseMs    *int `yaml:"reconnect_pause_ms"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty => stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ---- STATUS ----

type StatusConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- derived values ----

// ChannelCount is the logical channel count: 8, or 16 with a daisy board.
func (b BoardConfig) ChannelCount() int {
	if b.Daisy {
		return 16
	}
	return 8
}

// ChannelMask packs the enable list into one bit per channel (bit 0 = channel 1).
func (b BoardConfig) ChannelMask() uint16 {
	var mask uint16
	for i := 0; i < b.ChannelCount(); i++ {
		if i >= len(b.Channels) || b.Channels[i] != 0 {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// FilteringEnabled defaults to true.
func (b BoardConfig) FilteringEnabled() bool {
	return b.Filtering == nil || *b.Filtering
}
