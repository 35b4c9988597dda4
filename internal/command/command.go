// internal/command/command.go
package command

import "fmt"

// Single-byte board commands.
// These values are fixed by the board firmware.
const (
	StartStreaming   byte = 'b'
	StopStreaming    byte = 's'
	SoftReset        byte = 'v'
	EnableFilters    byte = 'f'
	DisableFilters   byte = 'g'
	RegisterSettings byte = '?'
)

// MaxChannels is the channel count of a primary board plus one daisy board.
const MaxChannels = 16

// PrimaryChannels is the channel count of the primary board alone.
const PrimaryChannels = 8

// channelOn / channelOff are indexed by channel-1.
// 1..8 address the primary board, 9..16 the daisy board.
var (
	channelOn  = [MaxChannels]byte{'!', '@', '#', '$', '%', '^', '&', '*', 'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I'}
	channelOff = [MaxChannels]byte{'1', '2', '3', '4', '5', '6', '7', '8', 'q', 'w', 'e', 'r', 't', 'y', 'u', 'i'}
)

// Channel returns the command that switches a 1-based channel on or off.
func Channel(channel int, on bool) (byte, error) {
	if channel < 1 || channel > MaxChannels {
		return 0, fmt.Errorf("command: channel %d out of range 1-%d", channel, MaxChannels)
	}
	if on {
		return channelOn[channel-1], nil
	}
	return channelOff[channel-1], nil
}

// TestSignal describes one test-signal mode.
type TestSignal struct {
	Command     byte
	Description string
}

// testSignals is indexed by mode.
var testSignals = [...]TestSignal{
	{'0', "connecting all pins to ground"},
	{'p', "connecting all pins to Vcc"},
	{'-', "connecting pins to low frequency 1x amp signal"},
	{'=', "connecting pins to high frequency 1x amp signal"},
	{'[', "connecting pins to low frequency 2x amp signal"},
	{']', "connecting pins to high frequency 2x amp signal"},
}

// TestSignals is the number of defined test-signal modes.
const TestSignals = len(testSignals)

// Signal returns the test-signal mode, ok=false for an unknown mode.
func Signal(mode int) (TestSignal, bool) {
	if mode < 0 || mode >= len(testSignals) {
		return TestSignal{}, false
	}
	return testSignals[mode], true
}
