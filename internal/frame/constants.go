// internal/frame/constants.go
package frame

// Wire layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- MARKERS ----

// StartByte opens every frame.
const StartByte byte = 0xA0

// EndByte closes every frame.
const EndByte byte = 0xC0

// ---- GEOMETRY ----

// ChannelsPerBoard is the EEG channel count carried by one frame.
const ChannelsPerBoard = 8

// AuxChannels is the accelerometer value count carried by one frame.
const AuxChannels = 3

// ChannelWidth is the byte width of one channel value (24-bit).
const ChannelWidth = 3

// AuxWidth is the byte width of one aux value (16-bit).
const AuxWidth = 2

// Size is the full frame length for one board:
// start(1) + seq(1) + channels(8*3) + aux(3*2) + end(1).
const Size = 1 + 1 + ChannelsPerBoard*ChannelWidth + AuxChannels*AuxWidth + 1

// ---- SCALING ----

// ADS1299 reference voltage and the gain set by the board firmware.
const (
	adcVref = 4.5
	adcGain = 24.0
)

// MicrovoltsPerCount converts a raw channel count to microvolts.
const MicrovoltsPerCount = adcVref / float64((1<<23)-1) / adcGain * 1e6

// GPerCount converts a raw accelerometer count to G (+/-4G range, 2 mG per count).
const GPerCount = 0.002 / 16

// ---- BUDGETS ----

// DefaultMaxSkip is the resynchronization budget of one Next call.
const DefaultMaxSkip = 3000

// SampleRate is the board output rate in Hz for a single board.
const SampleRate = 250.0
