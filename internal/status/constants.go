// internal/status/constants.go
package status

// Link status block layout.
// Every board owns SlotsPerDevice consecutive registers at Slot*SlotsPerDevice.
// The layout is read by external tooling and MUST NOT be configurable.
const SlotsPerDevice = 20

// Live slots, rewritten as link health changes.
const (
	SlotHealthCode     = 0
	SlotLastErrorCode  = 1
	SlotSecondsInError = 2 // saturating, 0 while healthy
	SlotPacketsDropped = 3 // consecutive dropped frames, saturating
	SlotReconnects     = 4 // reconnect attempts since start, saturating
)

// Slots 5-10 stay zero.
const (
	SlotReservedStart = 5
	SlotReservedEnd   = 10
)

// Board name, two ASCII characters per slot, at the end of the block.
const (
	SlotDeviceNameStart = 11
	SlotDeviceNameSlots = 8
	SlotDeviceNameEnd   = SlotDeviceNameStart + SlotDeviceNameSlots - 1
	DeviceNameMaxChars  = 2 * SlotDeviceNameSlots
)

// Health codes.
const (
	HealthUnknown  uint16 = 0 // nothing published yet
	HealthOK       uint16 = 1 // streaming, no drops
	HealthError    uint16 = 2 // faulted, waiting for a reconnect
	HealthStale    uint16 = 3 // streaming with drops, or reconnecting
	HealthDisabled uint16 = 4 // stopped
)

// Link error codes for SlotLastErrorCode.
const (
	ErrorNone             uint16 = 0
	ErrorStalled          uint16 = 1 // a read returned short
	ErrorFramingExhausted uint16 = 2 // skip budget ran out
	ErrorOther            uint16 = 3
)
