// internal/status/encode.go
package status

// Encode converts a Snapshot into the live slots of a status block.
// Name slots are left zero; the writer owns them.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotLastErrorCode] = s.LastErrorCode
	regs[SlotSecondsInError] = s.SecondsInError
	regs[SlotPacketsDropped] = s.PacketsDropped
	regs[SlotReconnects] = s.Reconnects

	return regs
}

// Saturate clamps a counter into one 16-bit slot.
func Saturate(v int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFFFF
	}
	return uint16(v)
}
