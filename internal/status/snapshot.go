// internal/status/snapshot.go
package status

// Snapshot is one sample of link health as the monitor sees it.
// Counters are already saturated to 16 bits.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	PacketsDropped uint16
	Reconnects     uint16
}
