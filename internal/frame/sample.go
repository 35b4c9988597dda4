// internal/frame/sample.go
package frame

// Sample is one decoded reading.
// Values are raw counts or scaled units depending on the decoder config.
// A Sample is never mutated after creation: callers must treat the slices as read-only.
type Sample struct {
	ID        uint8
	Channels  []float64
	Aux       []float64
	Impedance []float64 // reserved, always empty
}
