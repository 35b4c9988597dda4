// internal/daisy/reassembler.go
package daisy

import "github.com/tamzrod/bci-streamer/internal/frame"

// Reassembler merges auxiliary-board (odd id) and primary-board (even id)
// frames into one logical sample.
//
// Pairing is strict: an even frame is emitted only when its id is exactly one
// greater than the held odd frame. Anything else is dropped silently and the
// next odd frame becomes the anchor. Ids are compared as plain integers, so
// odd 255 never pairs with even 0.
//
// Owned by the streaming worker. Not safe for concurrent use.
type Reassembler struct {
	enabled bool

	lastOdd frame.Sample
	haveOdd bool
}

// New returns a pass-through reassembler when enabled is false.
func New(enabled bool) *Reassembler {
	return &Reassembler{enabled: enabled}
}

// Enabled reports whether frames are paired.
func (r *Reassembler) Enabled() bool { return r.enabled }

// Push offers one decoded frame.
// ok is false when nothing should be dispatched for this frame.
func (r *Reassembler) Push(s frame.Sample) (out frame.Sample, ok bool) {
	if !r.enabled {
		return s, true
	}

	// odd: auxiliary board, hold for the next even frame
	if s.ID%2 == 1 {
		r.lastOdd = s
		r.haveOdd = true
		return frame.Sample{}, false
	}

	// even: primary board
	if !r.haveOdd || int(s.ID)-1 != int(r.lastOdd.ID) {
		return frame.Sample{}, false
	}

	odd := r.lastOdd
	r.lastOdd = frame.Sample{}
	r.haveOdd = false

	return Combine(s, odd), true
}

// Reset forgets the held odd frame.
func (r *Reassembler) Reset() {
	r.lastOdd = frame.Sample{}
	r.haveOdd = false
}

// Combine builds a new sample from a primary and an auxiliary frame.
// Channels are primary then auxiliary; aux values are the element-wise mean.
// Inputs are not modified.
func Combine(primary, aux frame.Sample) frame.Sample {
	channels := make([]float64, 0, len(primary.Channels)+len(aux.Channels))
	channels = append(channels, primary.Channels...)
	channels = append(channels, aux.Channels...)

	n := len(primary.Aux)
	if len(aux.Aux) < n {
		n = len(aux.Aux)
	}
	avg := make([]float64, n)
	for i := 0; i < n; i++ {
		avg[i] = (primary.Aux[i] + aux.Aux[i]) / 2
	}

	return frame.Sample{
		ID:        primary.ID,
		Channels:  channels,
		Aux:       avg,
		Impedance: []float64{},
	}
}
