// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"

	"github.com/tamzrod/bci-streamer/internal/status"
)

// StatusWriter delivers link health snapshots. It writes what it is given;
// health is derived by the monitor.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// statusWriter mirrors one board's status block on the endpoint.
//
// The endpoint copy is trusted only after a successful full block write.
// From then on each snapshot is diffed against the mirror and only the
// changed runs of slots are written. Any failure drops the trust.
type statusWriter struct {
	plan StatusPlan
	cli  endpointClient

	mirror  []uint16 // nil until a full block landed
	nameReg []uint16
}

// NewStatusWriter builds a status writer over one endpoint client.
func NewStatusWriter(plan StatusPlan, cli endpointClient) *statusWriter {
	return &statusWriter{
		plan:    plan,
		cli:     cli,
		nameReg: encodeDeviceNameRegs(plan.DeviceName),
	}
}

func (sw *statusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	block := sw.block(s)
	base := sw.plan.BaseSlot * status.SlotsPerDevice

	if sw.mirror == nil {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, block); err != nil {
			return fmt.Errorf("status writer: full block: %w", err)
		}
		sw.mirror = block
		return nil
	}

	for _, r := range changedRuns(sw.mirror, block) {
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base+uint16(r.start), block[r.start:r.end]); err != nil {
			sw.mirror = nil
			return fmt.Errorf("status writer: slots %d-%d: %w", r.start, r.end-1, err)
		}
		copy(sw.mirror[r.start:r.end], block[r.start:r.end])
	}
	return nil
}

// block is the full register image: live slots, zero reserved slots, name.
func (sw *statusWriter) block(s status.Snapshot) []uint16 {
	regs := status.Encode(s)
	copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameReg)
	return regs
}

type run struct{ start, end int } // [start, end)

// changedRuns returns the maximal runs of slots that differ.
func changedRuns(prev, next []uint16) []run {
	var out []run
	for i := 0; i < len(next); {
		if prev[i] == next[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(next) && prev[j] != next[j] {
			j++
		}
		out = append(out, run{i, j})
		i = j
	}
	return out
}

// encodeDeviceNameRegs packs up to 16 ASCII characters into 8 registers,
// two characters per register, first character in the high byte.
// Non-printable characters become '?'.
func encodeDeviceNameRegs(name string) []uint16 {
	var raw [status.DeviceNameMaxChars]byte
	for i := 0; i < len(name) && i < len(raw); i++ {
		c := name[i]
		if c < 0x20 || c > 0x7E {
			c = '?'
		}
		raw[i] = c
	}

	out := make([]uint16, status.SlotDeviceNameSlots)
	for i := range out {
		out[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return out
}
