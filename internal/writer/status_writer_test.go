// internal/writer/status_writer_test.go
package writer

import (
	"errors"
	"testing"

	"github.com/tamzrod/bci-streamer/internal/status"
)

type regWrite struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	writes []regWrite
	fail   bool
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if f.fail {
		return errors.New("endpoint down")
	}
	f.writes = append(f.writes, regWrite{unitID: unitID, addr: addr, regs: append([]uint16(nil), regs...)})
	return nil
}

func (f *fakeEndpointClient) last() regWrite { return f.writes[len(f.writes)-1] }

func testPlan() StatusPlan {
	return StatusPlan{
		Endpoint:   "status-endpoint",
		UnitID:     1,
		BaseSlot:   2,
		DeviceName: "CYTON-01",
	}
}

func TestDeviceNameWrittenOnFullAssertOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewStatusWriter(testPlan(), cli)

	// ---- first write: FULL ASSERT ----
	first := status.Snapshot{Health: status.HealthOK}

	if err := sw.WriteStatus(first); err != nil {
		t.Fatalf("initial full assert failed: %v", err)
	}

	w := cli.last()
	if len(w.regs) != status.SlotsPerDevice {
		t.Fatalf("expected full block write (%d regs), got %d", status.SlotsPerDevice, len(w.regs))
	}
	if w.addr != 2*status.SlotsPerDevice {
		t.Fatalf("unexpected base addr: got=%d want=%d", w.addr, 2*status.SlotsPerDevice)
	}

	// Verify device name encoding EXACTLY
	expectedNameRegs := encodeDeviceNameRegs("CYTON-01")
	for i := 0; i < status.SlotDeviceNameSlots; i++ {
		slot := status.SlotDeviceNameStart + i
		if w.regs[slot] != expectedNameRegs[i] {
			t.Fatalf("device name slot %d mismatch: got=%d want=%d", slot, w.regs[slot], expectedNameRegs[i])
		}
	}
	if expectedNameRegs[0] != uint16('C')<<8|uint16('Y') {
		t.Fatalf("device name not big-endian packed: %04x", expectedNameRegs[0])
	}

	// ---- second write: INCREMENTAL ONLY ----
	second := status.Snapshot{Health: status.HealthStale, PacketsDropped: 4}

	before := len(cli.writes)
	if err := sw.WriteStatus(second); err != nil {
		t.Fatalf("incremental write failed: %v", err)
	}

	if got := len(cli.writes) - before; got != 2 {
		t.Fatalf("expected 2 single-slot writes, got %d", got)
	}
	for _, w := range cli.writes[before:] {
		if len(w.regs) != 1 {
			t.Fatalf("device name should not be rewritten on incremental update")
		}
	}
}

func TestUnchangedSnapshotWritesNothing(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewStatusWriter(testPlan(), cli)

	snap := status.Snapshot{Health: status.HealthOK, Reconnects: 3}
	if err := sw.WriteStatus(snap); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}
	before := len(cli.writes)

	if err := sw.WriteStatus(snap); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if len(cli.writes) != before {
		t.Fatalf("expected no writes, got %d", len(cli.writes)-before)
	}
}

func TestFailureForcesFullReassert(t *testing.T) {
	cli := &fakeEndpointClient{}
	sw := NewStatusWriter(testPlan(), cli)

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}

	cli.fail = true
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: status.ErrorStalled}); err == nil {
		t.Fatalf("expected write error, got nil")
	}

	cli.fail = false
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: status.ErrorStalled}); err != nil {
		t.Fatalf("recovery write failed: %v", err)
	}

	w := cli.last()
	if len(w.regs) != status.SlotsPerDevice {
		t.Fatalf("expected full block after failure, got %d regs", len(w.regs))
	}
	if w.regs[status.SlotHealthCode] != status.HealthError || w.regs[status.SlotLastErrorCode] != status.ErrorStalled {
		t.Fatalf("unexpected live slots: %v", w.regs[:5])
	}
}

func TestSecondsInErrorResetOnRecovery(t *testing.T) {
	cli := &fakeEndpointClient{}
	plan := testPlan()
	sw := NewStatusWriter(plan, cli)

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthError, LastErrorCode: 2, SecondsInError: 3}); err != nil {
		t.Fatalf("error snapshot write failed: %v", err)
	}
	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK, LastErrorCode: 2}); err != nil {
		t.Fatalf("recovery snapshot write failed: %v", err)
	}

	expectedAddr := plan.BaseSlot*status.SlotsPerDevice + status.SlotSecondsInError

	w := cli.last()
	if w.addr != expectedAddr {
		t.Fatalf("unexpected write addr: got=%d want=%d", w.addr, expectedAddr)
	}
	if len(w.regs) != 1 || w.regs[0] != 0 {
		t.Fatalf("seconds_in_error not reset: %v", w.regs)
	}
}

func TestAdjacentChangesCoalesceIntoOneWrite(t *testing.T) {
	cli := &fakeEndpointClient{}
	plan := testPlan()
	sw := NewStatusWriter(plan, cli)

	if err := sw.WriteStatus(status.Snapshot{Health: status.HealthOK}); err != nil {
		t.Fatalf("full assert failed: %v", err)
	}
	before := len(cli.writes)

	next := status.Snapshot{Health: status.HealthError, LastErrorCode: status.ErrorFramingExhausted, SecondsInError: 1}
	if err := sw.WriteStatus(next); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if got := len(cli.writes) - before; got != 1 {
		t.Fatalf("expected 1 coalesced write, got %d", got)
	}
	w := cli.last()
	if w.addr != plan.BaseSlot*status.SlotsPerDevice {
		t.Fatalf("unexpected addr %d", w.addr)
	}
	if len(w.regs) != 3 || w.regs[0] != status.HealthError || w.regs[1] != status.ErrorFramingExhausted || w.regs[2] != 1 {
		t.Fatalf("unexpected regs %v", w.regs)
	}
}

func TestDeviceNameSanitizedAndTruncated(t *testing.T) {
	regs := encodeDeviceNameRegs("ab\x01defghijklmnopqrstu")

	if regs[1] != uint16('?')<<8|uint16('d') {
		t.Fatalf("control character not replaced: %04x", regs[1])
	}
	if regs[7] != uint16('o')<<8|uint16('p') {
		t.Fatalf("name not truncated at 16 chars: %04x", regs[7])
	}

	short := encodeDeviceNameRegs("abc")
	if short[1] != uint16('c')<<8 || short[2] != 0 {
		t.Fatalf("short name not zero padded: %v", short)
	}
}
