// internal/status/status_test.go
package status

import (
	"testing"
	"time"
)

func TestEncodeLiveSlots(t *testing.T) {
	regs := Encode(Snapshot{
		Health:         HealthStale,
		LastErrorCode:  ErrorStalled,
		SecondsInError: 12,
		PacketsDropped: 4,
		Reconnects:     2,
	})

	if len(regs) != SlotsPerDevice {
		t.Fatalf("expected %d slots, got %d", SlotsPerDevice, len(regs))
	}

	want := map[int]uint16{
		SlotHealthCode:     HealthStale,
		SlotLastErrorCode:  ErrorStalled,
		SlotSecondsInError: 12,
		SlotPacketsDropped: 4,
		SlotReconnects:     2,
	}
	for slot, v := range want {
		if regs[slot] != v {
			t.Fatalf("slot %d: got=%d want=%d", slot, regs[slot], v)
		}
	}

	for i := SlotReservedStart; i <= SlotDeviceNameEnd; i++ {
		if regs[i] != 0 {
			t.Fatalf("slot %d must stay zero, got %d", i, regs[i])
		}
	}
}

func TestSaturate(t *testing.T) {
	cases := map[int64]uint16{
		-5:      0,
		0:       0,
		42:      42,
		65535:   65535,
		1 << 20: 65535,
	}
	for in, want := range cases {
		if got := Saturate(in); got != want {
			t.Fatalf("Saturate(%d): got=%d want=%d", in, got, want)
		}
	}
}

func TestCountersDropped(t *testing.T) {
	c := NewCounters(0)

	if n := c.IncDropped(); n != 1 {
		t.Fatalf("first inc: got=%d", n)
	}
	c.IncDropped()
	if c.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", c.Dropped())
	}

	c.ResetDropped()
	if c.Dropped() != 0 {
		t.Fatalf("expected reset, got %d", c.Dropped())
	}
}

func TestCountersReconnectDue(t *testing.T) {
	c := NewCounters(10 * time.Second)
	now := time.Unix(1000, 0)

	if !c.ReconnectDue(now) {
		t.Fatal("first reconnect must be due")
	}

	c.MarkReconnect(now)
	if c.Reconnects() != 1 {
		t.Fatalf("expected 1 reconnect, got %d", c.Reconnects())
	}
	if !c.LastReconnect().Equal(now) {
		t.Fatalf("last reconnect: got=%v want=%v", c.LastReconnect(), now)
	}

	if c.ReconnectDue(now.Add(5 * time.Second)) {
		t.Fatal("reconnect inside interval must be deferred")
	}
	if !c.ReconnectDue(now.Add(10 * time.Second)) {
		t.Fatal("reconnect after interval must be due")
	}
}

func TestCountersZeroIntervalAlwaysDue(t *testing.T) {
	c := NewCounters(0)
	now := time.Now()

	c.MarkReconnect(now)
	if !c.ReconnectDue(now) {
		t.Fatal("zero interval must allow a reconnect every tick")
	}
}

func TestCountersLastError(t *testing.T) {
	c := NewCounters(0)
	if c.LastError() != ErrorNone {
		t.Fatalf("expected no error, got %d", c.LastError())
	}
	c.SetLastError(ErrorFramingExhausted)
	if c.LastError() != ErrorFramingExhausted {
		t.Fatalf("got=%d", c.LastError())
	}
}
