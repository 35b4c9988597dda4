// internal/link/memory.go
package link

import (
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Source.
// Bytes queued with Feed are returned by Read; bytes passed to Write are recorded.
type Memory struct {
	mu      sync.Mutex
	buf     []byte
	written []byte
	closed  bool
	wake    chan struct{}
	timeout time.Duration

	onWrite func(b []byte)
}

// NewMemory creates an empty source whose reads give up after timeout.
func NewMemory(timeout time.Duration) *Memory {
	return &Memory{
		wake:    make(chan struct{}),
		timeout: timeout,
	}
}

// OnWrite installs a hook that sees every written chunk.
// The hook runs outside the source lock and may call Feed.
func (m *Memory) OnWrite(fn func(b []byte)) {
	m.mu.Lock()
	m.onWrite = fn
	m.mu.Unlock()
}

// Feed queues bytes for Read.
func (m *Memory) Feed(b []byte) {
	m.mu.Lock()
	m.buf = append(m.buf, b...)
	m.notifyLocked()
	m.mu.Unlock()
}

// Written returns a copy of everything written so far.
func (m *Memory) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.written))
	copy(out, m.written)
	return out
}

// Pending returns the number of queued, unread bytes.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf)
}

func (m *Memory) Read(n int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if !m.waitLocked(func() bool { return len(m.buf) >= n }) {
		if m.closed {
			return nil, ErrClosed
		}
		got := len(m.buf)
		m.buf = m.buf[:0]
		return nil, fmt.Errorf("%w: read %d/%d bytes", ErrLinkStalled, got, n)
	}

	out := make([]byte, n)
	copy(out, m.buf[:n])
	m.buf = m.buf[n:]
	return out, nil
}

func (m *Memory) Write(b []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.written = append(m.written, b...)
	hook := m.onWrite
	m.mu.Unlock()

	if hook != nil {
		hook(append([]byte(nil), b...))
	}
	return nil
}

func (m *Memory) Available() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	m.waitLocked(func() bool { return len(m.buf) > 0 })
	return len(m.buf), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

// waitLocked waits until ready holds, the source closes or the timeout expires.
// Caller holds m.mu.
func (m *Memory) waitLocked(ready func() bool) bool {
	deadline := time.Now().Add(m.timeout)
	for !ready() && !m.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		ch := m.wake
		m.mu.Unlock()
		t := time.NewTimer(remaining)
		select {
		case <-ch:
		case <-t.C:
		}
		t.Stop()
		m.mu.Lock()
	}
	return ready()
}

func (m *Memory) notifyLocked() {
	close(m.wake)
	m.wake = make(chan struct{})
}
