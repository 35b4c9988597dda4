// internal/link/serial.go
package link

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goburrow/serial"
)

// SerialConfig is minimal port config.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

// Serial is a Source backed by a physical serial port.
type Serial struct {
	port   serial.Port
	r      *bufio.Reader
	name   string
	closed atomic.Bool
	once   sync.Once
}

// OpenSerial opens the port 8N1. One attempt per call.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, errors.New("link serial: port required")
	}

	p, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("link serial: open %s: %w", cfg.Port, err)
	}

	return &Serial{
		port: p,
		r:    bufio.NewReaderSize(p, 4096),
		name: cfg.Port,
	}, nil
}

// Name returns the port address.
func (s *Serial) Name() string { return s.name }

// Read blocks until n bytes arrive or the port timeout expires.
// A timeout is reported as ErrLinkStalled; the port is never polled in a loop.
func (s *Serial) Read(n int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(s.r, buf)
	if err != nil {
		if s.closed.Load() {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("%w: read %d/%d bytes on %s: %v", ErrLinkStalled, got, n, s.name, err)
	}
	return buf, nil
}

func (s *Serial) Write(b []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for len(b) > 0 {
		n, err := s.port.Write(b)
		if err != nil {
			return fmt.Errorf("link serial: write %s: %w", s.name, err)
		}
		b = b[n:]
	}
	return nil
}

// Available waits at most one port timeout for the first byte.
func (s *Serial) Available() (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if n := s.r.Buffered(); n > 0 {
		return n, nil
	}
	if _, err := s.r.Peek(1); err != nil {
		if errors.Is(err, serial.ErrTimeout) || errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("link serial: peek %s: %w", s.name, err)
	}
	return s.r.Buffered(), nil
}

// Close closes the port once. A Read blocked on the port fails with ErrClosed.
func (s *Serial) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		err = s.port.Close()
	})
	return err
}
