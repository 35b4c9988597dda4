// internal/writer/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// DefaultTimeout applies when Config.Timeout is zero.
const DefaultTimeout = 2 * time.Second

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// EndpointClient writes holding registers on one Modbus TCP endpoint.
//
// The endpoint may come and go while a board streams: nothing is dialed up
// front, the goburrow handler connects on demand, and a failed write drops
// the connection so the next one dials again. Requests are serialized
// because the unit id lives on the shared handler.
type EndpointClient struct {
	mu       sync.Mutex
	endpoint string
	handler  *modbus.TCPClientHandler
	client   modbus.Client
	failures int
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.IdleTimeout = 4 * cfg.Timeout

	return &EndpointClient{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
	}, nil
}

// WriteRegisters issues one write-multiple-registers request (FC 16).
func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 {
		return nil
	}

	payload := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(payload[2*i:], r)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID
	if _, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), payload); err != nil {
		c.failures++
		_ = c.handler.Close()
		return fmt.Errorf("writer modbus: %s unit %d addr %d: %w", c.endpoint, unitID, addr, err)
	}
	c.failures = 0
	return nil
}

// Failures is the number of consecutive failed writes.
func (c *EndpointClient) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}
