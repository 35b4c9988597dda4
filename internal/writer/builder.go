// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/bci-streamer/internal/config"
	wmodbus "github.com/tamzrod/bci-streamer/internal/writer/modbus"
)

// BuildStatusWriter converts the status config into a connected-on-demand writer.
// A nil config disables status export: the writer is nil and the closer a no-op.
func BuildStatusWriter(sc *cfg.StatusConfig) (StatusWriter, func() error, error) {
	if sc == nil {
		return nil, func() error { return nil }, nil
	}
	if sc.Endpoint == "" {
		return nil, nil, errors.New("writer: status endpoint required")
	}

	client, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: sc.Endpoint,
		Timeout:  time.Duration(sc.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	plan := StatusPlan{
		Endpoint:   sc.Endpoint,
		UnitID:     sc.UnitID,
		BaseSlot:   sc.Slot,
		DeviceName: sc.DeviceName,
	}

	return NewStatusWriter(plan, client), client.Close, nil
}
