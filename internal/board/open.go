// internal/board/open.go
package board

import (
	"fmt"
	"time"

	"github.com/tamzrod/bci-streamer/internal/config"
	"github.com/tamzrod/bci-streamer/internal/link"
	"github.com/tamzrod/bci-streamer/internal/logging"
	"github.com/tamzrod/bci-streamer/internal/simulator"
)

// Open resolves the configured port, opens it and initializes a session.
//
//	MOCK  -> simulated board
//	AUTO  -> first serial port that identifies as a board
//	other -> serial device path
func Open(cfg *config.Config, opts Options) (*Session, error) {
	src, err := openSource(cfg, opts)
	if err != nil {
		return nil, err
	}

	sess, err := New(src, cfg, opts)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return sess, nil
}

func openSource(cfg *config.Config, opts Options) (link.Source, error) {
	b := cfg.Board
	timeout := time.Duration(b.TimeoutMs) * time.Millisecond

	port := b.Port
	switch port {
	case config.PortMock:
		return simulator.New(simulator.Options{
			Daisy:   b.Daisy,
			Timeout: timeout,
		}), nil

	case config.PortAuto, "":
		log := logging.Component(opts.Log, "discovery")
		found, err := FindPort(ListPorts, serialOpener(b.BaudRate, timeout),
			millis(cfg.Stream.SettleMs, config.DefaultSettleMs), log)
		if err != nil {
			return nil, err
		}
		port = found
	}

	src, err := link.OpenSerial(link.SerialConfig{
		Port:     port,
		BaudRate: b.BaudRate,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("board: open %s: %w", port, err)
	}
	logging.Component(opts.Log, "link").WithField("port", src.Name()).Info("serial port opened")
	return src, nil
}

func serialOpener(baud int, timeout time.Duration) PortOpener {
	return func(port string) (link.Source, error) {
		src, err := link.OpenSerial(link.SerialConfig{
			Port:     port,
			BaudRate: baud,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
