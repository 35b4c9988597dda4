// internal/board/session.go
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/bci-streamer/internal/command"
	"github.com/tamzrod/bci-streamer/internal/config"
	"github.com/tamzrod/bci-streamer/internal/daisy"
	"github.com/tamzrod/bci-streamer/internal/frame"
	"github.com/tamzrod/bci-streamer/internal/link"
	"github.com/tamzrod/bci-streamer/internal/logging"
	"github.com/tamzrod/bci-streamer/internal/monitor"
	"github.com/tamzrod/bci-streamer/internal/status"
	"github.com/tamzrod/bci-streamer/internal/stream"
)

// Options are the collaborators a session does not build itself.
type Options struct {
	Log    *logrus.Logger    // nil => logrus standard logger
	Status monitor.Publisher // optional link health export
	OnStop func()            // flush hook, runs after every stop
}

// Session owns one board connection: its source, configuration, streaming
// controller and connection monitor.
type Session struct {
	cfg      *config.Config
	src      link.Source
	counters *status.Counters
	ctrl     *stream.Controller
	mon      *monitor.Monitor
	log      *logrus.Entry
	onStop   func()

	settle time.Duration
	pause  time.Duration
	ident  string

	reconnectMu sync.Mutex

	monCancel context.CancelFunc
	monDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// New initializes the board behind src and starts the connection monitor.
// The session takes ownership of src.
func New(src link.Source, cfg *config.Config, opts Options) (*Session, error) {
	if src == nil {
		return nil, errors.New("board: source required")
	}
	if cfg == nil {
		return nil, errors.New("board: config required")
	}

	s := &Session{
		cfg:      cfg,
		src:      src,
		counters: status.NewCounters(time.Duration(cfg.Monitor.ReconnectIntervalMs) * time.Millisecond),
		log:      logging.Component(opts.Log, "board"),
		onStop:   opts.OnStop,
		settle:   millis(cfg.Stream.SettleMs, config.DefaultSettleMs),
		pause:    millis(cfg.Monitor.ReconnectPauseMs, config.DefaultReconnectPauseMs),
	}

	// ---- decode pipeline ----
	dec := frame.NewDecoder(src, frame.Config{
		Channels: frame.ChannelsPerBoard,
		Scaled:   cfg.Board.Scaling,
		MaxSkip:  cfg.Stream.MaxBytesToSkip,
	}, s.counters, logging.Component(opts.Log, "decoder"))

	s.ctrl = stream.New(dec, daisy.New(cfg.Board.Daisy), src, logging.Component(opts.Log, "stream"), stream.Hooks{
		OnStop:  s.flush,
		OnFault: s.recordFault,
	})

	// ---- monitor ----
	interval := time.Duration(cfg.Monitor.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Duration(config.DefaultMonitorIntervalMs) * time.Millisecond
	}
	threshold := config.DefaultMaxPacketsToSkip
	if cfg.Monitor.MaxPacketsToSkip != nil {
		threshold = *cfg.Monitor.MaxPacketsToSkip
	}

	mon, err := monitor.New(monitor.Config{
		Interval:  interval,
		Threshold: int64(threshold),
	}, s.counters, s, opts.Status, logging.Component(opts.Log, "monitor"))
	if err != nil {
		return nil, err
	}
	s.mon = mon

	if err := s.init(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.monCancel = cancel
	s.monDone = make(chan struct{})
	go func() {
		defer close(s.monDone)
		s.mon.Run(ctx)
	}()

	s.log.WithFields(logrus.Fields{
		"board":    s.BoardType(),
		"interval": s.mon.Interval(),
	}).Info("session ready, monitor running")
	return s, nil
}

// init resets the board, logs its banner and applies filter and channel settings.
func (s *Session) init() error {
	time.Sleep(s.settle)

	// soft reset: initializes 32-bit boards, harmless on 8-bit ones
	if err := s.write(command.SoftReset); err != nil {
		return fmt.Errorf("board: reset: %w", err)
	}
	time.Sleep(s.settle)

	if text, err := readText(s.src); err != nil {
		s.log.WithError(err).Warn("no identification message")
	} else {
		s.ident = text
		s.log.WithField("text", text).Info("board identification")
	}

	if s.cfg.Board.FilteringEnabled() {
		if err := s.EnableFilters(); err != nil {
			return err
		}
	} else if err := s.DisableFilters(); err != nil {
		return err
	}

	return s.ApplyChannelMask()
}

// ---- board information ----

func (s *Session) BoardType() string { return s.cfg.Board.Type }

// Identification is the banner the board sent on reset, empty if it stayed silent.
func (s *Session) Identification() string { return s.ident }

// SampleRate is the rate handlers see: halved with a daisy board.
func (s *Session) SampleRate() float64 {
	if s.cfg.Board.Daisy {
		return frame.SampleRate / 2
	}
	return frame.SampleRate
}

func (s *Session) EEGChannels() int       { return s.cfg.Board.ChannelCount() }
func (s *Session) AuxChannels() int       { return frame.AuxChannels }
func (s *Session) ImpedanceChannels() int { return 0 }

// Counters exposes the shared link health counters.
func (s *Session) Counters() *status.Counters { return s.counters }

// Monitor exposes the connection monitor.
func (s *Session) Monitor() *monitor.Monitor { return s.mon }

// ---- streaming ----

// Start streams samples to handlers on a dedicated goroutine.
// limit <= 0 streams until Stop.
func (s *Session) Start(handlers []stream.Handler, limit time.Duration) error {
	return s.ctrl.Start(handlers, limit)
}

// Stop halts streaming. Safe to call repeatedly.
func (s *Session) Stop() error { return s.ctrl.Stop() }

// Wait blocks until the streaming worker exits.
func (s *Session) Wait() error { return s.ctrl.Wait() }

// Stopped is closed when the stream reaches Stopped.
func (s *Session) Stopped() <-chan struct{} { return s.ctrl.Stopped() }

// State implements monitor.Target.
func (s *Session) State() stream.State { return s.ctrl.State() }

// Reconnect zeroes the drop counter, halts the stream, resets the board and
// resumes streaming with the same handlers. Best effort: a failure is
// reported and the next monitor tick tries again.
func (s *Session) Reconnect() error {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	s.counters.ResetDropped()
	s.counters.MarkReconnect(time.Now())
	s.log.WithField("attempt", s.counters.Reconnects()).Warn("reconnecting")

	if err := s.ctrl.Halt(); err != nil {
		if errors.Is(err, stream.ErrNotStreaming) {
			return err
		}
		s.log.WithError(err).Warn("halt failed")
	}

	time.Sleep(s.pause)
	if err := s.write(command.SoftReset); err != nil {
		s.log.WithError(err).Warn("reset failed")
	}
	time.Sleep(s.pause)

	if err := s.ctrl.Resume(); err != nil {
		return fmt.Errorf("board: reconnect: %w", err)
	}
	return nil
}

// Disconnect stops streaming, ends the monitor and closes the source.
// Safe to call more than once; later calls return the first result.
func (s *Session) Disconnect() error {
	s.closeOnce.Do(func() {
		if s.monCancel != nil {
			s.monCancel()
			<-s.monDone
		}

		var errs []error
		if err := s.ctrl.Stop(); err != nil {
			errs = append(errs, err)
		}
		if err := s.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("board: close: %w", err))
		}
		if err := s.ctrl.Wait(); err != nil {
			s.log.WithError(err).Debug("worker ended with error")
		}

		s.log.Info("link closed")
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// ---- hooks ----

func (s *Session) flush() {
	if s.onStop != nil {
		s.onStop()
	}
}

func (s *Session) recordFault(err error) {
	code := status.ErrorOther
	switch {
	case errors.Is(err, frame.ErrFramingExhausted):
		code = status.ErrorFramingExhausted
	case errors.Is(err, link.ErrLinkStalled):
		code = status.ErrorStalled
	}
	s.counters.SetLastError(code)
	s.log.WithError(err).WithField("code", code).Error("link fault, waiting for monitor")
}

func (s *Session) write(cmd byte) error {
	return s.src.Write([]byte{cmd})
}

func millis(v *int, def int) time.Duration {
	if v == nil {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(*v) * time.Millisecond
}
