// internal/stream/controller.go
package stream

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/bci-streamer/internal/command"
	"github.com/tamzrod/bci-streamer/internal/daisy"
	"github.com/tamzrod/bci-streamer/internal/frame"
	"github.com/tamzrod/bci-streamer/internal/link"
)

// ErrNotStreaming is returned by Halt and Resume outside an active stream.
var ErrNotStreaming = errors.New("stream: not streaming")

// retryDelay spaces out reads that keep failing while a reconnect is pending.
const retryDelay = 50 * time.Millisecond

// Handler receives one (possibly daisy-combined) sample.
// Handlers run synchronously on the streaming worker, in registration order:
// a slow handler slows the stream. There is no queue in between.
type Handler func(frame.Sample)

// Decoder yields decoded frames.
type Decoder interface {
	Next() (frame.Sample, error)
}

// Commander sends board commands.
type Commander interface {
	Write(b []byte) error
}

// Hooks connect the controller to its owning session.
type Hooks struct {
	OnStop  func()          // after an explicit or timed stop
	OnFault func(err error) // after a link fault halted the stream
}

// Controller owns the read loop and the streaming state.
type Controller struct {
	dec   Decoder
	join  *daisy.Reassembler
	cmd   Commander
	log   *logrus.Entry
	hooks Hooks

	state       atomic.Int32
	dispatching atomic.Bool // worker is inside a handler

	mu       sync.Mutex
	handlers []Handler
	deadline time.Time
	timer    *time.Timer
	running  bool
	done     chan struct{}
	stopped  chan struct{}
	err      error
}

// New creates a stopped controller.
func New(dec Decoder, join *daisy.Reassembler, cmd Commander, log *logrus.Entry, hooks Hooks) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	stopped := make(chan struct{})
	close(stopped)
	return &Controller{
		dec:     dec,
		join:    join,
		cmd:     cmd,
		log:     log,
		hooks:   hooks,
		stopped: stopped,
	}
}

// State returns the current streaming state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Start turns streaming on and runs the read loop on its own goroutine.
// limit <= 0 streams until Stop. Calling Start while streaming is a no-op:
// no command is sent and handlers are not replaced.
func (c *Controller) Start(handlers []Handler, limit time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case Streaming, Reconnecting:
		c.log.Debug("start ignored: already streaming")
		return nil
	case Stopped:
		c.stopped = make(chan struct{})
	}

	if err := c.send(command.StartStreaming); err != nil {
		if c.State() == Stopped {
			close(c.stopped)
		}
		return fmt.Errorf("stream: start: %w", err)
	}
	c.state.Store(int32(Streaming))
	c.log.WithField("handlers", len(handlers)).Info("streaming started")

	c.handlers = append([]Handler(nil), handlers...)
	c.armLocked(limit)

	if !c.running {
		c.launchLocked()
	}
	return nil
}

// Stop sends the halt command and ends the stream.
// A second call is a no-op and sends nothing.
func (c *Controller) Stop() error {
	c.mu.Lock()

	prev := State(c.state.Swap(int32(Stopped)))
	if prev == Stopped {
		c.mu.Unlock()
		return nil
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	var err error
	if prev != Faulted {
		// a fault already halted the board
		err = c.send(command.StopStreaming)
	}
	close(c.stopped)
	c.mu.Unlock()

	c.log.Info("streaming stopped")
	if c.hooks.OnStop != nil {
		c.hooks.OnStop()
	}

	if err != nil {
		return fmt.Errorf("stream: stop: %w", err)
	}
	return nil
}

// Halt parks an active or faulted stream for a reconnect.
// Handlers stay bound and a running worker keeps reading.
func (c *Controller) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.State()
	if st != Streaming && st != Faulted {
		return ErrNotStreaming
	}
	c.state.Store(int32(Reconnecting))

	if err := c.send(command.StopStreaming); err != nil {
		return fmt.Errorf("stream: halt: %w", err)
	}
	return nil
}

// Resume restarts a halted stream without going through Start.
// The worker is relaunched if a fault ended it.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != Reconnecting {
		return ErrNotStreaming
	}

	if err := c.send(command.StartStreaming); err != nil {
		// leave it to the next monitor tick
		c.state.Store(int32(Faulted))
		return fmt.Errorf("stream: resume: %w", err)
	}
	c.state.Store(int32(Streaming))

	if !c.running {
		c.join.Reset()
		c.launchLocked()
	}
	return nil
}

// Stopped is closed once the stream reaches Stopped.
func (c *Controller) Stopped() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Wait blocks until the current worker exits and returns its error.
// A nil error means the stream was stopped, not faulted.
//
// While a handler runs Wait returns nil at once: a handler that stops the
// stream cannot wait for its own worker. The worker exits when the handler
// returns.
func (c *Controller) Wait() error {
	if c.dispatching.Load() {
		return nil
	}

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ---- worker ----

func (c *Controller) launchLocked() {
	c.running = true
	c.err = nil
	done := make(chan struct{})
	c.done = done

	go func() {
		for {
			if c.finish(c.loop(), done) {
				return
			}
		}
	}()
}

// finish decides under the lock whether the worker may exit. A Start that
// raced with the exit found running still set and launched nothing, so the
// worker keeps reading instead.
func (c *Controller) finish(err error, done chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Streaming {
		c.log.Debug("stream restarted during worker exit")
		return false
	}
	c.running = false
	c.err = err
	close(done)
	return true
}

func (c *Controller) loop() error {
	for {
		switch c.State() {
		case Stopped, Faulted:
			return nil
		}

		s, err := c.dec.Next()
		if err != nil {
			switch c.State() {
			case Stopped:
				// Stop closed or silenced the link under us.
				c.log.WithError(err).Debug("read ended after stop")
				return nil
			case Reconnecting:
				if errors.Is(err, link.ErrClosed) {
					return err
				}
				c.log.WithError(err).Debug("read failed during reconnect")
				time.Sleep(retryDelay)
				continue
			}
			c.fault(err)
			if c.State() == Stopped {
				return nil
			}
			return err
		}

		// a frame read across Stop or Halt is discarded
		if c.State() != Streaming {
			continue
		}

		out, ok := c.join.Push(s)
		if !ok {
			continue
		}

		handlers, deadline := c.dispatchSet()
		c.dispatching.Store(true)
		for _, h := range handlers {
			h(out)
		}
		c.dispatching.Store(false)

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			_ = c.Stop()
		}
	}
}

func (c *Controller) fault(err error) {
	c.mu.Lock()
	if !c.state.CompareAndSwap(int32(Streaming), int32(Faulted)) {
		c.mu.Unlock()
		return
	}
	werr := c.send(command.StopStreaming)
	c.mu.Unlock()

	c.log.WithError(err).Error("link fault, streaming halted")
	if werr != nil {
		c.log.WithError(werr).Warn("halt command failed")
	}
	if c.hooks.OnFault != nil {
		c.hooks.OnFault(err)
	}
}

func (c *Controller) dispatchSet() ([]Handler, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers, c.deadline
}

// armLocked installs the time limit. The timer stops the stream even when
// the worker is blocked in a read.
func (c *Controller) armLocked(limit time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.deadline = time.Time{}
	if limit <= 0 {
		return
	}

	c.deadline = time.Now().Add(limit)
	c.timer = time.AfterFunc(limit, func() {
		c.log.WithField("limit", limit).Info("time limit reached")
		_ = c.Stop()
	})
}

func (c *Controller) send(cmd byte) error {
	return c.cmd.Write([]byte{cmd})
}
