// internal/simulator/board.go
package simulator

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tamzrod/bci-streamer/internal/command"
	"github.com/tamzrod/bci-streamer/internal/frame"
	"github.com/tamzrod/bci-streamer/internal/link"
)

// DefaultIdentity is the banner sent after a soft reset.
const DefaultIdentity = "OpenBCI V3 8-16 channel\nOn Board ADS1299 Device ID: 0x3E\nLIS3DH Device ID: 0x33\nFirmware: v3.1.2\n$$$"

// registerDump is the reply to a register settings query.
const registerDump = "Board ADS Registers\nADS_ID, 00, 3E, 0, 0, 1, 1, 1, 1, 1, 0\nCONFIG1, 01, 96, 1, 0, 0, 1, 0, 1, 1, 0\n$$$"

// Options configures the simulated board.
type Options struct {
	Rate      float64       // frames per second, defaults to frame.SampleRate
	Daisy     bool          // emit ids as odd/even daisy pairs (plain counting ids)
	MaxFrames int           // stop emitting after this many frames, 0 = unlimited
	Timeout   time.Duration // read timeout, defaults to 1s
	Identity  string        // reset banner, defaults to DefaultIdentity
}

// Board is a link.Source that behaves like a board on the other end of the wire.
// It answers resets and register queries and streams well-formed frames at
// Rate between the start and stop commands.
type Board struct {
	opts Options

	mu       sync.Mutex
	out      []byte
	commands []byte
	closed   bool

	streaming bool
	anchor    time.Time // time of frame `emitted` being due
	emitted   int       // frames emitted in the current stream
	total     int       // frames emitted since creation
	nextID    uint8
	garbage   int // garbage bytes to emit before the next frame
	corrupt   int // frames to emit with a bad end byte
}

// New creates an idle simulated board.
func New(opts Options) *Board {
	if opts.Rate <= 0 {
		opts.Rate = frame.SampleRate
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	if opts.Identity == "" {
		opts.Identity = DefaultIdentity
	}
	return &Board{opts: opts}
}

// ---- fault injection ----

// InjectGarbage emits n non-start bytes before the next frame.
func (b *Board) InjectGarbage(n int) {
	b.mu.Lock()
	b.garbage += n
	b.mu.Unlock()
}

// CorruptFrames emits the next n frames with a wrong end byte.
func (b *Board) CorruptFrames(n int) {
	b.mu.Lock()
	b.corrupt += n
	b.mu.Unlock()
}

// Commands returns every command byte received so far.
func (b *Board) Commands() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.commands...)
}

// Emitted returns the number of frames emitted since creation.
func (b *Board) Emitted() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// ---- link.Source ----

func (b *Board) Write(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return link.ErrClosed
	}

	for _, c := range p {
		b.commands = append(b.commands, c)

		switch c {
		case command.SoftReset:
			b.streaming = false
			b.out = append(b.out[:0], b.opts.Identity...)
		case command.StartStreaming:
			if !b.streaming {
				b.streaming = true
				b.anchor = time.Now()
				b.emitted = 0
			}
		case command.StopStreaming:
			b.emitFramesLocked(time.Now())
			b.streaming = false
		case command.RegisterSettings:
			b.out = append(b.out, registerDump...)
		}
	}
	return nil
}

func (b *Board) Read(n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline := time.Now().Add(b.opts.Timeout)
	for {
		if b.closed {
			return nil, link.ErrClosed
		}

		now := time.Now()
		b.emitFramesLocked(now)

		if len(b.out) >= n {
			p := make([]byte, n)
			copy(p, b.out[:n])
			b.out = b.out[n:]
			return p, nil
		}

		if !now.Before(deadline) {
			got := len(b.out)
			b.out = b.out[:0]
			return nil, fmt.Errorf("%w: read %d/%d bytes", link.ErrLinkStalled, got, n)
		}

		wait := time.Until(deadline)
		if next, ok := b.nextDueLocked(); ok && time.Until(next) < wait {
			wait = time.Until(next)
		}
		if wait > 2*time.Millisecond {
			wait = 2 * time.Millisecond
		}

		b.mu.Unlock()
		time.Sleep(wait)
		b.mu.Lock()
	}
}

// Available reports queued bytes, waiting up to one timeout for the first one.
func (b *Board) Available() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline := time.Now().Add(b.opts.Timeout)
	for {
		if b.closed {
			return 0, link.ErrClosed
		}
		b.emitFramesLocked(time.Now())
		if len(b.out) > 0 || !time.Now().Before(deadline) {
			return len(b.out), nil
		}

		b.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		b.mu.Lock()
	}
}

func (b *Board) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// ---- frame generation ----

func (b *Board) period() time.Duration {
	return time.Duration(float64(time.Second) / b.opts.Rate)
}

func (b *Board) exhaustedLocked() bool {
	return b.opts.MaxFrames > 0 && b.total >= b.opts.MaxFrames
}

func (b *Board) nextDueLocked() (time.Time, bool) {
	if !b.streaming || b.exhaustedLocked() {
		return time.Time{}, false
	}
	return b.anchor.Add(time.Duration(b.emitted) * b.period()), true
}

// emitFramesLocked appends every frame due at now.
func (b *Board) emitFramesLocked(now time.Time) {
	for {
		due, ok := b.nextDueLocked()
		if !ok || due.After(now) {
			return
		}

		for ; b.garbage > 0; b.garbage-- {
			b.out = append(b.out, 0x55)
		}

		f := b.frameLocked()
		if b.corrupt > 0 {
			b.corrupt--
			f[len(f)-1] = 0x00
		}
		b.out = append(b.out, f...)

		b.emitted++
		b.total++
		b.nextID++
	}
}

// frameLocked synthesizes one frame: a sine per channel, phase-shifted by
// channel index, plus a slowly moving accelerometer.
func (b *Board) frameLocked() []byte {
	t := float64(b.total) / b.opts.Rate

	offset := 0.0
	if b.opts.Daisy && b.nextID%2 == 1 {
		offset = float64(frame.ChannelsPerBoard)
	}

	channels := make([]int32, frame.ChannelsPerBoard)
	for i := range channels {
		phase := float64(i) + offset
		channels[i] = int32(100000 * math.Sin(2*math.Pi*10*t+phase))
	}

	aux := []int16{
		int16(1000 * math.Sin(2*math.Pi*0.5*t)),
		int16(1000 * math.Cos(2*math.Pi*0.5*t)),
		8192,
	}

	return frame.Encode(b.nextID, channels, aux)
}
