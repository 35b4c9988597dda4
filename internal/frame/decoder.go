// internal/frame/decoder.go
package frame

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/bci-streamer/internal/link"
)

var (
	// ErrFramingExhausted means the skip budget ran out before a valid frame was found.
	ErrFramingExhausted = errors.New("frame: framing exhausted")

	// ErrFrameInvalid marks a frame whose end byte did not match.
	// It is absorbed by the decoder and only ever logged.
	ErrFrameInvalid = errors.New("frame: invalid end byte")
)

// Reader is the part of link.Source the decoder needs.
type Reader interface {
	Read(n int) ([]byte, error)
}

// DropCounter tracks consecutive framing failures.
type DropCounter interface {
	IncDropped() int64
	ResetDropped()
}

// Config is the decoder view of the link configuration.
type Config struct {
	Channels int  // channels per frame, defaults to ChannelsPerBoard
	Scaled   bool // convert counts to microvolts / G
	MaxSkip  int  // resync budget per Next call, defaults to DefaultMaxSkip
}

type state int

const (
	awaitingStart state = iota
	readingChannels
	readingAux
	awaitingEnd
)

func (s state) String() string {
	switch s {
	case awaitingStart:
		return "awaiting-start"
	case readingChannels:
		return "reading-channels"
	case readingAux:
		return "reading-aux"
	case awaitingEnd:
		return "awaiting-end"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Decoder turns the byte stream into Samples.
// Not safe for concurrent use: one streaming worker owns it.
type Decoder struct {
	src   Reader
	cfg   Config
	drops DropCounter
	log   *logrus.Entry

	state   state
	decoded int64 // frames decoded since the last warning
}

// NewDecoder builds a decoder over src.
func NewDecoder(src Reader, cfg Config, drops DropCounter, log *logrus.Entry) *Decoder {
	if cfg.Channels <= 0 {
		cfg.Channels = ChannelsPerBoard
	}
	if cfg.MaxSkip <= 0 {
		cfg.MaxSkip = DefaultMaxSkip
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Decoder{
		src:   src,
		cfg:   cfg,
		drops: drops,
		log:   log,
	}
}

// Next blocks until one complete, validated frame is read.
//
// Every skipped byte and every abandoned frame costs one unit of the skip
// budget; an exhausted budget returns ErrFramingExhausted. Read failures
// return immediately wrapped in link.ErrLinkStalled. A partial sample is
// never returned.
func (d *Decoder) Next() (Sample, error) {
	var (
		s       Sample
		skipped int
		spent   int
	)

	for spent < d.cfg.MaxSkip {
		switch d.state {

		// ---- start byte + sequence id ----
		case awaitingStart:
			b, err := d.read(1)
			if err != nil {
				return Sample{}, err
			}
			if b[0] != StartByte {
				skipped++
				spent++
				continue
			}
			if skipped > 0 {
				d.warn(logrus.Fields{"skipped": skipped}, "skipped bytes before start byte")
				skipped = 0
			}

			id, err := d.read(1)
			if err != nil {
				return Sample{}, err
			}
			s = Sample{ID: id[0]}
			d.state = readingChannels

		// ---- channel data ----
		case readingChannels:
			raw, err := d.read(d.cfg.Channels * ChannelWidth)
			if err != nil {
				return Sample{}, err
			}
			s.Channels = make([]float64, d.cfg.Channels)
			for i := range s.Channels {
				v := float64(Decode24(raw[i*ChannelWidth:]))
				if d.cfg.Scaled {
					v *= MicrovoltsPerCount
				}
				s.Channels[i] = v
			}
			d.state = readingAux

		// ---- accelerometer data ----
		case readingAux:
			raw, err := d.read(AuxChannels * AuxWidth)
			if err != nil {
				return Sample{}, err
			}
			s.Aux = make([]float64, AuxChannels)
			for i := range s.Aux {
				v := float64(Decode16(raw[i*AuxWidth:]))
				if d.cfg.Scaled {
					v *= GPerCount
				}
				s.Aux[i] = v
			}
			d.state = awaitingEnd

		// ---- end byte ----
		case awaitingEnd:
			b, err := d.read(1)
			if err != nil {
				return Sample{}, err
			}
			d.state = awaitingStart

			if b[0] == EndByte {
				if d.drops != nil {
					d.drops.ResetDropped()
				}
				d.decoded++
				s.Impedance = []float64{}
				return s, nil
			}

			fields := logrus.Fields{
				"seq":  s.ID,
				"got":  fmt.Sprintf("0x%02X", b[0]),
				"want": fmt.Sprintf("0x%02X", EndByte),
			}
			if d.drops != nil {
				fields["dropped"] = d.drops.IncDropped()
			}
			d.warn(fields, ErrFrameInvalid.Error())
			s = Sample{}
			spent++
		}
	}

	d.state = awaitingStart
	d.log.WithField("budget", d.cfg.MaxSkip).Error("no valid frame within skip budget")
	return Sample{}, fmt.Errorf("%w: %d bytes/frames discarded", ErrFramingExhausted, spent)
}

// read wraps every source failure as a stall and resets framing.
func (d *Decoder) read(n int) ([]byte, error) {
	b, err := d.src.Read(n)
	if err == nil {
		return b, nil
	}
	d.state = awaitingStart
	if errors.Is(err, link.ErrLinkStalled) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", link.ErrLinkStalled, err)
}

// warn reports the frames decoded since the previous warning first.
func (d *Decoder) warn(fields logrus.Fields, msg string) {
	if d.decoded > 0 {
		d.log.WithField("count", d.decoded).Info("data packets received")
		d.decoded = 0
	}
	d.log.WithFields(fields).Warn(msg)
}
