// internal/board/control.go
package board

import (
	"errors"
	"fmt"

	"github.com/tamzrod/bci-streamer/internal/command"
	"github.com/tamzrod/bci-streamer/internal/stream"
)

var (
	// ErrChannelRange is returned for a channel the attached board does not have.
	ErrChannelRange = errors.New("board: channel out of range")

	// ErrUnknownTestSignal is returned for a test signal mode outside the table.
	ErrUnknownTestSignal = errors.New("board: unknown test signal")

	// ErrStreaming is returned by queries that need exclusive use of the link.
	ErrStreaming = errors.New("board: stream active")
)

// SetChannel turns one channel (1..16) on or off.
// Channels 9..16 need a daisy board.
func (s *Session) SetChannel(channel int, on bool) error {
	if channel > command.PrimaryChannels && !s.cfg.Board.Daisy {
		return fmt.Errorf("%w: channel %d without daisy board", ErrChannelRange, channel)
	}
	cmd, err := command.Channel(channel, on)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelRange, err)
	}
	if err := s.write(cmd); err != nil {
		return fmt.Errorf("board: channel %d: %w", channel, err)
	}
	s.log.WithField("channel", channel).WithField("on", on).Debug("channel set")
	return nil
}

// ApplyChannelMask turns off every channel disabled in the configured mask.
func (s *Session) ApplyChannelMask() error {
	mask := s.cfg.Board.ChannelMask()
	for ch := 1; ch <= s.cfg.Board.ChannelCount(); ch++ {
		if mask&(1<<uint(ch-1)) != 0 {
			continue
		}
		if err := s.SetChannel(ch, false); err != nil {
			return err
		}
	}
	return nil
}

// EnableFilters turns on the board's notch and bandpass filters.
func (s *Session) EnableFilters() error {
	if err := s.write(command.EnableFilters); err != nil {
		return fmt.Errorf("board: enable filters: %w", err)
	}
	s.log.Info("filters enabled")
	return nil
}

// DisableFilters turns the board's filters off.
func (s *Session) DisableFilters() error {
	if err := s.write(command.DisableFilters); err != nil {
		return fmt.Errorf("board: disable filters: %w", err)
	}
	s.log.Info("filters disabled")
	return nil
}

// TestSignal switches every channel to one of the internal test signals.
func (s *Session) TestSignal(mode int) error {
	sig, ok := command.Signal(mode)
	if !ok {
		s.log.WithField("mode", mode).Warn("unknown test signal")
		return fmt.Errorf("%w: %d", ErrUnknownTestSignal, mode)
	}
	if err := s.write(sig.Command); err != nil {
		return fmt.Errorf("board: test signal: %w", err)
	}
	s.log.WithField("signal", sig.Description).Info("test signal set")
	return nil
}

// ReadText reads pending board text up to the terminator.
// It fails with ErrNoData when the board sends nothing within one timeout.
func (s *Session) ReadText() (string, error) {
	if s.State() != stream.Stopped {
		return "", ErrStreaming
	}
	return readText(s.src)
}

// RegisterSettings asks the board for its ADS register dump.
// The reply shares the link with frames, so the stream must be stopped.
func (s *Session) RegisterSettings() (string, error) {
	if s.State() != stream.Stopped {
		return "", ErrStreaming
	}
	if err := s.write(command.RegisterSettings); err != nil {
		return "", fmt.Errorf("board: register query: %w", err)
	}
	text, err := readText(s.src)
	if err != nil {
		return text, fmt.Errorf("board: register query: %w", err)
	}
	return text, nil
}
