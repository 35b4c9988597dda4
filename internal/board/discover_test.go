// internal/board/discover_test.go
package board

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/bci-streamer/internal/link"
	"github.com/tamzrod/bci-streamer/internal/simulator"
)

func TestFilterCandidates(t *testing.T) {
	ports := []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyACM1", "/dev/tty.usbserial-DM00", "COM3"}

	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyACM1"}, filterCandidates(ports, "linux"))
	assert.Equal(t, []string{"/dev/tty.usbserial-DM00"}, filterCandidates(ports, "darwin"))
	assert.Equal(t, []string{"COM3"}, filterCandidates(ports, "windows"))
	assert.Equal(t, ports, filterCandidates(ports, "plan9"))
}

func TestFindPortReturnsFirstIdentifiedBoard(t *testing.T) {
	opened := map[string]*simulator.Board{}

	list := func() ([]string, error) {
		return []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3"}, nil
	}
	open := func(port string) (link.Source, error) {
		var b *simulator.Board
		switch port {
		case "/dev/ttyUSB0":
			return nil, errors.New("permission denied")
		case "/dev/ttyUSB1":
			b = simulator.New(simulator.Options{Timeout: 20 * time.Millisecond, Identity: "Arduino Uno\n$$$"})
		default:
			b = simulator.New(simulator.Options{Timeout: 20 * time.Millisecond})
		}
		opened[port] = b
		return b, nil
	}

	port, err := FindPort(list, open, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB2", port)

	// queried ports got a soft reset and were closed again
	for _, p := range []string{"/dev/ttyUSB1", "/dev/ttyUSB2"} {
		assert.Equal(t, "v", string(opened[p].Commands()), p)
		_, err := opened[p].Read(1)
		assert.ErrorIs(t, err, link.ErrClosed, p)
	}
	assert.NotContains(t, opened, "/dev/ttyUSB3")
}

func TestFindPortNothingAnswers(t *testing.T) {
	list := func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }
	open := func(string) (link.Source, error) {
		return link.NewMemory(10 * time.Millisecond), nil
	}

	_, err := FindPort(list, open, 0, nil)
	assert.ErrorIs(t, err, ErrPortNotFound)
}

func TestFindPortListError(t *testing.T) {
	boom := errors.New("no serial subsystem")
	list := func() ([]string, error) { return nil, boom }

	_, err := FindPort(list, nil, 0, nil)
	assert.ErrorIs(t, err, boom)
}
