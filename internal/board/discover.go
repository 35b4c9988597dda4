// internal/board/discover.go
package board

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/tamzrod/bci-streamer/internal/command"
	"github.com/tamzrod/bci-streamer/internal/link"
)

// ErrPortNotFound is returned when no candidate port identifies as a board.
var ErrPortNotFound = errors.New("board: no port answered with an OpenBCI identification")

// identMarker is what a board's reset banner always contains.
const identMarker = "OpenBCI"

// PortLister enumerates serial ports.
type PortLister func() ([]string, error)

// PortOpener opens one port for probing.
type PortOpener func(port string) (link.Source, error)

// candidatePrefixes are the device names a USB dongle shows up under.
var candidatePrefixes = map[string][]string{
	"linux":   {"/dev/ttyUSB", "/dev/ttyACM"},
	"darwin":  {"/dev/tty.usbserial", "/dev/cu.usbserial"},
	"windows": {"COM"},
}

// ListPorts returns the platform's serial ports that may hold a dongle.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return filterCandidates(ports, runtime.GOOS), nil
}

func filterCandidates(ports []string, goos string) []string {
	prefixes, ok := candidatePrefixes[goos]
	if !ok {
		return ports
	}

	out := make([]string, 0, len(ports))
	for _, p := range ports {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// FindPort queries each listed port with a soft reset and returns the first
// whose reply identifies a board.
func FindPort(list PortLister, open PortOpener, settle time.Duration, log *logrus.Entry) (string, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ports, err := list()
	if err != nil {
		return "", err
	}

	for _, port := range ports {
		l := log.WithField("port", port)

		src, err := open(port)
		if err != nil {
			l.WithError(err).Debug("port unavailable")
			continue
		}

		found := identifies(src, settle)
		if err := src.Close(); err != nil {
			l.WithError(err).Debug("close after query failed")
		}

		if found {
			l.Info("board found")
			return port, nil
		}
		l.Debug("no board on port")
	}

	return "", ErrPortNotFound
}

func identifies(src link.Source, settle time.Duration) bool {
	if err := src.Write([]byte{command.SoftReset}); err != nil {
		return false
	}
	time.Sleep(settle)

	text, err := readText(src)
	if err != nil {
		return false
	}
	return strings.Contains(text, identMarker)
}
