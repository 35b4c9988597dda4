// internal/link/source.go
package link

import "errors"

var (
	// ErrLinkStalled means a read returned fewer bytes than requested.
	// A short or empty read is a dead or stalled link, never a partial result.
	ErrLinkStalled = errors.New("link: stalled")

	// ErrClosed is returned by operations on a closed source.
	ErrClosed = errors.New("link: closed")
)

// Source is the byte channel to the board.
// No retries at this layer: retry policy belongs to the session and monitor.
type Source interface {
	// Read returns exactly n bytes or fails with ErrLinkStalled.
	Read(n int) ([]byte, error)

	// Write sends b in full.
	Write(b []byte) error

	// Available reports how many bytes can be read without waiting
	// longer than the source's read timeout.
	Available() (int, error)

	// Close releases the channel. Safe to call more than once.
	Close() error
}
