// internal/board/text.go
package board

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/bci-streamer/internal/link"
)

// ErrNoData is returned when the board has nothing to say.
var ErrNoData = errors.New("board: no data")

// textTerminator ends every text reply of the board.
const textTerminator = "$$$"

// maxTextBytes bounds a text reply so a streaming board cannot keep us here.
const maxTextBytes = 4096

// readText reads one text reply up to and including the terminator.
func readText(src link.Source) (string, error) {
	n, err := src.Available()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrNoData
	}

	var buf bytes.Buffer
	for !bytes.HasSuffix(buf.Bytes(), []byte(textTerminator)) {
		if buf.Len() >= maxTextBytes {
			return sanitize(buf.Bytes()), fmt.Errorf("board: text reply exceeds %d bytes", maxTextBytes)
		}
		b, err := src.Read(1)
		if err != nil {
			return sanitize(buf.Bytes()), err
		}
		buf.Write(b)
	}
	return sanitize(buf.Bytes()), nil
}

// sanitize decodes best-effort: invalid bytes become replacement characters.
func sanitize(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
