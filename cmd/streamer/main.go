// cmd/streamer/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/bci-streamer/internal/board"
	"github.com/tamzrod/bci-streamer/internal/config"
	"github.com/tamzrod/bci-streamer/internal/frame"
	"github.com/tamzrod/bci-streamer/internal/logging"
	"github.com/tamzrod/bci-streamer/internal/stream"
	"github.com/tamzrod/bci-streamer/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: streamer <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, closeLog := logging.New(cfg.Logging)
	defer closeLog()
	mainLog := logging.Component(logger, "main")

	// --------------------
	// Status export (optional)
	// --------------------

	statusWriter, closeStatus, err := writer.BuildStatusWriter(cfg.Status)
	if err != nil {
		mainLog.WithError(err).Fatal("status writer build failed")
	}
	defer closeStatus()

	// --------------------
	// Session
	// --------------------

	out := newConsole(os.Stdout)

	opts := board.Options{
		Log:    logger,
		OnStop: out.Flush,
	}
	if statusWriter != nil {
		opts.Status = statusWriter
	}

	sess, err := board.Open(cfg, opts)
	if err != nil {
		mainLog.WithError(err).Fatal("board open failed")
	}
	defer sess.Disconnect()

	mainLog.WithFields(logrus.Fields{
		"board":       sess.BoardType(),
		"sample_rate": sess.SampleRate(),
		"eeg":         sess.EEGChannels(),
		"aux":         sess.AuxChannels(),
	}).Info("board connected")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	limit := time.Duration(cfg.Stream.TimeLimitMs) * time.Millisecond
	if err := sess.Start([]stream.Handler{out.Handle}, limit); err != nil {
		mainLog.WithError(err).Fatal("stream start failed")
	}

	select {
	case <-ctx.Done():
		mainLog.Info("signal received, stopping")
	case <-sess.Stopped():
	}

	if err := sess.Disconnect(); err != nil {
		mainLog.WithError(err).Warn("disconnect failed")
	}
}

// console prints one line per sample: id, channels, then aux values.
// Handle runs on the streaming worker, Flush on whichever goroutine stops it.
type console struct {
	mu  sync.Mutex
	w   *bufio.Writer
	buf []byte
}

func newConsole(w io.Writer) *console {
	return &console{w: bufio.NewWriter(w), buf: make([]byte, 0, 256)}
}

func (c *console) Handle(s frame.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := strconv.AppendUint(c.buf[:0], uint64(s.ID), 10)
	for _, v := range s.Channels {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, v, 'f', 3, 64)
	}
	buf = append(buf, " |"...)
	for _, v := range s.Aux {
		buf = append(buf, ' ')
		buf = strconv.AppendFloat(buf, v, 'f', 4, 64)
	}
	buf = append(buf, '\n')
	c.buf = buf

	if _, err := c.w.Write(buf); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
	}
}

func (c *console) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.w.Flush()
}
