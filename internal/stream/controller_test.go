// internal/stream/controller_test.go
package stream

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/bci-streamer/internal/daisy"
	"github.com/tamzrod/bci-streamer/internal/frame"
	"github.com/tamzrod/bci-streamer/internal/link"
	"github.com/tamzrod/bci-streamer/internal/simulator"
)

type recorder struct {
	mu  sync.Mutex
	ids []uint8
	log []string
}

func (r *recorder) handler(name string) Handler {
	return func(s frame.Sample) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.log = append(r.log, name)
		if name == "a" {
			r.ids = append(r.ids, s.ID)
		}
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func nullEntry() *logrus.Entry {
	log, _ := test.NewNullLogger()
	return logrus.NewEntry(log)
}

func newMemoryController(t *testing.T, timeout time.Duration, hooks Hooks) (*Controller, *link.Memory) {
	t.Helper()
	src := link.NewMemory(timeout)
	dec := frame.NewDecoder(src, frame.Config{}, nil, nullEntry())
	return New(dec, daisy.New(false), src, nullEntry(), hooks), src
}

func encoded(id uint8) []byte {
	return frame.Encode(id, make([]int32, frame.ChannelsPerBoard), make([]int16, frame.AuxChannels))
}

func TestStopTwiceSendsOneStopCommand(t *testing.T) {
	var stops atomic.Int32
	c, src := newMemoryController(t, 5*time.Second, Hooks{OnStop: func() { stops.Add(1) }})

	require.NoError(t, c.Start(nil, 0))
	assert.Equal(t, Streaming, c.State())

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())

	assert.Equal(t, "bs", string(src.Written()))
	assert.Equal(t, Stopped, c.State())
	assert.Equal(t, int32(1), stops.Load())

	require.NoError(t, src.Close())
	assert.NoError(t, c.Wait())
}

func TestStartWhileStreamingIsNoop(t *testing.T) {
	c, src := newMemoryController(t, 5*time.Second, Hooks{})

	require.NoError(t, c.Start(nil, 0))
	require.NoError(t, c.Start(nil, 0))
	assert.Equal(t, "b", string(src.Written()))

	require.NoError(t, c.Stop())
	require.NoError(t, src.Close())
	require.NoError(t, c.Wait())
}

func TestHandlersRunInRegistrationOrder(t *testing.T) {
	c, src := newMemoryController(t, 5*time.Second, Hooks{})
	rec := &recorder{}

	for id := uint8(0); id < 3; id++ {
		src.Feed(encoded(id))
	}
	require.NoError(t, c.Start([]Handler{rec.handler("a"), rec.handler("b")}, 0))

	require.Eventually(t, func() bool { return rec.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())
	require.NoError(t, src.Close())
	require.NoError(t, c.Wait())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint8{0, 1, 2}, rec.ids)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, rec.log)
}

func TestStallFaultsStream(t *testing.T) {
	var (
		faultErr atomic.Value
		stops    atomic.Int32
	)
	c, src := newMemoryController(t, 30*time.Millisecond, Hooks{
		OnStop:  func() { stops.Add(1) },
		OnFault: func(err error) { faultErr.Store(err) },
	})

	require.NoError(t, c.Start(nil, 0))

	err := c.Wait()
	require.ErrorIs(t, err, link.ErrLinkStalled)
	assert.Equal(t, Faulted, c.State())
	assert.Equal(t, "bs", string(src.Written()))

	got, _ := faultErr.Load().(error)
	assert.ErrorIs(t, got, link.ErrLinkStalled)

	// stopping a faulted stream sends nothing more
	require.NoError(t, c.Stop())
	assert.Equal(t, "bs", string(src.Written()))
	assert.Equal(t, int32(1), stops.Load())

	select {
	case <-c.Stopped():
	default:
		t.Fatal("stopped channel must be closed")
	}
}

func TestHaltResume(t *testing.T) {
	c, src := newMemoryController(t, 5*time.Second, Hooks{})

	assert.ErrorIs(t, c.Halt(), ErrNotStreaming)
	assert.ErrorIs(t, c.Resume(), ErrNotStreaming)

	require.NoError(t, c.Start(nil, 0))
	require.NoError(t, c.Halt())
	assert.Equal(t, Reconnecting, c.State())

	// Start during a reconnect must not race the monitor
	require.NoError(t, c.Start(nil, 0))
	assert.Equal(t, Reconnecting, c.State())

	require.NoError(t, c.Resume())
	assert.Equal(t, Streaming, c.State())
	assert.ErrorIs(t, c.Resume(), ErrNotStreaming)

	assert.Equal(t, "bsb", string(src.Written()))

	require.NoError(t, c.Stop())
	require.NoError(t, src.Close())
	require.NoError(t, c.Wait())
}

func TestResumeRelaunchesFaultedWorker(t *testing.T) {
	c, src := newMemoryController(t, 50*time.Millisecond, Hooks{})
	rec := &recorder{}

	require.NoError(t, c.Start([]Handler{rec.handler("a")}, 0))
	require.Error(t, c.Wait())
	require.Equal(t, Faulted, c.State())

	require.NoError(t, c.Halt())
	src.Feed(encoded(7))
	require.NoError(t, c.Resume())

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	require.NoError(t, src.Close())
	_ = c.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []uint8{7}, rec.ids)
}

func TestTimeLimitStopsAfterOneSecond(t *testing.T) {
	if testing.Short() {
		t.Skip("paced stream")
	}

	sim := simulator.New(simulator.Options{Timeout: 200 * time.Millisecond})
	dec := frame.NewDecoder(sim, frame.Config{Scaled: true}, nil, nullEntry())
	c := New(dec, daisy.New(false), sim, nullEntry(), Hooks{})
	rec := &recorder{}

	start := time.Now()
	require.NoError(t, c.Start([]Handler{rec.handler("a")}, time.Second))

	select {
	case <-c.Stopped():
	case <-time.After(3 * time.Second):
		t.Fatal("time limit did not stop the stream")
	}
	require.NoError(t, c.Wait())

	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.InDelta(t, 250, rec.count(), 15)

	cmds := sim.Commands()
	assert.Equal(t, "bs", string(cmds))
}

func TestFrameReadAcrossStopIsNotDispatched(t *testing.T) {
	var flushes atomic.Int32
	rec := &recorder{}
	c, src := newMemoryController(t, 5*time.Second, Hooks{OnStop: func() { flushes.Add(1) }})

	require.NoError(t, c.Start([]Handler{rec.handler("a")}, 0))
	require.NoError(t, c.Stop())

	// the worker is still parked in the read Stop could not interrupt
	src.Feed(encoded(9))
	require.NoError(t, c.Wait())

	assert.Equal(t, 0, rec.count())
	assert.Equal(t, int32(1), flushes.Load())
	assert.Equal(t, Stopped, c.State())
}

func TestWorkerExitYieldsToRestart(t *testing.T) {
	c, _ := newMemoryController(t, 5*time.Second, Hooks{})

	done := make(chan struct{})
	c.mu.Lock()
	c.running = true
	c.done = done
	c.mu.Unlock()

	// Start won the race: the state is Streaming again when the loop returns
	c.state.Store(int32(Streaming))
	require.False(t, c.finish(nil, done))

	c.mu.Lock()
	assert.True(t, c.running)
	c.mu.Unlock()
	select {
	case <-done:
		t.Fatal("worker must not report exit while streaming")
	default:
	}

	c.state.Store(int32(Stopped))
	require.True(t, c.finish(nil, done))

	c.mu.Lock()
	assert.False(t, c.running)
	c.mu.Unlock()
	select {
	case <-done:
	default:
		t.Fatal("exit must close done")
	}
}

// failingDecoder blocks until released, then fails every read at once.
type failingDecoder struct {
	gate  chan struct{}
	calls atomic.Int32
}

func (d *failingDecoder) Next() (frame.Sample, error) {
	<-d.gate
	d.calls.Add(1)
	return frame.Sample{}, errors.New("input/output error")
}

func TestReconnectingReadErrorsAreSpacedOut(t *testing.T) {
	dec := &failingDecoder{gate: make(chan struct{})}
	src := link.NewMemory(time.Second)
	c := New(dec, daisy.New(false), src, nullEntry(), Hooks{})

	require.NoError(t, c.Start(nil, 0))
	require.NoError(t, c.Halt())
	close(dec.gate)

	time.Sleep(200 * time.Millisecond)
	calls := dec.calls.Load()
	assert.Greater(t, calls, int32(0))
	assert.Less(t, calls, int32(10), "reads must not spin while reconnecting")

	require.NoError(t, c.Stop())
	require.NoError(t, c.Wait())
}
