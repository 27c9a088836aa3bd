package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrCaptureInProgress is returned by StartCapture when a session is
	// already running.
	ErrCaptureInProgress = errors.New("capture already in progress")

	// ErrNoCapture is returned by StopCapture when no session is running.
	ErrNoCapture = errors.New("no capture in progress")
)

// Source owns one capture device and accumulates its PCM stream in memory
// for the duration of a recording session. Extra taps (silence detection,
// level metering) observe the same chunk stream read-only and in order.
type Source struct {
	dev  Device
	taps []Tap

	mu        sync.Mutex
	capturing bool
	dataC     chan DataPacket
	fan       *FanOut

	bufMu sync.Mutex
	buf   []byte

	ring *SampleRingBuffer
}

// recentSampleCap bounds the level-meter window to roughly one second of
// audio at the default capture rate.
const recentSampleCap = 16000

// NewSource creates a source around the given device.
func NewSource(dev Device) *Source {
	return &Source{
		dev:  dev,
		ring: NewSampleRingBuffer(recentSampleCap),
	}
}

// Attach registers a tap that observes every captured chunk, in order.
// Taps persist across sessions. Must be called before StartCapture.
func (s *Source) Attach(tap Tap) {
	s.taps = append(s.taps, tap)
}

// StartCapture allocates the device and begins streaming chunks into the
// session buffer and the attached taps.
func (s *Source) StartCapture(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capturing {
		return ErrCaptureInProgress
	}

	dataC := make(chan DataPacket, 64)
	if err := s.dev.CaptureInto(ctx, dataC); err != nil {
		return fmt.Errorf("failed to allocate capture device: %w", err)
	}

	s.bufMu.Lock()
	s.buf = nil
	s.bufMu.Unlock()

	fan := NewFanOut()
	fan.Attach(s.accumulate)
	for _, tap := range s.taps {
		fan.Attach(tap)
	}

	if err := fan.Run(dataC); err != nil {
		s.dev.Dealloc(ctx)
		return fmt.Errorf("failed to start chunk fan-out: %w", err)
	}

	if err := s.dev.Start(ctx); err != nil {
		// Unwind the fan-out so the session leaves no goroutine behind.
		close(dataC)
		fan.Wait()
		s.dev.Dealloc(ctx)
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	s.dataC = dataC
	s.fan = fan
	s.capturing = true

	slog.Debug("capture started")

	return nil
}

// StopCapture stops the device, drains the remaining chunks, and returns
// the accumulated PCM buffer. Ownership of the buffer transfers to the
// caller; the source holds nothing between sessions.
func (s *Source) StopCapture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.capturing {
		return nil, ErrNoCapture
	}

	// Stop blocks until the device has flushed its callbacks, so closing
	// the channel afterwards is safe.
	if err := s.dev.Stop(ctx); err != nil {
		// Dealloc silences the callbacks; the fan-out must still be
		// unwound or its goroutine blocks on the channel forever.
		s.dev.Dealloc(ctx)
		close(s.dataC)
		s.fan.Wait()

		s.capturing = false
		s.dataC = nil
		s.fan = nil

		s.bufMu.Lock()
		s.buf = nil
		s.bufMu.Unlock()

		return nil, fmt.Errorf("failed to stop capture device: %w", err)
	}

	close(s.dataC)
	s.fan.Wait()
	s.dev.Dealloc(ctx)

	s.capturing = false
	s.dataC = nil
	s.fan = nil

	s.bufMu.Lock()
	pcm := s.buf
	s.buf = nil
	s.bufMu.Unlock()

	slog.Debug("capture stopped", "bytes", len(pcm))

	return pcm, nil
}

// BytesCaptured returns the number of PCM bytes accumulated so far in the
// current session. Safe to call concurrently.
func (s *Source) BytesCaptured() int64 {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	return int64(len(s.buf))
}

// RecentSamples returns up to n of the latest captured samples, for
// level metering and waveform display.
func (s *Source) RecentSamples(n int) []int16 {
	return s.ring.ReadSamples(n)
}

// Level returns the RMS loudness over the last ~100ms of capture,
// normalized to [0, 1].
func (s *Source) Level() float64 {
	return RMSLevel(s.ring.ReadSamples(1600))
}

func (s *Source) accumulate(chunk DataPacket) {
	s.bufMu.Lock()
	s.buf = append(s.buf, chunk...)
	s.bufMu.Unlock()
	s.ring.Write(BytesToInt16(chunk))
}
