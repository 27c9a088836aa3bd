package silence_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxtype/voxtype/internal/silence"
)

// chunkOf builds an S16LE chunk where every sample has the given amplitude.
func chunkOf(amplitude int16, samples int) []byte {
	data := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplitude))
	}
	return data
}

// testClock advances a fake wall clock by a fixed step per chunk.
type testClock struct {
	now  time.Time
	step time.Duration
}

func (c *testClock) tick() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newDetector(t *testing.T, cfg silence.Config, step time.Duration) (*silence.Detector, *testClock) {
	t.Helper()
	d := silence.NewDetector(cfg)
	clock := &testClock{now: time.Unix(1000, 0), step: step}
	d.SetClock(clock.tick)
	return d, clock
}

func signalled(d *silence.Detector) bool {
	select {
	case <-d.C():
		return true
	default:
		return false
	}
}

var (
	loud  = chunkOf(16000, 160) // well above the default threshold
	quiet = chunkOf(0, 160)
)

func TestDetector_SilenceOnlySessionNeverEmits(t *testing.T) {
	t.Parallel()

	// 100ms of clock per chunk; 5s of pure silence
	d, _ := newDetector(t, silence.Config{Duration: time.Second}, 100*time.Millisecond)

	for i := 0; i < 50; i++ {
		d.ProcessChunk(quiet)
	}

	assert.False(t, signalled(d), "detector must not emit before any loud chunk")
}

func TestDetector_EmitsOnceAfterSpeechThenSilence(t *testing.T) {
	t.Parallel()

	d, _ := newDetector(t, silence.Config{Duration: time.Second}, 100*time.Millisecond)

	d.ProcessChunk(loud)
	for i := 0; i < 10; i++ {
		d.ProcessChunk(quiet)
		require.False(t, signalled(d), "no emission before the duration elapses (chunk %d)", i)
	}

	// The first quiet chunk starts the timer; by the 11th the elapsed
	// time crosses one second.
	d.ProcessChunk(quiet)
	assert.True(t, signalled(d))

	// Continued silence must not emit again.
	for i := 0; i < 20; i++ {
		d.ProcessChunk(quiet)
	}
	assert.False(t, signalled(d), "at most one emission per silence period")
}

func TestDetector_LoudChunkReArmsDetection(t *testing.T) {
	t.Parallel()

	d, _ := newDetector(t, silence.Config{Duration: time.Second}, 200*time.Millisecond)

	d.ProcessChunk(loud)
	for i := 0; i < 7; i++ {
		d.ProcessChunk(quiet)
	}
	require.True(t, signalled(d))

	// Speech again, then a second silence period: eligible to emit again.
	d.ProcessChunk(loud)
	for i := 0; i < 7; i++ {
		d.ProcessChunk(quiet)
	}
	assert.True(t, signalled(d))
}

func TestDetector_LoudChunkClearsRunningTimer(t *testing.T) {
	t.Parallel()

	d, _ := newDetector(t, silence.Config{Duration: time.Second}, 400*time.Millisecond)

	d.ProcessChunk(loud)
	d.ProcessChunk(quiet) // timer starts
	d.ProcessChunk(quiet)
	d.ProcessChunk(loud) // timer cleared before the duration elapsed

	// The silence that follows restarts the count from zero.
	d.ProcessChunk(quiet)
	d.ProcessChunk(quiet)
	d.ProcessChunk(quiet)
	require.False(t, signalled(d))

	d.ProcessChunk(quiet)
	assert.True(t, signalled(d))
}

func TestDetector_ResetClearsSession(t *testing.T) {
	t.Parallel()

	d, _ := newDetector(t, silence.Config{Duration: time.Second}, 600*time.Millisecond)

	d.ProcessChunk(loud)
	d.ProcessChunk(quiet)
	d.ProcessChunk(quiet)
	d.ProcessChunk(quiet)
	require.True(t, signalled(d))

	d.Reset()

	// After reset, silence alone must not emit: speech has not been
	// observed in the new session.
	for i := 0; i < 10; i++ {
		d.ProcessChunk(quiet)
	}
	assert.False(t, signalled(d))
}

func TestRMS(t *testing.T) {
	t.Parallel()

	assert.Zero(t, silence.RMS(nil))
	assert.Zero(t, silence.RMS(chunkOf(0, 100)))

	// Full-scale square wave has RMS ~1.0
	assert.InDelta(t, 1.0, silence.RMS(chunkOf(-32768, 100)), 0.001)

	// Default threshold boundary: amplitude 164 ≈ 0.005 RMS
	assert.GreaterOrEqual(t, silence.RMS(chunkOf(200, 100)), silence.DefaultThreshold)
	assert.Less(t, silence.RMS(chunkOf(100, 100)), silence.DefaultThreshold)
}
