// Package silence decides when the user has finished speaking by watching
// the RMS loudness of the capture stream.
package silence

import (
	"sync"
	"time"

	"github.com/voxtype/voxtype/internal/audio"
)

const (
	// DefaultThreshold is the RMS level (on samples normalized to [-1, 1])
	// at or above which a chunk counts as speech.
	DefaultThreshold = 0.005

	// DefaultDuration is how long post-speech silence must last before the
	// stop signal fires.
	DefaultDuration = 3 * time.Second
)

// Config tunes the detector.
type Config struct {
	Threshold float64
	Duration  time.Duration
}

// WithDefaults fills zero fields with the default values.
func (c Config) WithDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	return c
}

// Detector consumes PCM chunks and emits a single stop signal once
// post-speech silence exceeds the configured duration.
//
// The silence timer only arms after at least one loud chunk has been seen
// in the session, so ambient near-silence at session start never triggers
// an auto-stop. A loud chunk clears a running timer and re-arms detection
// for a later silence period.
type Detector struct {
	cfg    Config
	now    func() time.Time
	signal chan struct{}

	mu             sync.Mutex
	speechObserved bool
	silenceStart   time.Time // zero when no timer is running
	emitted        bool
}

// NewDetector creates a detector with the given config.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:    cfg.WithDefaults(),
		now:    time.Now,
		signal: make(chan struct{}, 1),
	}
}

// C returns the channel the stop signal is delivered on.
func (d *Detector) C() <-chan struct{} {
	return d.signal
}

// ProcessChunk evaluates one capture chunk. Chunks must arrive in capture
// order; the caller is expected to invoke this from a single goroutine.
func (d *Detector) ProcessChunk(chunk audio.DataPacket) {
	loud := RMS(chunk) >= d.cfg.Threshold
	at := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if loud {
		d.speechObserved = true
		d.silenceStart = time.Time{}
		d.emitted = false
		return
	}

	// Quiet chunk. The timer only runs once speech has been observed.
	if !d.speechObserved {
		return
	}

	if d.silenceStart.IsZero() {
		d.silenceStart = at
		return
	}

	if !d.emitted && at.Sub(d.silenceStart) >= d.cfg.Duration {
		d.emitted = true
		// Non-blocking: a stale unconsumed signal must not stall capture.
		select {
		case d.signal <- struct{}{}:
		default:
		}
	}
}

// Reset clears all per-session state. Call at the start of every
// recording session.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.speechObserved = false
	d.silenceStart = time.Time{}
	d.emitted = false
	d.mu.Unlock()

	// Drop any signal left over from the previous session.
	select {
	case <-d.signal:
	default:
	}
}

// SetClock overrides the time source. Used by tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// RMS computes the root-mean-square amplitude of an S16LE chunk, with
// samples normalized to [-1, 1].
func RMS(chunk audio.DataPacket) float64 {
	return audio.RMSLevel(audio.BytesToInt16(chunk))
}
